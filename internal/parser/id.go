package parser

import (
	"fmt"
	"strings"

	"github.com/rongzh/wiz2joplin/internal/apperrors"
)

const (
	wizGUIDLength  = 36 // UUID format: 8-4-4-4-12
	joplinIDLength = 32 // wiz guid with the four hyphens removed
)

// uuidSegments are the character counts of the five hyphen-separated guid segments.
var uuidSegments = []int{8, 4, 4, 4, 12}

// ToJoplinID converts a 36-character wiz guid into the 32-character Joplin id
// format by removing the four hyphens. The transform is pure and reversible
// (see ToWizID), which is what makes "already migrated" checks possible
// without a remote lookup.
func ToJoplinID(guid string) string {
	return strings.ReplaceAll(guid, "-", "")
}

// ToWizID converts a 32-character Joplin id back into the wiz guid format by
// re-inserting hyphens at the 8-4-4-4-12 boundaries. It is the inverse of
// ToJoplinID.
func ToWizID(id string) string {
	parts := make([]string, 0, len(uuidSegments))
	rest := id
	for _, n := range uuidSegments {
		if len(rest) < n {
			parts = append(parts, rest)
			rest = ""
			break
		}
		parts = append(parts, rest[:n])
		rest = rest[n:]
	}
	return strings.Join(parts, "-")
}

// ValidateGUID checks that s looks like a wiz guid (36 chars, hyphens at the
// UUID positions, lowercase hex elsewhere).
func ValidateGUID(s string) error {
	if len(s) != wizGUIDLength {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidGUID, s)
	}
	pos := 0
	for i, n := range uuidSegments {
		if i > 0 {
			if s[pos] != '-' {
				return fmt.Errorf("%w: %q", apperrors.ErrInvalidGUID, s)
			}
			pos++
		}
		for j := 0; j < n; j++ {
			c := s[pos]
			if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
				return fmt.Errorf("%w: %q", apperrors.ErrInvalidGUID, s)
			}
			pos++
		}
	}
	return nil
}

// ValidateJoplinID checks that s looks like a Joplin id (32 lowercase hex chars).
func ValidateJoplinID(s string) error {
	if len(s) != joplinIDLength {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidJoplinID, s)
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q", apperrors.ErrInvalidJoplinID, s)
		}
	}
	return nil
}
