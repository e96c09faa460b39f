// Package apperrors provides common static errors used throughout the application.
package apperrors

import (
	"errors"
	"fmt"
)

// HTTPError represents an HTTP error with a status code.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// NewHTTPError creates a new HTTPError.
func NewHTTPError(statusCode int, body string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Body: body}
}

// Common static errors used throughout the application.
var (
	// ErrTokenRequired is returned when a Joplin token is required but not provided.
	ErrTokenRequired = errors.New("joplin token required (--joplin-token or W2J_JOPLIN_TOKEN env var)")

	// ErrLocationRequired is returned when neither --location nor --all is given to sync.
	ErrLocationRequired = errors.New("location required (use --location or --all)")

	// ErrWizDirRequired is returned when the WizNote data directory is not provided.
	ErrWizDirRequired = errors.New("wiznote data directory required (--wiz-dir or W2J_WIZ_DIR env var)")

	// ErrWizUserRequired is returned when the WizNote user id is not provided.
	ErrWizUserRequired = errors.New("wiznote user id required (--wiz-user or W2J_WIZ_USER env var)")

	// ErrInvalidGUID is returned when an identifier is not a valid 36-character wiz guid.
	ErrInvalidGUID = errors.New("invalid wiz guid format")

	// ErrInvalidJoplinID is returned when an identifier is not a valid 32-character joplin id.
	ErrInvalidJoplinID = errors.New("invalid joplin id format")

	// ErrLocationNotFound is returned when a location path has no hierarchy node.
	ErrLocationNotFound = errors.New("location not found")

	// ErrParentNotResolved is returned when a folder's parent has no node in the
	// hierarchy, or has not been created remotely even though the level-ordered
	// creation pass should have handled it first. This is a logic defect and
	// aborts the run.
	ErrParentNotResolved = errors.New("parent folder not resolved")

	// ErrAttachmentCountMismatch is returned when the attachment records found for
	// a document do not match the count declared in the document row.
	ErrAttachmentCountMismatch = errors.New("attachment count mismatch")

	// ErrGroupStorageNotFound is returned when the group storage guid cannot be
	// resolved for the configured user.
	ErrGroupStorageNotFound = errors.New("group storage not found for user")

	// ErrMaxRetriesExceeded is returned when the maximum number of retries is exceeded.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrPingFailed is returned when the Joplin Web Clipper service did not answer the ping.
	ErrPingFailed = errors.New("joplin web clipper service did not answer ping")
)
