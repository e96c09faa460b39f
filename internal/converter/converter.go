// Package converter rewrites note bodies for the target system: source-side
// cross references become Joplin link tokens addressed by resource id, and
// rich-text bodies are structurally flattened to plain markdown.
package converter

import (
	"fmt"
	"strings"

	"github.com/rongzh/wiz2joplin/internal/parser"
)

// Link is one cross reference to rewrite. OriginalMarkup is the exact
// substring to replace; when it is empty the reference has no in-body
// occurrence (an orphan resource, most commonly an attachment that is never
// hyperlinked) and is appended to the body instead of substituted.
type Link struct {
	NoteID         string
	ResourceID     string
	Title          string
	Kind           string
	OriginalMarkup string
}

// appendixTitle heads the generated section listing orphan resources.
const appendixTitle = "Attachments"

// RewriteBody replaces every in-body reference with a Joplin link token and
// appends a titled list of the references that have no in-body occurrence,
// in their discovery order. markdown selects the token dialect for the
// substitution pass; rich-text bodies are flattened to plain markdown after
// substitution, so the final body is always plain markdown.
//
// Substitution is replace-all: a reference whose markup appears several
// times in the body is rewritten at every occurrence.
func RewriteBody(body string, markdown bool, links []Link) string {
	var orphans []Link
	for _, l := range links {
		if l.OriginalMarkup == "" {
			orphans = append(orphans, l)
			continue
		}
		body = strings.ReplaceAll(body, l.OriginalMarkup, LinkToken(markdown, l))
	}

	if !markdown {
		body = Flatten(body)
	}

	if len(orphans) > 0 {
		body += appendix(orphans)
	}
	return body
}

// LinkToken renders the replacement token for one reference. Tokens address
// the target resource by id, never by title: titles are neither unique nor
// stable.
func LinkToken(markdown bool, l Link) string {
	if markdown {
		token := fmt.Sprintf("[%s](:/%s)", l.Title, l.ResourceID)
		if l.Kind == parser.LinkKindImage {
			return "!" + token
		}
		return token
	}
	if l.Kind == parser.LinkKindImage {
		return fmt.Sprintf(`<img src=":/%s" alt="%s">`, l.ResourceID, l.Title)
	}
	return fmt.Sprintf(`<a href=":/%s">%s</a>`, l.ResourceID, l.Title)
}

// appendix renders the orphan-resource section appended to the body. The
// body is plain markdown by the time this runs.
func appendix(links []Link) string {
	var b strings.Builder
	b.WriteString("\n\n# " + appendixTitle + "\n\n")
	for i, l := range links {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + LinkToken(true, l))
	}
	return b.String()
}
