package joplin

import (
	"fmt"
	"strings"
)

// Markup language values used by the notes API.
const (
	// MarkupMarkdown marks a plain-markdown note body.
	MarkupMarkdown = 1
	// MarkupHTML marks a rich-text (HTML) note body.
	MarkupHTML = 2
)

// Resource kinds tracked locally. The data API does not distinguish them;
// the migration does, because attachments carry a stable source guid and
// images do not.
const (
	// ResourceAttachment is a file attachment with a stable source identifier.
	ResourceAttachment = 1
	// ResourceImage is an embedded image; its id is assigned by the remote side.
	ResourceImage = 2
)

// Folder is a Joplin notebook.
type Folder struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ParentID    string `json:"parent_id"`
	CreatedTime int64  `json:"created_time"`
	UpdatedTime int64  `json:"updated_time"`
}

// Tag is a Joplin tag.
type Tag struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	CreatedTime int64  `json:"created_time"`
	UpdatedTime int64  `json:"updated_time"`
}

// Resource is an uploaded binary asset.
type Resource struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Filename      string `json:"filename"`
	FileExtension string `json:"file_extension"`
	CreatedTime   int64  `json:"created_time"`
	UpdatedTime   int64  `json:"updated_time"`
}

// Note is a Joplin note.
type Note struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	ParentID       string `json:"parent_id"`
	MarkupLanguage int    `json:"markup_language"`
	SourceURL      string `json:"source_url"`
	CreatedTime    int64  `json:"created_time"`
	UpdatedTime    int64  `json:"updated_time"`
}

// APIError is a failure reported by the data API in its JSON error field.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("joplin API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Conflict reports whether the error is a uniqueness-constraint violation,
// meaning the entity already exists remotely under the same identifier.
func (e *APIError) Conflict() bool {
	return strings.Contains(e.Message, "UNIQUE constraint failed")
}
