// Package wiz reads a WizNote account directory: the index.db catalog, the
// per-document zip archives under notes/ and the attachment files under
// attachments/. All access is read-only; the account directory is never
// modified.
package wiz

import (
	"strings"
	"time"

	"github.com/rongzh/wiz2joplin/internal/parser"
)

// timeLayout is how index.db stores timestamps: local wall-clock time in the
// UTC+8 zone the desktop client runs in, without zone information.
const timeLayout = "2006-01-02 15:04:05"

var wizZone = time.FixedZone("UTC+8", 8*60*60)

// parseTime converts an index.db timestamp to unix milliseconds.
func parseTime(s string) (int64, error) {
	t, err := time.ParseInLocation(timeLayout, s, wizZone)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

// Tag is one account-wide tag.
type Tag struct {
	GUID        string
	Name        string
	UpdatedTime int64
}

// Attachment is one attachment record. Attachments are first-class resources
// with their own guid; File is the on-disk path, whose basename is the guid
// in braces followed by the attachment name.
type Attachment struct {
	GUID         string
	DocumentGUID string
	Name         string
	UpdatedTime  int64
	File         string
}

// Image is one local image referenced by a document body. Images are not
// resources and carry no guid; they live next to the extracted index.html
// under index_files/.
type Image struct {
	OuterHTML string
	Src       string
	File      string
}

// Document is one note. Body, Links and Images are only populated after
// ResolveBody; the catalog fields come straight from index.db.
type Document struct {
	GUID            string
	Title           string
	Location        string
	URL             string
	CreatedTime     int64
	UpdatedTime     int64
	AttachmentCount int

	// Markdown is true when the stored title carries the .md suffix. The
	// suffix is stripped from Title.
	Markdown bool

	Body        string
	Tags        []Tag
	Attachments []Attachment
	Links       []parser.InlineLink
	Images      []Image
}

// newDocument builds a Document from its catalog fields, detecting the
// markup kind from the title suffix.
func newDocument(guid, title, location, url string, created, updated int64, attachmentCount int) *Document {
	d := &Document{
		GUID:            guid,
		Title:           title,
		Location:        location,
		URL:             url,
		CreatedTime:     created,
		UpdatedTime:     updated,
		AttachmentCount: attachmentCount,
	}
	if strings.HasSuffix(title, ".md") {
		d.Markdown = true
		if len(title) > 3 {
			d.Title = title[:len(title)-3]
		}
	}
	return d
}
