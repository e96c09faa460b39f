// Package parser extracts wiz-style inline links and embedded images from
// note bodies, and provides the identifier transform between the wiz guid
// and Joplin id formats.
package parser

import (
	"regexp"
	"strings"
)

// Link kinds as they appear in the wiz URI verb.
const (
	LinkKindImage      = "image"
	LinkKindAttachment = "open_attachment"
	LinkKindDocument   = "open_document"
)

// InlineLink is a wiz-style cross reference found in a note body. It may
// point at an attachment or at another document.
type InlineLink struct {
	// OuterHTML is the exact matched substring, anchor tag included.
	OuterHTML string
	// GUID is the wiz guid of the link target.
	GUID string
	// Title is the anchor text.
	Title string
	// Kind is LinkKindAttachment or LinkKindDocument.
	Kind string
}

// InlineImage is a local image embedded in a note body. Images have no guid
// of their own in the source system; they are addressed by a path relative
// to the unpacked note archive.
type InlineImage struct {
	// OuterHTML is the exact matched substring (img tag or markdown image).
	OuterHTML string
	// Src is the index_files-relative path of the image file.
	Src string
}

// Early notes link attachments as wiz:open_attachment?guid=..., later ones
// as wiz://open_attachment?guid=... Document links carry two extra query
// parts. Both forms appear inside a plain anchor tag. The attachment pattern
// requires the closing quote right after the guid, so the two patterns never
// match the same anchor.
var (
	reAttachmentLink = regexp.MustCompile(`(?i)<a href="wiz:/{0,2}(open_\w+)\?guid=([a-z0-9\-]{36})">([^<]+)</a>`)
	reDocumentLink   = regexp.MustCompile(`(?i)<a href="wiz:/{0,2}(open_\w+)\?guid=([a-z0-9\-]{36})&amp;kbguid=&amp;private_kbguid=([a-z0-9\-]{36})">([^<]+)</a>`)
	reImageTag       = regexp.MustCompile(`(?i)<img .*?src="(index_files/[^"]+)"[^>]*>`)
	reImageMarkdown  = regexp.MustCompile(`(?i)!\[[^\[\]]*\]\((index_files/[^()]+)\)`)
)

// ParseBody scans a note body for inline links and embedded images. The body
// must already be newline-free (early notes hard-wrap inside tags; the
// source reader strips line breaks before calling this).
func ParseBody(body string) ([]InlineLink, []InlineImage) {
	var links []InlineLink

	for _, m := range reAttachmentLink.FindAllStringSubmatch(body, -1) {
		links = append(links, InlineLink{
			OuterHTML: m[0],
			GUID:      m[2],
			Title:     m[3],
			Kind:      strings.ToLower(m[1]),
		})
	}
	for _, m := range reDocumentLink.FindAllStringSubmatch(body, -1) {
		links = append(links, InlineLink{
			OuterHTML: m[0],
			GUID:      m[2],
			Title:     m[4],
			Kind:      strings.ToLower(m[1]),
		})
	}

	var images []InlineImage
	for _, m := range reImageTag.FindAllStringSubmatch(body, -1) {
		images = append(images, InlineImage{OuterHTML: m[0], Src: m[1]})
	}
	for _, m := range reImageMarkdown.FindAllStringSubmatch(body, -1) {
		// Escaped-entity noise inside the path means the match is not a real
		// image reference.
		if strings.Contains(m[1], "&nbsp;&quot;") {
			continue
		}
		images = append(images, InlineImage{OuterHTML: m[0], Src: m[1]})
	}

	return links, images
}
