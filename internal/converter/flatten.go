package converter

import (
	"html"
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for the structural flattening pass.
var (
	scriptTag    = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag     = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	headTag      = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComments = regexp.MustCompile(`(?s)<!--.*?-->`)

	anchorTag    = regexp.MustCompile(`(?is)<a\s[^>]*href="([^"]*)"[^>]*>(.*?)</a>`)
	imgTagAlt    = regexp.MustCompile(`(?is)<img\s[^>]*src="([^"]*)"[^>]*alt="([^"]*)"[^>]*>`)
	imgTag       = regexp.MustCompile(`(?is)<img\s[^>]*src="([^"]*)"[^>]*>`)
	headingOpen  = regexp.MustCompile(`(?i)<h([1-6])[^>]*>`)
	headingClose = regexp.MustCompile(`(?i)</h[1-6]>`)
	listItemOpen = regexp.MustCompile(`(?i)<li[^>]*>`)

	closeBlockElements = regexp.MustCompile(`(?i)</(p|div|li|tr|blockquote|pre|table|section|article|ul|ol)>`)
	openBlockElements  = regexp.MustCompile(`(?i)<(p|div|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags             = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags             = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags            = regexp.MustCompile(`<[^>]+>`)
	multiSpaces        = regexp.MustCompile(`[ \t]+`)
	multiNewlines      = regexp.MustCompile(`\n{3,}`)
)

// Flatten converts a rich-text body to plain markdown by structure: anchors
// and images become markdown link tokens, headings and list items keep
// their markdown shape, other block boundaries become newlines, and every
// remaining tag is dropped. Styling and layout are intentionally lost;
// content and link tokens survive.
func Flatten(body string) string {
	body = scriptTag.ReplaceAllString(body, "")
	body = styleTag.ReplaceAllString(body, "")
	body = headTag.ReplaceAllString(body, "")
	body = htmlComments.ReplaceAllString(body, "")

	// Links and images first, while their attributes are still present.
	body = imgTagAlt.ReplaceAllString(body, "![$2]($1)")
	body = imgTag.ReplaceAllString(body, "![]($1)")
	body = anchorTag.ReplaceAllString(body, "[$2]($1)")

	// Headings keep their level; list items become bullets.
	body = headingOpen.ReplaceAllStringFunc(body, func(m string) string {
		level := headingOpen.FindStringSubmatch(m)[1][0] - '0'
		return "\n" + strings.Repeat("#", int(level)) + " "
	})
	body = headingClose.ReplaceAllString(body, "\n")
	body = listItemOpen.ReplaceAllString(body, "\n- ")

	body = brTags.ReplaceAllString(body, "\n")
	body = hrTags.ReplaceAllString(body, "\n---\n")
	body = closeBlockElements.ReplaceAllString(body, "\n")
	body = openBlockElements.ReplaceAllString(body, "\n")
	body = allTags.ReplaceAllString(body, "")

	body = html.UnescapeString(body)

	body = multiSpaces.ReplaceAllString(body, " ")

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	body = strings.Join(lines, "\n")
	body = multiNewlines.ReplaceAllString(body, "\n\n")
	return strings.TrimSpace(body)
}
