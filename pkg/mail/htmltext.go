package mail

import (
	"html"
	"regexp"
	"strings"
)

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<(script|style)\b.*?</(script|style)>`)
	lineBreakRe   = regexp.MustCompile(`(?i)<br\s*/?>`)
	paraCloseRe   = regexp.MustCompile(`(?i)</(p|div|tr|li|h[1-6])>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
	spaceRunRe    = regexp.MustCompile(`[ \t]+`)
)

// htmlToText derives the plain-text alternative for an HTML body.
// Block-level closers become line breaks so the result still reads as
// paragraphs in clients that only show text/plain.
func htmlToText(htmlBody string) string {
	text := scriptBlockRe.ReplaceAllString(htmlBody, "")
	text = lineBreakRe.ReplaceAllString(text, "\n")
	text = paraCloseRe.ReplaceAllString(text, "\n\n")
	text = tagRe.ReplaceAllString(text, "")
	text = html.UnescapeString(text)
	text = spaceRunRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
