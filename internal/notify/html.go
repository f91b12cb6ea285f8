package notify

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// applicant text is untrusted; the HTML part keeps none of its markup
var htmlPolicy = bluemonday.StrictPolicy()

// htmlBody renders a plain text body as a single paragraph with line breaks.
func htmlBody(text string) string {
	clean := htmlPolicy.Sanitize(text)
	clean = strings.ReplaceAll(clean, "\r\n", "\n")
	return "<p>" + strings.ReplaceAll(clean, "\n", "<br/>") + "</p>"
}
