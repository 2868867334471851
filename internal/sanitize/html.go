// Package sanitize cleans user-supplied strings before they are stored.
package sanitize

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy = bluemonday.StrictPolicy()

	// descriptionPolicy keeps light formatting in event descriptions.
	descriptionPolicy = newDescriptionPolicy()
)

func newDescriptionPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "b", "i", "em", "strong", "ul", "ol", "li", "h3", "h4")
	p.AllowAttrs("href").Matching(regexp.MustCompile(`^(https?://|mailto:)`)).OnElements("a")
	p.AllowStandardURLs()
	p.AllowURLSchemes("http", "https", "mailto")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Text strips all markup. Used for names, venues and comments.
func Text(input string) string {
	return textPolicy.Sanitize(input)
}

// HTML keeps a small set of formatting tags and http(s)/mailto links.
// Used for event descriptions.
func HTML(input string) string {
	return descriptionPolicy.Sanitize(input)
}
