package models

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy     = bluemonday.StripTagsPolicy()
	htmlPolicy     = bluemonday.UGCPolicy()
	htmlPolicyOnce sync.Once
)

var codeLanguage = regexp.MustCompile(`^language-[\w+#-]+$`)

// SanitiseHTML strips any HTML not on the cleanse whitelist, leaving a safe
// set of HTML intact that is not going to pose an XSS risk
func SanitiseHTML(src []byte) []byte {
	htmlPolicyOnce.Do(func() {
		htmlPolicy.RequireNoFollowOnLinks(false)
		htmlPolicy.RequireNoFollowOnFullyQualifiedLinks(true)
		htmlPolicy.AddTargetBlankToFullyQualifiedLinks(true)

		// Fenced code keeps its language for client side highlighting
		htmlPolicy.AllowAttrs("class").Matching(codeLanguage).OnElements("code")
	})

	return htmlPolicy.SanitizeBytes(src)
}

// SanitiseText strips all HTML tags from text
func SanitiseText(s string) string {
	return textPolicy.Sanitize(s)
}
