package lint

import (
	"fmt"
	"strings"
)

// DefaultDocsBaseURL is where rule documentation is published.
const DefaultDocsBaseURL = "https://sqlint.dev/rules"

// DocURL returns the documentation URL for a rule.
func DocURL(name string) string {
	return fmt.Sprintf("%s/%s", DefaultDocsBaseURL, strings.ToLower(name))
}
