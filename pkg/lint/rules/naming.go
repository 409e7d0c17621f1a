package rules

import (
	"regexp"
	"slices"
	"strings"
)

var (
	snakeCasePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

	lowerUpper      = regexp.MustCompile(`([a-z])([A-Z])`)
	acronymBoundary = regexp.MustCompile(`([A-Z])([A-Z][a-z])`)
	whitespace      = regexp.MustCompile(`\s+`)
	underscores     = regexp.MustCompile(`_+`)
)

// isSnakeCase reports whether name is lower snake_case: a leading
// letter, then lower-case letters, digits and single inner underscores.
func isSnakeCase(name string) bool {
	if name == "" ||
		strings.HasPrefix(name, "_") ||
		strings.HasSuffix(name, "_") ||
		strings.Contains(name, "__") {
		return false
	}
	return snakeCasePattern.MatchString(name)
}

// toSnakeCase converts PascalCase, camelCase, kebab-case and spaced names
// to snake_case. Acronyms stay together: XMLHttpRequest is xml_http_request.
func toSnakeCase(name string) string {
	s := lowerUpper.ReplaceAllString(name, "${1}_${2}")
	s = acronymBoundary.ReplaceAllString(s, "${1}_${2}")
	s = strings.ReplaceAll(s, "-", "_")
	s = whitespace.ReplaceAllString(s, "_")
	s = strings.ToLower(s)
	s = underscores.ReplaceAllString(s, "_")
	s = strings.TrimPrefix(s, "_")
	return strings.TrimSuffix(s, "_")
}

// ignored reports whether name is listed, ignoring case.
func ignored(list []string, name string) bool {
	return slices.ContainsFunc(list, func(s string) bool {
		return strings.EqualFold(s, name)
	})
}
