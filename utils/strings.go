package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UpperCamelCase joins the '-' or '_' separated parts of s, upper-casing
// the first letter of each and leaving the rest untouched.
// Example: "mind-map_plugin" -> "MindMapPlugin", "X6Plugin" -> "X6Plugin"
func UpperCamelCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' })
	c := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(c.String(part))
	}
	return b.String()
}

// LowerCamelCase is UpperCamelCase with the first character lower-cased.
// Example: "created_by_id" -> "createdById"
func LowerCamelCase(s string) string {
	upper := UpperCamelCase(s)
	if len(upper) == 0 {
		return upper
	}
	return strings.ToLower(upper[:1]) + upper[1:]
}
