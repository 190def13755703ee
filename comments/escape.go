package comments

import "strings"

// The single quote is left alone on purpose: attribute values are always
// double-quoted, and apostrophes in names and text read naturally.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// EscapeHTML escapes &, <, > and " for text and double-quoted attributes
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
