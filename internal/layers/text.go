package layers

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PopupText normalizes a label for display: surrounding whitespace is
// trimmed, the first letter is upper-cased and the rest lower-cased.
// It is presentation only and must never be applied to join keys.
func PopupText(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}

	first, size := utf8.DecodeRuneInString(label)
	head := cases.Upper(language.Und).String(string(first))
	tail := cases.Lower(language.Und).String(label[size:])
	return head + tail
}
