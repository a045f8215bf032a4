package cache

import (
	"strings"
	"unicode"
)

// toSnake converts s to snake_case. Runs of punctuation, spaces and dashes
// collapse to a single underscore so namespace and view segments never
// contain the key separator.
func toSnake(s string) string {
	runes := []rune(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(runes) + 4)

	pending := false
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					pending = true
				}
			}
			writeSnakeRune(&b, unicode.ToLower(r), &pending)
		case unicode.IsLower(r) || unicode.IsDigit(r):
			writeSnakeRune(&b, r, &pending)
		default:
			pending = true
		}
	}
	return b.String()
}

func writeSnakeRune(b *strings.Builder, r rune, pending *bool) {
	if *pending && b.Len() > 0 {
		b.WriteByte('_')
	}
	*pending = false
	b.WriteRune(r)
}
