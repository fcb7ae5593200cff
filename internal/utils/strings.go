package utils

import (
	"strings"
)

// SplitList splits comma/semicolon/newline separated values into trimmed,
// non-empty entries, keeping their order.
func SplitList(raw string) []string {
	out := []string{}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '\n'
	})
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
