package units

import (
	"fmt"
	"math"
	"strings"
	"text/template"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GetTemplateFuncMap returns the function map used to render critique
// prompts. The map is rebuilt on every call, so callers may extend it.
//
// Usage:
//
//	tmpl, err := template.New("prompt").Funcs(GetTemplateFuncMap()).Parse(text)
func GetTemplateFuncMap() template.FuncMap {
	title := cases.Title(language.English)

	return template.FuncMap{
		// add performs integer addition.
		// Template usage: {{add $index 1}}
		"add": func(a, b int) int {
			return a + b
		},

		// pct renders a weight in [0,1] as a whole percentage.
		// Template usage: {{pct .Weight}} -> "35%"
		"pct": func(w float64) string {
			return fmt.Sprintf("%d%%", int(math.Round(w*100)))
		},

		// band renders an inclusive score range.
		// Template usage: {{band .Min .Max}} -> "90-100"
		"band": func(lo, hi int) string {
			return fmt.Sprintf("%d-%d", lo, hi)
		},

		// title upper-cases the first letter of each word.
		// Template usage: {{title "emotional authenticity"}}
		"title": func(s string) string {
			return title.String(s)
		},

		// humanize turns a snake_case identifier into space-separated words.
		// Template usage: {{humanize "literary_craft"}} -> "literary craft"
		"humanize": func(s string) string {
			return strings.ReplaceAll(s, "_", " ")
		},

		"lower": strings.ToLower,
		"upper": strings.ToUpper,
		"trim":  strings.TrimSpace,

		// truncate limits s to length runes, ending with "..." when cut.
		// Template usage: {{truncate .Excerpt 80}}
		"truncate": truncateRunes,

		// indent prefixes every line of s with n spaces.
		// Template usage: {{indent 4 .Letter}}
		"indent": func(n int, s string) string {
			if n <= 0 || s == "" {
				return s
			}
			pad := strings.Repeat(" ", n)
			return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
		},

		// join concatenates elements with separator between them.
		// Template usage: {{join .Items ", "}}
		"join": func(elems []string, sep string) string {
			return strings.Join(elems, sep)
		},
	}
}

// truncateRunes never splits a multi-byte rune.
func truncateRunes(s string, length int) string {
	if length <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= length {
		return s
	}

	keep := length
	suffix := ""
	if length > 3 {
		keep = length - 3
		suffix = "..."
	}

	i := 0
	for pos := range s {
		if i == keep {
			return s[:pos] + suffix
		}
		i++
	}
	return s
}
