package textfilter

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Words splits a camelCase, snake_case or kebab-case id into lower-case words.
// Runs of capitals stay together, so "NPCReputation" gives "npc reputation".
func Words(id string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(id)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prevLower := !unicode.IsUpper(cur[len(cur)-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				flush()
			}
		case unicode.IsDigit(r) && len(cur) > 0 && !unicode.IsDigit(cur[len(cur)-1]):
			flush()
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// DisplayName turns an id into a title-cased label: "pinkDressGirlMouse" becomes "Pink Dress Girl Mouse".
func DisplayName(id string) string {
	// Casers keep state between calls, so each call gets its own.
	return cases.Title(language.English).String(strings.Join(Words(id), " "))
}

// Sentence turns an id into sentence case: "bodyInspected_city" becomes "Body inspected city".
func Sentence(id string) string {
	s := strings.Join(Words(id), " ")
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// NameOr returns names[id] when set, otherwise the id's display name.
func NameOr(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return DisplayName(id)
}
