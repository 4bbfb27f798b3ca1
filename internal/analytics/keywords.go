package analytics

import "strings"

// ExtractKeywords lowercases text, collapses everything that is not an ASCII
// letter or digit into whitespace, and returns the remaining tokens longer
// than two characters that are not stop words. Token order is preserved.
func ExtractKeywords(text string) []string {
	if text == "" {
		return []string{}
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return ' '
		}
	}, strings.ToLower(text))

	fields := strings.Fields(cleaned)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minKeywordLen {
			continue
		}
		if _, stop := StopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

// keywordSet builds the distinct keyword set of a market's title and event
// title.
func keywordSet(title, eventTitle string) map[string]struct{} {
	words := ExtractKeywords(title + " " + eventTitle)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard returns |a ∩ b| / |a ∪ b|, or 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
