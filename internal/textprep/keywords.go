package textprep

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const maxKeywords = 10

// nonLetterRe matches everything outside letters, whitespace and hyphen.
var nonLetterRe = regexp.MustCompile(`[^a-zæøåA-ZÆØÅ\s-]`)

var spaceRe = regexp.MustCompile(`\s+`)

// ExtractKeywords mines frequency-based keywords from text. Terms that
// occur only once are treated as noise, so short texts legitimately yield
// no keywords at all. Results are ordered by descending frequency, ties
// broken by first encounter, truncated to the top 10.
func ExtractKeywords(text string) []string {
	if text == "" {
		return nil
	}

	clean := quoteReplacer.Replace(norm.NFKC.String(strings.ToLower(text)))
	clean = nonLetterRe.ReplaceAllString(clean, " ")
	clean = strings.TrimSpace(spaceRe.ReplaceAllString(clean, " "))

	freq := make(map[string]int)
	var order []string
	for _, word := range strings.Fields(Normalize(clean)) {
		if len([]rune(word)) < 2 {
			continue
		}
		if freq[word] == 0 {
			order = append(order, word)
		}
		freq[word]++
	}

	var keywords []string
	for _, word := range order {
		if freq[word] > 1 {
			keywords = append(keywords, word)
		}
	}
	sort.SliceStable(keywords, func(i, j int) bool {
		return freq[keywords[i]] > freq[keywords[j]]
	})

	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}
