// Package textprep prepares course text for embedding: stopword removal,
// RAKE-style keyword extraction and the labeled document composition that
// is sent to the embedding endpoint.
package textprep

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// stopwords covers Bokmål and Nynorsk function words plus the handful of
// English ones that show up in bilingual course descriptions.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"og", "i", "jeg", "det", "at", "en", "den", "til", "er", "som",
		"på", "de", "med", "han", "av", "ikke", "der", "så", "var", "meg",
		"seg", "men", "ett", "har", "om", "vi", "min", "mitt", "ha", "hadde",
		"hun", "nå", "over", "da", "ved", "fra", "du", "ut", "sin", "dem",
		"oss", "opp", "man", "kan", "hans", "hvor", "eller", "hva", "skal", "selv",
		"sjøl", "her", "alle", "vil", "bli", "ble", "blitt", "kunne", "inn", "når",
		"være", "kom", "noen", "noe", "ville", "dere", "deres", "kun", "ja",
		"etter", "ned", "skulle", "denne", "for", "deg", "si", "sine", "sitt", "mot",
		"å", "meget", "hvorfor", "dette", "disse", "uten", "hvordan", "ingen", "din",
		"ditt", "blir", "samme", "hvilken", "hvilke", "sånn", "inni", "mellom", "vår",
		"hver", "hvem", "vors", "hvis", "både", "bare", "enn", "fordi", "før", "mange",
		"også", "slik", "vært", "båe", "begge", "siden", "dykk", "dykkar", "dei",
		"deira", "deires", "deim", "di", "då", "eg", "ein", "eit", "eitt", "elles",
		"honom", "hjå", "ho", "hoe", "henne", "hennar", "hennes", "hoss", "hossen", "ikkje",
		"ingi", "inkje", "korleis", "korso", "kva", "kvar", "kvarhelst", "kven", "kvi",
		"kvifor", "me", "medan", "mi", "mine", "mykje", "no", "nokon", "noka", "nokor",
		"noko", "nokre", "sia", "sidan", "so", "somt", "somme", "um", "upp", "vere",
		"vore", "verte", "vort", "varte", "vart",
	} {
		stopwords[w] = struct{}{}
	}
}

// wordRe accepts letters (including æ/ø/å) and hyphens only. Tokens with
// digits or punctuation are dropped by the same check, so alphanumeric
// terms like "5G" never survive. Known lossy, kept for parity with the
// stored corpus embeddings.
var wordRe = regexp.MustCompile(`^[a-zæøåA-ZÆØÅ-]+$`)

var quoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'",
	"“", `"`, "”", `"`,
)

// Normalize lower-cases and Unicode-normalizes text, then drops stopwords
// and any token outside the letter/hyphen character class. Returns the
// surviving tokens space-joined, or "" for empty input. Pure and
// deterministic.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	cleaned := quoteReplacer.Replace(norm.NFKC.String(strings.ToLower(text)))

	var kept []string
	for _, token := range strings.Fields(cleaned) {
		if _, stop := stopwords[token]; stop {
			continue
		}
		if !wordRe.MatchString(token) {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

// IsStopword reports whether the (lower-cased) token is in the stopword set.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}
