package course

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Course is one academic course from the stored corpus.
// Embedding is nil until the backfill has computed it.
type Course struct {
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	Credits           string    `json:"credits,omitempty"`
	StudyLevel        string    `json:"study_level,omitempty"`
	Language          string    `json:"language,omitempty"`
	Semester          string    `json:"semester,omitempty"`
	Portfolio         string    `json:"portfolio,omitempty"`
	Institute         string    `json:"institute,omitempty"`
	Area              string    `json:"area,omitempty"`
	Coordinator       string    `json:"coordinator,omitempty"`
	Content           string    `json:"content,omitempty"`
	OutcomeKnowledge  string    `json:"outcome_knowledge,omitempty"`
	OutcomeSkills     string    `json:"outcome_skills,omitempty"`
	OutcomeCompetence string    `json:"outcome_competence,omitempty"`
	Literature        string    `json:"literature,omitempty"`
	LinkNB            string    `json:"link_nb,omitempty"`
	LinkEN            string    `json:"link_en,omitempty"`
	Embedding         []float32 `json:"-"`
}

// Query is a user-submitted candidate course. It exists only for the
// duration of one comparison request and is never persisted.
type Query struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Literature  string `json:"literature,omitempty"`
}

// spRe matches a "SP" credit-unit suffix with surrounding whitespace.
var spRe = regexp.MustCompile(`(?i)\s*SP\s*`)

// NormalizeCredits canonicalizes a free-text credit value for filtering.
// The "75" -> "7.5" and "25" -> "2.5" rewrites encode a known upstream
// data quirk where the decimal point was lost. Must be applied both when
// building filter option lists and when matching against an active filter.
func NormalizeCredits(credits string) string {
	if credits == "" {
		return ""
	}
	s := credits
	if loc := spRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]] + s[loc[1]:]
	}
	s = strings.TrimSpace(s)

	switch s {
	case "75":
		return "7.5"
	case "25":
		return "2.5"
	}
	return s
}

// CreditsValue parses a normalized credit string for numeric sorting.
func CreditsValue(credits string) (float64, bool) {
	v, err := strconv.ParseFloat(NormalizeCredits(credits), 64)
	return v, err == nil
}

// ParseEmbedding decodes a stored embedding that arrives either as a
// JSON numeric array or as a bracketed comma-delimited string
// ("[f1,f2,...]"), both of which occur in the corpus table.
func ParseEmbedding(raw string) ([]float32, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("course: empty embedding payload")
	}

	parts := strings.Split(s, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("course: parse embedding component %d: %w", i, err)
		}
		vec[i] = float32(v)
	}
	return vec, nil
}
