package ranking

import (
	"strings"

	"github.com/norduniv/swaakon/internal/course"
)

// FilterState is the user-controlled view state applied on top of an
// already-ranked result list. For every categorical field, an empty set
// of enabled values means the field imposes no constraint.
type FilterState struct {
	SimilarityRange [2]float64      `json:"similarity_range"`
	StudyLevel      map[string]bool `json:"study_level,omitempty"`
	Language        map[string]bool `json:"language,omitempty"`
	Credits         map[string]bool `json:"credits,omitempty"`
	Semester        map[string]bool `json:"semester,omitempty"`
	Portfolio       map[string]bool `json:"portfolio,omitempty"`
	Area            map[string]bool `json:"area,omitempty"`
	Coordinator     map[string]bool `json:"coordinator,omitempty"`
	Institute       map[string]bool `json:"institute,omitempty"`
}

// DefaultFilterState passes every record.
func DefaultFilterState() FilterState {
	return FilterState{SimilarityRange: [2]float64{0, 100}}
}

// Filter applies the free-text search, the similarity range and the
// categorical filters to an already-ranked list. Fields are ANDed
// together; within a field, enabled values are ORed. Filtering is pure
// and never re-sorts.
func Filter(results []Result, state FilterState, searchTerm string) []Result {
	// A zero range is indistinguishable from an absent one in JSON
	// payloads; treat it as unconstrained.
	lo, hi := state.SimilarityRange[0], state.SimilarityRange[1]
	if lo == 0 && hi == 0 {
		hi = 100
	}

	search := strings.ToLower(strings.TrimSpace(searchTerm))

	out := make([]Result, 0, len(results))
	for _, r := range results {
		if search != "" && !matchesSearch(r.Course, search) {
			continue
		}
		if r.SimilarityPercent < lo || r.SimilarityPercent > hi {
			continue
		}
		if !matchesSet(state.StudyLevel, r.StudyLevel) ||
			!matchesSet(state.Language, r.Language) ||
			!matchesCredits(state.Credits, r.Credits) ||
			!matchesSet(state.Semester, r.Semester) ||
			!matchesSet(state.Portfolio, r.Portfolio) ||
			!matchesSet(state.Area, r.Area) ||
			!matchesSet(state.Coordinator, r.Coordinator) ||
			!matchesSet(state.Institute, r.Institute) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// matchesSearch does a case-insensitive substring match against the
// record's textual fields.
func matchesSearch(c course.Course, search string) bool {
	for _, field := range []string{
		c.Code, c.Name, c.StudyLevel, c.Language, c.Coordinator,
		c.Institute, c.Area, c.Content, c.OutcomeKnowledge,
	} {
		if field != "" && strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

func matchesSet(enabled map[string]bool, value string) bool {
	if !anyEnabled(enabled) {
		return true
	}
	return value != "" && enabled[value]
}

// matchesCredits normalizes both sides before comparing, otherwise the
// "75" vs "7.5" data quirk makes filtering silently miss.
func matchesCredits(enabled map[string]bool, value string) bool {
	if !anyEnabled(enabled) {
		return true
	}
	normalized := course.NormalizeCredits(value)
	if normalized == "" {
		return false
	}
	for v, on := range enabled {
		if on && course.NormalizeCredits(v) == normalized {
			return true
		}
	}
	return false
}

func anyEnabled(set map[string]bool) bool {
	for _, on := range set {
		if on {
			return true
		}
	}
	return false
}

// FilterOptions collects the distinct values per filterable field from a
// result list, with credits normalized, for building filter UIs.
type FilterOptions struct {
	StudyLevel  []string `json:"study_level"`
	Language    []string `json:"language"`
	Credits     []string `json:"credits"`
	Semester    []string `json:"semester"`
	Portfolio   []string `json:"portfolio"`
	Area        []string `json:"area"`
	Coordinator []string `json:"coordinator"`
	Institute   []string `json:"institute"`
}

// Options derives the available filter values from ranked results.
func Options(results []Result) FilterOptions {
	return FilterOptions{
		StudyLevel:  distinct(results, func(c course.Course) string { return c.StudyLevel }),
		Language:    distinct(results, func(c course.Course) string { return c.Language }),
		Credits:     distinct(results, func(c course.Course) string { return course.NormalizeCredits(c.Credits) }),
		Semester:    distinct(results, func(c course.Course) string { return c.Semester }),
		Portfolio:   distinct(results, func(c course.Course) string { return c.Portfolio }),
		Area:        distinct(results, func(c course.Course) string { return c.Area }),
		Coordinator: distinct(results, func(c course.Course) string { return c.Coordinator }),
		Institute:   distinct(results, func(c course.Course) string { return c.Institute }),
	}
}

func distinct(results []Result, field func(course.Course) string) []string {
	seen := make(map[string]struct{})
	var values []string
	for _, r := range results {
		v := field(r.Course)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}
