package textprep

import (
	"strings"

	"github.com/norduniv/swaakon/internal/course"
)

// Compose assembles the labeled document that is sent to the embedding
// endpoint. Missing fields contribute nothing; no empty labeled section is
// ever emitted, so sparse records do not dilute the embedding input.
func Compose(c course.Course) string {
	return compose(c.Name, c.Code,
		c.OutcomeKnowledge, c.OutcomeSkills, c.OutcomeCompetence, c.Content)
}

// ComposeQuery builds the same document shape for a user-submitted
// candidate course.
func ComposeQuery(q course.Query) string {
	return compose(q.Name, "", q.Description, q.Literature)
}

func compose(name, code string, contentParts ...string) string {
	var sections []string

	if name != "" {
		sections = append(sections, "COURSE NAME: "+name)
	}
	if code != "" {
		sections = append(sections, "COURSE CODE: "+code)
	}

	var present []string
	for _, p := range contentParts {
		if p != "" {
			present = append(present, p)
		}
	}
	cleaned := Normalize(strings.Join(present, " "))
	if cleaned != "" {
		sections = append(sections, "COURSE CONTENT AND LEARNING OUTCOMES:", cleaned)
	}

	if keywords := ExtractKeywords(cleaned); len(keywords) > 0 {
		sections = append(sections, "KEY CONCEPTS:", strings.Join(keywords, " "))
	}

	return strings.Join(sections, "\n\n")
}
