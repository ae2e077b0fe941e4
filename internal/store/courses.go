package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/norduniv/swaakon/internal/course"
	"go.uber.org/zap"
)

const courseColumns = `code, name, credits, study_level, language, semester,
	portfolio, institute, area, coordinator, content,
	outcome_knowledge, outcome_skills, outcome_competence,
	literature, link_nb, link_en`

// searchLimit caps the global course search. The cap belongs to this
// caller, not to the ranking engine.
const searchLimit = 50

// ListEmbedded fetches every course that has a stored embedding. Rows
// whose embedding fails to parse are returned without one and logged;
// the ranking engine skips them.
func (s *Store) ListEmbedded(ctx context.Context) ([]course.Course, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+courseColumns+`, embedding
		FROM courses
		WHERE embedding IS NOT NULL
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list embedded courses: %w", err)
	}
	defer rows.Close()

	var courses []course.Course
	for rows.Next() {
		c, raw, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		if raw != "" {
			vec, perr := course.ParseEmbedding(raw)
			if perr != nil {
				s.logger.Warn("unparseable stored embedding",
					zap.String("code", c.Code), zap.Error(perr))
			} else {
				c.Embedding = vec
			}
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// ListMissingEmbedding fetches courses the backfill still has to process.
func (s *Store) ListMissingEmbedding(ctx context.Context) ([]course.Course, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+courseColumns+`, embedding
		FROM courses
		WHERE embedding IS NULL
		ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list courses missing embedding: %w", err)
	}
	defer rows.Close()

	var courses []course.Course
	for rows.Next() {
		c, _, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// UpdateEmbedding stores a freshly computed embedding on the course row,
// in the bracketed comma-delimited encoding the rest of the pipeline
// already reads.
func (s *Store) UpdateEmbedding(ctx context.Context, code string, vec []float32, model string) error {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = fmt.Sprintf("%g", v)
	}
	encoded := "[" + strings.Join(parts, ",") + "]"

	tag, err := s.db.Exec(ctx, `
		UPDATE courses
		SET embedding = $2, embedding_model = $3, updated_at = now()
		WHERE code = $1`,
		code, encoded, model)
	if err != nil {
		return fmt.Errorf("update embedding for %s: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update embedding: course %s not found", code)
	}
	return nil
}

// SearchCourses does a case-insensitive substring search over course
// metadata, capped at 50 rows.
func (s *Store) SearchCourses(ctx context.Context, term string) ([]course.Course, error) {
	pattern := "%" + strings.TrimSpace(term) + "%"
	rows, err := s.db.Query(ctx, `
		SELECT `+courseColumns+`, NULL::text
		FROM courses
		WHERE code ILIKE $1 OR name ILIKE $1 OR coordinator ILIKE $1
		   OR institute ILIKE $1 OR area ILIKE $1 OR content ILIKE $1
		ORDER BY code
		LIMIT $2`, pattern, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search courses: %w", err)
	}
	defer rows.Close()

	var courses []course.Course
	for rows.Next() {
		c, _, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetCourse fetches a single course by code.
func (s *Store) GetCourse(ctx context.Context, code string) (*course.Course, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+courseColumns+`, embedding
		FROM courses
		WHERE code = $1`, code)

	c, raw, err := scanCourseRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("course %s not found", code)
		}
		return nil, fmt.Errorf("get course %s: %w", code, err)
	}
	if raw != "" {
		if vec, perr := course.ParseEmbedding(raw); perr == nil {
			c.Embedding = vec
		}
	}
	return &c, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCourse(rows pgx.Rows) (course.Course, string, error) {
	return scanCourseRow(rows)
}

func scanCourseRow(row scannable) (course.Course, string, error) {
	var c course.Course
	var credits, level, lang, semester, portfolio, institute, area,
		coordinator, content, knowledge, skills, competence,
		literature, linkNB, linkEN, embedding *string

	err := row.Scan(&c.Code, &c.Name, &credits, &level, &lang, &semester,
		&portfolio, &institute, &area, &coordinator, &content,
		&knowledge, &skills, &competence, &literature, &linkNB, &linkEN,
		&embedding)
	if err != nil {
		return course.Course{}, "", err
	}

	c.Credits = deref(credits)
	c.StudyLevel = deref(level)
	c.Language = deref(lang)
	c.Semester = deref(semester)
	c.Portfolio = deref(portfolio)
	c.Institute = deref(institute)
	c.Area = deref(area)
	c.Coordinator = deref(coordinator)
	c.Content = deref(content)
	c.OutcomeKnowledge = deref(knowledge)
	c.OutcomeSkills = deref(skills)
	c.OutcomeCompetence = deref(competence)
	c.Literature = deref(literature)
	c.LinkNB = deref(linkNB)
	c.LinkEN = deref(linkEN)
	return c, deref(embedding), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
