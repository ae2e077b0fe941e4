// Package compare runs one course comparison end to end: input
// validation, text composition, the embedding call, ranking and
// post-ranking filtering.
package compare

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/norduniv/swaakon/internal/course"
	"github.com/norduniv/swaakon/internal/embedding"
	"github.com/norduniv/swaakon/internal/ranking"
	"github.com/norduniv/swaakon/internal/textprep"
	"go.uber.org/zap"
)

// Input length band, validated per field before any network call is made.
const (
	minInputLength = 10
	maxInputLength = 5000
)

// ErrSuperseded means a newer comparison for the same client started
// while this one was in flight; the stale result is dropped rather than
// allowed to overwrite newer state.
var ErrSuperseded = errors.New("compare: request superseded by a newer one")

// ValidationError reports a query field outside the accepted length band.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("compare: invalid %s: %s", e.Field, e.Reason)
}

// CorpusSource fetches all course records that have an embedding.
type CorpusSource interface {
	ListEmbedded(ctx context.Context) ([]course.Course, error)
}

// Request is one comparison request. ClientID keys stale-result
// suppression; an empty ClientID opts out of it.
type Request struct {
	ClientID string               `json:"client_id,omitempty"`
	Course   course.Query         `json:"course"`
	Filters  *ranking.FilterState `json:"filters,omitempty"`
	Search   string               `json:"search,omitempty"`
}

// Response carries the ranked (and possibly filtered) results for one
// comparison.
type Response struct {
	RequestID string                `json:"request_id"`
	Keywords  []string              `json:"query_keywords,omitempty"`
	Results   []ranking.Result      `json:"results"`
	Options   ranking.FilterOptions `json:"filter_options"`
}

// Service owns no cross-request state beyond the per-client latest
// request token.
type Service struct {
	embedder embedding.Provider
	corpus   CorpusSource
	logger   *zap.Logger

	mu     sync.Mutex
	latest map[string]uuid.UUID
}

// NewService creates a comparison service.
func NewService(embedder embedding.Provider, corpus CorpusSource, logger *zap.Logger) *Service {
	return &Service{
		embedder: embedder,
		corpus:   corpus,
		logger:   logger,
		latest:   make(map[string]uuid.UUID),
	}
}

// Compare validates the query course, embeds its composed text, ranks it
// against the corpus and applies any requested filters. If a newer
// request for the same client arrives while this one is in flight, the
// result is discarded with ErrSuperseded.
func (s *Service) Compare(ctx context.Context, req Request) (*Response, error) {
	if err := validate(req.Course); err != nil {
		return nil, err
	}

	token := s.register(req.ClientID)
	defer s.release(req.ClientID, token)

	composed := textprep.ComposeQuery(req.Course)
	s.logger.Info("comparing course",
		zap.String("name", req.Course.Name),
		zap.Int("composed_len", len(composed)))

	queryVec, err := s.embedder.Embed(ctx, composed)
	if err != nil {
		return nil, err
	}

	corpus, err := s.corpus.ListEmbedded(ctx)
	if err != nil {
		return nil, fmt.Errorf("compare: fetch corpus: %w", err)
	}

	results, err := ranking.Rank(ctx, queryVec, corpus, s.logger)
	if err != nil {
		return nil, err
	}

	if !s.current(req.ClientID, token) {
		s.logger.Info("dropping stale comparison result",
			zap.String("client", req.ClientID))
		return nil, ErrSuperseded
	}

	options := ranking.Options(results)
	if req.Filters != nil || strings.TrimSpace(req.Search) != "" {
		state := ranking.DefaultFilterState()
		if req.Filters != nil {
			state = *req.Filters
		}
		results = ranking.Filter(results, state, req.Search)
	}

	cleaned := textprep.Normalize(strings.TrimSpace(
		req.Course.Description + " " + req.Course.Literature))

	return &Response{
		RequestID: token.String(),
		Keywords:  textprep.ExtractKeywords(cleaned),
		Results:   results,
		Options:   options,
	}, nil
}

func validate(q course.Query) error {
	if err := validateField("name", q.Name); err != nil {
		return err
	}
	if err := validateField("description", q.Description); err != nil {
		return err
	}
	// Literature is optional, but when present it obeys the same band.
	if strings.TrimSpace(q.Literature) != "" {
		if err := validateField("literature", q.Literature); err != nil {
			return err
		}
	}
	return nil
}

func validateField(name, value string) error {
	n := len([]rune(strings.TrimSpace(value)))
	if n == 0 {
		return &ValidationError{Field: name, Reason: "is required"}
	}
	if n < minInputLength {
		return &ValidationError{Field: name,
			Reason: fmt.Sprintf("must be at least %d characters", minInputLength)}
	}
	if n > maxInputLength {
		return &ValidationError{Field: name,
			Reason: fmt.Sprintf("must be at most %d characters", maxInputLength)}
	}
	return nil
}

// register records token as the latest request for the client.
func (s *Service) register(clientID string) uuid.UUID {
	token := uuid.New()
	if clientID == "" {
		return token
	}
	s.mu.Lock()
	s.latest[clientID] = token
	s.mu.Unlock()
	return token
}

// current reports whether token is still the client's latest request.
func (s *Service) current(clientID string, token uuid.UUID) bool {
	if clientID == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[clientID] == token
}

// release drops the client's entry once its request finishes, unless a
// newer request has already replaced it. Keeps the map bounded by the
// number of comparisons in flight.
func (s *Service) release(clientID string, token uuid.UUID) {
	if clientID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[clientID] == token {
		delete(s.latest, clientID)
	}
}
