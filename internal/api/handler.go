package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/norduniv/swaakon/internal/compare"
	"github.com/norduniv/swaakon/internal/course"
	"github.com/norduniv/swaakon/internal/embedding"
	"github.com/norduniv/swaakon/internal/ranking"
	"github.com/norduniv/swaakon/internal/vectorstore"
	"go.uber.org/zap"
)

// semanticSearchLimit caps the Qdrant-backed search endpoint.
const semanticSearchLimit = 50

// Comparer runs one course comparison.
type Comparer interface {
	Compare(ctx context.Context, req compare.Request) (*compare.Response, error)
}

// Explainer generates on-demand overlap analyses.
type Explainer interface {
	Explain(ctx context.Context, queryName string, result course.Course, similarityPercent float64) (string, bool, error)
}

// CourseReader serves the global metadata search.
type CourseReader interface {
	SearchCourses(ctx context.Context, term string) ([]course.Course, error)
	GetCourse(ctx context.Context, code string) (*course.Course, error)
}

// SemanticIndex serves nearest-neighbor course lookups.
type SemanticIndex interface {
	Search(ctx context.Context, vector []float32, topK uint64) ([]vectorstore.Hit, error)
}

// Handler holds dependencies for HTTP handlers. Explainer, CourseReader
// and SemanticIndex may be nil; their endpoints then report 503.
type Handler struct {
	comparer  Comparer
	explainer Explainer
	courses   CourseReader
	index     SemanticIndex
	embedder  embedding.Provider
	logger    *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(comparer Comparer, explainer Explainer, courses CourseReader,
	index SemanticIndex, embedder embedding.Provider, logger *zap.Logger) *Handler {
	return &Handler{
		comparer:  comparer,
		explainer: explainer,
		courses:   courses,
		index:     index,
		embedder:  embedder,
		logger:    logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/compare", h.compareCourse)
		r.Post("/explain", h.explainResult)
		r.Get("/courses/search", h.searchCourses)
		r.Post("/search/semantic", h.semanticSearch)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "swaakon"})
}

func (h *Handler) compareCourse(w http.ResponseWriter, r *http.Request) {
	var req compare.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	resp, err := h.comparer.Compare(r.Context(), req)
	if err != nil {
		h.writeCompareError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeCompareError(w http.ResponseWriter, err error) {
	var verr *compare.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Error(), "field": verr.Field,
		})
	case errors.Is(err, compare.ErrSuperseded):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ranking.ErrEmptyCorpus):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case embedding.IsTransport(err) || embedding.IsShape(err):
		h.logger.Error("embedding call failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("comparison failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

type explainRequest struct {
	QueryName  string  `json:"query_name"`
	CourseCode string  `json:"course_code"`
	Similarity float64 `json:"similarity"`
}

type explainResponse struct {
	Explanation string `json:"explanation"`
	Cached      bool   `json:"cached"`
}

func (h *Handler) explainResult(w http.ResponseWriter, r *http.Request) {
	if h.explainer == nil || h.courses == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "explanations not configured"})
		return
	}

	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.QueryName == "" || req.CourseCode == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query_name and course_code are required"})
		return
	}

	target, err := h.courses.GetCourse(r.Context(), req.CourseCode)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	explanation, cached, err := h.explainer.Explain(r.Context(), req.QueryName, *target, req.Similarity)
	if err != nil {
		h.logger.Error("explanation failed",
			zap.String("course", req.CourseCode), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, explainResponse{Explanation: explanation, Cached: cached})
}

func (h *Handler) searchCourses(w http.ResponseWriter, r *http.Request) {
	if h.courses == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "course store not configured"})
		return
	}
	term := r.URL.Query().Get("q")
	if term == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "q is required"})
		return
	}

	courses, err := h.courses.SearchCourses(r.Context(), term)
	if err != nil {
		h.logger.Error("course search failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": courses})
}

type semanticSearchRequest struct {
	Text string `json:"text"`
}

func (h *Handler) semanticSearch(w http.ResponseWriter, r *http.Request) {
	if h.index == nil || h.embedder == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "semantic index not configured"})
		return
	}

	var req semanticSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	vec, err := h.embedder.Embed(r.Context(), req.Text)
	if err != nil {
		h.logger.Error("semantic search embedding failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}

	hits, err := h.index.Search(r.Context(), vec, semanticSearchLimit)
	if err != nil {
		h.logger.Error("semantic search failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": hits})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
