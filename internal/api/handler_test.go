package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/norduniv/swaakon/internal/compare"
	"github.com/norduniv/swaakon/internal/course"
	"github.com/norduniv/swaakon/internal/ranking"
	"github.com/norduniv/swaakon/internal/vectorstore"
	"go.uber.org/zap"
)

type fakeComparer struct {
	resp *compare.Response
	err  error
}

func (f *fakeComparer) Compare(ctx context.Context, req compare.Request) (*compare.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeExplainer struct {
	explanation string
	cached      bool
	err         error
}

func (f *fakeExplainer) Explain(ctx context.Context, queryName string, result course.Course, pct float64) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	return f.explanation, f.cached, nil
}

type fakeCourseReader struct {
	courses []course.Course
}

func (f *fakeCourseReader) SearchCourses(ctx context.Context, term string) ([]course.Course, error) {
	return f.courses, nil
}

func (f *fakeCourseReader) GetCourse(ctx context.Context, code string) (*course.Course, error) {
	for _, c := range f.courses {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("course %q not found", code)
}

type fakeIndex struct {
	hits []vectorstore.Hit
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, topK uint64) ([]vectorstore.Hit, error) {
	return f.hits, nil
}

type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

func newTestServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	h := NewHandler(&fakeComparer{}, nil, nil, nil, nil, zap.NewNop())
	srv := newTestServer(t, h)

	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestCompareCourse(t *testing.T) {
	comparer := &fakeComparer{resp: &compare.Response{
		RequestID: "req-1",
		Results: []ranking.Result{
			{Course: course.Course{Code: "EXC1"}, SimilarityPercent: 100.0},
		},
	}}
	h := NewHandler(comparer, nil, nil, nil, nil, zap.NewNop())
	srv := newTestServer(t, h)

	resp := postJSON(t, srv.URL+"/api/compare", compare.Request{
		Course: course.Query{Name: "Makroøkonomi", Description: "et kurs om makroøkonomi og politikk"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body compare.Response
	decodeJSON(t, resp, &body)
	if len(body.Results) != 1 || body.Results[0].Code != "EXC1" {
		t.Errorf("unexpected results: %+v", body.Results)
	}
}

func TestCompareCourseErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &compare.ValidationError{Field: "description", Reason: "is required"}, http.StatusBadRequest},
		{"superseded", compare.ErrSuperseded, http.StatusConflict},
		{"empty corpus", ranking.ErrEmptyCorpus, http.StatusUnprocessableEntity},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeComparer{err: tt.err}, nil, nil, nil, nil, zap.NewNop())
			srv := newTestServer(t, h)

			resp := postJSON(t, srv.URL+"/api/compare", compare.Request{
				Course: course.Query{Name: "Makroøkonomi", Description: "et kurs om makroøkonomi"},
			})
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			var body map[string]string
			decodeJSON(t, resp, &body)
			if body["error"] == "" {
				t.Error("expected error body")
			}
		})
	}
}

func TestCompareCourseInvalidBody(t *testing.T) {
	h := NewHandler(&fakeComparer{}, nil, nil, nil, nil, zap.NewNop())
	srv := newTestServer(t, h)

	resp, err := http.Post(srv.URL+"/api/compare", "application/json", bytes.NewReader([]byte("{")))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestExplainResult(t *testing.T) {
	courses := &fakeCourseReader{courses: []course.Course{
		{Code: "GRA6834", Name: "Strategisk ledelse"},
	}}
	explainer := &fakeExplainer{explanation: "Kursene overlapper betydelig.", cached: true}
	h := NewHandler(&fakeComparer{}, explainer, courses, nil, nil, zap.NewNop())
	srv := newTestServer(t, h)

	resp := postJSON(t, srv.URL+"/api/explain", explainRequest{
		QueryName: "Mitt kurs", CourseCode: "GRA6834", Similarity: 82.5,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body explainResponse
	decodeJSON(t, resp, &body)
	if body.Explanation != "Kursene overlapper betydelig." {
		t.Errorf("explanation = %q", body.Explanation)
	}
	if !body.Cached {
		t.Error("expected cached = true")
	}
}

func TestExplainResultUnknownCourse(t *testing.T) {
	h := NewHandler(&fakeComparer{}, &fakeExplainer{}, &fakeCourseReader{}, nil, nil, zap.NewNop())
	srv := newTestServer(t, h)

	resp := postJSON(t, srv.URL+"/api/explain", explainRequest{
		QueryName: "Mitt kurs", CourseCode: "NOPE", Similarity: 50,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestExplainResultNotConfigured(t *testing.T) {
	h := NewHandler(&fakeComparer{}, nil, nil, nil, nil, zap.NewNop())
	srv := newTestServer(t, h)

	resp := postJSON(t, srv.URL+"/api/explain", explainRequest{
		QueryName: "Mitt kurs", CourseCode: "GRA6834", Similarity: 50,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestSearchCourses(t *testing.T) {
	courses := &fakeCourseReader{courses: []course.Course{
		{Code: "GRA6834", Name: "Strategisk ledelse"},
		{Code: "MAN5001", Name: "Ledelse i praksis"},
	}}
	h := NewHandler(&fakeComparer{}, nil, courses, nil, nil, zap.NewNop())
	srv := newTestServer(t, h)

	resp, err := http.Get(srv.URL + "/api/courses/search?q=ledelse")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Results []course.Course `json:"results"`
	}
	decodeJSON(t, resp, &body)
	if len(body.Results) != 2 {
		t.Errorf("got %d results, want 2", len(body.Results))
	}
}

func TestSearchCoursesMissingTerm(t *testing.T) {
	h := NewHandler(&fakeComparer{}, nil, &fakeCourseReader{}, nil, nil, zap.NewNop())
	srv := newTestServer(t, h)

	resp, err := http.Get(srv.URL + "/api/courses/search")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSemanticSearch(t *testing.T) {
	index := &fakeIndex{hits: []vectorstore.Hit{
		{Code: "GRA6834", Name: "Strategisk ledelse", Score: 0.93},
	}}
	h := NewHandler(&fakeComparer{}, nil, nil, index, &fakeEmbedder{}, zap.NewNop())
	srv := newTestServer(t, h)

	resp := postJSON(t, srv.URL+"/api/search/semantic", semanticSearchRequest{Text: "strategi og ledelse"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Results []vectorstore.Hit `json:"results"`
	}
	decodeJSON(t, resp, &body)
	if len(body.Results) != 1 || body.Results[0].Code != "GRA6834" {
		t.Errorf("unexpected hits: %+v", body.Results)
	}
}

func TestSemanticSearchNotConfigured(t *testing.T) {
	h := NewHandler(&fakeComparer{}, nil, nil, nil, nil, zap.NewNop())
	srv := newTestServer(t, h)

	resp := postJSON(t, srv.URL+"/api/search/semantic", semanticSearchRequest{Text: "strategi"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}
