package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestHFProviderEmbed(t *testing.T) {
	var gotBody hfRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode([][]float32{{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	p := NewHFProvider(Config{Endpoint: srv.URL, Dimension: 3}, zap.NewNop())

	vec, err := p.Embed(context.Background(), "strategisk ledelse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("got dimension %d, want 3", len(vec))
	}
	if len(gotBody.Inputs) != 1 || gotBody.Inputs[0] != "strategisk ledelse" {
		t.Errorf("request inputs = %v", gotBody.Inputs)
	}
	if !gotBody.Options.WaitForModel {
		t.Error("wait_for_model flag must be set")
	}
}

func TestHFProviderEmbed_WrongDimension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([][]float32{{0.1, 0.2}})
	}))
	defer srv.Close()

	p := NewHFProvider(Config{Endpoint: srv.URL, Dimension: 512}, zap.NewNop())
	_, err := p.Embed(context.Background(), "tekst")
	if !IsShape(err) {
		t.Fatalf("want shape error for short vector, got %v", err)
	}
}

func TestHFProviderEmbed_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"loading"}`))
	}))
	defer srv.Close()

	p := NewHFProvider(Config{Endpoint: srv.URL, Dimension: 3}, zap.NewNop())
	if _, err := p.Embed(context.Background(), "tekst"); !IsShape(err) {
		t.Fatalf("want shape error for malformed body, got %v", err)
	}
}

func TestHFProviderEmbed_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewHFProvider(Config{Endpoint: srv.URL, Dimension: 3}, zap.NewNop())
	if _, err := p.Embed(context.Background(), "tekst"); !IsTransport(err) {
		t.Fatalf("want transport error for non-200, got %v", err)
	}
}

func TestHFProviderEmbed_Unreachable(t *testing.T) {
	p := NewHFProvider(Config{Endpoint: "http://127.0.0.1:1", Dimension: 3}, zap.NewNop())
	if _, err := p.Embed(context.Background(), "tekst"); !IsTransport(err) {
		t.Fatalf("want transport error for connection failure, got %v", err)
	}
}

func TestOpenAIProviderEmbed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openAIResponse{
			Data: []openAIEmbeddingData{{Embedding: []float32{0.4, 0.5}}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := NewOpenAIProvider(Config{Endpoint: srv.URL, Model: "test-model", Dimension: 2}, zap.NewNop())
	vec, err := p.Embed(context.Background(), "tekst")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 2 {
		t.Fatalf("got dimension %d, want 2", len(vec))
	}
	if p.Dimension() != 2 {
		t.Errorf("Dimension() = %d, want 2", p.Dimension())
	}
}
