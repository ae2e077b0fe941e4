// Package explain generates natural-language overlap analyses for a
// ranked course pair via an OpenAI-compatible chat completions API.
// Explanations are independent of ranking and generated per row, on
// demand, so they never block an already-rendered result table.
package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/norduniv/swaakon/internal/course"
	"go.uber.org/zap"
)

// disclaimer is appended verbatim to every analysis. University policy.
const disclaimer = "NB: Dette er en automatisk analyse basert på oppgitte kursbeskrivelser, " +
	"og kan ikke erstatte en grundig faglig vurdering. Analysen bør kun brukes " +
	"som et utgangspunkt for videre faglig vurdering."

// Config holds explanation generation configuration.
type Config struct {
	Endpoint  string  `json:"endpoint"`
	Model     string  `json:"model"`
	APIKey    string  `json:"api_key"`
	MaxTokens int     `json:"max_tokens"`
	Temp      float64 `json:"temperature"`
}

// Service generates and caches explanations.
type Service struct {
	cfg    Config
	cache  Cache
	client *http.Client
	logger *zap.Logger
}

// NewService creates an explanation service. cache must not be nil.
func NewService(cfg Config, cache Cache, logger *zap.Logger) *Service {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4-turbo-preview"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 350
	}
	if cfg.Temp == 0 {
		cfg.Temp = 0.7
	}
	return &Service{
		cfg:    cfg,
		cache:  cache,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

// Explain returns the overlap analysis for one query/result pair,
// generating it only on a cache miss. The bool reports whether the
// explanation came from the cache.
func (s *Service) Explain(ctx context.Context, queryName string, result course.Course, similarityPercent float64) (string, bool, error) {
	key := Key{QueryName: queryName, CourseCode: result.Code}
	if cached, ok := s.cache.Get(ctx, key); ok {
		return cached, true, nil
	}

	explanation, err := s.generate(ctx, queryName, result, similarityPercent)
	if err != nil {
		return "", false, err
	}
	s.cache.Set(ctx, key, explanation)
	return explanation, false, nil
}

func (s *Service) generate(ctx context.Context, queryName string, result course.Course, similarityPercent float64) (string, error) {
	prompt := buildPrompt(queryName, result, similarityPercent)

	body, err := json.Marshal(chatRequest{
		Model:       s.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: s.cfg.Temp,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("explain: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("explain: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("explain: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("explain: API error %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("explain: decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("explain: empty response from provider")
	}

	explanation := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if !strings.Contains(explanation, "NB:") {
		explanation += "\n\n" + disclaimer
	}
	return explanation, nil
}

func buildPrompt(queryName string, result course.Course, similarityPercent float64) string {
	var b strings.Builder
	b.WriteString("Du er en assistent som hjelper administrasjonen ved et universitet ")
	b.WriteString("med å identifisere potensielle overlapp mellom kurs.\n\n")
	fmt.Fprintf(&b, "Sammenlign følgende kurs:\nNytt kurs: %q\n", queryName)
	fmt.Fprintf(&b, "Eksisterende kurs: %q\n", result.Code+" - "+result.Name)
	fmt.Fprintf(&b, "Beregnet likhet: %.1f%%\n\n", similarityPercent)
	b.WriteString("Gi en strukturert analyse som inkluderer:\n")
	b.WriteString("1. Hovedtemaer som overlapper\n")
	b.WriteString("2. Vesentlige forskjeller i innhold eller fokusområder\n")
	b.WriteString("3. Kort anbefaling basert på overlapp")
	if similarityPercent >= 60 {
		b.WriteString(" (Merk: Ved høyt overlapp som her bør man vurdere om begge kurs er nødvendige)")
	}
	b.WriteString("\n\nAvslutt alltid analysen med følgende tekst:\n")
	b.WriteString(disclaimer)
	b.WriteString("\n\nSvar kort og konsist, og fokuser på faktiske overlapp fremfor subjektive vurderinger.")
	return b.String()
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
