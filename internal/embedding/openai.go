package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// OpenAIProvider implements Provider using an OpenAI-compatible
// embeddings API. Kept as an alternative backend for corpora embedded
// with text-embedding models instead of the sentence-transformers one.
type OpenAIProvider struct {
	endpoint  string
	model     string
	apiKey    string
	dimension int
	client    *http.Client
	logger    *zap.Logger
}

// NewOpenAIProvider creates an OpenAIProvider from the given Config.
func NewOpenAIProvider(cfg Config, logger *zap.Logger) *OpenAIProvider {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1"
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &OpenAIProvider{
		endpoint:  endpoint,
		model:     cfg.Model,
		apiKey:    cfg.APIKey,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type openAIRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbeddingData struct {
	Embedding []float32 `json:"embedding"`
}

type openAIResponse struct {
	Data []openAIEmbeddingData `json:"data"`
}

// Embed sends the text to the /embeddings endpoint and validates the
// response dimensionality.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(openAIRequest{Model: p.model, Input: []string{text}})
	if err != nil {
		return nil, &Error{Kind: KindShape, Msg: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.endpoint+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Msg: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Msg: "send request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		p.logger.Warn("embedding endpoint returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody))
		return nil, &Error{Kind: KindTransport,
			Msg: "endpoint returned status " + resp.Status}
	}

	var result openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &Error{Kind: KindShape, Msg: "decode response", Err: err}
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, &Error{Kind: KindShape, Msg: "empty embedding response"}
	}
	vec := result.Data[0].Embedding
	if p.dimension > 0 && len(vec) != p.dimension {
		return nil, &Error{Kind: KindShape,
			Msg: fmt.Sprintf("expected %d dimensions but got %d", p.dimension, len(vec))}
	}
	return vec, nil
}

// Dimension returns the fixed embedding dimension.
func (p *OpenAIProvider) Dimension() int { return p.dimension }
