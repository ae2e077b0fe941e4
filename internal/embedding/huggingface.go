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

// defaultTimeout is deliberately far beyond a typical HTTP call: the
// shared inference infrastructure cold-starts the model on first use.
const defaultTimeout = 45 * time.Second

// HFProvider implements Provider against a HuggingFace feature-extraction
// pipeline endpoint.
type HFProvider struct {
	endpoint  string
	apiKey    string
	dimension int
	client    *http.Client
	logger    *zap.Logger
}

// NewHFProvider creates an HFProvider from the given Config.
func NewHFProvider(cfg Config, logger *zap.Logger) *HFProvider {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &HFProvider{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

type hfRequest struct {
	Inputs  []string  `json:"inputs"`
	Options hfOptions `json:"options"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// Embed posts the text to the feature-extraction endpoint and validates
// the response shape. The wait_for_model flag absorbs cold-start latency;
// no retry beyond that is attempted here, retry policy belongs to the
// caller.
func (p *HFProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(hfRequest{
		Inputs:  []string{text},
		Options: hfOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, &Error{Kind: KindShape, Msg: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
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

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, &Error{Kind: KindShape, Msg: "decode response", Err: err}
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, &Error{Kind: KindShape, Msg: "empty embedding response"}
	}
	if p.dimension > 0 && len(vectors[0]) != p.dimension {
		return nil, &Error{Kind: KindShape,
			Msg: fmt.Sprintf("expected %d dimensions but got %d", p.dimension, len(vectors[0]))}
	}
	return vectors[0], nil
}

// Dimension returns the fixed embedding dimension.
func (p *HFProvider) Dimension() int { return p.dimension }
