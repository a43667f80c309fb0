package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"arxiv-hand/config"
)

// Embedder turns text into vectors via an Ollama-compatible HTTP API. Two
// endpoint generations exist: "embed" takes {model, input} and answers with
// a nested embeddings array, the legacy "embeddings" takes {model, prompt}
// and answers with a flat one. Both response shapes are accepted regardless
// of the endpoint in use.
type Embedder struct {
	BaseURL  string
	Model    string
	Endpoint string
	Logger   *zap.Logger

	client *http.Client
}

// NewEmbedder creates an embedder from the configuration.
func NewEmbedder(cfg *config.Config, logger *zap.Logger) *Embedder {
	return &Embedder{
		BaseURL:  cfg.EmbeddingBaseURL,
		Model:    cfg.EmbeddingModel,
		Endpoint: cfg.EmbeddingEndpoint,
		Logger:   logger,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

type embedResponse struct {
	Embedding  []float32   `json:"embedding"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns the embedding vector for the given text.
func (e *Embedder) Embed(text string) ([]float32, error) {
	endpoint := e.Endpoint
	if endpoint == "" {
		endpoint = "embed"
	}

	payload := map[string]string{"model": e.Model}
	if endpoint == "embeddings" {
		payload["prompt"] = text
	} else {
		payload["input"] = text
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/%s", strings.TrimRight(e.BaseURL, "/"), endpoint)
	resp, err := e.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("calling embedding API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parsing embedding response: %w", err)
	}

	switch {
	case len(parsed.Embedding) > 0:
		return parsed.Embedding, nil
	case len(parsed.Embeddings) > 0 && len(parsed.Embeddings[0]) > 0:
		return parsed.Embeddings[0], nil
	}
	return nil, fmt.Errorf("embedding API returned no vector for model %s", e.Model)
}
