// Package gemini calls the Google generative-language API with an ordered
// model fallback chain: the primary model first, then each fallback in turn
// until one produces text. Endpoints come and go (model deprecation, quota
// exhaustion, transient 5xx), so availability is bought with extra latency,
// which an asynchronous job can afford.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clearterms/clearterms-backend/internal/platform/logger"
)

// Client is the model caller used by the analysis service.
type Client interface {
	// Generate returns the first successful raw reply along with the
	// identifier of the model that produced it.
	Generate(ctx context.Context, prompt string) (text string, model string, err error)
}

type Options struct {
	BaseURL string
	APIKey  string
	// Models is the fallback chain, primary first. Must be non-empty.
	Models []string
	// Timeout bounds each individual model attempt.
	Timeout time.Duration
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	models     []string
	timeout    time.Duration
	httpClient *http.Client
}

func New(log *logger.Logger, opts Options) (Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("gemini: missing API key")
	}
	if len(opts.Models) == 0 {
		return nil, fmt.Errorf("gemini: no models configured")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &client{
		log:        log.With("service", "GeminiClient"),
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		models:     opts.Models,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Fixed sampling parameters: reports must be stable and schema-shaped, not
// creative.
type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *client) Generate(ctx context.Context, prompt string) (string, string, error) {
	var lastErr error
	lastModel := ""

	for _, model := range c.models {
		text, err := c.generateOnce(ctx, model, prompt)
		if err == nil {
			c.log.Info("model call succeeded", "model", model)
			return text, model, nil
		}
		c.log.Warn("model attempt failed", "model", model, "error", err)
		lastErr = err
		lastModel = model

		if ctx.Err() != nil {
			break
		}
	}

	return "", "", fmt.Errorf("all models failed, last error from %s: %w", lastModel, lastErr)
}

func (c *client) generateOnce(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.2,
			TopP:            0.8,
			TopK:            40,
			MaxOutputTokens: 2048,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty response body")
	}

	var envelope generateResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("unparseable response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if envelope.Error != nil && envelope.Error.Message != "" {
			return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, envelope.Error.Message)
		}
		return "", fmt.Errorf("http status %d", resp.StatusCode)
	}

	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidate text in response")
	}
	text := envelope.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("no candidate text in response")
	}

	return text, nil
}
