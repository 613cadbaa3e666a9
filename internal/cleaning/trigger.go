package cleaning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LocalTrigger runs task generation in process.
type LocalTrigger struct {
	generator *Generator
}

// NewLocalTrigger creates a trigger backed by g.
func NewLocalTrigger(g *Generator) *LocalTrigger {
	return &LocalTrigger{generator: g}
}

// Trigger generates tasks for one property.
func (t *LocalTrigger) Trigger(ctx context.Context, propertyID string) (*Result, error) {
	return t.generator.Generate(ctx, Request{PropertyID: propertyID})
}

// HTTPTrigger requests task generation from a deployment's
// /api/generate-cleaning-tasks endpoint.
type HTTPTrigger struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewHTTPTrigger creates a trigger posting to baseURL with serviceKey as
// bearer token.
func NewHTTPTrigger(baseURL, serviceKey string, timeout time.Duration) *HTTPTrigger {
	return &HTTPTrigger{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Trigger generates tasks for one property over HTTP.
func (t *HTTPTrigger) Trigger(ctx context.Context, propertyID string) (*Result, error) {
	body, err := json.Marshal(Request{PropertyID: propertyID})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/api/generate-cleaning-tasks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.serviceKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.serviceKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Detail != "" {
				return nil, fmt.Errorf("task generation failed (status %d): %s: %s", resp.StatusCode, apiErr.Error, apiErr.Detail)
			}
			return nil, fmt.Errorf("task generation failed (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("task generation failed (status %d): %s", resp.StatusCode, raw)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &result, nil
}
