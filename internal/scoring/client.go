package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPEngine calls an external screening service. The service receives the
// proposal material plus the active scoring weights and answers with a
// decision and scores.
type HTTPEngine struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type evaluateRequest struct {
	Input
	ScoringWeights map[string]interface{} `json:"scoring_weights,omitempty"`
}

func NewHTTPEngine(baseURL, apiKey string) *HTTPEngine {
	return &HTTPEngine{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (e *HTTPEngine) Evaluate(ctx context.Context, input Input, cfg map[string]interface{}) (*Evaluation, error) {
	payload, err := json.Marshal(evaluateRequest{Input: input, ScoringWeights: cfg})
	if err != nil {
		return nil, fmt.Errorf("failed to encode evaluation request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/evaluate", e.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call scoring service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("scoring service error: %d - %s", resp.StatusCode, string(body))
	}

	var eval Evaluation
	if err := json.NewDecoder(resp.Body).Decode(&eval); err != nil {
		return nil, fmt.Errorf("failed to decode evaluation: %w", err)
	}

	switch eval.Decision {
	case DecisionAdvance, DecisionRevise, DecisionBlock:
	default:
		return nil, fmt.Errorf("scoring service returned unknown decision %q", eval.Decision)
	}

	return &eval, nil
}
