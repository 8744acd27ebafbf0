package radeval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody caps how much of a failed response is kept in EngineError.
const maxErrorBody = 4096

// EngineError reports a non-2xx answer from the scoring service.
type EngineError struct {
	StatusCode int
	Body       string
}

func (e *EngineError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("radeval: engine returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("radeval: engine returned HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPEngine posts scoring requests to a RadEval service at <baseURL>/score.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEngine creates an [HTTPEngine]. A zero timeout leaves calls unbounded,
// which matters because GREEN on a GPU can take a long time.
func NewHTTPEngine(baseURL string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *HTTPEngine) Score(ctx context.Context, req *Request) (Scores, error) {
	body, err := json.Marshal(newWireRequest(req))
	if err != nil {
		return nil, fmt.Errorf("radeval: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("radeval: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	slog.Debug("Scoring request", "url", e.baseURL, "pairs", len(req.Refs))

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("radeval: calling engine: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &EngineError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("radeval: decoding engine response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("radeval: engine error: %s", out.Error)
	}
	return out.Scores, nil
}
