package guard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lytix-labs/optimodel/internal/logging"
	"github.com/lytix-labs/optimodel/providers"
)

// guardPath is the evaluation route on the guard server.
const guardPath = "/optimodel-guard/api/v1/guard"

// Result is the guard server's verdict for one guard evaluation.
type Result struct {
	Failure  bool           `json:"failure"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TransportError reports that the guard server itself could not be reached
// or answered outside the protocol. It is distinct from a guard failing: the
// pipeline treats it as terminal only for blocking guards.
type TransportError struct {
	Guard string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("guard %s: transport error: %v", e.Guard, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Client evaluates guards against a guard server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a guard client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type checkBody struct {
	Guard       Config              `json:"guard"`
	Messages    []providers.Message `json:"messages"`
	ModelOutput string              `json:"modelOutput,omitempty"`
}

// Check evaluates one guard. modelOutput is empty for preQuery guards and
// carries the model response for postQuery guards.
func (c *Client) Check(ctx context.Context, cfg Config, messages []providers.Message, modelOutput string) (*Result, error) {
	body, err := json.Marshal(checkBody{Guard: cfg, Messages: messages, ModelOutput: modelOutput})
	if err != nil {
		return nil, &TransportError{Guard: cfg.GuardName, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+guardPath, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Guard: cfg.GuardName, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if traceID := logging.TraceIDFromContext(ctx); traceID != "" {
		req.Header.Set("X-Request-ID", traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Guard: cfg.GuardName, Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Guard: cfg.GuardName, Cause: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			Guard: cfg.GuardName,
			Cause: fmt.Errorf("status %d: %s", resp.StatusCode, respBody),
		}
	}

	var result Result
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &TransportError{Guard: cfg.GuardName, Cause: err}
	}
	return &result, nil
}
