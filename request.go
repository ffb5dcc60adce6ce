// Package optimodel implements the query pipeline: plan an ordered list of
// provider candidates for a logical model, screen the conversation with
// preQuery guards, dispatch with fallback across candidates, price the
// token usage, and screen the output with postQuery guards.
package optimodel

import (
	"fmt"

	"github.com/lytix-labs/optimodel/guard"
	"github.com/lytix-labs/optimodel/internal/planner"
	"github.com/lytix-labs/optimodel/providers"
)

// Speed priority wire values.
const (
	SpeedPriorityLow  = "low"
	SpeedPriorityHigh = planner.SpeedPriorityHigh
)

// QueryRequest is the wire shape of a query submission.
type QueryRequest struct {
	Messages      []providers.Message      `json:"messages"`
	ModelToUse    string                   `json:"modelToUse"`
	SpeedPriority string                   `json:"speedPriority,omitempty"`
	Temperature   *float64                 `json:"temperature,omitempty"`
	MaxGenLen     *int                     `json:"maxGenLen,omitempty"`
	JSONMode      *bool                    `json:"jsonMode,omitempty"`
	Provider      string                   `json:"provider,omitempty"`
	Guards        []guard.Config           `json:"guards,omitempty"`
	Credentials   providers.CredentialList `json:"credentials,omitempty"`
	UserID        string                   `json:"userId,omitempty"`
	SessionID     string                   `json:"sessionId,omitempty"`
	WorkflowName  string                   `json:"workflowName,omitempty"`
}

// Validate checks the request's structural constraints. Model existence and
// provider eligibility are planning concerns, not validation.
func (r *QueryRequest) Validate() error {
	if len(r.Messages) == 0 {
		return &ValidationError{Reason: "messages must not be empty"}
	}
	if r.ModelToUse == "" {
		return &ValidationError{Reason: "modelToUse is required"}
	}
	switch r.SpeedPriority {
	case "", SpeedPriorityLow, SpeedPriorityHigh:
	default:
		return &ValidationError{Reason: fmt.Sprintf("invalid speedPriority: %q", r.SpeedPriority)}
	}
	if r.Provider != "" {
		if _, err := providers.ParseID(r.Provider); err != nil {
			return &ValidationError{Reason: err.Error()}
		}
	}
	for _, g := range r.Guards {
		if err := g.Validate(); err != nil {
			return &ValidationError{Reason: err.Error()}
		}
	}
	return nil
}

// GuardError is one guard failure surfaced in the response. Entries appear in
// guard evaluation order; a blocking entry is always the last one.
type GuardError struct {
	GuardName    string         `json:"guardName"`
	Failure      bool           `json:"failure"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	BlockRequest bool           `json:"blockRequest"`
}

// QueryResponse is the wire shape of a completed query. Cost is null when the
// serving entry has no published rate for either direction.
type QueryResponse struct {
	ModelResponse    string       `json:"modelResponse"`
	PromptTokens     int          `json:"promptTokens"`
	GenerationTokens int          `json:"generationTokens"`
	Cost             *float64     `json:"cost"`
	Provider         providers.ID `json:"provider"`
	GuardErrors      []GuardError `json:"guardErrors"`
}
