// Package providers defines the Adapter contract implemented by every LLM
// back-end, along with the shared data types that cross it: Message,
// QueryParams, QueryResponse, and the per-request credential variants.
//
// Adapters translate the canonical message list into each back-end's native
// payload and extract a normalised {output, prompt tokens, generation tokens}
// triple from the native response. Provider selection and fallback live in
// the pipeline, not here: an adapter never decides whether to retry.
package providers

import (
	"context"
	"errors"
	"fmt"
)

// ID identifies a back-end provider.
type ID string

// Known provider identifiers. These match the wire values accepted in the
// request's optional "provider" filter.
const (
	ProviderOpenAI           ID = "openai"
	ProviderTogetherAI       ID = "togetherai"
	ProviderGroq             ID = "groq"
	ProviderAnthropic        ID = "anthropic"
	ProviderBedrock          ID = "bedrock"
	ProviderGemini           ID = "gemini"
	ProviderMistralAI        ID = "mistralai"
	ProviderMistralCodestral ID = "mistralcodestral"
)

// ParseID validates a wire-format provider name.
func ParseID(s string) (ID, error) {
	switch ID(s) {
	case ProviderOpenAI, ProviderTogetherAI, ProviderGroq, ProviderAnthropic,
		ProviderBedrock, ProviderGemini, ProviderMistralAI, ProviderMistralCodestral:
		return ID(s), nil
	}
	return "", fmt.Errorf("unknown provider: %q", s)
}

// Adapter is the uniform contract over heterogeneous LLM back-ends.
type Adapter interface {
	// ID returns the provider identifier.
	ID() ID
	// Validate checks, best-effort, that this process can reach the
	// back-end with its preconfigured (self-hosted) credentials.
	Validate(ctx context.Context) error
	// MakeQuery dispatches one request and returns the normalised response.
	MakeQuery(ctx context.Context, params QueryParams) (*QueryResponse, error)
	// SupportsSAAS reports whether the adapter accepts per-request
	// credentials (SAAS mode).
	SupportsSAAS() bool
	// SupportsJSONMode reports whether the back-end can be forced to emit
	// valid JSON.
	SupportsJSONMode() bool
	// SupportsImages reports whether the back-end accepts image content
	// parts.
	SupportsImages() bool
}

// QueryParams carries everything an adapter needs for a single dispatch.
type QueryParams struct {
	Messages []Message
	// Model is the logical model name; the adapter resolves it to a native
	// model ID through its closed mapping table.
	Model string
	// NativeModelID, when non-empty, overrides the adapter's mapping table.
	// Catalog entries may pin a specific native ID this way.
	NativeModelID string
	Temperature   *float64
	MaxGenLen     *int
	JSONMode      *bool
	// Credentials is the per-request credential bag (SAAS mode only; nil in
	// self-hosted mode).
	Credentials CredentialList
}

// JSONModeRequested reports whether the request explicitly asked for JSON
// output. Only an explicit true counts; nil and false do not.
func (p QueryParams) JSONModeRequested() bool {
	return p.JSONMode != nil && *p.JSONMode
}

// QueryResponse is the normalised result of a single back-end call.
type QueryResponse struct {
	ModelOutput      string
	PromptTokens     int
	GenerationTokens int
}

// ---------------------------------------------------------------- errors ----

// ErrMissingCredentials signals that SAAS mode is active but the request's
// credential bag has no variant for this adapter. Per-candidate: the pipeline
// records it and moves to the next plan entry.
var ErrMissingCredentials = errors.New("missing credentials for provider")

// UnsupportedOptionError signals that the candidate cannot honor a request
// flag (JSON mode, image input, or an unknown logical model). Per-candidate.
type UnsupportedOptionError struct {
	Provider ID
	Option   string
}

func (e *UnsupportedOptionError) Error() string {
	return fmt.Sprintf("provider %s does not support %s", e.Provider, e.Option)
}

// Failure wraps any back-end error (HTTP, network, protocol). Per-candidate.
type Failure struct {
	Provider ID
	Cause    error
}

func (e *Failure) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Provider, e.Cause)
}

func (e *Failure) Unwrap() error { return e.Cause }

// WrapFailure wraps err as a Failure unless it already carries one of the
// typed per-candidate identities the pipeline switches on.
func WrapFailure(provider ID, err error) error {
	if err == nil {
		return nil
	}
	var uo *UnsupportedOptionError
	var f *Failure
	if errors.Is(err, ErrMissingCredentials) || errors.As(err, &uo) || errors.As(err, &f) {
		return err
	}
	return &Failure{Provider: provider, Cause: err}
}
