package providers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"
)

const codestralBaseURL = "https://codestral.mistral.ai/v1"

var mistralCodestralModelTable = map[string]string{
	"codestral_latest": "codestral-latest",
}

// MistralCodestralAdapter dispatches to the dedicated Codestral endpoint. It
// speaks the same chat completions dialect as Mistral AI but authenticates
// with a separate key.
type MistralCodestralAdapter struct {
	Base
	httpClient *http.Client
	apiKey     string
}

// NewMistralCodestral creates the Codestral adapter. The self-hosted key
// comes from MISTRAL_CODESTRAL_API_KEY.
func NewMistralCodestral() *MistralCodestralAdapter {
	return &MistralCodestralAdapter{
		Base:       Base{id: ProviderMistralCodestral, saas: true},
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     os.Getenv("MISTRAL_CODESTRAL_API_KEY"),
	}
}

// Validate checks that a self-hosted API key is configured.
func (a *MistralCodestralAdapter) Validate(_ context.Context) error {
	if a.apiKey == "" {
		return errors.New("MISTRAL_CODESTRAL_API_KEY not set")
	}
	return nil
}

// MakeQuery sends a chat completion request to the Codestral endpoint.
func (a *MistralCodestralAdapter) MakeQuery(ctx context.Context, params QueryParams) (*QueryResponse, error) {
	if err := a.requireNoJSONMode(params); err != nil {
		return nil, err
	}
	if err := a.requireNoMedia(params.Messages); err != nil {
		return nil, err
	}
	native, err := a.resolveNative(params, mistralCodestralModelTable)
	if err != nil {
		return nil, err
	}

	apiKey := a.apiKey
	if params.Credentials != nil {
		cred, ok := params.Credentials.For(ProviderMistralCodestral)
		if !ok {
			return nil, ErrMissingCredentials
		}
		apiKey = cred.MistralCodestral.MistralCodestralAPIKey
	}
	return mistralChat(ctx, a.httpClient, ProviderMistralCodestral, codestralBaseURL, apiKey, native, params)
}
