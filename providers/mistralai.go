package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const mistralBaseURL = "https://api.mistral.ai/v1"

var mistralAIModelTable = map[string]string{
	"open_mistral_nemo":    "open-mistral-nemo",
	"mistral_large_latest": "mistral-large-latest",
	"codestral_latest":     "codestral-latest",
}

// Wire types for the Mistral chat completions API, shared with the dedicated
// Codestral endpoint.

type mistralChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type mistralChatRequest struct {
	Model       string               `json:"model"`
	Messages    []mistralChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
	MaxTokens   *int                 `json:"max_tokens,omitempty"`
}

type mistralChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// mistralChat posts one chat completion request and normalises the response.
func mistralChat(ctx context.Context, client *http.Client, provider ID, baseURL, apiKey, native string, params QueryParams) (*QueryResponse, error) {
	msgs := make([]mistralChatMessage, 0, len(params.Messages))
	for _, m := range params.Messages {
		msgs = append(msgs, mistralChatMessage{Role: m.Role, Content: m.Text()})
	}
	req := mistralChatRequest{
		Model:       native,
		Messages:    msgs,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxGenLen,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, WrapFailure(provider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, WrapFailure(provider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, WrapFailure(provider, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, WrapFailure(provider, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &Failure{Provider: provider, Cause: fmt.Errorf("status %d: %s", httpResp.StatusCode, respBody)}
	}

	var resp mistralChatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, WrapFailure(provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &Failure{Provider: provider, Cause: errors.New("empty choices in completion")}
	}
	return &QueryResponse{
		ModelOutput:      resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		GenerationTokens: resp.Usage.CompletionTokens,
	}, nil
}

// MistralAIAdapter dispatches to the Mistral AI chat completions API.
type MistralAIAdapter struct {
	Base
	httpClient *http.Client
	apiKey     string
}

// NewMistralAI creates the Mistral AI adapter. The self-hosted key comes from
// MISTRAL_API_KEY.
func NewMistralAI() *MistralAIAdapter {
	return &MistralAIAdapter{
		Base:       Base{id: ProviderMistralAI, saas: true},
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     os.Getenv("MISTRAL_API_KEY"),
	}
}

// Validate checks that a self-hosted API key is configured.
func (a *MistralAIAdapter) Validate(_ context.Context) error {
	if a.apiKey == "" {
		return errors.New("MISTRAL_API_KEY not set")
	}
	return nil
}

// MakeQuery sends a chat completion request to Mistral AI.
func (a *MistralAIAdapter) MakeQuery(ctx context.Context, params QueryParams) (*QueryResponse, error) {
	if err := a.requireNoJSONMode(params); err != nil {
		return nil, err
	}
	if err := a.requireNoMedia(params.Messages); err != nil {
		return nil, err
	}
	native, err := a.resolveNative(params, mistralAIModelTable)
	if err != nil {
		return nil, err
	}

	apiKey := a.apiKey
	if params.Credentials != nil {
		cred, ok := params.Credentials.For(ProviderMistralAI)
		if !ok {
			return nil, ErrMissingCredentials
		}
		apiKey = cred.MistralAI.MistralAPIKey
	}
	return mistralChat(ctx, a.httpClient, ProviderMistralAI, mistralBaseURL, apiKey, native, params)
}
