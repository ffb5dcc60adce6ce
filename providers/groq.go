package providers

import (
	"context"
	"errors"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

var groqModelTable = map[string]string{
	"llama_3_8b_instruct":    "llama3-8b-8192",
	"llama_3_70b_instruct":   "llama3-70b-8192",
	"llama_3_1_8b_instruct":  "llama-3.1-8b-instant",
	"llama_3_1_70b_instruct": "llama-3.1-70b-versatile",
	"mixtral_8x7b_instruct":  "mixtral-8x7b-32768",
}

// GroqAdapter dispatches to Groq through its OpenAI-compatible endpoint.
type GroqAdapter struct {
	Base
	client openai.Client
	hasKey bool
}

// NewGroq creates the Groq adapter. The self-hosted client reads GROQ_API_KEY.
func NewGroq() *GroqAdapter {
	apiKey := os.Getenv("GROQ_API_KEY")
	return &GroqAdapter{
		Base:   Base{id: ProviderGroq, saas: true},
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(groqBaseURL)),
		hasKey: apiKey != "",
	}
}

// Validate checks that a self-hosted API key is configured.
func (a *GroqAdapter) Validate(_ context.Context) error {
	if !a.hasKey {
		return errors.New("GROQ_API_KEY not set")
	}
	return nil
}

// MakeQuery sends a chat completion request to Groq.
func (a *GroqAdapter) MakeQuery(ctx context.Context, params QueryParams) (*QueryResponse, error) {
	if err := a.requireNoJSONMode(params); err != nil {
		return nil, err
	}
	if err := a.requireNoMedia(params.Messages); err != nil {
		return nil, err
	}
	native, err := a.resolveNative(params, groqModelTable)
	if err != nil {
		return nil, err
	}

	client := a.client
	if params.Credentials != nil {
		cred, ok := params.Credentials.For(ProviderGroq)
		if !ok {
			return nil, ErrMissingCredentials
		}
		client = openai.NewClient(
			option.WithAPIKey(cred.Groq.GroqAPIKey),
			option.WithBaseURL(groqBaseURL),
		)
	}

	req := openai.ChatCompletionNewParams{
		Model:    native,
		Messages: buildChatMessages(params.Messages),
	}
	applyChatParams(&req, params)

	completion, err := client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, WrapFailure(ProviderGroq, err)
	}
	return extractChatResponse(ProviderGroq, completion)
}
