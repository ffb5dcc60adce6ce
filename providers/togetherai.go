package providers

import (
	"context"
	"errors"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const togetherBaseURL = "https://api.together.xyz/v1"

var togetherModelTable = map[string]string{
	"llama_3_8b_instruct":     "meta-llama/Llama-3-8b-chat-hf",
	"llama_3_70b_instruct":    "meta-llama/Llama-3-70b-chat-hf",
	"llama_3_1_8b_instruct":   "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo",
	"llama_3_1_70b_instruct":  "meta-llama/Meta-Llama-3.1-70B-Instruct-Turbo",
	"llama_3_1_405b_instruct": "meta-llama/Meta-Llama-3.1-405B-Instruct-Turbo",
	"mistral_7b_instruct":     "mistralai/Mistral-7B-Instruct-v0.3",
	"mixtral_8x7b_instruct":   "mistralai/Mixtral-8x7B-Instruct-v0.1",
}

// TogetherAIAdapter dispatches to Together AI through its OpenAI-compatible
// endpoint.
type TogetherAIAdapter struct {
	Base
	client openai.Client
	hasKey bool
}

// NewTogetherAI creates the Together AI adapter. The self-hosted client reads
// TOGETHER_API_KEY.
func NewTogetherAI() *TogetherAIAdapter {
	apiKey := os.Getenv("TOGETHER_API_KEY")
	return &TogetherAIAdapter{
		Base:   Base{id: ProviderTogetherAI, saas: true},
		client: openai.NewClient(option.WithAPIKey(apiKey), option.WithBaseURL(togetherBaseURL)),
		hasKey: apiKey != "",
	}
}

// Validate checks that a self-hosted API key is configured.
func (a *TogetherAIAdapter) Validate(_ context.Context) error {
	if !a.hasKey {
		return errors.New("TOGETHER_API_KEY not set")
	}
	return nil
}

// MakeQuery sends a chat completion request to Together AI.
func (a *TogetherAIAdapter) MakeQuery(ctx context.Context, params QueryParams) (*QueryResponse, error) {
	if err := a.requireNoJSONMode(params); err != nil {
		return nil, err
	}
	if err := a.requireNoMedia(params.Messages); err != nil {
		return nil, err
	}
	native, err := a.resolveNative(params, togetherModelTable)
	if err != nil {
		return nil, err
	}

	client := a.client
	if params.Credentials != nil {
		cred, ok := params.Credentials.For(ProviderTogetherAI)
		if !ok {
			return nil, ErrMissingCredentials
		}
		client = openai.NewClient(
			option.WithAPIKey(cred.TogetherAI.TogetherAPIKey),
			option.WithBaseURL(togetherBaseURL),
		)
	}

	req := openai.ChatCompletionNewParams{
		Model:    native,
		Messages: buildChatMessages(params.Messages),
	}
	applyChatParams(&req, params)

	completion, err := client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, WrapFailure(ProviderTogetherAI, err)
	}
	return extractChatResponse(ProviderTogetherAI, completion)
}
