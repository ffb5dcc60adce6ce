package providers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAIModelTable maps logical model names to OpenAI model IDs.
var openAIModelTable = map[string]string{
	"gpt_4":                   "gpt-4",
	"gpt_4_turbo":             "gpt-4-turbo",
	"gpt_4o":                  "gpt-4o",
	"gpt_4o_2024_05_13":       "gpt-4o-2024-05-13",
	"gpt_4o_2024_08_06":       "gpt-4o-2024-08-06",
	"gpt_4o_mini":             "gpt-4o-mini",
	"gpt_4o_mini_2024_07_18":  "gpt-4o-mini-2024-07-18",
	"gpt_3_5_turbo":           "gpt-3.5-turbo",
	"gpt_3_5_turbo_0125":      "gpt-3.5-turbo-0125",
	"o1_preview":              "o1-preview",
	"o1_preview_2024_09_12":   "o1-preview-2024-09-12",
	"o1_mini":                 "o1-mini",
	"o1_mini_2024_09_12":      "o1-mini-2024-09-12",
}

// OpenAIAdapter dispatches to the OpenAI Chat Completions API.
type OpenAIAdapter struct {
	Base
	client  openai.Client
	hasKey  bool
	baseURL string
}

// NewOpenAI creates the OpenAI adapter. The self-hosted client reads
// OPENAI_API_KEY; baseURL overrides the API endpoint (pass "" for default).
func NewOpenAI(baseURL string) *OpenAIAdapter {
	apiKey := os.Getenv("OPENAI_API_KEY")
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIAdapter{
		Base:    Base{id: ProviderOpenAI, saas: true, jsonMode: true, images: true},
		client:  openai.NewClient(opts...),
		hasKey:  apiKey != "",
		baseURL: baseURL,
	}
}

// Validate checks that a self-hosted API key is configured.
func (a *OpenAIAdapter) Validate(_ context.Context) error {
	if !a.hasKey {
		return errors.New("OPENAI_API_KEY not set")
	}
	return nil
}

// MakeQuery sends a chat completion request to OpenAI.
func (a *OpenAIAdapter) MakeQuery(ctx context.Context, params QueryParams) (*QueryResponse, error) {
	native, err := a.resolveNative(params, openAIModelTable)
	if err != nil {
		return nil, err
	}

	client := a.client
	if params.Credentials != nil {
		cred, ok := params.Credentials.For(ProviderOpenAI)
		if !ok {
			return nil, ErrMissingCredentials
		}
		opts := []option.RequestOption{option.WithAPIKey(cred.OpenAI.OpenAIKey)}
		if a.baseURL != "" {
			opts = append(opts, option.WithBaseURL(a.baseURL))
		}
		client = openai.NewClient(opts...)
	}

	req := openai.ChatCompletionNewParams{
		Model:    native,
		Messages: buildChatMessages(params.Messages),
	}
	applyChatParams(&req, params)

	completion, err := client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, WrapFailure(ProviderOpenAI, err)
	}
	return extractChatResponse(ProviderOpenAI, completion)
}

// buildChatMessages converts canonical messages to the openai-go union type.
// Multipart user content becomes the content-part schema; image entries are
// carried as base64 data URIs.
func buildChatMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		if len(msg.ContentParts) > 0 && msg.Role == RoleUser {
			parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(msg.ContentParts))
			for _, p := range msg.ContentParts {
				switch p.Type {
				case ContentTypeText:
					parts = append(parts, openai.ChatCompletionContentPartUnionParam{
						OfText: &openai.ChatCompletionContentPartTextParam{Text: p.Text},
					})
				case ContentTypeImage:
					if p.Source == nil {
						continue
					}
					uri := fmt.Sprintf("data:%s;base64,%s", p.Source.MediaType, p.Source.Data)
					parts = append(parts, openai.ChatCompletionContentPartUnionParam{
						OfImageURL: &openai.ChatCompletionContentPartImageParam{
							ImageURL: openai.ChatCompletionContentPartImageImageURLParam{URL: uri},
						},
					})
				}
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: parts,
					},
				},
			})
			continue
		}

		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Text()))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Text()))
		default:
			out = append(out, openai.UserMessage(msg.Text()))
		}
	}
	return out
}

// applyChatParams applies the optional request fields shared by the
// OpenAI-compatible adapters.
func applyChatParams(req *openai.ChatCompletionNewParams, params QueryParams) {
	if params.Temperature != nil {
		req.Temperature = openai.Float(*params.Temperature)
	}
	if params.MaxGenLen != nil {
		req.MaxTokens = openai.Int(int64(*params.MaxGenLen))
	}
	if params.JSONModeRequested() {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		}
	}
}

// extractChatResponse normalises an openai-go completion.
func extractChatResponse(provider ID, completion *openai.ChatCompletion) (*QueryResponse, error) {
	if len(completion.Choices) == 0 {
		return nil, &Failure{Provider: provider, Cause: errors.New("empty choices in completion")}
	}
	return &QueryResponse{
		ModelOutput:      completion.Choices[0].Message.Content,
		PromptTokens:     int(completion.Usage.PromptTokens),
		GenerationTokens: int(completion.Usage.CompletionTokens),
	}, nil
}
