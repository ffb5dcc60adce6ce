package providers

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicDefaultMaxTokens applies when the request carries no generation
// cap. The Messages API requires max_tokens on every call.
const anthropicDefaultMaxTokens = 4096

var anthropicModelTable = map[string]string{
	"claude_3_5_sonnet":          "claude-3-5-sonnet-20240620",
	"claude_3_5_sonnet_20240620": "claude-3-5-sonnet-20240620",
	"claude_3_5_sonnet_20241022": "claude-3-5-sonnet-20241022",
	"claude_3_sonnet":            "claude-3-sonnet-20240229",
	"claude_3_haiku":             "claude-3-haiku-20240307",
	"claude_3_haiku_20240307":    "claude-3-haiku-20240307",
}

// AnthropicAdapter dispatches to the Anthropic Messages API.
type AnthropicAdapter struct {
	Base
	client anthropic.Client
	hasKey bool
}

// NewAnthropic creates the Anthropic adapter. The self-hosted client reads
// ANTHROPIC_API_KEY.
func NewAnthropic() *AnthropicAdapter {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	return &AnthropicAdapter{
		Base:   Base{id: ProviderAnthropic, saas: true, images: true},
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		hasKey: apiKey != "",
	}
}

// Validate checks that a self-hosted API key is configured.
func (a *AnthropicAdapter) Validate(_ context.Context) error {
	if !a.hasKey {
		return errors.New("ANTHROPIC_API_KEY not set")
	}
	return nil
}

// MakeQuery sends a Messages API request. System turns are lifted into the
// dedicated system channel; image entries become base64 source blocks.
func (a *AnthropicAdapter) MakeQuery(ctx context.Context, params QueryParams) (*QueryResponse, error) {
	if err := a.requireNoJSONMode(params); err != nil {
		return nil, err
	}
	native, err := a.resolveNative(params, anthropicModelTable)
	if err != nil {
		return nil, err
	}

	client := a.client
	if params.Credentials != nil {
		cred, ok := params.Credentials.For(ProviderAnthropic)
		if !ok {
			return nil, ErrMissingCredentials
		}
		client = anthropic.NewClient(option.WithAPIKey(cred.Anthropic.AnthropicAPIKey))
	}

	system, turns := SplitSystem(params.Messages)

	maxTokens := anthropicDefaultMaxTokens
	if params.MaxGenLen != nil {
		maxTokens = *params.MaxGenLen
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(native),
		MaxTokens: int64(maxTokens),
		Messages:  buildAnthropicMessages(turns),
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if params.Temperature != nil {
		req.Temperature = anthropic.Float(*params.Temperature)
	}

	message, err := client.Messages.New(ctx, req)
	if err != nil {
		return nil, WrapFailure(ProviderAnthropic, err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return &QueryResponse{
		ModelOutput:      sb.String(),
		PromptTokens:     int(message.Usage.InputTokens),
		GenerationTokens: int(message.Usage.OutputTokens),
	}, nil
}

func buildAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		var blocks []anthropic.ContentBlockParamUnion
		if len(msg.ContentParts) > 0 {
			for _, p := range msg.ContentParts {
				switch p.Type {
				case ContentTypeText:
					blocks = append(blocks, anthropic.NewTextBlock(p.Text))
				case ContentTypeImage:
					if p.Source != nil {
						blocks = append(blocks, anthropic.NewImageBlockBase64(p.Source.MediaType, p.Source.Data))
					}
				}
			}
		} else if msg.Content != "" {
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		}
		if len(blocks) == 0 {
			continue
		}
		if msg.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}
