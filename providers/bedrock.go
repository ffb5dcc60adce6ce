package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go/middleware"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

var bedrockModelTable = map[string]string{
	"llama_3_8b_instruct":     "meta.llama3-8b-instruct-v1:0",
	"llama_3_70b_instruct":    "meta.llama3-70b-instruct-v1:0",
	"llama_3_1_8b_instruct":   "meta.llama3-1-8b-instruct-v1:0",
	"llama_3_1_70b_instruct":  "meta.llama3-1-70b-instruct-v1:0",
	"llama_3_1_405b_instruct": "meta.llama3-1-405b-instruct-v1:0",
	"mistral_7b_instruct":     "mistral.mistral-7b-instruct-v0:2",
	"mixtral_8x7b_instruct":   "mistral.mixtral-8x7b-instruct-v0:1",
	"claude_3_5_sonnet":       "anthropic.claude-3-5-sonnet-20240620-v1:0",
	"claude_3_haiku":          "anthropic.claude-3-haiku-20240307-v1:0",
}

// BedrockAdapter dispatches to AWS Bedrock via the runtime InvokeModel API.
// The native payload differs per model family; the family is picked off the
// native model ID prefix (meta., mistral., anthropic.).
type BedrockAdapter struct {
	Base
	client *bedrockruntime.Client
	region string
	cfgErr error
}

// NewBedrock creates the Bedrock adapter. The self-hosted client uses the
// default AWS credential chain; region defaults to us-east-1.
func NewBedrock(region string) *BedrockAdapter {
	if region == "" {
		region = "us-east-1"
	}
	a := &BedrockAdapter{
		Base:   Base{id: ProviderBedrock, saas: true},
		region: region,
	}
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		a.cfgErr = fmt.Errorf("load AWS config: %w", err)
		return a
	}
	a.client = bedrockruntime.NewFromConfig(cfg)
	return a
}

// Validate performs an STS GetCallerIdentity call to confirm the ambient
// credential chain resolves to a usable identity.
func (a *BedrockAdapter) Validate(ctx context.Context) error {
	if a.cfgErr != nil {
		return a.cfgErr
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(a.region))
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}
	if _, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return fmt.Errorf("sts get-caller-identity: %w", err)
	}
	return nil
}

// MakeQuery dispatches one InvokeModel call, building the payload for the
// native model's family.
func (a *BedrockAdapter) MakeQuery(ctx context.Context, params QueryParams) (*QueryResponse, error) {
	if err := a.requireNoJSONMode(params); err != nil {
		return nil, err
	}
	if err := a.requireNoMedia(params.Messages); err != nil {
		return nil, err
	}
	native, err := a.resolveNative(params, bedrockModelTable)
	if err != nil {
		return nil, err
	}

	client := a.client
	if params.Credentials != nil {
		cred, ok := params.Credentials.For(ProviderBedrock)
		if !ok {
			return nil, ErrMissingCredentials
		}
		bc := cred.AWSBedrock
		region := bc.AWSRegion
		if region == "" {
			region = a.region
		}
		cfg, err := config.LoadDefaultConfig(ctx,
			config.WithRegion(region),
			config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(bc.AWSAccessKeyID, bc.AWSSecretKey, ""),
			),
		)
		if err != nil {
			return nil, WrapFailure(ProviderBedrock, err)
		}
		client = bedrockruntime.NewFromConfig(cfg)
	} else if client == nil {
		return nil, WrapFailure(ProviderBedrock, a.cfgErr)
	}

	switch {
	case strings.HasPrefix(native, "meta."):
		return a.invokeLlama(ctx, client, native, params)
	case strings.HasPrefix(native, "mistral."):
		return a.invokeMistral(ctx, client, native, params)
	case strings.HasPrefix(native, "anthropic."):
		return a.invokeAnthropic(ctx, client, native, params)
	}
	return nil, &UnsupportedOptionError{Provider: ProviderBedrock, Option: "model family for " + native}
}

// ── Meta Llama ───────────────────────────────────────────────────────────────

type bedrockLlamaRequest struct {
	Prompt      string   `json:"prompt"`
	MaxGenLen   int      `json:"max_gen_len,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type bedrockLlamaResponse struct {
	Generation           string `json:"generation"`
	PromptTokenCount     int    `json:"prompt_token_count"`
	GenerationTokenCount int    `json:"generation_token_count"`
	StopReason           string `json:"stop_reason"`
}

// llamaPrompt renders the Llama 3 chat template.
func llamaPrompt(msgs []Message) string {
	var sb strings.Builder
	sb.WriteString("<|begin_of_text|>")
	for _, msg := range msgs {
		sb.WriteString(fmt.Sprintf("<|start_header_id|>%s<|end_header_id|>\n\n%s<|eot_id|>\n", msg.Role, msg.Text()))
	}
	sb.WriteString("<|start_header_id|>assistant<|end_header_id|>\n\n")
	return sb.String()
}

func (a *BedrockAdapter) invokeLlama(ctx context.Context, client *bedrockruntime.Client, native string, params QueryParams) (*QueryResponse, error) {
	req := bedrockLlamaRequest{
		Prompt:      llamaPrompt(params.Messages),
		Temperature: params.Temperature,
	}
	if params.MaxGenLen != nil {
		req.MaxGenLen = *params.MaxGenLen
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, WrapFailure(ProviderBedrock, err)
	}

	output, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(native),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, WrapFailure(ProviderBedrock, err)
	}

	var resp bedrockLlamaResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, WrapFailure(ProviderBedrock, err)
	}
	return &QueryResponse{
		ModelOutput:      resp.Generation,
		PromptTokens:     resp.PromptTokenCount,
		GenerationTokens: resp.GenerationTokenCount,
	}, nil
}

// ── Mistral ──────────────────────────────────────────────────────────────────

type bedrockMistralRequest struct {
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type bedrockMistralResponse struct {
	Outputs []struct {
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"outputs"`
}

// mistralPrompt renders the Mistral instruct template. System content is
// folded into the first instruction block.
func mistralPrompt(msgs []Message) string {
	system, rest := SplitSystem(msgs)
	var sb strings.Builder
	sb.WriteString("<s>")
	for _, msg := range rest {
		if msg.Role == RoleAssistant {
			sb.WriteString(" " + msg.Text() + "</s>")
			continue
		}
		text := msg.Text()
		if system != "" {
			text = system + "\n" + text
			system = ""
		}
		sb.WriteString(" [INST] " + text + " [/INST]")
	}
	return sb.String()
}

// tokenHeaderCapture holds the token counts Bedrock reports only through
// response headers for the Mistral family.
type tokenHeaderCapture struct {
	input  int
	output int
}

// captureTokenHeaders installs a deserialize middleware copying the
// X-Amzn-Bedrock-*-Token-Count headers off the raw HTTP response.
func captureTokenHeaders(dst *tokenHeaderCapture) func(*middleware.Stack) error {
	return func(stack *middleware.Stack) error {
		return stack.Deserialize.Add(middleware.DeserializeMiddlewareFunc("optimodelTokenHeaders",
			func(ctx context.Context, in middleware.DeserializeInput, next middleware.DeserializeHandler) (middleware.DeserializeOutput, middleware.Metadata, error) {
				out, md, err := next.HandleDeserialize(ctx, in)
				if resp, ok := out.RawResponse.(*smithyhttp.Response); ok && resp != nil {
					dst.input, _ = strconv.Atoi(resp.Header.Get("X-Amzn-Bedrock-Input-Token-Count"))
					dst.output, _ = strconv.Atoi(resp.Header.Get("X-Amzn-Bedrock-Output-Token-Count"))
				}
				return out, md, err
			}), middleware.Before)
	}
}

func (a *BedrockAdapter) invokeMistral(ctx context.Context, client *bedrockruntime.Client, native string, params QueryParams) (*QueryResponse, error) {
	req := bedrockMistralRequest{
		Prompt:      mistralPrompt(params.Messages),
		Temperature: params.Temperature,
	}
	if params.MaxGenLen != nil {
		req.MaxTokens = *params.MaxGenLen
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, WrapFailure(ProviderBedrock, err)
	}

	var tokens tokenHeaderCapture
	output, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(native),
		ContentType: aws.String("application/json"),
		Body:        body,
	}, func(o *bedrockruntime.Options) {
		o.APIOptions = append(o.APIOptions, captureTokenHeaders(&tokens))
	})
	if err != nil {
		return nil, WrapFailure(ProviderBedrock, err)
	}

	var resp bedrockMistralResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, WrapFailure(ProviderBedrock, err)
	}
	if len(resp.Outputs) == 0 {
		return nil, &Failure{Provider: ProviderBedrock, Cause: fmt.Errorf("empty outputs from %s", native)}
	}
	return &QueryResponse{
		ModelOutput:      resp.Outputs[0].Text,
		PromptTokens:     tokens.input,
		GenerationTokens: tokens.output,
	}, nil
}

// ── Anthropic Claude on Bedrock ──────────────────────────────────────────────

type bedrockAnthropicRequest struct {
	AnthropicVersion string                    `json:"anthropic_version"`
	MaxTokens        int                       `json:"max_tokens"`
	Messages         []bedrockAnthropicMessage `json:"messages"`
	Temperature      *float64                  `json:"temperature,omitempty"`
	System           string                    `json:"system,omitempty"`
}

type bedrockAnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockAnthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (a *BedrockAdapter) invokeAnthropic(ctx context.Context, client *bedrockruntime.Client, native string, params QueryParams) (*QueryResponse, error) {
	system, rest := SplitSystem(params.Messages)
	msgs := make([]bedrockAnthropicMessage, 0, len(rest))
	for _, m := range rest {
		msgs = append(msgs, bedrockAnthropicMessage{Role: m.Role, Content: m.Text()})
	}

	maxTokens := anthropicDefaultMaxTokens
	if params.MaxGenLen != nil {
		maxTokens = *params.MaxGenLen
	}
	req := bedrockAnthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokens,
		Messages:         msgs,
		Temperature:      params.Temperature,
		System:           system,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, WrapFailure(ProviderBedrock, err)
	}

	output, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(native),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, WrapFailure(ProviderBedrock, err)
	}

	var resp bedrockAnthropicResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, WrapFailure(ProviderBedrock, err)
	}
	var sb strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return &QueryResponse{
		ModelOutput:      sb.String(),
		PromptTokens:     resp.Usage.InputTokens,
		GenerationTokens: resp.Usage.OutputTokens,
	}, nil
}
