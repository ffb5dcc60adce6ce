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

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var geminiModelTable = map[string]string{
	"gemini_1_5_pro":             "models/gemini-1.5-pro",
	"gemini_1_5_flash":           "models/gemini-1.5-flash",
	"gemini_1_5_flash_8b":        "models/gemini-1.5-flash-8b",
	"gemini_1_5_pro_001":         "models/gemini-1.5-pro-001",
	"gemini_1_5_pro_002":         "models/gemini-1.5-pro-002",
	"gemini_1_5_flash_001":       "models/gemini-1.5-flash-001",
	"gemini_1_5_flash_002":       "models/gemini-1.5-flash-002",
	"gemini_1_0_pro":             "models/gemini-1.0-pro",
}

// GeminiAdapter dispatches to the Google Generative Language API.
type GeminiAdapter struct {
	Base
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewGemini creates the Gemini adapter. The self-hosted key comes from
// GEMINI_API_KEY; baseURL overrides the endpoint (pass "" for default).
func NewGemini(baseURL string) *GeminiAdapter {
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	return &GeminiAdapter{
		Base:       Base{id: ProviderGemini, saas: true, jsonMode: true, images: true},
		httpClient: &http.Client{Timeout: 120 * time.Second},
		apiKey:     os.Getenv("GEMINI_API_KEY"),
		baseURL:    baseURL,
	}
}

// Validate checks that a self-hosted API key is configured.
func (a *GeminiAdapter) Validate(_ context.Context) error {
	if a.apiKey == "" {
		return errors.New("GEMINI_API_KEY not set")
	}
	return nil
}

// Wire types for generateContent.

type geminiPart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *geminiBlob     `json:"inline_data,omitempty"`
	FileData   *geminiFileData `json:"file_data,omitempty"`
}

type geminiBlob struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiFileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  *int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// MakeQuery sends a generateContent request. Conversation turns map to the
// user/model role scheme; system content goes to systemInstruction.
func (a *GeminiAdapter) MakeQuery(ctx context.Context, params QueryParams) (*QueryResponse, error) {
	native, err := a.resolveNative(params, geminiModelTable)
	if err != nil {
		return nil, err
	}

	apiKey := a.apiKey
	if params.Credentials != nil {
		cred, ok := params.Credentials.For(ProviderGemini)
		if !ok {
			return nil, ErrMissingCredentials
		}
		apiKey = cred.Gemini.GeminiAPIKey
	}

	system, turns := SplitSystem(params.Messages)
	req := geminiRequest{Contents: buildGeminiContents(turns)}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	cfg := &geminiGenerationConfig{
		Temperature:     params.Temperature,
		MaxOutputTokens: params.MaxGenLen,
	}
	if params.JSONModeRequested() {
		cfg.ResponseMimeType = "application/json"
	}
	if cfg.Temperature != nil || cfg.MaxOutputTokens != nil || cfg.ResponseMimeType != "" {
		req.GenerationConfig = cfg
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, WrapFailure(ProviderGemini, err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", a.baseURL, native)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, WrapFailure(ProviderGemini, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", apiKey)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, WrapFailure(ProviderGemini, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, WrapFailure(ProviderGemini, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &Failure{Provider: ProviderGemini, Cause: fmt.Errorf("status %d: %s", httpResp.StatusCode, respBody)}
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, WrapFailure(ProviderGemini, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, &Failure{Provider: ProviderGemini, Cause: errors.New("no candidates in response")}
	}

	var text string
	for _, p := range resp.Candidates[0].Content.Parts {
		text += p.Text
	}
	return &QueryResponse{
		ModelOutput:      text,
		PromptTokens:     resp.UsageMetadata.PromptTokenCount,
		GenerationTokens: resp.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// buildGeminiContents maps canonical turns to the user/model role scheme.
func buildGeminiContents(msgs []Message) []geminiContent {
	out := make([]geminiContent, 0, len(msgs))
	for _, msg := range msgs {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		var parts []geminiPart
		if len(msg.ContentParts) > 0 {
			for _, p := range msg.ContentParts {
				switch p.Type {
				case ContentTypeText:
					parts = append(parts, geminiPart{Text: p.Text})
				case ContentTypeImage:
					if p.Source != nil {
						parts = append(parts, geminiPart{InlineData: &geminiBlob{
							MimeType: p.Source.MediaType,
							Data:     p.Source.Data,
						}})
					}
				case ContentTypeFile:
					if p.Data != nil {
						parts = append(parts, geminiPart{FileData: &geminiFileData{
							MimeType: p.Data.MimeType,
							FileURI:  p.Data.FileURI,
						}})
					}
				}
			}
		} else if msg.Content != "" {
			parts = append(parts, geminiPart{Text: msg.Content})
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, geminiContent{Role: role, Parts: parts})
	}
	return out
}
