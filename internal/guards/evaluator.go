// Package guards implements the guard evaluations served by the guard
// sidecar. The regex guard runs natively; the prompt-injection classifier and
// the Presidio entity analyzer call external model-inference HTTP services.
package guards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/lytix-labs/optimodel/guard"
	"github.com/lytix-labs/optimodel/internal/logging"
	"github.com/lytix-labs/optimodel/providers"
)

// Inference service env vars.
const (
	PromptGuardURLEnv = "OPTIMODEL_PROMPT_GUARD_URL"
	PresidioURLEnv    = "OPTIMODEL_PRESIDIO_URL"
)

// defaultThreshold applies when a classifier guard omits its thresholds.
const defaultThreshold = 0.5

// Evaluator dispatches guard checks by guard name.
type Evaluator struct {
	// PromptGuardURL is the classifier inference endpoint for
	// META_LLAMA_PROMPT_GUARD_86M. Empty means the guard cannot run.
	PromptGuardURL string
	// PresidioURL is the Presidio analyzer endpoint for
	// MICROSOFT_PRESIDIO_GUARD.
	PresidioURL string

	HTTPClient *http.Client
}

// New creates an evaluator backed by the given inference endpoints.
func New(promptGuardURL, presidioURL string) *Evaluator {
	return &Evaluator{
		PromptGuardURL: strings.TrimRight(promptGuardURL, "/"),
		PresidioURL:    strings.TrimRight(presidioURL, "/"),
		HTTPClient:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Evaluate runs one guard against the conversation. preQuery guards inspect
// the user turns; postQuery guards inspect the model output (falling back to
// assistant turns when none was supplied). Only text parts are inspected.
func (e *Evaluator) Evaluate(ctx context.Context, cfg guard.Config, messages []providers.Message, modelOutput string) (*guard.Result, error) {
	text := relevantText(cfg, messages, modelOutput)
	if text == "" {
		return &guard.Result{}, nil
	}

	switch cfg.GuardName {
	case guard.NameLytixRegexGuard:
		return e.evaluateRegex(ctx, cfg, text), nil
	case guard.NameLlamaPromptGuard:
		return e.evaluatePromptGuard(ctx, cfg, text)
	case guard.NameMicrosoftPresidio:
		return e.evaluatePresidio(ctx, cfg, text)
	}
	return nil, fmt.Errorf("unknown guard: %q", cfg.GuardName)
}

// relevantText reduces the conversation to the text a guard inspects.
func relevantText(cfg guard.Config, messages []providers.Message, modelOutput string) string {
	if cfg.IsPostQuery() {
		if modelOutput != "" {
			return modelOutput
		}
		return roleText(messages, providers.RoleAssistant)
	}
	return roleText(messages, providers.RoleUser)
}

func roleText(messages []providers.Message, role string) string {
	var parts []string
	for _, m := range messages {
		if m.Role != role {
			continue
		}
		if t := m.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n")
}

// evaluateRegex never fails the request on a bad pattern: an uncompilable
// regex is logged and passes.
func (e *Evaluator) evaluateRegex(ctx context.Context, cfg guard.Config, text string) *guard.Result {
	re, err := regexp.Compile(cfg.Regex)
	if err != nil {
		logging.FromContext(ctx).Warn("regex guard pattern does not compile, passing",
			"guard", cfg.GuardName, "error", err)
		return &guard.Result{}
	}
	if !re.MatchString(text) {
		return &guard.Result{}
	}
	return &guard.Result{
		Failure:  true,
		Metadata: map[string]any{"matched": re.FindString(text)},
	}
}

// classifierScore is one label's score from the prompt guard inference
// service, in the Hugging Face text-classification output shape.
type classifierScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Prompt guard classifier labels.
const (
	labelJailbreak = "JAILBREAK"
	labelInjection = "INJECTION"
)

func (e *Evaluator) evaluatePromptGuard(ctx context.Context, cfg guard.Config, text string) (*guard.Result, error) {
	if e.PromptGuardURL == "" {
		return nil, fmt.Errorf("guard %s: no inference endpoint configured", cfg.GuardName)
	}

	var scores []classifierScore
	if err := e.postJSON(ctx, e.PromptGuardURL, map[string]any{"text": text}, &scores); err != nil {
		return nil, fmt.Errorf("guard %s: %w", cfg.GuardName, err)
	}

	jailbreak := defaultThreshold
	if cfg.JailbreakThreshold != nil {
		jailbreak = *cfg.JailbreakThreshold
	}
	injection := defaultThreshold
	if cfg.InjectionThreshold != nil {
		injection = *cfg.InjectionThreshold
	}

	for _, s := range scores {
		switch {
		case s.Label == labelJailbreak && s.Score > jailbreak:
			return &guard.Result{
				Failure:  true,
				Metadata: map[string]any{"label": s.Label, "score": s.Score},
			}, nil
		case s.Label == labelInjection && s.Score > injection:
			return &guard.Result{
				Failure:  true,
				Metadata: map[string]any{"label": s.Label, "score": s.Score},
			}, nil
		}
	}
	return &guard.Result{}, nil
}

// presidioFinding is one recognized entity from the Presidio analyzer.
type presidioFinding struct {
	EntityType string  `json:"entity_type"`
	Score      float64 `json:"score"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
}

func (e *Evaluator) evaluatePresidio(ctx context.Context, cfg guard.Config, text string) (*guard.Result, error) {
	if e.PresidioURL == "" {
		return nil, fmt.Errorf("guard %s: no analyzer endpoint configured", cfg.GuardName)
	}

	var findings []presidioFinding
	body := map[string]any{
		"text":     text,
		"language": "en",
		"entities": cfg.EntitiesToCheck,
	}
	if err := e.postJSON(ctx, e.PresidioURL, body, &findings); err != nil {
		return nil, fmt.Errorf("guard %s: %w", cfg.GuardName, err)
	}

	wanted := make(map[string]bool, len(cfg.EntitiesToCheck))
	for _, entity := range cfg.EntitiesToCheck {
		wanted[entity] = true
	}

	var matched []string
	for _, f := range findings {
		if wanted[f.EntityType] {
			matched = append(matched, f.EntityType)
		}
	}
	if len(matched) == 0 {
		return &guard.Result{}, nil
	}
	return &guard.Result{
		Failure:  true,
		Metadata: map[string]any{"entities": matched},
	}, nil
}

func (e *Evaluator) postJSON(ctx context.Context, url string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference status %d: %s", resp.StatusCode, respBody)
	}
	return json.Unmarshal(respBody, out)
}
