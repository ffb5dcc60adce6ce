// Package guard defines the guard configuration wire format and the HTTP
// client the pipeline uses to evaluate guards against a guard server.
//
// Guards screen conversations before dispatch (preQuery) and model output
// after dispatch (postQuery). The evaluation itself runs out of process; this
// package only speaks the protocol.
package guard

import "fmt"

// Guard names. The set is closed: a config naming anything else fails
// validation.
const (
	NameLlamaPromptGuard   = "META_LLAMA_PROMPT_GUARD_86M"
	NameLytixRegexGuard    = "LYTIX_REGEX_GUARD"
	NameMicrosoftPresidio  = "MICROSOFT_PRESIDIO_GUARD"
)

// Guard phases.
const (
	PhasePreQuery  = "preQuery"
	PhasePostQuery = "postQuery"
)

// Config is one guard attached to a query request. The wire format is a
// tagged object: guardName selects the variant, and the variant-specific
// fields sit alongside the common ones.
type Config struct {
	GuardName           string `json:"guardName"`
	GuardType           string `json:"guardType"`
	BlockRequest        bool   `json:"blockRequest,omitempty"`
	BlockRequestMessage string `json:"blockRequestMessage,omitempty"`

	// META_LLAMA_PROMPT_GUARD_86M: classifier score thresholds. nil
	// disables that check.
	JailbreakThreshold *float64 `json:"jailbreakThreshold,omitempty"`
	InjectionThreshold *float64 `json:"injectionThreshold,omitempty"`

	// LYTIX_REGEX_GUARD
	Regex string `json:"regex,omitempty"`

	// MICROSOFT_PRESIDIO_GUARD
	EntitiesToCheck []string `json:"entitiesToCheck,omitempty"`
}

// Validate checks the tagged variant's required fields.
func (c Config) Validate() error {
	switch c.GuardType {
	case PhasePreQuery, PhasePostQuery:
	default:
		return fmt.Errorf("guard %s: invalid guardType %q", c.GuardName, c.GuardType)
	}

	switch c.GuardName {
	case NameLlamaPromptGuard:
	case NameLytixRegexGuard:
		if c.Regex == "" {
			return fmt.Errorf("guard %s: regex is required", c.GuardName)
		}
	case NameMicrosoftPresidio:
		if len(c.EntitiesToCheck) == 0 {
			return fmt.Errorf("guard %s: entitiesToCheck is required", c.GuardName)
		}
	default:
		return fmt.Errorf("unknown guard: %q", c.GuardName)
	}
	return nil
}

// IsPreQuery reports whether the guard runs before dispatch.
func (c Config) IsPreQuery() bool { return c.GuardType == PhasePreQuery }

// IsPostQuery reports whether the guard runs on model output.
func (c Config) IsPostQuery() bool { return c.GuardType == PhasePostQuery }
