package models

// The closed set of logical model names. A logical name identifies a model
// family member independently of which back-end serves it; adapters own the
// mapping to native model IDs. Config entries naming anything outside this
// set fail the load.
var knownLogicalModels = map[string]struct{}{
	// Meta Llama
	"llama_3_8b_instruct":     {},
	"llama_3_70b_instruct":    {},
	"llama_3_1_8b_instruct":   {},
	"llama_3_1_70b_instruct":  {},
	"llama_3_1_405b_instruct": {},

	// Mistral open weights
	"mistral_7b_instruct":   {},
	"mixtral_8x7b_instruct": {},

	// Mistral hosted
	"open_mistral_nemo":    {},
	"mistral_large_latest": {},
	"codestral_latest":     {},

	// OpenAI
	"gpt_4":                  {},
	"gpt_4_turbo":            {},
	"gpt_4o":                 {},
	"gpt_4o_2024_05_13":      {},
	"gpt_4o_2024_08_06":      {},
	"gpt_4o_mini":            {},
	"gpt_4o_mini_2024_07_18": {},
	"gpt_3_5_turbo":          {},
	"gpt_3_5_turbo_0125":     {},
	"o1_preview":             {},
	"o1_preview_2024_09_12":  {},
	"o1_mini":                {},
	"o1_mini_2024_09_12":     {},

	// Anthropic Claude
	"claude_3_5_sonnet":          {},
	"claude_3_5_sonnet_20240620": {},
	"claude_3_5_sonnet_20241022": {},
	"claude_3_sonnet":            {},
	"claude_3_haiku":             {},
	"claude_3_haiku_20240307":    {},

	// Google Gemini
	"gemini_1_5_pro":       {},
	"gemini_1_5_pro_001":   {},
	"gemini_1_5_pro_002":   {},
	"gemini_1_5_flash":     {},
	"gemini_1_5_flash_001": {},
	"gemini_1_5_flash_002": {},
	"gemini_1_5_flash_8b":  {},
	"gemini_1_0_pro":       {},
}

// KnownLogicalModel reports whether name is in the closed logical model set.
func KnownLogicalModel(name string) bool {
	_, ok := knownLogicalModels[name]
	return ok
}
