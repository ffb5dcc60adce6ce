package providers

import "encoding/json"

// Credential variants. Each back-end has its own secret shape; the wire
// format is a JSON list of objects distinguished by field name, e.g.
//
//	[{"openAiKey": "sk-..."}, {"awsAccessKeyId": "...", "awsSecretKey": "...", "awsRegion": "us-east-1"}]
//
// Secrets are per-request in SAAS mode and must never be logged or retained
// past the pipeline invocation.

// TogetherAICredentials authenticates against Together AI.
type TogetherAICredentials struct {
	TogetherAPIKey string `json:"togetherApiKey"`
}

// OpenAICredentials authenticates against OpenAI.
type OpenAICredentials struct {
	OpenAIKey string `json:"openAiKey"`
}

// AWSBedrockCredentials authenticates against AWS Bedrock.
type AWSBedrockCredentials struct {
	AWSAccessKeyID string `json:"awsAccessKeyId"`
	AWSSecretKey   string `json:"awsSecretKey"`
	AWSRegion      string `json:"awsRegion"`
}

// GroqCredentials authenticates against Groq.
type GroqCredentials struct {
	GroqAPIKey string `json:"groqApiKey"`
}

// AnthropicCredentials authenticates against Anthropic.
type AnthropicCredentials struct {
	AnthropicAPIKey string `json:"anthropicApiKey"`
}

// MistralAICredentials authenticates against Mistral AI.
type MistralAICredentials struct {
	MistralAPIKey string `json:"mistralApiKey"`
}

// MistralCodestralCredentials authenticates against the Codestral endpoint.
type MistralCodestralCredentials struct {
	MistralCodestralAPIKey string `json:"mistralCodeStralApiKey"`
}

// GeminiCredentials authenticates against Google Gemini.
type GeminiCredentials struct {
	GeminiAPIKey string `json:"geminiApiKey"`
}

// Credential is the tagged union over the per-provider variants. Exactly one
// variant is non-nil in a well-formed value.
type Credential struct {
	TogetherAI       *TogetherAICredentials
	OpenAI           *OpenAICredentials
	AWSBedrock       *AWSBedrockCredentials
	Groq             *GroqCredentials
	Anthropic        *AnthropicCredentials
	MistralAI        *MistralAICredentials
	MistralCodestral *MistralCodestralCredentials
	Gemini           *GeminiCredentials
}

// Provider returns the provider ID the credential belongs to, or "" for an
// empty value.
func (c Credential) Provider() ID {
	switch {
	case c.TogetherAI != nil:
		return ProviderTogetherAI
	case c.OpenAI != nil:
		return ProviderOpenAI
	case c.AWSBedrock != nil:
		return ProviderBedrock
	case c.Groq != nil:
		return ProviderGroq
	case c.Anthropic != nil:
		return ProviderAnthropic
	case c.MistralAI != nil:
		return ProviderMistralAI
	case c.MistralCodestral != nil:
		return ProviderMistralCodestral
	case c.Gemini != nil:
		return ProviderGemini
	}
	return ""
}

// String redacts the secret material. Credentials flow through error paths
// and logs must never reveal them.
func (c Credential) String() string {
	if p := c.Provider(); p != "" {
		return string(p) + " credentials (redacted)"
	}
	return "empty credentials"
}

// UnmarshalJSON decodes a single wire object into the variant matching its
// distinguishing field.
func (c *Credential) UnmarshalJSON(b []byte) error {
	var probe struct {
		TogetherAPIKey         string `json:"togetherApiKey"`
		OpenAIKey              string `json:"openAiKey"`
		AWSAccessKeyID         string `json:"awsAccessKeyId"`
		AWSSecretKey           string `json:"awsSecretKey"`
		AWSRegion              string `json:"awsRegion"`
		GroqAPIKey             string `json:"groqApiKey"`
		AnthropicAPIKey        string `json:"anthropicApiKey"`
		MistralAPIKey          string `json:"mistralApiKey"`
		MistralCodestralAPIKey string `json:"mistralCodeStralApiKey"`
		GeminiAPIKey           string `json:"geminiApiKey"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	switch {
	case probe.TogetherAPIKey != "":
		c.TogetherAI = &TogetherAICredentials{TogetherAPIKey: probe.TogetherAPIKey}
	case probe.OpenAIKey != "":
		c.OpenAI = &OpenAICredentials{OpenAIKey: probe.OpenAIKey}
	case probe.AWSAccessKeyID != "":
		c.AWSBedrock = &AWSBedrockCredentials{
			AWSAccessKeyID: probe.AWSAccessKeyID,
			AWSSecretKey:   probe.AWSSecretKey,
			AWSRegion:      probe.AWSRegion,
		}
	case probe.GroqAPIKey != "":
		c.Groq = &GroqCredentials{GroqAPIKey: probe.GroqAPIKey}
	case probe.AnthropicAPIKey != "":
		c.Anthropic = &AnthropicCredentials{AnthropicAPIKey: probe.AnthropicAPIKey}
	case probe.MistralAPIKey != "":
		c.MistralAI = &MistralAICredentials{MistralAPIKey: probe.MistralAPIKey}
	case probe.MistralCodestralAPIKey != "":
		c.MistralCodestral = &MistralCodestralCredentials{MistralCodestralAPIKey: probe.MistralCodestralAPIKey}
	case probe.GeminiAPIKey != "":
		c.Gemini = &GeminiCredentials{GeminiAPIKey: probe.GeminiAPIKey}
	}
	return nil
}

// MarshalJSON emits the active variant's wire object.
func (c Credential) MarshalJSON() ([]byte, error) {
	switch {
	case c.TogetherAI != nil:
		return json.Marshal(c.TogetherAI)
	case c.OpenAI != nil:
		return json.Marshal(c.OpenAI)
	case c.AWSBedrock != nil:
		return json.Marshal(c.AWSBedrock)
	case c.Groq != nil:
		return json.Marshal(c.Groq)
	case c.Anthropic != nil:
		return json.Marshal(c.Anthropic)
	case c.MistralAI != nil:
		return json.Marshal(c.MistralAI)
	case c.MistralCodestral != nil:
		return json.Marshal(c.MistralCodestral)
	case c.Gemini != nil:
		return json.Marshal(c.Gemini)
	}
	return []byte("{}"), nil
}

// CredentialList is the per-request opaque bag of provider secrets.
type CredentialList []Credential

// For returns the credential variant for the given provider, if present.
func (l CredentialList) For(provider ID) (Credential, bool) {
	for _, c := range l {
		if c.Provider() == provider {
			return c, true
		}
	}
	return Credential{}, false
}

// Has reports whether the bag carries a variant for the given provider.
func (l CredentialList) Has(provider ID) bool {
	_, ok := l.For(provider)
	return ok
}
