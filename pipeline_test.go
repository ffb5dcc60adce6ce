package optimodel

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/lytix-labs/optimodel/guard"
	"github.com/lytix-labs/optimodel/internal/circuitbreaker"
	"github.com/lytix-labs/optimodel/internal/planner"
	"github.com/lytix-labs/optimodel/models"
	"github.com/lytix-labs/optimodel/providers"
)

type fakeAdapter struct {
	id    providers.ID
	resp  *providers.QueryResponse
	err   error
	calls int
	got   providers.QueryParams
}

func (f *fakeAdapter) ID() providers.ID               { return f.id }
func (f *fakeAdapter) Validate(context.Context) error { return nil }
func (f *fakeAdapter) SupportsSAAS() bool             { return true }
func (f *fakeAdapter) SupportsJSONMode() bool         { return true }
func (f *fakeAdapter) SupportsImages() bool           { return true }

func (f *fakeAdapter) MakeQuery(_ context.Context, params providers.QueryParams) (*providers.QueryResponse, error) {
	f.calls++
	f.got = params
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type guardFunc func(ctx context.Context, cfg guard.Config, messages []providers.Message, modelOutput string) (*guard.Result, error)

func (f guardFunc) Check(ctx context.Context, cfg guard.Config, messages []providers.Message, modelOutput string) (*guard.Result, error) {
	return f(ctx, cfg, messages, modelOutput)
}

func f64(v float64) *float64 { return &v }

func entry(model string, provider providers.ID, speed int, in, out *float64) models.ProviderEntry {
	return models.ProviderEntry{
		LogicalModel:     model,
		Provider:         provider,
		MaxGenLen:        1024,
		SpeedRank:        speed,
		PricePer1MInput:  in,
		PricePer1MOutput: out,
		SupportsSAAS:     true,
		SupportsJSONMode: true,
		SupportsImages:   true,
	}
}

func newPipeline(entries map[string][]models.ProviderEntry, adapters []*fakeAdapter, guards GuardChecker) *Pipeline {
	reg := providers.NewEmptyRegistry()
	for _, a := range adapters {
		reg.Register(a)
	}
	return New(Config{
		Catalog:  models.NewCatalog(entries),
		Registry: reg,
		Guards:   guards,
	})
}

func userMessages(text string) []providers.Message {
	return []providers.Message{{Role: providers.RoleUser, Content: text}}
}

func TestQuerySingleProviderWithCost(t *testing.T) {
	openai := &fakeAdapter{
		id:   providers.ProviderOpenAI,
		resp: &providers.QueryResponse{ModelOutput: "hello", PromptTokens: 10, GenerationTokens: 20},
	}
	p := newPipeline(map[string][]models.ProviderEntry{
		"gpt_4o": {entry("gpt_4o", providers.ProviderOpenAI, 1, f64(5), f64(15))},
	}, []*fakeAdapter{openai}, nil)

	resp, err := p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("hi"),
		ModelToUse: "gpt_4o",
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.ModelResponse != "hello" || resp.Provider != providers.ProviderOpenAI {
		t.Errorf("response = %+v", resp)
	}
	if resp.Cost == nil || math.Abs(*resp.Cost-0.00035) > 1e-12 {
		t.Errorf("cost = %v, want 0.00035", resp.Cost)
	}
	if resp.GuardErrors == nil || len(resp.GuardErrors) != 0 {
		t.Errorf("guardErrors = %v, want empty list", resp.GuardErrors)
	}
}

func TestQueryFallsBackOnProviderFailure(t *testing.T) {
	groq := &fakeAdapter{
		id:  providers.ProviderGroq,
		err: &providers.Failure{Provider: providers.ProviderGroq, Cause: errors.New("status 500")},
	}
	together := &fakeAdapter{
		id:   providers.ProviderTogetherAI,
		resp: &providers.QueryResponse{ModelOutput: "fallback answer", PromptTokens: 20, GenerationTokens: 5},
	}
	p := newPipeline(map[string][]models.ProviderEntry{
		"llama_3_8b_instruct": {
			entry("llama_3_8b_instruct", providers.ProviderGroq, 1, f64(0.05), f64(0.08)),
			entry("llama_3_8b_instruct", providers.ProviderTogetherAI, 2, f64(0.2), f64(0.2)),
		},
	}, []*fakeAdapter{groq, together}, nil)

	resp, err := p.Query(context.Background(), &QueryRequest{
		Messages:      userMessages("hello"),
		ModelToUse:    "llama_3_8b_instruct",
		SpeedPriority: SpeedPriorityHigh,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Provider != providers.ProviderTogetherAI || resp.ModelResponse != "fallback answer" {
		t.Errorf("response = %+v", resp)
	}
	if groq.calls != 1 || together.calls != 1 {
		t.Errorf("calls: groq=%d together=%d", groq.calls, together.calls)
	}
}

func TestQueryBlockingPreGuard(t *testing.T) {
	adapter := &fakeAdapter{
		id:   providers.ProviderOpenAI,
		resp: &providers.QueryResponse{ModelOutput: "should never appear"},
	}
	guards := guardFunc(func(_ context.Context, cfg guard.Config, _ []providers.Message, modelOutput string) (*guard.Result, error) {
		if modelOutput != "" {
			t.Errorf("preQuery guard got modelOutput %q", modelOutput)
		}
		return &guard.Result{Failure: true, Metadata: map[string]any{"match": "ssn"}}, nil
	})
	p := newPipeline(map[string][]models.ProviderEntry{
		"gpt_4o": {entry("gpt_4o", providers.ProviderOpenAI, 1, f64(2.5), f64(10))},
	}, []*fakeAdapter{adapter}, guards)

	resp, err := p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("my ssn is 123-45-6789"),
		ModelToUse: "gpt_4o",
		Guards: []guard.Config{{
			GuardName:           guard.NameLytixRegexGuard,
			GuardType:           guard.PhasePreQuery,
			Regex:               "ssn",
			BlockRequest:        true,
			BlockRequestMessage: "denied",
		}},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.ModelResponse != "denied" {
		t.Errorf("modelResponse = %q", resp.ModelResponse)
	}
	if resp.PromptTokens != 0 || resp.GenerationTokens != 0 {
		t.Errorf("tokens = %d/%d, want zeros", resp.PromptTokens, resp.GenerationTokens)
	}
	if resp.Cost == nil || *resp.Cost != 0 {
		t.Errorf("cost = %v, want 0", resp.Cost)
	}
	if len(resp.GuardErrors) != 1 {
		t.Fatalf("guardErrors = %v", resp.GuardErrors)
	}
	ge := resp.GuardErrors[0]
	if ge.GuardName != guard.NameLytixRegexGuard || !ge.Failure || !ge.BlockRequest {
		t.Errorf("guard error = %+v", ge)
	}
	if adapter.calls != 0 {
		t.Errorf("adapter called %d times despite blocking guard", adapter.calls)
	}
}

func TestQueryNonBlockingPreGuardProceeds(t *testing.T) {
	adapter := &fakeAdapter{
		id:   providers.ProviderOpenAI,
		resp: &providers.QueryResponse{ModelOutput: "answer", PromptTokens: 10, GenerationTokens: 2},
	}
	guards := guardFunc(func(_ context.Context, _ guard.Config, _ []providers.Message, _ string) (*guard.Result, error) {
		return &guard.Result{Failure: true}, nil
	})
	p := newPipeline(map[string][]models.ProviderEntry{
		"gpt_4o": {entry("gpt_4o", providers.ProviderOpenAI, 1, f64(2.5), f64(10))},
	}, []*fakeAdapter{adapter}, guards)

	resp, err := p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("hello"),
		ModelToUse: "gpt_4o",
		Guards: []guard.Config{{
			GuardName: guard.NameLlamaPromptGuard,
			GuardType: guard.PhasePreQuery,
		}},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.ModelResponse != "answer" {
		t.Errorf("modelResponse = %q", resp.ModelResponse)
	}
	if len(resp.GuardErrors) != 1 || resp.GuardErrors[0].BlockRequest {
		t.Errorf("guardErrors = %+v", resp.GuardErrors)
	}
	if adapter.calls != 1 {
		t.Errorf("adapter calls = %d", adapter.calls)
	}
}

func TestQueryBlockingPostGuardReplacesOutput(t *testing.T) {
	adapter := &fakeAdapter{
		id:   providers.ProviderOpenAI,
		resp: &providers.QueryResponse{ModelOutput: "sure, the email is a@b.c", PromptTokens: 50, GenerationTokens: 25},
	}
	var sawOutput string
	guards := guardFunc(func(_ context.Context, _ guard.Config, _ []providers.Message, modelOutput string) (*guard.Result, error) {
		sawOutput = modelOutput
		return &guard.Result{Failure: true, Metadata: map[string]any{"entity": "EMAIL_ADDRESS"}}, nil
	})
	p := newPipeline(map[string][]models.ProviderEntry{
		"gpt_4o": {entry("gpt_4o", providers.ProviderOpenAI, 1, f64(2.5), f64(10))},
	}, []*fakeAdapter{adapter}, guards)

	resp, err := p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("what is the email?"),
		ModelToUse: "gpt_4o",
		Guards: []guard.Config{{
			GuardName:           guard.NameMicrosoftPresidio,
			GuardType:           guard.PhasePostQuery,
			EntitiesToCheck:     []string{"EMAIL_ADDRESS"},
			BlockRequest:        true,
			BlockRequestMessage: "PII blocked",
		}},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if sawOutput != "sure, the email is a@b.c" {
		t.Errorf("postQuery guard evaluated %q", sawOutput)
	}
	if resp.ModelResponse != "PII blocked" {
		t.Errorf("modelResponse = %q", resp.ModelResponse)
	}
	// The dispatch happened: usage and cost reflect the real call.
	if resp.PromptTokens != 50 || resp.GenerationTokens != 25 {
		t.Errorf("tokens = %d/%d", resp.PromptTokens, resp.GenerationTokens)
	}
	if resp.Cost == nil || *resp.Cost == 0 {
		t.Errorf("cost = %v, want real cost", resp.Cost)
	}
	if len(resp.GuardErrors) != 1 || !resp.GuardErrors[0].BlockRequest {
		t.Errorf("guardErrors = %+v", resp.GuardErrors)
	}
}

func TestQuerySpeedVersusPriceOrdering(t *testing.T) {
	groq := &fakeAdapter{
		id:   providers.ProviderGroq,
		resp: &providers.QueryResponse{ModelOutput: "from groq"},
	}
	together := &fakeAdapter{
		id:   providers.ProviderTogetherAI,
		resp: &providers.QueryResponse{ModelOutput: "from together"},
	}
	// Groq is faster, Together is cheaper.
	entries := map[string][]models.ProviderEntry{
		"llama_3_8b_instruct": {
			entry("llama_3_8b_instruct", providers.ProviderGroq, 1, f64(5), f64(5)),
			entry("llama_3_8b_instruct", providers.ProviderTogetherAI, 2, f64(1), f64(1)),
		},
	}

	p := newPipeline(entries, []*fakeAdapter{groq, together}, nil)

	fast, err := p.Query(context.Background(), &QueryRequest{
		Messages:      userMessages("hi"),
		ModelToUse:    "llama_3_8b_instruct",
		SpeedPriority: SpeedPriorityHigh,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if fast.Provider != providers.ProviderGroq {
		t.Errorf("speedPriority high served by %s", fast.Provider)
	}

	cheap, err := p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("hi"),
		ModelToUse: "llama_3_8b_instruct",
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if cheap.Provider != providers.ProviderTogetherAI {
		t.Errorf("default priority served by %s", cheap.Provider)
	}
}

func TestQueryAllCandidatesFail(t *testing.T) {
	groq := &fakeAdapter{
		id:  providers.ProviderGroq,
		err: &providers.Failure{Provider: providers.ProviderGroq, Cause: errors.New("status 500")},
	}
	together := &fakeAdapter{
		id:  providers.ProviderTogetherAI,
		err: &providers.UnsupportedOptionError{Provider: providers.ProviderTogetherAI, Option: "json mode"},
	}
	p := newPipeline(map[string][]models.ProviderEntry{
		"llama_3_8b_instruct": {
			entry("llama_3_8b_instruct", providers.ProviderGroq, 1, f64(1), f64(1)),
			entry("llama_3_8b_instruct", providers.ProviderTogetherAI, 2, f64(2), f64(2)),
		},
	}, []*fakeAdapter{groq, together}, nil)

	_, err := p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("hi"),
		ModelToUse: "llama_3_8b_instruct",
	})

	var nap *NoAvailableProviderError
	if !errors.As(err, &nap) {
		t.Fatalf("err = %v", err)
	}
	if len(nap.Errors) != 2 {
		t.Errorf("candidate errors = %v", nap.Errors)
	}
}

func TestQueryNoSuchModel(t *testing.T) {
	p := newPipeline(map[string][]models.ProviderEntry{}, nil, nil)

	_, err := p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("hi"),
		ModelToUse: "gpt_99",
	})

	var nsm *planner.NoSuchModelError
	if !errors.As(err, &nsm) {
		t.Fatalf("err = %v", err)
	}
}

func TestQueryValidation(t *testing.T) {
	p := newPipeline(map[string][]models.ProviderEntry{}, nil, nil)

	cases := []QueryRequest{
		{ModelToUse: "gpt_4o"},
		{Messages: userMessages("hi")},
		{Messages: userMessages("hi"), ModelToUse: "gpt_4o", Provider: "closedai"},
		{Messages: userMessages("hi"), ModelToUse: "gpt_4o", SpeedPriority: "ludicrous"},
		{Messages: userMessages("hi"), ModelToUse: "gpt_4o", Guards: []guard.Config{{GuardName: "ACME", GuardType: guard.PhasePreQuery}}},
	}
	for i, req := range cases {
		_, err := p.Query(context.Background(), &req)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("case %d: err = %v, want ValidationError", i, err)
		}
	}
}

func TestQueryBlockingGuardTransportErrorIsTerminal(t *testing.T) {
	adapter := &fakeAdapter{
		id:   providers.ProviderOpenAI,
		resp: &providers.QueryResponse{ModelOutput: "answer"},
	}
	guards := guardFunc(func(_ context.Context, cfg guard.Config, _ []providers.Message, _ string) (*guard.Result, error) {
		return nil, &guard.TransportError{Guard: cfg.GuardName, Cause: errors.New("connection refused")}
	})
	p := newPipeline(map[string][]models.ProviderEntry{
		"gpt_4o": {entry("gpt_4o", providers.ProviderOpenAI, 1, f64(2.5), f64(10))},
	}, []*fakeAdapter{adapter}, guards)

	_, err := p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("hi"),
		ModelToUse: "gpt_4o",
		Guards: []guard.Config{{
			GuardName:    guard.NameLlamaPromptGuard,
			GuardType:    guard.PhasePreQuery,
			BlockRequest: true,
		}},
	})

	var te *guard.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v", err)
	}
	if adapter.calls != 0 {
		t.Errorf("adapter called despite unreachable blocking guard")
	}
}

func TestQueryNonBlockingGuardTransportErrorIsSkipped(t *testing.T) {
	adapter := &fakeAdapter{
		id:   providers.ProviderOpenAI,
		resp: &providers.QueryResponse{ModelOutput: "answer"},
	}
	guards := guardFunc(func(_ context.Context, cfg guard.Config, _ []providers.Message, _ string) (*guard.Result, error) {
		return nil, &guard.TransportError{Guard: cfg.GuardName, Cause: errors.New("connection refused")}
	})
	p := newPipeline(map[string][]models.ProviderEntry{
		"gpt_4o": {entry("gpt_4o", providers.ProviderOpenAI, 1, f64(2.5), f64(10))},
	}, []*fakeAdapter{adapter}, guards)

	resp, err := p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("hi"),
		ModelToUse: "gpt_4o",
		Guards: []guard.Config{{
			GuardName: guard.NameLlamaPromptGuard,
			GuardType: guard.PhasePreQuery,
		}},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.ModelResponse != "answer" || len(resp.GuardErrors) != 0 {
		t.Errorf("response = %+v", resp)
	}
}

func TestQuerySAASModePassesCredentials(t *testing.T) {
	adapter := &fakeAdapter{
		id:   providers.ProviderOpenAI,
		resp: &providers.QueryResponse{ModelOutput: "answer"},
	}
	reg := providers.NewEmptyRegistry()
	reg.Register(adapter)
	p := New(Config{
		Catalog: models.NewCatalog(map[string][]models.ProviderEntry{
			"gpt_4o": {entry("gpt_4o", providers.ProviderOpenAI, 1, f64(2.5), f64(10))},
		}),
		Registry: reg,
		SAASMode: true,
	})

	creds := providers.CredentialList{{OpenAI: &providers.OpenAICredentials{OpenAIKey: "sk-test"}}}
	resp, err := p.Query(context.Background(), &QueryRequest{
		Messages:    userMessages("hi"),
		ModelToUse:  "gpt_4o",
		Credentials: creds,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !adapter.got.Credentials.Has(providers.ProviderOpenAI) {
		t.Error("adapter did not receive request credentials")
	}

	// Without credentials nothing is eligible.
	_, err = p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("hi"),
		ModelToUse: "gpt_4o",
	})
	var nep *planner.NoEligibleProviderError
	if !errors.As(err, &nep) {
		t.Fatalf("err without credentials = %v", err)
	}

	if resp.Provider != providers.ProviderOpenAI {
		t.Errorf("provider = %s", resp.Provider)
	}
}

func TestQueryCredentialHygiene(t *testing.T) {
	const secret = "sk-supersecret-123"

	adapter := &fakeAdapter{
		id:  providers.ProviderOpenAI,
		err: &providers.Failure{Provider: providers.ProviderOpenAI, Cause: errors.New("status 401")},
	}
	reg := providers.NewEmptyRegistry()
	reg.Register(adapter)
	p := New(Config{
		Catalog: models.NewCatalog(map[string][]models.ProviderEntry{
			"gpt_4o": {entry("gpt_4o", providers.ProviderOpenAI, 1, f64(2.5), f64(10))},
		}),
		Registry: reg,
		SAASMode: true,
	})

	_, err := p.Query(context.Background(), &QueryRequest{
		Messages:    userMessages("hi"),
		ModelToUse:  "gpt_4o",
		Credentials: providers.CredentialList{{OpenAI: &providers.OpenAICredentials{OpenAIKey: secret}}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), secret) {
		t.Errorf("error leaks credential: %v", err)
	}
}

func TestQueryCancelledContext(t *testing.T) {
	adapter := &fakeAdapter{
		id:   providers.ProviderOpenAI,
		resp: &providers.QueryResponse{ModelOutput: "answer"},
	}
	p := newPipeline(map[string][]models.ProviderEntry{
		"gpt_4o": {entry("gpt_4o", providers.ProviderOpenAI, 1, f64(2.5), f64(10))},
	}, []*fakeAdapter{adapter}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Query(ctx, &QueryRequest{
		Messages:   userMessages("hi"),
		ModelToUse: "gpt_4o",
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestQueryOpenBreakerSkipsProvider(t *testing.T) {
	groq := &fakeAdapter{
		id:   providers.ProviderGroq,
		resp: &providers.QueryResponse{ModelOutput: "from groq"},
	}
	together := &fakeAdapter{
		id:   providers.ProviderTogetherAI,
		resp: &providers.QueryResponse{ModelOutput: "from together"},
	}
	breakers := circuitbreaker.NewSet(circuitbreaker.Config{FailureThreshold: 1})
	breakers.RecordFailure(providers.ProviderGroq)

	reg := providers.NewEmptyRegistry()
	reg.Register(groq)
	reg.Register(together)
	p := New(Config{
		Catalog: models.NewCatalog(map[string][]models.ProviderEntry{
			"llama_3_8b_instruct": {
				entry("llama_3_8b_instruct", providers.ProviderGroq, 1, f64(1), f64(1)),
				entry("llama_3_8b_instruct", providers.ProviderTogetherAI, 2, f64(2), f64(2)),
			},
		}),
		Registry: reg,
		Breakers: breakers,
	})

	resp, err := p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("hi"),
		ModelToUse: "llama_3_8b_instruct",
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if resp.Provider != providers.ProviderTogetherAI || groq.calls != 0 {
		t.Errorf("provider = %s, groq calls = %d", resp.Provider, groq.calls)
	}
}

func TestQueryMaxGenLenDefaultsToEntry(t *testing.T) {
	adapter := &fakeAdapter{
		id:   providers.ProviderOpenAI,
		resp: &providers.QueryResponse{ModelOutput: "answer"},
	}
	p := newPipeline(map[string][]models.ProviderEntry{
		"gpt_4o": {entry("gpt_4o", providers.ProviderOpenAI, 1, f64(2.5), f64(10))},
	}, []*fakeAdapter{adapter}, nil)

	if _, err := p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("hi"),
		ModelToUse: "gpt_4o",
	}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if adapter.got.MaxGenLen == nil || *adapter.got.MaxGenLen != 1024 {
		t.Errorf("maxGenLen = %v, want catalog default 1024", adapter.got.MaxGenLen)
	}

	want := 64
	if _, err := p.Query(context.Background(), &QueryRequest{
		Messages:   userMessages("hi"),
		ModelToUse: "gpt_4o",
		MaxGenLen:  &want,
	}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if adapter.got.MaxGenLen == nil || *adapter.got.MaxGenLen != 64 {
		t.Errorf("maxGenLen = %v, want request value 64", adapter.got.MaxGenLen)
	}
}

func TestComputeCostLongContextTier(t *testing.T) {
	e := entry("gemini_1_5_pro", providers.ProviderGemini, 1, f64(1.25), f64(5))
	e.PricePer1MInputAbove128K = f64(2.5)
	e.PricePer1MOutputAbove128K = f64(10)

	// Below the threshold the base tier applies.
	low := computeCost(e, 1000, 100)
	if low == nil || math.Abs(*low-(1000*1.25/1e6+100*5/1e6)) > 1e-12 {
		t.Errorf("base tier cost = %v", low)
	}

	// Only the prompt direction crosses the threshold; output keeps the base
	// rate.
	high := computeCost(e, 200000, 100)
	if high == nil || math.Abs(*high-(200000*2.5/1e6+100*5/1e6)) > 1e-12 {
		t.Errorf("long-context cost = %v", high)
	}

	// Each direction upgrades on its own token count.
	both := computeCost(e, 200000, 130000)
	if both == nil || math.Abs(*both-(200000*2.5/1e6+130000*10/1e6)) > 1e-12 {
		t.Errorf("dual long-context cost = %v", both)
	}

	// Missing rate in either direction yields nil.
	e.PricePer1MOutput = nil
	if c := computeCost(e, 1000, 100); c != nil {
		t.Errorf("cost with missing rate = %v", c)
	}
}

func TestQueryResponseJSONShape(t *testing.T) {
	zero := 0.0
	resp := QueryResponse{
		ModelResponse: "denied",
		Cost:          &zero,
		Provider:      providers.ProviderOpenAI,
		GuardErrors:   []GuardError{},
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got := string(raw)
	for _, want := range []string{`"modelResponse":"denied"`, `"cost":0`, `"guardErrors":[]`, `"promptTokens":0`} {
		if !strings.Contains(got, want) {
			t.Errorf("json %s missing %s", got, want)
		}
	}
}
