package optimodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lytix-labs/optimodel/guard"
	"github.com/lytix-labs/optimodel/internal/circuitbreaker"
	"github.com/lytix-labs/optimodel/internal/logging"
	"github.com/lytix-labs/optimodel/internal/metrics"
	"github.com/lytix-labs/optimodel/internal/planner"
	"github.com/lytix-labs/optimodel/models"
	"github.com/lytix-labs/optimodel/providers"
)

// GuardChecker evaluates one guard. *guard.Client implements it; tests
// substitute in-process fakes.
type GuardChecker interface {
	Check(ctx context.Context, cfg guard.Config, messages []providers.Message, modelOutput string) (*guard.Result, error)
}

// Config assembles a Pipeline.
type Config struct {
	Catalog  *models.Catalog
	Registry *providers.Registry

	// Guards is the guard server client. nil means no guard server is
	// deployed; requests carrying guards then fail their blocking guards
	// closed and skip their non-blocking ones.
	Guards GuardChecker

	// SAASMode requires per-request credentials for every candidate.
	SAASMode bool

	PlannerOptions planner.Options

	// Breakers, when non-nil, skips providers whose circuit is open.
	Breakers *circuitbreaker.Set
}

// Pipeline executes queries end to end: plan, guard, dispatch with fallback,
// price, guard again.
type Pipeline struct {
	cfg Config
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

var errNoGuardServer = errors.New("no guard server configured")

// Query runs one request through the pipeline.
//
// Candidates are tried in plan order. preQuery guards run before each
// dispatch; a failing blocking guard short-circuits with the guard's block
// message and zero usage. Per-candidate dispatch errors are recorded and the
// next candidate is tried; when every candidate fails the caller gets a
// NoAvailableProviderError carrying all of them. postQuery guards run once,
// against the serving candidate's output; a failing blocking guard replaces
// the output and stops further postQuery evaluation.
func (p *Pipeline) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := logging.FromContext(ctx).With(
		"model", req.ModelToUse,
		"userId", req.UserID,
		"sessionId", req.SessionID,
		"workflowName", req.WorkflowName,
	)

	plan, err := planner.Plan(planner.Request{
		LogicalModel:  req.ModelToUse,
		Provider:      providers.ID(req.Provider),
		SpeedPriority: req.SpeedPriority,
		MaxGenLen:     req.MaxGenLen,
		SAASMode:      p.cfg.SAASMode,
		Credentials:   req.Credentials,
	}, p.cfg.Catalog, p.cfg.PlannerOptions)
	if err != nil {
		return nil, err
	}

	var preGuards, postGuards []guard.Config
	for _, g := range req.Guards {
		if g.IsPreQuery() {
			preGuards = append(preGuards, g)
		} else {
			postGuards = append(postGuards, g)
		}
	}

	var candidateErrors []error
	for depth, entry := range plan {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if p.cfg.Breakers != nil && !p.cfg.Breakers.Allow(entry.Provider) {
			candidateErrors = append(candidateErrors,
				fmt.Errorf("provider %s: %w", entry.Provider, circuitbreaker.ErrOpen))
			metrics.ProviderErrors.WithLabelValues(string(entry.Provider), "circuit_open").Inc()
			continue
		}

		adapter, ok := p.cfg.Registry.Get(entry.Provider)
		if !ok {
			candidateErrors = append(candidateErrors,
				fmt.Errorf("provider %s: no adapter registered", entry.Provider))
			continue
		}

		if p.cfg.SAASMode && !req.Credentials.Has(entry.Provider) {
			candidateErrors = append(candidateErrors,
				fmt.Errorf("provider %s: %w", entry.Provider, providers.ErrMissingCredentials))
			metrics.ProviderErrors.WithLabelValues(string(entry.Provider), "missing_credentials").Inc()
			continue
		}

		guardErrors := make([]GuardError, 0)
		blocked, blockMessage, err := p.runPreGuards(ctx, log, preGuards, req.Messages, &guardErrors)
		if err != nil {
			return nil, err
		}
		if blocked {
			zero := 0.0
			resp := &QueryResponse{
				ModelResponse: blockMessage,
				Cost:          &zero,
				Provider:      entry.Provider,
				GuardErrors:   guardErrors,
			}
			p.observe(resp, req.ModelToUse, "blocked", depth, start)
			log.Info("query blocked by guard", "provider", entry.Provider)
			return resp, nil
		}

		params := providers.QueryParams{
			Messages:      req.Messages,
			Model:         entry.LogicalModel,
			NativeModelID: entry.NativeModelID,
			Temperature:   req.Temperature,
			MaxGenLen:     req.MaxGenLen,
			JSONMode:      req.JSONMode,
		}
		if params.MaxGenLen == nil {
			entryMax := entry.MaxGenLen
			params.MaxGenLen = &entryMax
		}
		if p.cfg.SAASMode {
			params.Credentials = req.Credentials
		}

		result, err := adapter.MakeQuery(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			candidateErrors = append(candidateErrors, err)
			errType := candidateErrorType(err)
			metrics.ProviderErrors.WithLabelValues(string(entry.Provider), errType).Inc()
			if p.cfg.Breakers != nil && errType == "provider_failure" {
				p.cfg.Breakers.RecordFailure(entry.Provider)
			}
			log.Warn("candidate dispatch failed", "provider", entry.Provider, "error", err)
			continue
		}
		if p.cfg.Breakers != nil {
			p.cfg.Breakers.RecordSuccess(entry.Provider)
		}

		modelResponse := result.ModelOutput
		status := "success"
		for _, g := range postGuards {
			verdict, err := p.checkGuard(ctx, g, req.Messages, modelResponse)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				if g.BlockRequest {
					return nil, err
				}
				log.Warn("non-blocking guard unreachable, skipping", "guard", g.GuardName, "error", err)
				continue
			}
			if !verdict.Failure {
				continue
			}
			metrics.GuardFailures.WithLabelValues(g.GuardName, strconv.FormatBool(g.BlockRequest)).Inc()
			guardErrors = append(guardErrors, GuardError{
				GuardName:    g.GuardName,
				Failure:      true,
				Metadata:     verdict.Metadata,
				BlockRequest: g.BlockRequest,
			})
			if g.BlockRequest {
				modelResponse = g.BlockRequestMessage
				status = "blocked"
				break
			}
		}

		resp := &QueryResponse{
			ModelResponse:    modelResponse,
			PromptTokens:     result.PromptTokens,
			GenerationTokens: result.GenerationTokens,
			Cost:             computeCost(entry, result.PromptTokens, result.GenerationTokens),
			Provider:         entry.Provider,
			GuardErrors:      guardErrors,
		}
		p.observe(resp, req.ModelToUse, status, depth, start)
		log.Info("query served",
			"provider", entry.Provider,
			"promptTokens", resp.PromptTokens,
			"generationTokens", resp.GenerationTokens,
			"durationMs", time.Since(start).Milliseconds(),
		)
		return resp, nil
	}

	metrics.QueriesTotal.WithLabelValues("none", req.ModelToUse, "error").Inc()
	return nil, &NoAvailableProviderError{Model: req.ModelToUse, Errors: candidateErrors}
}

// runPreGuards evaluates preQuery guards in request order, appending failures
// to guardErrors. It reports a block as (true, message) after the first
// failing blocking guard. An unreachable blocking guard is a terminal error;
// an unreachable non-blocking guard is skipped.
func (p *Pipeline) runPreGuards(ctx context.Context, log *slog.Logger, guards []guard.Config, messages []providers.Message, guardErrors *[]GuardError) (bool, string, error) {
	for _, g := range guards {
		verdict, err := p.checkGuard(ctx, g, messages, "")
		if err != nil {
			if ctx.Err() != nil {
				return false, "", ctx.Err()
			}
			if g.BlockRequest {
				return false, "", err
			}
			log.Warn("non-blocking guard unreachable, skipping", "guard", g.GuardName, "error", err)
			continue
		}
		if !verdict.Failure {
			continue
		}
		metrics.GuardFailures.WithLabelValues(g.GuardName, strconv.FormatBool(g.BlockRequest)).Inc()
		*guardErrors = append(*guardErrors, GuardError{
			GuardName:    g.GuardName,
			Failure:      true,
			Metadata:     verdict.Metadata,
			BlockRequest: g.BlockRequest,
		})
		if g.BlockRequest {
			return true, g.BlockRequestMessage, nil
		}
	}
	return false, "", nil
}

func (p *Pipeline) checkGuard(ctx context.Context, g guard.Config, messages []providers.Message, modelOutput string) (*guard.Result, error) {
	if p.cfg.Guards == nil {
		return nil, &guard.TransportError{Guard: g.GuardName, Cause: errNoGuardServer}
	}
	return p.cfg.Guards.Check(ctx, g, messages, modelOutput)
}

func (p *Pipeline) observe(resp *QueryResponse, model, status string, depth int, start time.Time) {
	provider := string(resp.Provider)
	metrics.QueriesTotal.WithLabelValues(provider, model, status).Inc()
	metrics.QueryDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	metrics.TokensInput.WithLabelValues(provider, model).Add(float64(resp.PromptTokens))
	metrics.TokensOutput.WithLabelValues(provider, model).Add(float64(resp.GenerationTokens))
	if resp.Cost != nil {
		metrics.CostUSD.WithLabelValues(provider, model).Add(*resp.Cost)
	}
	metrics.FallbackDepth.Observe(float64(depth))
}

// longContextThreshold is the prompt length above which the long-context
// pricing tier applies, when the pricing document publishes one.
const longContextThreshold = 128000

// computeCost prices the usage against the serving entry's per-1M-token
// rates. Each direction independently upgrades to its above-128K tier when
// its own token count exceeds the threshold and the tier is published. A
// missing rate in either direction yields nil.
func computeCost(entry models.ProviderEntry, promptTokens, generationTokens int) *float64 {
	inRate := entry.PricePer1MInput
	outRate := entry.PricePer1MOutput
	if promptTokens > longContextThreshold && entry.PricePer1MInputAbove128K != nil {
		inRate = entry.PricePer1MInputAbove128K
	}
	if generationTokens > longContextThreshold && entry.PricePer1MOutputAbove128K != nil {
		outRate = entry.PricePer1MOutputAbove128K
	}
	if inRate == nil || outRate == nil {
		return nil
	}
	cost := float64(promptTokens)*(*inRate)/1e6 + float64(generationTokens)*(*outRate)/1e6
	return &cost
}

func candidateErrorType(err error) string {
	var uo *providers.UnsupportedOptionError
	switch {
	case errors.Is(err, providers.ErrMissingCredentials):
		return "missing_credentials"
	case errors.As(err, &uo):
		return "unsupported_option"
	default:
		return "provider_failure"
	}
}
