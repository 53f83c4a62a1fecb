package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/evinsight/internal/observability"
	"github.com/kiranshivaraju/evinsight/pkg/models"
)

// DefaultCallTimeout bounds each provider attempt when none is configured.
const DefaultCallTimeout = 8 * time.Second

// recordTimeout bounds the audit write made after each analysis.
const recordTimeout = 2 * time.Second

// State is a step of a single orchestration call.
type State int

const (
	StateNotStarted State = iota
	StateTryingProvider
	StateSucceeded
	StateAllFailed
	StateFallback
	StateDone
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateTryingProvider:
		return "trying_provider"
	case StateSucceeded:
		return "succeeded"
	case StateAllFailed:
		return "all_failed"
	case StateFallback:
		return "fallback"
	case StateDone:
		return "done"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// StateObserver is notified on every transition. Provider is set when entering
// StateTryingProvider and StateSucceeded.
type StateObserver func(from, to State, provider string)

// RunRecorder persists an audit record of a finished analysis.
type RunRecorder interface {
	CreateAnalysisRun(ctx context.Context, run *models.AnalysisRun) error
}

// Orchestrator drives the available adapters in priority order and falls back to
// rule-based output when none succeeds. It is safe for concurrent use.
type Orchestrator struct {
	providers   *ProviderSet
	adapters    map[string]models.Adapter
	callTimeout time.Duration
	recorder    RunRecorder
	observer    StateObserver
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder stores an audit record of each analysis. Recorder errors are logged only.
func WithRecorder(r RunRecorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithStateObserver registers a transition hook.
func WithStateObserver(fn StateObserver) Option {
	return func(o *Orchestrator) { o.observer = fn }
}

// WithLogger replaces slog.Default for orchestration logs.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock sets the source of GeneratedAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an Orchestrator. Adapters are looked up by provider name;
// a non-positive callTimeout uses DefaultCallTimeout.
func NewOrchestrator(providers *ProviderSet, adapters map[string]models.Adapter, callTimeout time.Duration, opts ...Option) *Orchestrator {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	o := &Orchestrator{
		providers:   providers,
		adapters:    adapters,
		callTimeout: callTimeout,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AnalyzeCustomer produces a recommendation for one customer. It always returns a
// fully populated result: provider failures are absorbed by trying the next provider
// and finally by the rule-based fallback.
func (o *Orchestrator) AnalyzeCustomer(ctx context.Context, profile, prefs map[string]any) (result models.AnalysisResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("orchestration panicked, using fallback", "panic", fmt.Sprint(r))
			result = FallbackResult(profile, prefs, o.now())
		}
	}()

	var (
		state      = StateNotStarted
		candidates []models.ProviderDescriptor
		idx        int
		req        models.NormalizedRequest
		attempts   = []models.ProviderAttempt{}
	)

	for state != StateDone {
		switch state {
		case StateNotStarted:
			candidates = o.providers.ListAvailable()
			if len(candidates) == 0 {
				state = o.transition(state, StateAllFailed, "")
				continue
			}
			req = FormatRequest(profile, prefs)
			if req.Truncated {
				o.logger.Warn("analysis prompt truncated", "max_chars", MaxPromptChars)
			}
			state = o.transition(state, StateTryingProvider, candidates[0].Name)

		case StateTryingProvider:
			desc := candidates[idx]
			out := o.attempt(ctx, desc.Name, req)
			attempts = append(attempts, attemptSummary(out))

			if out.Succeeded {
				result = Normalize(out.RawText)
				result.Metadata = models.ResultMetadata{
					Provider:    desc.Name,
					Model:       desc.ModelID,
					GeneratedAt: o.now().UTC(),
					Attempts:    attempts,
				}
				state = o.transition(state, StateSucceeded, desc.Name)
				continue
			}

			o.logger.Warn("provider attempt failed",
				"provider", desc.Name,
				"error_kind", string(out.ErrorKind),
				"error", out.Err,
				"duration_ms", out.Duration.Milliseconds(),
			)

			idx++
			switch {
			case ctx.Err() != nil:
				o.logger.Warn("caller cancelled, skipping remaining providers", "skipped", len(candidates)-idx)
				state = o.transition(state, StateAllFailed, "")
			case idx >= len(candidates):
				state = o.transition(state, StateAllFailed, "")
			default:
				state = o.transition(state, StateTryingProvider, candidates[idx].Name)
			}

		case StateSucceeded:
			state = o.transition(state, StateDone, "")

		case StateAllFailed:
			state = o.transition(state, StateFallback, "")

		case StateFallback:
			result = FallbackResult(profile, prefs, o.now())
			result.Metadata.Attempts = attempts
			state = o.transition(state, StateDone, "")
		}
	}

	observability.AnalysesTotal.WithLabelValues(result.Metadata.Provider, strconv.FormatBool(result.Metadata.IsFallback)).Inc()
	o.logger.Info("customer analysis completed",
		"provider", result.Metadata.Provider,
		"recommended_model", result.RecommendedModel,
		"is_fallback", result.Metadata.IsFallback,
		"attempts", len(attempts),
	)
	o.record(ctx, result)
	return result
}

func (o *Orchestrator) transition(from, to State, provider string) State {
	if o.observer != nil {
		o.observer(from, to, provider)
	}
	return to
}

// attempt runs one adapter call under its own deadline. An adapter that ignores its
// context is abandoned when the deadline passes; its late result is discarded.
func (o *Orchestrator) attempt(ctx context.Context, name string, req models.NormalizedRequest) models.RawProviderOutcome {
	start := time.Now()
	out := o.invoke(ctx, name, req)
	out.ProviderName = name
	out.Duration = time.Since(start)

	outcome := "success"
	if !out.Succeeded {
		if out.ErrorKind == "" {
			out.ErrorKind = models.ErrorKindUnknown
		}
		outcome = string(out.ErrorKind)
	}
	observability.ProviderAttemptsTotal.WithLabelValues(name, outcome).Inc()
	observability.ProviderLatency.WithLabelValues(name).Observe(out.Duration.Seconds())
	return out
}

func (o *Orchestrator) invoke(ctx context.Context, name string, req models.NormalizedRequest) models.RawProviderOutcome {
	adapter, ok := o.adapters[name]
	if !ok || adapter == nil {
		return models.Failure(name, models.ErrorKindUnknown, fmt.Errorf("%w: %s", ErrAdapterMissing, name))
	}

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	done := make(chan models.RawProviderOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- models.Failure(name, models.ErrorKindUnknown, fmt.Errorf("%w: %v", ErrAdapterPanic, r))
			}
		}()
		done <- adapter.Invoke(callCtx, req)
	}()

	select {
	case out := <-done:
		return out
	case <-callCtx.Done():
		select {
		case out := <-done:
			return out
		default:
			return models.Failure(name, models.ErrorKindTimeout,
				fmt.Errorf("%w after %s: %w", ErrCallTimeout, o.callTimeout, callCtx.Err()))
		}
	}
}

// record writes the audit run on a context detached from the caller so a cancelled
// request still leaves a trace.
func (o *Orchestrator) record(ctx context.Context, result models.AnalysisResult) {
	if o.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	run := &models.AnalysisRun{
		ID:               uuid.New(),
		Provider:         result.Metadata.Provider,
		Model:            result.Metadata.Model,
		RecommendedModel: result.RecommendedModel,
		Confidence:       result.ConfidenceScore,
		IsFallback:       result.Metadata.IsFallback,
		Attempts:         result.Metadata.Attempts,
		CreatedAt:        result.Metadata.GeneratedAt,
	}
	if err := o.recorder.CreateAnalysisRun(rctx, run); err != nil {
		o.logger.Warn("failed to record analysis run", "run_id", run.ID, "error", err)
	}
}

func attemptSummary(out models.RawProviderOutcome) models.ProviderAttempt {
	a := models.ProviderAttempt{
		Provider:   out.ProviderName,
		Succeeded:  out.Succeeded,
		DurationMS: out.Duration.Milliseconds(),
	}
	if !out.Succeeded {
		a.ErrorKind = out.ErrorKind
	}
	return a
}
