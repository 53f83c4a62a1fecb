package ai_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/evinsight/internal/ai"
	"github.com/kiranshivaraju/evinsight/internal/ai/mock"
	"github.com/kiranshivaraju/evinsight/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allConfigured() *ai.ProviderSet {
	return ai.NewProviderSetFromDescriptors([]models.ProviderDescriptor{
		{Name: "openai", PriorityRank: 0, IsConfigured: true, ModelID: "gpt-4-turbo-preview"},
		{Name: "deepseek", PriorityRank: 1, IsConfigured: true, ModelID: "deepseek-chat"},
		{Name: "gemini", PriorityRank: 2, IsConfigured: true, ModelID: "gemini-pro"},
	})
}

func adapters(as ...*mock.MockAdapter) map[string]models.Adapter {
	out := make(map[string]models.Adapter, len(as))
	for _, a := range as {
		out[a.Name()] = a
	}
	return out
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []*models.AnalysisRun
	err  error
	ctxs []context.Context
}

func (f *fakeRecorder) CreateAnalysisRun(ctx context.Context, run *models.AnalysisRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	f.ctxs = append(f.ctxs, ctx)
	return f.err
}

func TestAnalyzeCustomer_FirstProviderWins(t *testing.T) {
	openai := mock.NewMockAdapter("openai", mock.CannedJSON)
	deepseek := mock.NewMockAdapter("deepseek", mock.CannedJSON)
	gemini := mock.NewMockAdapter("gemini", mock.CannedJSON)

	o := ai.NewOrchestrator(allConfigured(), adapters(openai, deepseek, gemini), time.Second,
		ai.WithClock(func() time.Time { return fixedNow }))
	res := o.AnalyzeCustomer(context.Background(), map[string]any{"name": "Eva"}, nil)

	assert.Equal(t, "VISTIQ", res.RecommendedModel)
	assert.Equal(t, "openai", res.Metadata.Provider)
	assert.Equal(t, "gpt-4-turbo-preview", res.Metadata.Model)
	assert.False(t, res.Metadata.IsFallback)
	assert.Equal(t, fixedNow, res.Metadata.GeneratedAt)
	require.Len(t, res.Metadata.Attempts, 1)
	assert.True(t, res.Metadata.Attempts[0].Succeeded)

	assert.Equal(t, 1, openai.Calls())
	assert.Equal(t, 0, deepseek.Calls(), "lower priority providers are never invoked after a success")
	assert.Equal(t, 0, gemini.Calls())
}

func TestAnalyzeCustomer_FailsOverInPriorityOrder(t *testing.T) {
	openai := mock.NewFailingAdapter("openai", models.ErrorKindAuthFailure)
	deepseek := mock.NewFailingAdapter("deepseek", models.ErrorKindRateLimited)
	gemini := mock.NewMockAdapter("gemini", "The LYRIQ is the right choice.")

	var providers []string
	o := ai.NewOrchestrator(allConfigured(), adapters(openai, deepseek, gemini), time.Second,
		ai.WithStateObserver(func(_, to ai.State, provider string) {
			if to == ai.StateTryingProvider {
				providers = append(providers, provider)
			}
		}))
	res := o.AnalyzeCustomer(context.Background(), nil, nil)

	assert.Equal(t, []string{"openai", "deepseek", "gemini"}, providers)
	assert.Equal(t, "gemini", res.Metadata.Provider)
	assert.Equal(t, "LYRIQ", res.RecommendedModel)
	assert.InDelta(t, 0.75, res.ConfidenceScore, 0.0001)

	require.Len(t, res.Metadata.Attempts, 3)
	assert.Equal(t, models.ErrorKindAuthFailure, res.Metadata.Attempts[0].ErrorKind)
	assert.Equal(t, models.ErrorKindRateLimited, res.Metadata.Attempts[1].ErrorKind)
	assert.Empty(t, res.Metadata.Attempts[2].ErrorKind)
}

func TestAnalyzeCustomer_StateSequence(t *testing.T) {
	var states []ai.State
	o := ai.NewOrchestrator(allConfigured(), adapters(
		mock.NewFailingAdapter("openai", models.ErrorKindNetworkError),
		mock.NewFailingAdapter("deepseek", models.ErrorKindUnknown),
		mock.NewFailingAdapter("gemini", models.ErrorKindMalformedResponse),
	), time.Second, ai.WithStateObserver(func(_, to ai.State, _ string) { states = append(states, to) }))

	res := o.AnalyzeCustomer(context.Background(), nil, nil)

	assert.True(t, res.Metadata.IsFallback)
	assert.Equal(t, []ai.State{
		ai.StateTryingProvider, ai.StateTryingProvider, ai.StateTryingProvider,
		ai.StateAllFailed, ai.StateFallback, ai.StateDone,
	}, states)
	assert.Len(t, res.Metadata.Attempts, 3)
}

func TestAnalyzeCustomer_NoProvidersBusinessExample(t *testing.T) {
	var states []ai.State
	o := ai.NewOrchestrator(ai.NewProviderSetFromDescriptors(nil), nil, time.Second,
		ai.WithStateObserver(func(_, to ai.State, _ string) { states = append(states, to) }))

	res := o.AnalyzeCustomer(context.Background(), map[string]any{"customerType": "business"}, nil)

	assert.Equal(t, "fallback", res.Metadata.Provider)
	assert.Equal(t, "VISTIQ", res.RecommendedModel)
	assert.True(t, res.Metadata.IsFallback)
	assert.Empty(t, res.Metadata.Attempts)
	assert.Equal(t, []ai.State{ai.StateAllFailed, ai.StateFallback, ai.StateDone}, states)
}

func TestAnalyzeCustomer_TimeoutIsolation(t *testing.T) {
	slow := mock.NewTimeoutAdapter("openai")
	deepseek := mock.NewMockAdapter("deepseek", mock.CannedJSON)

	o := ai.NewOrchestrator(allConfigured(), adapters(slow, deepseek), 50*time.Millisecond)

	start := time.Now()
	res := o.AnalyzeCustomer(context.Background(), nil, nil)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "deepseek", res.Metadata.Provider)
	require.Len(t, res.Metadata.Attempts, 2)
	assert.Equal(t, models.ErrorKindTimeout, res.Metadata.Attempts[0].ErrorKind)
}

func TestAnalyzeCustomer_StuckAdapterIsAbandoned(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	stuck := mock.NewStuckAdapter("openai", release)
	deepseek := mock.NewMockAdapter("deepseek", mock.CannedJSON)

	o := ai.NewOrchestrator(allConfigured(), adapters(stuck, deepseek), 50*time.Millisecond)

	start := time.Now()
	res := o.AnalyzeCustomer(context.Background(), nil, nil)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "deepseek", res.Metadata.Provider)
	assert.Equal(t, models.ErrorKindTimeout, res.Metadata.Attempts[0].ErrorKind)
}

func TestAnalyzeCustomer_AdapterPanicIsUnknown(t *testing.T) {
	o := ai.NewOrchestrator(allConfigured(), adapters(
		mock.NewPanickingAdapter("openai"),
		mock.NewMockAdapter("deepseek", mock.CannedJSON),
	), time.Second)

	res := o.AnalyzeCustomer(context.Background(), nil, nil)

	assert.Equal(t, "deepseek", res.Metadata.Provider)
	assert.Equal(t, models.ErrorKindUnknown, res.Metadata.Attempts[0].ErrorKind)
}

func TestAnalyzeCustomer_MissingAdapterIsSkipped(t *testing.T) {
	o := ai.NewOrchestrator(allConfigured(), adapters(mock.NewMockAdapter("gemini", mock.CannedJSON)), time.Second)

	res := o.AnalyzeCustomer(context.Background(), nil, nil)

	assert.Equal(t, "gemini", res.Metadata.Provider)
	require.Len(t, res.Metadata.Attempts, 3)
	assert.Equal(t, models.ErrorKindUnknown, res.Metadata.Attempts[0].ErrorKind)
}

func TestAnalyzeCustomer_CallerCancelledSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	openai := &mock.MockAdapter{
		Name_: "openai",
		InvokeFunc: func(ctx context.Context, _ models.NormalizedRequest) models.RawProviderOutcome {
			cancel()
			<-ctx.Done()
			return models.Failure("openai", models.ErrorKindTimeout, ctx.Err())
		},
	}
	deepseek := mock.NewMockAdapter("deepseek", mock.CannedJSON)

	o := ai.NewOrchestrator(allConfigured(), adapters(openai, deepseek), time.Second)
	res := o.AnalyzeCustomer(ctx, map[string]any{"customerType": "fleet"}, nil)

	assert.True(t, res.Metadata.IsFallback)
	assert.Equal(t, 0, deepseek.Calls())
	assert.Len(t, res.Metadata.Attempts, 1)
}

func TestAnalyzeCustomer_PassesFormattedRequest(t *testing.T) {
	var got models.NormalizedRequest
	openai := &mock.MockAdapter{
		Name_: "openai",
		InvokeFunc: func(_ context.Context, req models.NormalizedRequest) models.RawProviderOutcome {
			got = req
			return models.Success("openai", mock.CannedJSON)
		},
	}

	o := ai.NewOrchestrator(allConfigured(), adapters(openai), time.Second)
	o.AnalyzeCustomer(context.Background(), map[string]any{"name": "Fritz", "canton": "BE"}, nil)

	assert.Contains(t, got.Prompt, "Name: Fritz")
	assert.Contains(t, got.Prompt, "BE")
	assert.NotEmpty(t, got.SystemPrompt)
}

func TestAnalyzeCustomer_AppliesCallDeadline(t *testing.T) {
	var deadline time.Time
	var hasDeadline bool
	openai := &mock.MockAdapter{
		Name_: "openai",
		InvokeFunc: func(ctx context.Context, _ models.NormalizedRequest) models.RawProviderOutcome {
			deadline, hasDeadline = ctx.Deadline()
			return models.Success("openai", mock.CannedJSON)
		},
	}

	o := ai.NewOrchestrator(allConfigured(), adapters(openai), 3*time.Second)
	start := time.Now()
	o.AnalyzeCustomer(context.Background(), nil, nil)

	require.True(t, hasDeadline)
	assert.WithinDuration(t, start.Add(3*time.Second), deadline, 500*time.Millisecond)
}

func TestAnalyzeCustomer_RecordsRun(t *testing.T) {
	rec := &fakeRecorder{}
	o := ai.NewOrchestrator(allConfigured(), adapters(mock.NewMockAdapter("openai", mock.CannedJSON)), time.Second,
		ai.WithRecorder(rec), ai.WithClock(func() time.Time { return fixedNow }))

	ctx, cancel := context.WithCancel(context.Background())
	res := o.AnalyzeCustomer(ctx, nil, nil)
	cancel()

	require.Len(t, rec.runs, 1)
	run := rec.runs[0]
	assert.NotEqual(t, [16]byte{}, [16]byte(run.ID))
	assert.Equal(t, "openai", run.Provider)
	assert.Equal(t, res.RecommendedModel, run.RecommendedModel)
	assert.InDelta(t, res.ConfidenceScore, run.Confidence, 0.0001)
	assert.False(t, run.IsFallback)
	assert.Equal(t, fixedNow, run.CreatedAt)

	_, ok := rec.ctxs[0].Deadline()
	assert.True(t, ok, "recorder runs under its own deadline")
}

func TestAnalyzeCustomer_RecorderErrorIsNotSurfaced(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("db down")}
	o := ai.NewOrchestrator(ai.NewProviderSetFromDescriptors(nil), nil, time.Second, ai.WithRecorder(rec))

	res := o.AnalyzeCustomer(context.Background(), nil, nil)

	assert.True(t, res.Metadata.IsFallback)
	assert.Len(t, rec.runs, 1)
}

func TestAnalyzeCustomer_ConcurrentCalls(t *testing.T) {
	o := ai.NewOrchestrator(allConfigured(), adapters(
		mock.NewFailingAdapter("openai", models.ErrorKindRateLimited),
		mock.NewMockAdapter("deepseek", mock.CannedJSON),
	), time.Second)

	var wg sync.WaitGroup
	results := make([]models.AnalysisResult, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = o.AnalyzeCustomer(context.Background(), map[string]any{"name": "Concurrent"}, nil)
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		assert.Equal(t, "deepseek", res.Metadata.Provider)
	}
}

func TestNewOrchestrator_DefaultTimeout(t *testing.T) {
	var deadline time.Time
	openai := &mock.MockAdapter{
		Name_: "openai",
		InvokeFunc: func(ctx context.Context, _ models.NormalizedRequest) models.RawProviderOutcome {
			deadline, _ = ctx.Deadline()
			return models.Success("openai", mock.CannedJSON)
		},
	}
	start := time.Now()
	ai.NewOrchestrator(allConfigured(), adapters(openai), 0).AnalyzeCustomer(context.Background(), nil, nil)

	assert.WithinDuration(t, start.Add(ai.DefaultCallTimeout), deadline, 500*time.Millisecond)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "trying_provider", ai.StateTryingProvider.String())
	assert.Equal(t, "done", ai.StateDone.String())
	assert.Equal(t, "state(42)", ai.State(42).String())
}

func TestAnalyzeCustomer_MalformedInputIsTotal(t *testing.T) {
	tests := []struct {
		name    string
		profile map[string]any
		prefs   map[string]any
	}{
		{"nil maps", nil, nil},
		{"empty maps", map[string]any{}, map[string]any{}},
		{"wrongly typed fields", map[string]any{
			"customerType":       7.0,
			"canton":             []any{1.0, "ZH"},
			"name":               map[string]any{},
			"firstName":          false,
			"interactionHistory": "called twice",
			"notes":              []any{nil, map[string]any{"x": 1.0}},
		}, map[string]any{
			"budget_max": "abc",
			"budget_min": []any{},
			"features":   map[string]any{"seats": 7.0},
			"timeline":   nil,
		}},
		{"nested garbage", map[string]any{
			"customer_type": map[string]any{"kind": "business"},
			"age":           -1.0,
		}, map[string]any{
			"budgetMax": map[string]any{"chf": 200000.0},
			"usage":     []any{[]any{"city"}, true},
		}},
	}

	failing := adapters(
		mock.NewFailingAdapter("openai", models.ErrorKindMalformedResponse),
		mock.NewFailingAdapter("deepseek", models.ErrorKindNetworkError),
		mock.NewFailingAdapter("gemini", models.ErrorKindUnknown),
	)
	orchestrators := map[string]*ai.Orchestrator{
		"no providers": ai.NewOrchestrator(ai.NewProviderSetFromDescriptors(nil), nil, time.Second),
		"all fail":     ai.NewOrchestrator(allConfigured(), failing, time.Second),
	}

	for _, tt := range tests {
		for oname, o := range orchestrators {
			t.Run(tt.name+"/"+oname, func(t *testing.T) {
				req := ai.FormatRequest(tt.profile, tt.prefs)
				assert.NotEmpty(t, req.Prompt)

				res := o.AnalyzeCustomer(context.Background(), tt.profile, tt.prefs)

				assert.Contains(t, []string{"LYRIQ", "VISTIQ"}, res.RecommendedModel)
				assert.True(t, res.Metadata.IsFallback)
				assert.Equal(t, "fallback", res.Metadata.Provider)
				assert.GreaterOrEqual(t, res.ConfidenceScore, 0.0)
				assert.LessOrEqual(t, res.ConfidenceScore, 1.0)
				assert.NotEmpty(t, res.Recommendations.ModelRationale)
				assert.NotEmpty(t, res.Recommendations.SuggestedOptions)
				assert.NotEmpty(t, res.Recommendations.FinancingSuggestion)
				assert.NotEmpty(t, res.Recommendations.KeySellingPoints)
				assert.NotEmpty(t, res.SwissBenefits)
				assert.NotEmpty(t, res.NextSteps)
				assert.False(t, res.Metadata.GeneratedAt.IsZero())
				assert.NotNil(t, res.Metadata.Attempts)
			})
		}
	}
}
