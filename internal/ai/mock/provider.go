package mock

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/kiranshivaraju/evinsight/pkg/models"
)

// CannedJSON is a well-formed provider answer in the canonical result shape.
const CannedJSON = `{"recommended_model":"VISTIQ","confidence_score":0.9,` +
	`"recommendations":{"model_rationale":"Mock rationale","suggested_options":["Premium Package"],` +
	`"financing_suggestion":"Mock lease","key_selling_points":["Mock point"]},` +
	`"swiss_benefits":["Mock benefit"],"next_steps":["Mock step"],"analysis":"Mock analysis"}`

// ErrMockFailure is the error carried by failing mock outcomes.
var ErrMockFailure = errors.New("mock provider failure")

// MockAdapter satisfies models.Adapter for testing.
type MockAdapter struct {
	Name_      string
	InvokeFunc func(ctx context.Context, req models.NormalizedRequest) models.RawProviderOutcome

	calls atomic.Int32
}

func (m *MockAdapter) Name() string { return m.Name_ }

func (m *MockAdapter) Invoke(ctx context.Context, req models.NormalizedRequest) models.RawProviderOutcome {
	m.calls.Add(1)
	if m.InvokeFunc != nil {
		return m.InvokeFunc(ctx, req)
	}
	return models.Success(m.Name_, CannedJSON)
}

// Calls reports how many times Invoke ran.
func (m *MockAdapter) Calls() int { return int(m.calls.Load()) }

// NewMockAdapter returns an adapter that always succeeds with text.
func NewMockAdapter(name, text string) *MockAdapter {
	return &MockAdapter{
		Name_: name,
		InvokeFunc: func(_ context.Context, _ models.NormalizedRequest) models.RawProviderOutcome {
			return models.Success(name, text)
		},
	}
}

// NewFailingAdapter returns an adapter that always fails with kind.
func NewFailingAdapter(name string, kind models.ErrorKind) *MockAdapter {
	return &MockAdapter{
		Name_: name,
		InvokeFunc: func(_ context.Context, _ models.NormalizedRequest) models.RawProviderOutcome {
			return models.Failure(name, kind, ErrMockFailure)
		},
	}
}

// NewTimeoutAdapter returns an adapter that blocks until its context is done.
func NewTimeoutAdapter(name string) *MockAdapter {
	return &MockAdapter{
		Name_: name,
		InvokeFunc: func(ctx context.Context, _ models.NormalizedRequest) models.RawProviderOutcome {
			<-ctx.Done()
			return models.Failure(name, models.ErrorKindTimeout, ctx.Err())
		},
	}
}

// NewStuckAdapter returns an adapter that ignores its context and blocks until
// release is closed.
func NewStuckAdapter(name string, release <-chan struct{}) *MockAdapter {
	return &MockAdapter{
		Name_: name,
		InvokeFunc: func(_ context.Context, _ models.NormalizedRequest) models.RawProviderOutcome {
			<-release
			return models.Success(name, CannedJSON)
		},
	}
}

// NewPanickingAdapter returns an adapter that panics on every call.
func NewPanickingAdapter(name string) *MockAdapter {
	return &MockAdapter{
		Name_: name,
		InvokeFunc: func(_ context.Context, _ models.NormalizedRequest) models.RawProviderOutcome {
			panic("mock adapter exploded")
		},
	}
}

// Compile-time check that MockAdapter implements Adapter.
var _ models.Adapter = (*MockAdapter)(nil)
