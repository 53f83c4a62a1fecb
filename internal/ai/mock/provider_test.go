package mock_test

import (
	"context"
	"testing"
	"time"

	"github.com/kiranshivaraju/evinsight/internal/ai/mock"
	"github.com/kiranshivaraju/evinsight/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestMockAdapter_DefaultSucceeds(t *testing.T) {
	m := &mock.MockAdapter{Name_: "mock"}
	out := m.Invoke(context.Background(), models.NormalizedRequest{})
	assert.True(t, out.Succeeded)
	assert.Equal(t, mock.CannedJSON, out.RawText)
	assert.Equal(t, 1, m.Calls())
}

func TestNewMockAdapter(t *testing.T) {
	m := mock.NewMockAdapter("openai", "LYRIQ fits")
	out := m.Invoke(context.Background(), models.NormalizedRequest{})
	assert.True(t, out.Succeeded)
	assert.Equal(t, "openai", out.ProviderName)
	assert.Equal(t, "LYRIQ fits", out.RawText)
	assert.Equal(t, "openai", m.Name())
}

func TestNewFailingAdapter(t *testing.T) {
	m := mock.NewFailingAdapter("gemini", models.ErrorKindRateLimited)
	out := m.Invoke(context.Background(), models.NormalizedRequest{})
	assert.False(t, out.Succeeded)
	assert.Equal(t, models.ErrorKindRateLimited, out.ErrorKind)
	assert.ErrorIs(t, out.Err, mock.ErrMockFailure)
}

func TestNewTimeoutAdapter(t *testing.T) {
	m := mock.NewTimeoutAdapter("deepseek")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	out := m.Invoke(ctx, models.NormalizedRequest{})
	assert.False(t, out.Succeeded)
	assert.Equal(t, models.ErrorKindTimeout, out.ErrorKind)
}

func TestNewStuckAdapter_ReturnsAfterRelease(t *testing.T) {
	release := make(chan struct{})
	close(release)
	out := mock.NewStuckAdapter("openai", release).Invoke(context.Background(), models.NormalizedRequest{})
	assert.True(t, out.Succeeded)
}

func TestNewPanickingAdapter(t *testing.T) {
	m := mock.NewPanickingAdapter("openai")
	assert.Panics(t, func() { m.Invoke(context.Background(), models.NormalizedRequest{}) })
}
