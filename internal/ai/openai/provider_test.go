package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kiranshivaraju/evinsight/internal/ai/openai"
	"github.com/kiranshivaraju/evinsight/internal/config"
	"github.com/kiranshivaraju/evinsight/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, handler http.HandlerFunc) *openai.Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return openai.NewProvider(config.OpenAIConfig{
		APIKey:      "sk-test",
		BaseURL:     srv.URL + "/v1/",
		Model:       "gpt-test",
		MaxTokens:   256,
		Temperature: 0.3,
	}, srv.Client())
}

func sampleRequest() models.NormalizedRequest {
	return models.NormalizedRequest{SystemPrompt: "You are a consultant.", Prompt: "Analyze this customer."}
}

func TestInvoke_Success(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req["model"])
		assert.EqualValues(t, 256, req["max_tokens"])
		assert.InDelta(t, 0.3, req["temperature"], 0.0001)

		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "You are a consultant.", msgs[0].(map[string]any)["content"])
		assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
		assert.Equal(t, "Analyze this customer.", msgs[1].(map[string]any)["content"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","choices":[{"message":{"role":"assistant","content":"{\"recommended_model\":\"LYRIQ\"}"},"finish_reason":"stop"}]}`))
	})

	out := p.Invoke(context.Background(), sampleRequest())
	require.True(t, out.Succeeded, "err: %v", out.Err)
	assert.Equal(t, "openai", out.ProviderName)
	assert.Equal(t, `{"recommended_model":"LYRIQ"}`, out.RawText)
	assert.Empty(t, out.ErrorKind)
}

func TestInvoke_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   models.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, models.ErrorKindAuthFailure},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"quota"}}`, models.ErrorKindRateLimited},
		{"server error", http.StatusInternalServerError, `oops`, models.ErrorKindUnknown},
		{"gateway timeout", http.StatusGatewayTimeout, ``, models.ErrorKindTimeout},
		{"unparseable 200", http.StatusOK, `not json`, models.ErrorKindMalformedResponse},
		{"no choices", http.StatusOK, `{"choices":[]}`, models.ErrorKindMalformedResponse},
		{"empty content", http.StatusOK, `{"choices":[{"message":{"content":"  "}}]}`, models.ErrorKindMalformedResponse},
		{"empty body", http.StatusOK, ``, models.ErrorKindMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			out := p.Invoke(context.Background(), sampleRequest())
			assert.False(t, out.Succeeded)
			assert.Equal(t, tt.want, out.ErrorKind)
			assert.Error(t, out.Err)
			assert.Empty(t, out.RawText)
		})
	}
}

func TestInvoke_Timeout(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out := p.Invoke(ctx, sampleRequest())
	assert.False(t, out.Succeeded)
	assert.Equal(t, models.ErrorKindTimeout, out.ErrorKind)
}

func TestInvoke_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	p := openai.NewProvider(config.OpenAIConfig{APIKey: "k", BaseURL: base, Model: "m", MaxTokens: 1}, nil)
	out := p.Invoke(context.Background(), sampleRequest())
	assert.False(t, out.Succeeded)
	assert.Equal(t, models.ErrorKindNetworkError, out.ErrorKind)
}

func TestInvoke_SingleCallPerInvocation(t *testing.T) {
	var calls atomic.Int32
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	out := p.Invoke(context.Background(), sampleRequest())
	assert.False(t, out.Succeeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestName(t *testing.T) {
	assert.Equal(t, "openai", openai.NewProvider(config.OpenAIConfig{}, nil).Name())
}
