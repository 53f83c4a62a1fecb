// Package models contains shared data models used across the evinsight codebase.
package models

import (
	"context"
	"time"
)

// Adapter is the interface every generative-text provider integration implements.
// Never call specific providers directly; the orchestrator drives adapters in
// priority order.
type Adapter interface {
	// Invoke performs exactly one provider call bounded by ctx. Failures are
	// reported through the outcome, never by panicking.
	Invoke(ctx context.Context, req NormalizedRequest) RawProviderOutcome
	// Name returns the provider identifier (e.g., "openai", "gemini").
	Name() string
}

// AnalysisRequest is the input to a customer analysis.
type AnalysisRequest struct {
	CustomerProfile    map[string]any `json:"customer"`
	VehiclePreferences map[string]any `json:"vehicle_preferences"`
}

// NormalizedRequest is the provider-agnostic instruction payload built once per call.
type NormalizedRequest struct {
	SystemPrompt string
	Prompt       string
	Truncated    bool // Low-priority sections were cut to respect the size cap
}

// ErrorKind classifies a failed provider attempt.
type ErrorKind string

const (
	ErrorKindTimeout           ErrorKind = "timeout"
	ErrorKindAuthFailure       ErrorKind = "auth_failure"
	ErrorKindRateLimited       ErrorKind = "rate_limited"
	ErrorKindMalformedResponse ErrorKind = "malformed_response"
	ErrorKindNetworkError      ErrorKind = "network_error"
	ErrorKindUnknown           ErrorKind = "unknown"
)

// RawProviderOutcome is the result of a single adapter attempt.
// ErrorKind and Err are set only when Succeeded is false.
type RawProviderOutcome struct {
	ProviderName string
	Succeeded    bool
	RawText      string
	ErrorKind    ErrorKind
	Err          error
	Duration     time.Duration
}

// Success builds a successful outcome.
func Success(provider, text string) RawProviderOutcome {
	return RawProviderOutcome{ProviderName: provider, Succeeded: true, RawText: text}
}

// Failure builds a failed outcome. An empty kind is recorded as ErrorKindUnknown.
func Failure(provider string, kind ErrorKind, err error) RawProviderOutcome {
	if kind == "" {
		kind = ErrorKindUnknown
	}
	return RawProviderOutcome{ProviderName: provider, ErrorKind: kind, Err: err}
}
