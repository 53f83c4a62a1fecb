package ai

import "errors"

var (
	ErrUnknownProvider = errors.New("unknown ai provider")
	ErrAdapterMissing  = errors.New("no adapter registered for provider")
	ErrCallTimeout     = errors.New("ai provider call timed out")
	ErrAdapterPanic    = errors.New("ai adapter panicked")
)
