package mock

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/Sumatoshi-tech/clausefang/pkg/inference"
)

// ErrInjected is the failure returned by Flaky.
var ErrInjected = errors.New("injected inference failure")

// Flaky fails the first Failures completions of kind Kind (all kinds when
// empty) and forwards everything else to Next.
type Flaky struct {
	Next     inference.Client
	Kind     inference.Kind
	Failures int64

	calls atomic.Int64
}

// Complete fails or forwards prompt.
func (f *Flaky) Complete(ctx context.Context, prompt inference.Prompt) (inference.Completion, error) {
	if f.Kind == "" || f.Kind == prompt.Kind {
		if f.calls.Add(1) <= f.Failures {
			return inference.Completion{}, ErrInjected
		}
	}

	return f.Next.Complete(ctx, prompt)
}

// Calls returns how many matching completions were attempted.
func (f *Flaky) Calls() int64 {
	return f.calls.Load()
}
