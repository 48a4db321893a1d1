// Package ai wraps the prompt-to-structured-result generation upstream.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/devroom-hq/devroom/internal/message"
	"github.com/devroom-hq/devroom/internal/metrics"
)

// ErrUpstreamUnavailable indicates the generation upstream failed or is
// not configured. The adapter never retries; callers substitute a
// user-visible apology instead of failing the request path.
var ErrUpstreamUnavailable = errors.New("ai upstream unavailable")

// ApologyText is the fixed user-visible reply when a room-triggered
// generation fails.
const ApologyText = "Sorry, I encountered an error processing your request."

// Generator produces raw model output for a prompt. Implementations make
// a blocking network call; duration is bounded only by the implementation's
// own HTTP timeout.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Adapter normalizes generator output into the canonical structured shape.
type Adapter struct {
	gen    Generator
	logger zerolog.Logger
}

// NewAdapter creates an adapter. gen may be nil, in which case every
// invocation fails with ErrUpstreamUnavailable.
func NewAdapter(gen Generator, logger zerolog.Logger) *Adapter {
	return &Adapter{gen: gen, logger: logger}
}

// Invoke runs the prompt through the upstream and always passes the raw
// output through the normalizer before returning.
func (a *Adapter) Invoke(ctx context.Context, prompt string) (message.StructuredResult, error) {
	if a.gen == nil {
		metrics.AIInvocations.WithLabelValues("error").Inc()
		return message.StructuredResult{}, fmt.Errorf("%w: no generator configured", ErrUpstreamUnavailable)
	}

	raw, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		metrics.AIInvocations.WithLabelValues("error").Inc()
		a.logger.Error().Err(err).Msg("generation upstream failed")
		return message.StructuredResult{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	metrics.AIInvocations.WithLabelValues("ok").Inc()
	return message.NormalizeText(raw), nil
}

// Apology is the substitute payload for a failed room-triggered
// generation: a normal chat message from the assistant explaining that an
// error occurred.
func Apology() message.StructuredResult {
	return message.StructuredResult{Text: ApologyText}
}
