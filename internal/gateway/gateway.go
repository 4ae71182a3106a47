package gateway

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/roundtable-dev/roundtable/internal/errors"
	"github.com/roundtable-dev/roundtable/internal/logging"
)

// Options tunes gateway behavior.
type Options struct {
	// RequestTimeout bounds one generation attempt.
	RequestTimeout time.Duration
	// RetryBackoff is the pause before the single per-backend retry.
	RetryBackoff time.Duration
	// MaxResponseChars rejects longer responses; 0 disables the check.
	MaxResponseChars int
	// HealthCooldown is how long a failed preferred backend is skipped
	// before being probed again. Zero uses the default.
	HealthCooldown time.Duration
	// Logger receives per-attempt diagnostics. Nil disables logging.
	Logger *logging.Logger
}

// defaultHealthCooldown is how long the gateway routes straight to the
// fallback after the preferred backend is exhausted.
const defaultHealthCooldown = time.Minute

// Gateway sequences generation attempts across a preferred and an optional
// fallback backend. Health state is shared across conversations: once the
// preferred backend is exhausted, later requests go straight to the
// fallback until the cooldown elapses. Safe for concurrent use.
type Gateway struct {
	preferred Backend
	fallback  Backend
	opts      Options
	logger    *logging.Logger

	mu            sync.Mutex
	preferredDown time.Time // zero when healthy
}

// New creates a Gateway. fallback may be nil to disable failover.
func New(preferred Backend, fallback Backend, opts Options) *Gateway {
	if opts.HealthCooldown == 0 {
		opts.HealthCooldown = defaultHealthCooldown
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Gateway{
		preferred: preferred,
		fallback:  fallback,
		opts:      opts,
		logger:    logger,
	}
}

// Generate produces a validated utterance, failing over between backends.
// Each backend gets one attempt plus one retry; validation failures count
// as attempt failures. When every attempt fails, the returned error is a
// *errors.GenerationError carrying the full attempt chain.
func (g *Gateway) Generate(ctx context.Context, req Request) (UtteranceResult, error) {
	var attempts []errors.Attempt

	for _, backend := range g.order() {
		start := time.Now()
		text, err := g.tryBackend(ctx, backend, req, &attempts)
		if err == nil {
			return UtteranceResult{
				Text:    strings.TrimSpace(text),
				Backend: backend.Name(),
				Latency: time.Since(start),
			}, nil
		}
		if backend == g.preferred {
			g.markPreferredDown()
		}
		if ctx.Err() != nil {
			break
		}
	}

	return UtteranceResult{}, errors.NewGenerationError(attempts)
}

// PreferredHealthy reports whether the preferred backend is currently in
// rotation.
func (g *Gateway) PreferredHealthy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.preferredDown.IsZero() {
		return true
	}
	return time.Since(g.preferredDown) >= g.opts.HealthCooldown
}

// order returns the backends to try for this request, honoring health state.
func (g *Gateway) order() []Backend {
	if g.fallback == nil {
		return []Backend{g.preferred}
	}
	if g.PreferredHealthy() {
		return []Backend{g.preferred, g.fallback}
	}
	return []Backend{g.fallback}
}

func (g *Gateway) markPreferredDown() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.preferredDown = time.Now()
}

// tryBackend runs one attempt plus one backoff retry against a backend and
// records both into the attempt chain.
func (g *Gateway) tryBackend(ctx context.Context, backend Backend, req Request, attempts *[]errors.Attempt) (string, error) {
	text, err := g.attempt(ctx, backend, req)
	if err == nil {
		return text, nil
	}
	*attempts = append(*attempts, errors.Attempt{Backend: backend.Name(), Err: err})
	g.logger.Warn("generation attempt failed", "backend", backend.Name(), "error", err.Error())

	if ctx.Err() != nil {
		return "", err
	}

	select {
	case <-time.After(g.opts.RetryBackoff):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	text, err = g.attempt(ctx, backend, req)
	if err == nil {
		return text, nil
	}
	*attempts = append(*attempts, errors.Attempt{Backend: backend.Name(), Err: err})
	g.logger.Warn("generation retry failed", "backend", backend.Name(), "error", err.Error())
	return "", err
}

// attempt runs a single timed generation call and validates its result.
func (g *Gateway) attempt(ctx context.Context, backend Backend, req Request) (string, error) {
	attemptCtx := ctx
	if g.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, g.opts.RequestTimeout)
		defer cancel()
	}

	text, err := backend.Generate(attemptCtx, req)
	if err != nil {
		return "", err
	}
	if err := g.validate(req, text); err != nil {
		return "", err
	}
	return text, nil
}

// validate applies the response quality checks.
func (g *Gateway) validate(req Request, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return errors.ErrEmptyResponse
	}
	if g.opts.MaxResponseChars > 0 && len(trimmed) > g.opts.MaxResponseChars {
		return errors.Wrapf(errors.ErrResponseTooLong, "gateway: %d chars over limit %d",
			len(trimmed), g.opts.MaxResponseChars)
	}
	// A model that parrots the prompt back produced nothing usable.
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" && trimmed == prompt {
		return errors.ErrPromptEcho
	}
	return nil
}
