package gateway

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/roundtable-dev/roundtable/internal/errors"
)

func testOptions() Options {
	return Options{
		RequestTimeout:   time.Second,
		RetryBackoff:     time.Millisecond,
		MaxResponseChars: 1000,
	}
}

func TestGenerateSuccessOnPreferred(t *testing.T) {
	preferred := NewScriptedBackend("primary", "a thoughtful contribution")
	fallback := NewScriptedBackend("secondary", "should not be used")
	g := New(preferred, fallback, testOptions())

	result, err := g.Generate(context.Background(), Request{Prompt: "discuss"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Backend != "primary" {
		t.Errorf("Backend = %q, want primary", result.Backend)
	}
	if result.Text != "a thoughtful contribution" {
		t.Errorf("Text = %q", result.Text)
	}
	if fallback.Calls() != 0 {
		t.Errorf("fallback called %d times, want 0", fallback.Calls())
	}
}

func TestGenerateRetriesOnceThenFallsOver(t *testing.T) {
	preferred := NewScriptedBackend("primary").
		FailWith(errors.New("connection refused"), errors.New("connection refused"))
	fallback := NewScriptedBackend("secondary", "rescued response")
	g := New(preferred, fallback, testOptions())

	result, err := g.Generate(context.Background(), Request{Prompt: "discuss"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Backend != "secondary" {
		t.Errorf("Backend = %q, want secondary", result.Backend)
	}
	if preferred.Calls() != 2 {
		t.Errorf("preferred called %d times, want 2 (attempt + retry)", preferred.Calls())
	}
}

func TestGenerateAllBackendsExhausted(t *testing.T) {
	boom := errors.New("boom")
	preferred := NewScriptedBackend("primary").FailWith(boom, boom)
	fallback := NewScriptedBackend("secondary").FailWith(boom, boom)
	g := New(preferred, fallback, testOptions())

	_, err := g.Generate(context.Background(), Request{Prompt: "discuss"})
	if !errors.Is(err, errors.ErrBackendsExhausted) {
		t.Fatalf("err = %v, want ErrBackendsExhausted", err)
	}

	var genErr *errors.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("err type = %T, want *GenerationError", err)
	}
	if len(genErr.Attempts) != 4 {
		t.Errorf("attempts = %d, want 4 (two per backend)", len(genErr.Attempts))
	}
	backends := genErr.Backends()
	if backends[0] != "primary" || backends[len(backends)-1] != "secondary" {
		t.Errorf("attempt order = %v", backends)
	}
}

func TestGenerateNoFallback(t *testing.T) {
	boom := errors.New("boom")
	preferred := NewScriptedBackend("primary").FailWith(boom, boom)
	g := New(preferred, nil, testOptions())

	_, err := g.Generate(context.Background(), Request{Prompt: "discuss"})
	if !errors.Is(err, errors.ErrBackendsExhausted) {
		t.Fatalf("err = %v, want ErrBackendsExhausted", err)
	}
	if preferred.Calls() != 2 {
		t.Errorf("calls = %d, want 2", preferred.Calls())
	}
}

func TestResponseValidation(t *testing.T) {
	tests := []struct {
		name     string
		response string
		prompt   string
		sentinel error
	}{
		{
			name:     "empty response",
			response: "   \n\t  ",
			prompt:   "discuss",
			sentinel: errors.ErrEmptyResponse,
		},
		{
			name:     "response too long",
			response: strings.Repeat("x", 2000),
			prompt:   "discuss",
			sentinel: errors.ErrResponseTooLong,
		},
		{
			name:     "prompt echo",
			response: "discuss the goal",
			prompt:   "discuss the goal",
			sentinel: errors.ErrPromptEcho,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Same bad response on both attempts so validation exhausts the backend.
			backend := NewScriptedBackend("primary", tt.response)
			g := New(backend, nil, testOptions())

			_, err := g.Generate(context.Background(), Request{Prompt: tt.prompt})
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("err = %v, want %v", err, tt.sentinel)
			}
		})
	}
}

func TestValidationPermitsLimitLengthResponse(t *testing.T) {
	opts := testOptions()
	opts.MaxResponseChars = 10
	backend := NewScriptedBackend("primary", "exactly-10")
	g := New(backend, nil, opts)

	result, err := g.Generate(context.Background(), Request{Prompt: "discuss"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Text != "exactly-10" {
		t.Errorf("Text = %q", result.Text)
	}
}

func TestHealthStateSkipsDeadPreferred(t *testing.T) {
	boom := errors.New("down")
	preferred := NewScriptedBackend("primary").FailWith(boom, boom, boom, boom)
	fallback := NewScriptedBackend("secondary", "from fallback")

	opts := testOptions()
	opts.HealthCooldown = time.Hour
	g := New(preferred, fallback, opts)

	// First request exhausts the preferred backend and fails over.
	if _, err := g.Generate(context.Background(), Request{Prompt: "one"}); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if g.PreferredHealthy() {
		t.Error("preferred should be marked down after exhaustion")
	}
	callsAfterFirst := preferred.Calls()

	// Second request goes straight to the fallback.
	result, err := g.Generate(context.Background(), Request{Prompt: "two"})
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if result.Backend != "secondary" {
		t.Errorf("Backend = %q, want secondary", result.Backend)
	}
	if preferred.Calls() != callsAfterFirst {
		t.Errorf("preferred re-tried while marked down")
	}
}

func TestHealthCooldownExpires(t *testing.T) {
	boom := errors.New("down")
	preferred := NewScriptedBackend("primary").FailWith(boom, boom)
	fallback := NewScriptedBackend("secondary", "from fallback")

	opts := testOptions()
	opts.HealthCooldown = time.Nanosecond
	g := New(preferred, fallback, opts)

	if _, err := g.Generate(context.Background(), Request{Prompt: "one"}); err != nil {
		t.Fatalf("first Generate: %v", err)
	}

	time.Sleep(time.Millisecond)
	if !g.PreferredHealthy() {
		t.Error("preferred should be probed again after cooldown")
	}
}

func TestGenerateHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := NewScriptedBackend("primary", "never delivered")
	g := New(backend, nil, testOptions())

	if _, err := g.Generate(ctx, Request{Prompt: "discuss"}); err == nil {
		t.Error("Generate with cancelled context should fail")
	}
}

func TestGenerateTrimsResponse(t *testing.T) {
	backend := NewScriptedBackend("primary", "\n  padded text  \n")
	g := New(backend, nil, testOptions())

	result, err := g.Generate(context.Background(), Request{Prompt: "discuss"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Text != "padded text" {
		t.Errorf("Text = %q, want trimmed", result.Text)
	}
}
