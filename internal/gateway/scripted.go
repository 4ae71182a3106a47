package gateway

import (
	"context"
	"sync"

	"github.com/roundtable-dev/roundtable/internal/errors"
)

// ScriptedBackend replays a fixed sequence of responses. It backs tests and
// offline demo runs where no generation server is available.
type ScriptedBackend struct {
	name string

	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

// NewScriptedBackend creates a backend that returns the given responses in
// order. After the script is exhausted, the last response repeats.
func NewScriptedBackend(name string, responses ...string) *ScriptedBackend {
	return &ScriptedBackend{name: name, responses: responses}
}

// FailWith queues errors to be returned before any scripted responses.
func (s *ScriptedBackend) FailWith(errs ...error) *ScriptedBackend {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, errs...)
	return s
}

func (s *ScriptedBackend) Name() string { return s.name }

// Calls returns how many times Generate has been invoked.
func (s *ScriptedBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Generate returns the next queued error or scripted response.
func (s *ScriptedBackend) Generate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}

	if len(s.responses) == 0 {
		return "", errors.Newf("scripted backend %q has no responses", s.name)
	}

	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}
