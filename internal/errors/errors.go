// Package errors provides centralized error definitions for the Roundtable
// orchestration core. It defines the error taxonomy shared by the phase
// controller, message router, consensus engine, and generation gateway,
// along with classification helpers.
//
// The package provides two categories of errors:
//
// Domain errors represent failures from specific subsystems:
//   - InvalidMessageError: a malformed message append (integration bug)
//   - GenerationError: all generation backends exhausted for one turn
//   - BudgetExceededError: a round or message budget was hit
//   - NoConsensusError: voting exhausted without a decision
//   - ConcurrentAdvanceError: two advances raced on one conversation
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrEmptyContent) { ... }
//
//	var genErr *errors.GenerationError
//	if errors.As(err, &genErr) { ... }
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Conversation-related sentinel errors
var (
	// ErrConversationNotFound indicates a conversation could not be loaded.
	ErrConversationNotFound = New("conversation not found")
	// ErrConversationFinished indicates an operation on a completed or aborted conversation.
	ErrConversationFinished = New("conversation already finished")
	// ErrNotAwaitingHuman indicates a human reply was submitted while no question was pending.
	ErrNotAwaitingHuman = New("conversation is not awaiting a human reply")
)

// Message-related sentinel errors
var (
	// ErrEmptyContent indicates message content was empty after trimming.
	ErrEmptyContent = New("message content is empty")
	// ErrDanglingParent indicates a parent reference to a message that does not exist.
	ErrDanglingParent = New("parent message not found")
	// ErrForwardParent indicates a parent reference to a message with an equal or larger sequence number.
	ErrForwardParent = New("parent message sequence is not smaller")
	// ErrCrossConversationParent indicates a parent reference into another conversation.
	ErrCrossConversationParent = New("parent message belongs to another conversation")
	// ErrUnknownSender indicates a sender that is not part of the conversation's team.
	ErrUnknownSender = New("unknown sender")
)

// Generation-related sentinel errors
var (
	// ErrUnknownBackend indicates the configured generation backend is unsupported.
	ErrUnknownBackend = New("unknown generation backend")
	// ErrEmptyResponse indicates a backend returned an empty response.
	ErrEmptyResponse = New("generation response is empty")
	// ErrResponseTooLong indicates a backend response exceeded the configured limit.
	ErrResponseTooLong = New("generation response exceeds maximum length")
	// ErrPromptEcho indicates a backend echoed the prompt back instead of answering.
	ErrPromptEcho = New("generation response echoes the prompt")
	// ErrBackendsExhausted indicates every configured backend failed for one turn.
	ErrBackendsExhausted = New("all generation backends failed")
)

// Orchestration sentinel errors
var (
	// ErrBudgetExceeded indicates a round or message budget was hit.
	ErrBudgetExceeded = New("conversation budget exceeded")
	// ErrNoConsensus indicates voting was exhausted without a decisive outcome.
	ErrNoConsensus = New("no consensus reached")
	// ErrConcurrentAdvance indicates two advance calls raced on the same conversation.
	ErrConcurrentAdvance = New("conversation is already being advanced")
	// ErrUnknownProposal indicates a vote referenced a proposal that was never raised.
	ErrUnknownProposal = New("proposal not found")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message   string
	cause     error
	severity  Severity
	retryable bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// classified is implemented by all Roundtable error types.
type classified interface {
	error
	Severity() Severity
	IsRetryable() bool
}

// -----------------------------------------------------------------------------
// Domain Errors
// -----------------------------------------------------------------------------

// InvalidMessageError represents a malformed message append. It indicates a
// programming or integration bug and is surfaced immediately, never retried.
//
// Example:
//
//	err := errors.NewInvalidMessageError("content is empty", errors.ErrEmptyContent).
//		WithConversation("conv-1").WithField("content")
type InvalidMessageError struct {
	baseError
	ConversationID string
	Field          string
}

// NewInvalidMessageError creates a new InvalidMessageError.
func NewInvalidMessageError(message string, cause error) *InvalidMessageError {
	return &InvalidMessageError{
		baseError: baseError{
			message:   message,
			cause:     cause,
			severity:  SeverityWarning,
			retryable: false,
		},
	}
}

// WithConversation adds a conversation ID to the error context.
func (e *InvalidMessageError) WithConversation(id string) *InvalidMessageError {
	e.ConversationID = id
	return e
}

// WithField adds the offending field name to the error context.
func (e *InvalidMessageError) WithField(field string) *InvalidMessageError {
	e.Field = field
	return e
}

// Error returns the formatted error message.
func (e *InvalidMessageError) Error() string {
	var parts []string
	if e.ConversationID != "" {
		parts = append(parts, fmt.Sprintf("conversation=%s", e.ConversationID))
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}

	prefix := "invalid message"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("invalid message [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *InvalidMessageError) Is(target error) bool {
	if _, ok := target.(*InvalidMessageError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// Attempt records one failed generation attempt within a GenerationError.
type Attempt struct {
	Backend string
	Err     error
}

// GenerationError represents the exhaustion of every generation backend for a
// single turn. It carries the per-attempt error chain so the failover history
// is visible in one place. The phase controller treats it as recoverable.
type GenerationError struct {
	baseError
	Attempts []Attempt
}

// NewGenerationError creates a GenerationError from a chain of failed attempts.
// The attempt errors are joined into the cause so errors.Is can match any of
// them.
func NewGenerationError(attempts []Attempt) *GenerationError {
	errs := make([]error, 0, len(attempts))
	for _, a := range attempts {
		errs = append(errs, a.Err)
	}
	return &GenerationError{
		baseError: baseError{
			message:   "all generation backends failed",
			cause:     errors.Join(errs...),
			severity:  SeverityWarning,
			retryable: true,
		},
		Attempts: attempts,
	}
}

// Backends returns the ordered list of backend names that were attempted.
func (e *GenerationError) Backends() []string {
	names := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		names = append(names, a.Backend)
	}
	return names
}

// Error returns the formatted error message.
func (e *GenerationError) Error() string {
	if len(e.Attempts) == 0 {
		return e.message
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Backend, a.Err))
	}
	return fmt.Sprintf("%s: [%s]", e.message, strings.Join(parts, "; "))
}

// Is checks if this error matches the target.
func (e *GenerationError) Is(target error) bool {
	if _, ok := target.(*GenerationError); ok {
		return true
	}
	if errors.Is(target, ErrBackendsExhausted) {
		return true
	}
	return e.baseError.Is(target)
}

// BudgetExceededError represents a round or message budget being hit. The
// conversation moves to aborted with the reason recorded; the error itself is
// internal and never propagated out of Advance.
type BudgetExceededError struct {
	baseError
	Budget string // "rounds" or "messages"
	Limit  int
	Actual int
}

// NewBudgetExceededError creates a new BudgetExceededError.
func NewBudgetExceededError(budget string, limit, actual int) *BudgetExceededError {
	return &BudgetExceededError{
		baseError: baseError{
			message:   fmt.Sprintf("%s budget of %d exceeded (at %d)", budget, limit, actual),
			cause:     ErrBudgetExceeded,
			severity:  SeverityWarning,
			retryable: false,
		},
		Budget: budget,
		Limit:  limit,
		Actual: actual,
	}
}

// Is checks if this error matches the target.
func (e *BudgetExceededError) Is(target error) bool {
	if _, ok := target.(*BudgetExceededError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// NoConsensusError represents voting exhaustion without a decisive outcome
// when the forced-decision fallback is disabled or itself failed.
type NoConsensusError struct {
	baseError
	ProposalID string
	Rounds     int
}

// NewNoConsensusError creates a new NoConsensusError.
func NewNoConsensusError(proposalID string, rounds int) *NoConsensusError {
	return &NoConsensusError{
		baseError: baseError{
			message:   fmt.Sprintf("no consensus on proposal %s after %d voting rounds", proposalID, rounds),
			cause:     ErrNoConsensus,
			severity:  SeverityWarning,
			retryable: false,
		},
		ProposalID: proposalID,
		Rounds:     rounds,
	}
}

// Is checks if this error matches the target.
func (e *NoConsensusError) Is(target error) bool {
	if _, ok := target.(*NoConsensusError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ConcurrentAdvanceError represents a serialization violation: a second
// Advance was attempted while one was in flight for the same conversation.
// The conversation state is left unchanged; the caller must retry after
// acquiring exclusion.
type ConcurrentAdvanceError struct {
	baseError
	ConversationID string
}

// NewConcurrentAdvanceError creates a new ConcurrentAdvanceError.
func NewConcurrentAdvanceError(conversationID string) *ConcurrentAdvanceError {
	return &ConcurrentAdvanceError{
		baseError: baseError{
			message:   fmt.Sprintf("conversation %s is already being advanced", conversationID),
			cause:     ErrConcurrentAdvance,
			severity:  SeverityError,
			retryable: true,
		},
		ConversationID: conversationID,
	}
}

// Is checks if this error matches the target.
func (e *ConcurrentAdvanceError) Is(target error) bool {
	if _, ok := target.(*ConcurrentAdvanceError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var c classified
	if As(err, &c) {
		return c.IsRetryable()
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't carry a classification.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var c classified
	if As(err, &c) {
		return c.Severity()
	}

	return SeverityError
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Newf creates a new error from a format string.
func Newf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
