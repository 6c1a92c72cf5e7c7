package ambient

import (
	"errors"
	"fmt"

	"github.com/brightloop/agentcore/internal/model"
)

// Sentinel errors for comparison via errors.Is.
var (
	ErrTimeout           = errors.New("operation timeout")
	ErrContextCanceled   = errors.New("context canceled")
	ErrMaxRetriesReached = errors.New("maximum retries exceeded")
	ErrBridgeNotRunning  = errors.New("browser bridge not running")
	ErrPlanEmpty         = errors.New("plan is empty after sanitization")
	ErrElementNotFound   = errors.New("element not found")
)

// CoreError is a structured, wrappable error carrying the operation,
// FailureKind, and an optional entity id, following the teacher's
// FrameworkError shape (Op/Kind/ID/Message/Err).
type CoreError struct {
	Op      string
	Kind    model.FailureKind
	ID      string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	desc := e.Message
	if desc == "" && e.Err != nil {
		desc = e.Err.Error()
	}
	if e.ID != "" {
		return fmt.Sprintf("%s: %s [%s]: %s", e.Kind, e.Op, e.ID, desc)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, desc)
}

func (e *CoreError) Unwrap() error { return e.Err }

// NewCoreError builds a CoreError for the given FailureKind.
func NewCoreError(op string, kind model.FailureKind, message string, err error) *CoreError {
	return &CoreError{Op: op, Kind: kind, Message: message, Err: err}
}

// FailureReason renders the `<FailureKind>: <description>` string the
// spec requires on every terminal run (spec.md §7).
func FailureReason(kind model.FailureKind, description string) string {
	return fmt.Sprintf("%s: %s", kind, description)
}
