// File: internal/agent/errors.go
package agent

import (
	"errors"

	"github.com/xkilldash9x/webpilot-cli/internal/coords"
	"github.com/xkilldash9x/webpilot-cli/internal/llmclient"
	"github.com/xkilldash9x/webpilot-cli/internal/session"
	"github.com/xkilldash9x/webpilot-cli/internal/translate"
)

// ErrorCode is a string type used for structured error reporting in tool
// results and logs. The custom type keeps arbitrary strings out of places
// expecting a code.
type ErrorCode string

const (
	ErrCodeInvalidAction     ErrorCode = "INVALID_ACTION"
	ErrCodeOutOfBounds       ErrorCode = "OUT_OF_BOUNDS"
	ErrCodeExecutionFailure  ErrorCode = "EXECUTION_FAILURE"
	ErrCodeTransportFailure  ErrorCode = "TRANSPORT_FAILURE"
	ErrCodeSafetyRejected    ErrorCode = "SAFETY_REJECTED"
	ErrCodeBlockedNavigation ErrorCode = "BLOCKED_NAVIGATION"
)

// ErrSafetyRejected is returned when the operator refuses a provider safety
// check. It aborts the task.
var ErrSafetyRejected = errors.New("safety check rejected by operator")

// classify assigns an error code and decides whether the loop may feed the
// error back to the model (recoverable) or must abort the task.
func classify(err error) (code ErrorCode, recoverable bool) {
	var (
		invalid   *translate.InvalidActionError
		oob       *coords.OutOfBoundsError
		blocked   *session.BlockedNavigationError
		transport *llmclient.TransportError
	)
	switch {
	case errors.As(err, &invalid):
		return ErrCodeInvalidAction, true
	case errors.As(err, &oob):
		return ErrCodeOutOfBounds, true
	case errors.As(err, &blocked):
		return ErrCodeBlockedNavigation, false
	case errors.As(err, &transport):
		return ErrCodeTransportFailure, false
	case errors.Is(err, ErrSafetyRejected):
		return ErrCodeSafetyRejected, false
	default:
		// Browser command failures are reported to the model; it can retry
		// or work around them.
		return ErrCodeExecutionFailure, true
	}
}
