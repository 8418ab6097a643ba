// File: internal/agent/safety.go
package agent

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

// SafetyGate resolves provider-flagged safety checks before an action may
// dispatch. A non-nil error aborts the task.
type SafetyGate interface {
	Resolve(ctx context.Context, req *schemas.ActionRequest) error
}

// AutoGate acknowledges every check with a warning. This matches unattended
// runs where no operator is present to confirm.
type AutoGate struct {
	logger *zap.Logger
}

func NewAutoGate(logger *zap.Logger) *AutoGate {
	return &AutoGate{logger: logger.Named("safety")}
}

func (g *AutoGate) Resolve(_ context.Context, req *schemas.ActionRequest) error {
	for _, check := range req.SafetyChecks {
		g.logger.Warn("Auto-acknowledging safety check.",
			zap.String("call_id", req.CallID),
			zap.String("action", req.Name),
			zap.String("check_id", check.ID),
			zap.String("message", check.Message))
	}
	return nil
}

// ConfirmFunc asks the operator about one safety check. It returns whether
// the action may proceed.
type ConfirmFunc func(ctx context.Context, check schemas.SafetyCheck) (bool, error)

// PromptGate defers every check to the operator. A refusal is fatal.
type PromptGate struct {
	confirm ConfirmFunc
	logger  *zap.Logger
}

func NewPromptGate(confirm ConfirmFunc, logger *zap.Logger) *PromptGate {
	if confirm == nil {
		confirm = stdinConfirm
	}
	return &PromptGate{confirm: confirm, logger: logger.Named("safety")}
}

func (g *PromptGate) Resolve(ctx context.Context, req *schemas.ActionRequest) error {
	for _, check := range req.SafetyChecks {
		ok, err := g.confirm(ctx, check)
		if err != nil {
			return fmt.Errorf("safety confirmation failed: %w", err)
		}
		if !ok {
			g.logger.Warn("Operator rejected safety check.",
				zap.String("call_id", req.CallID),
				zap.String("check_id", check.ID))
			return fmt.Errorf("%w: %s", ErrSafetyRejected, check.Message)
		}
		g.logger.Info("Operator acknowledged safety check.",
			zap.String("call_id", req.CallID),
			zap.String("check_id", check.ID))
	}
	return nil
}

// NewGate builds the gate for the configured safety mode.
func NewGate(mode string, logger *zap.Logger) (SafetyGate, error) {
	switch mode {
	case "auto":
		return NewAutoGate(logger), nil
	case "prompt":
		return NewPromptGate(nil, logger), nil
	default:
		return nil, fmt.Errorf("unknown safety mode %q", mode)
	}
}

func stdinConfirm(_ context.Context, check schemas.SafetyCheck) (bool, error) {
	fmt.Fprintf(os.Stderr, "\nSafety check: %s\nProceed? [y/N] ", check.Message)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
