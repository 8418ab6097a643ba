// File: internal/llmclient/transport.go

// Package llmclient implements model transports for the agent loop. A
// transport owns payload construction, retries and rate limiting for one
// provider; the loop only ever sees schemas.ModelTurn values.
package llmclient

import (
	"fmt"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
	"github.com/xkilldash9x/webpilot-cli/internal/config"
	"go.uber.org/zap"
)

// TransportError wraps a model API failure that survived retries. The loop
// treats it as fatal to the task.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s transport: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// New builds the transport for the configured provider.
func New(cfg config.ModelConfig, logger *zap.Logger) (schemas.ModelTransport, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiTransport(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}
