// File: internal/llmclient/gemini.go
package llmclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
	"github.com/xkilldash9x/webpilot-cli/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GeminiTransport drives the Gemini generateContent API with the action
// vocabulary declared as function tools.
type GeminiTransport struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
	config     config.ModelConfig
}

var _ schemas.ModelTransport = (*GeminiTransport)(nil)

// -- Gemini wire structures --

type geminiPart struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *geminiInlineData `json:"inline_data,omitempty"`
	FunctionCall     *geminiFuncCall   `json:"functionCall,omitempty"`
	FunctionResponse *geminiFuncResp   `json:"functionResponse,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiFuncCall struct {
	Name string              `json:"name"`
	Args jsoniter.RawMessage `json:"args,omitempty"`
}

type geminiFuncResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSystemInstruction struct {
	Parts []geminiPart `json:"parts"`
}

type geminiTool struct {
	FunctionDeclarations []functionDeclaration `json:"function_declarations"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float32 `json:"topP,omitempty"`
	TopK            int     `json:"topK,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequestPayload struct {
	Contents          []geminiContent          `json:"contents"`
	SystemInstruction *geminiSystemInstruction `json:"system_instruction,omitempty"`
	Tools             []geminiTool             `json:"tools,omitempty"`
	GenerationConfig  geminiGenerationConfig   `json:"generationConfig"`
}

type geminiResponsePayload struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// safetyDecision is embedded by the computer-use models in function call
// args when an action needs operator confirmation.
type safetyDecision struct {
	Decision    string `json:"decision"`
	Explanation string `json:"explanation"`
}

// NewGeminiTransport initializes the transport.
func NewGeminiTransport(cfg config.ModelConfig, logger *zap.Logger) (*GeminiTransport, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent", cfg.Model)
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	return &GeminiTransport{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		config:   cfg,
		limiter:  limiter,
		httpClient: &http.Client{
			Timeout: cfg.APITimeout,
		},
		logger: logger.Named("llmclient.gemini"),
	}, nil
}

// NextTurn sends the transcript and returns the model's next turn. Failures
// that survive retries come back as *TransportError.
func (t *GeminiTransport) NextTurn(ctx context.Context, req schemas.TurnRequest) (*schemas.ModelTurn, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Provider: "gemini", Err: err}
		}
	}

	payload := t.buildPayload(req)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Provider: "gemini", Err: fmt.Errorf("failed to marshal payload: %w", err)}
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	b.MaxInterval = 30 * time.Second

	var turn *schemas.ModelTurn
	operation := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", t.apiKey)

		start := time.Now()
		resp, err := t.httpClient.Do(httpReq)
		duration := time.Since(start)
		if err != nil {
			t.logger.Warn("Network error during model request, retrying.", zap.Error(err))
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return t.handleAPIError(resp.StatusCode, respBody)
		}

		var parsed geminiResponsePayload
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		if len(parsed.Candidates) == 0 {
			return backoff.Permanent(fmt.Errorf("gemini API returned no candidates"))
		}

		candidate := parsed.Candidates[0]
		if len(candidate.Content.Parts) == 0 {
			if candidate.FinishReason == "SAFETY" || candidate.FinishReason == "BLOCKLIST" {
				return backoff.Permanent(fmt.Errorf("gemini API blocked the request (reason: %s)", candidate.FinishReason))
			}
			return fmt.Errorf("gemini API returned empty content (reason: %s)", candidate.FinishReason)
		}

		turn = parseTurn(candidate.Content, candidate.FinishReason)
		turn.Usage = schemas.TokenUsage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		}

		t.logger.Info("Model turn complete.",
			zap.Duration("duration", duration),
			zap.Int("prompt_tokens", turn.Usage.PromptTokens),
			zap.Int("completion_tokens", turn.Usage.CompletionTokens),
			zap.Int("actions", len(turn.Requests())))
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, &TransportError{Provider: "gemini", Err: err}
	}
	return turn, nil
}

func (t *GeminiTransport) handleAPIError(statusCode int, body []byte) error {
	t.logger.Error("Gemini API returned error status",
		zap.Int("status", statusCode), zap.ByteString("response", body))
	err := fmt.Errorf("gemini API error: status %d, body: %s", statusCode, string(body))

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		return err // Transient, retry.
	default:
		return backoff.Permanent(err)
	}
}

// buildPayload converts the neutral transcript into Gemini contents. Tool
// results become functionResponse parts paired with the screenshot as
// inline image data.
func (t *GeminiTransport) buildPayload(req schemas.TurnRequest) geminiRequestPayload {
	callNames := map[string]string{}
	contents := make([]geminiContent, 0, len(req.Messages))

	for _, msg := range req.Messages {
		switch msg.Role {
		case schemas.RoleUser:
			parts := []geminiPart{{Text: msg.Text}}
			if msg.ScreenshotB64 != "" {
				parts = append(parts, geminiPart{InlineData: &geminiInlineData{
					MimeType: "image/png",
					Data:     msg.ScreenshotB64,
				}})
			}
			contents = append(contents, geminiContent{Role: "user", Parts: parts})
		case schemas.RoleAssistant:
			var parts []geminiPart
			if msg.Text != "" {
				parts = append(parts, geminiPart{Text: msg.Text})
			}
			if msg.Call != nil {
				callNames[msg.Call.CallID] = msg.Call.Name
				parts = append(parts, geminiPart{FunctionCall: &geminiFuncCall{
					Name: msg.Call.Name,
					Args: jsoniter.RawMessage(msg.Call.Args),
				}})
			}
			if len(parts) > 0 {
				contents = append(contents, geminiContent{Role: "model", Parts: parts})
			}
		case schemas.RoleTool:
			name := callNames[msg.CallID]
			response := map[string]any{}
			if msg.IsError {
				response["error"] = msg.Text
			} else {
				response["output"] = "ok"
				if msg.URL != "" {
					response["url"] = msg.URL
				}
			}
			parts := []geminiPart{{FunctionResponse: &geminiFuncResp{Name: name, Response: response}}}
			if msg.ScreenshotB64 != "" {
				parts = append(parts, geminiPart{InlineData: &geminiInlineData{
					MimeType: "image/png",
					Data:     msg.ScreenshotB64,
				}})
			}
			contents = append(contents, geminiContent{Role: "user", Parts: parts})
		}
	}

	return geminiRequestPayload{
		Contents: contents,
		SystemInstruction: &geminiSystemInstruction{
			Parts: []geminiPart{{Text: req.System}},
		},
		Tools: []geminiTool{{FunctionDeclarations: actionDeclarations(req.Viewport)}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     t.config.Temperature,
			TopP:            t.config.TopP,
			TopK:            t.config.TopK,
			MaxOutputTokens: t.config.MaxTokens,
		},
	}
}

// parseTurn maps candidate parts onto ordered turn items. Function calls
// get synthetic call IDs; Gemini does not assign its own.
func parseTurn(content geminiContent, finishReason string) *schemas.ModelTurn {
	turn := &schemas.ModelTurn{StopReason: finishReason}

	for _, part := range content.Parts {
		if part.Text != "" {
			turn.Items = append(turn.Items, schemas.TurnItem{
				Kind: schemas.TurnItemText,
				Text: part.Text,
			})
		}
		if part.FunctionCall != nil {
			req := &schemas.ActionRequest{
				CallID: uuid.NewString(),
				Name:   part.FunctionCall.Name,
				Args:   []byte(part.FunctionCall.Args),
			}
			req.SafetyChecks = extractSafetyChecks(req.CallID, part.FunctionCall.Args)
			turn.Items = append(turn.Items, schemas.TurnItem{
				Kind:    schemas.TurnItemAction,
				Request: req,
			})
		}
	}
	return turn
}

// extractSafetyChecks pulls a require_confirmation safety decision out of
// function call args, when present.
func extractSafetyChecks(callID string, rawArgs jsoniter.RawMessage) []schemas.SafetyCheck {
	if len(rawArgs) == 0 {
		return nil
	}
	var probe struct {
		SafetyDecision *safetyDecision `json:"safety_decision"`
	}
	if err := json.Unmarshal(rawArgs, &probe); err != nil || probe.SafetyDecision == nil {
		return nil
	}
	if probe.SafetyDecision.Decision != "require_confirmation" {
		return nil
	}
	msg := probe.SafetyDecision.Explanation
	if msg == "" {
		msg = "the model flagged this action as requiring confirmation"
	}
	return []schemas.SafetyCheck{{ID: callID, Message: msg}}
}
