// File: internal/agent/loop.go

// Package agent runs the observe-decide-act loop: it feeds the transcript
// to the model transport, dispatches the returned actions through the
// translator and session gateway, and stops when the termination policy
// says so.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
	"github.com/xkilldash9x/webpilot-cli/internal/translate"
)

// maxNoActionTurns is how many consecutive turns without a tool call the
// loop tolerates before declaring the task stalled.
const maxNoActionTurns = 3

// continueNudge is appended when the model talks without acting and the
// task is not finished.
const continueNudge = "Continue with the task. If it is finished, state the result using the completion marker."

// ControllerConfig wires a Controller's collaborators.
type ControllerConfig struct {
	Transport  schemas.ModelTransport
	Gateway    schemas.SessionControl
	Translator *translate.Translator
	Policy     *TerminationPolicy
	Gate       SafetyGate

	// Viewport is the real session surface; ModelViewport is the space the
	// model is told about (they differ under coordinate scaling).
	Viewport      schemas.Viewport
	ModelViewport schemas.Viewport

	MaxIterations int
	Logger        *zap.Logger
}

// Controller runs one task to completion. It is single-use per task but a
// single instance may run tasks sequentially on the same session.
type Controller struct {
	cfg         ControllerConfig
	logger      *zap.Logger
	lastPointer *schemas.Point
	state       TaskState
}

func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Transport == nil || cfg.Gateway == nil || cfg.Translator == nil ||
		cfg.Policy == nil || cfg.Gate == nil {
		return nil, fmt.Errorf("agent: controller is missing a collaborator")
	}
	if cfg.MaxIterations <= 0 {
		return nil, fmt.Errorf("agent: max iterations must be positive")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Controller{
		cfg:    cfg,
		logger: cfg.Logger.Named("agent"),
		state:  StateIdle,
	}, nil
}

// ExecuteTask drives the loop for one task. The returned Result is valid
// whenever the error is nil; a non-nil error means the task aborted and the
// Result carries whatever was known at that point.
func (c *Controller) ExecuteTask(ctx context.Context, task string) (*Result, error) {
	transcript := NewTranscript()
	c.lastPointer = nil
	noActionTurns := 0

	shot, pageURL, err := c.observe(ctx)
	if err != nil {
		return &Result{FinalText: NoFinalMessage}, fmt.Errorf("initial observation failed: %w", err)
	}
	transcript.Append(schemas.Message{
		Role:          schemas.RoleUser,
		Text:          task,
		ScreenshotB64: shot,
		URL:           pageURL,
	})

	c.logger.Info("Task started.", zap.String("task", task), zap.String("url", pageURL))

	for iteration := 1; iteration <= c.cfg.MaxIterations; iteration++ {
		c.setState(StateRequesting, iteration)
		turn, err := c.cfg.Transport.NextTurn(ctx, schemas.TurnRequest{
			System:   SystemPrompt(c.cfg.ModelViewport),
			Messages: transcript.Messages(),
			Viewport: c.cfg.ModelViewport,
		})
		if err != nil {
			return c.partialResult(transcript, iteration), fmt.Errorf("model turn failed: %w", err)
		}

		c.setState(StateDispatching, iteration)
		actions := 0
		for _, item := range turn.Items {
			switch item.Kind {
			case schemas.TurnItemText:
				c.logger.Info("Model commentary.", zap.String("text", item.Text))
				transcript.Append(schemas.Message{Role: schemas.RoleAssistant, Text: item.Text})
			case schemas.TurnItemAction:
				actions++
				transcript.Append(schemas.Message{Role: schemas.RoleAssistant, Call: item.Request})
				if err := c.dispatch(ctx, item.Request, transcript); err != nil {
					return c.partialResult(transcript, iteration), err
				}
			}
		}

		c.setState(StateEvaluating, iteration)
		if actions == 0 {
			noActionTurns++
		} else {
			noActionTurns = 0
		}

		latest := transcript.LastAssistantText()
		if v := c.cfg.Policy.Evaluate(latest, transcript.RecentAssistantTexts(c.cfg.Policy.Window())); v != nil {
			return c.finish(transcript, iteration, *v), nil
		}
		if noActionTurns >= maxNoActionTurns {
			return c.finish(transcript, iteration, Verdict{Reason: ReasonStalled}), nil
		}
		if actions == 0 {
			transcript.Append(schemas.Message{Role: schemas.RoleUser, Text: continueNudge})
		}
	}

	return c.finish(transcript, c.cfg.MaxIterations, Verdict{Reason: ReasonIterationCap}), nil
}

// dispatch runs one action request end to end: safety gate, parse,
// translate, execute, observe. Recoverable failures become tool-error
// transcript entries and return nil; fatal failures return the error.
// The observation for this action is always appended before dispatch
// returns, so the model sees effects in order.
func (c *Controller) dispatch(ctx context.Context, req *schemas.ActionRequest, transcript *Transcript) error {
	if err := c.cfg.Gate.Resolve(ctx, req); err != nil {
		return err
	}

	action, err := translate.ParseCall(req.Name, req.Args)
	if err != nil {
		return c.reportToolError(transcript, req, err)
	}

	translation, err := c.cfg.Translator.Translate(action, translate.Context{
		Viewport:    c.cfg.Viewport,
		LastPointer: c.lastPointer,
	})
	if err != nil {
		return c.reportToolError(transcript, req, err)
	}

	c.logger.Debug("Dispatching action.",
		zap.String("call_id", req.CallID),
		zap.String("action", req.Name),
		zap.Int("commands", len(translation.Commands)))

	var shot, pageURL string
	for _, cmd := range translation.Commands {
		if cmd.Type == schemas.CmdCaptureScreenshot {
			shot, pageURL, err = c.observe(ctx)
		} else {
			err = c.cfg.Gateway.Exec(ctx, cmd)
		}
		if err != nil {
			return c.reportToolError(transcript, req, err)
		}
	}
	if translation.Pointer != nil {
		c.lastPointer = translation.Pointer
	}

	transcript.Append(schemas.Message{
		Role:          schemas.RoleTool,
		CallID:        req.CallID,
		ScreenshotB64: shot,
		URL:           pageURL,
	})
	return nil
}

// reportToolError converts a recoverable failure into a tool-error entry.
// Fatal failures pass through unchanged.
func (c *Controller) reportToolError(transcript *Transcript, req *schemas.ActionRequest, err error) error {
	code, recoverable := classify(err)
	if !recoverable {
		return err
	}
	c.logger.Warn("Action failed; reporting to model.",
		zap.String("call_id", req.CallID),
		zap.String("action", req.Name),
		zap.String("code", string(code)),
		zap.Error(err))
	transcript.Append(schemas.Message{
		Role:    schemas.RoleTool,
		CallID:  req.CallID,
		IsError: true,
		Text:    fmt.Sprintf("[%s] %v", code, err),
	})
	return nil
}

func (c *Controller) observe(ctx context.Context) (shot, pageURL string, err error) {
	shot, err = c.cfg.Gateway.CaptureScreenshot(ctx)
	if err != nil {
		return "", "", err
	}
	pageURL, err = c.cfg.Gateway.CurrentURL(ctx)
	if err != nil {
		// The screenshot is the observation that matters; a missing URL is
		// not worth failing the action over.
		c.logger.Debug("Could not read page URL.", zap.Error(err))
		pageURL = ""
		err = nil
	}
	return shot, pageURL, nil
}

func (c *Controller) setState(s TaskState, iteration int) {
	c.state = s
	c.logger.Debug("Loop state changed.",
		zap.String("state", string(s)),
		zap.Int("iteration", iteration))
}

func (c *Controller) finish(transcript *Transcript, iterations int, v Verdict) *Result {
	text := transcript.LastAssistantText()
	if text == "" {
		text = NoFinalMessage
	}
	c.setState(StateDone, iterations)
	c.logger.Info("Task finished.",
		zap.String("reason", string(v.Reason)),
		zap.Bool("success", v.Success),
		zap.Int("iterations", iterations))
	return &Result{
		FinalText:  text,
		Reason:     v.Reason,
		Success:    v.Success,
		Iterations: iterations,
	}
}

func (c *Controller) partialResult(transcript *Transcript, iterations int) *Result {
	text := transcript.LastAssistantText()
	if text == "" {
		text = NoFinalMessage
	}
	return &Result{FinalText: text, Iterations: iterations}
}
