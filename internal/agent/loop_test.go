// File: internal/agent/loop_test.go
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
	"github.com/xkilldash9x/webpilot-cli/internal/coords"
	"github.com/xkilldash9x/webpilot-cli/internal/llmclient"
	"github.com/xkilldash9x/webpilot-cli/internal/session"
	"github.com/xkilldash9x/webpilot-cli/internal/translate"
)

// -- fakes --

type fakeTransport struct {
	turns    []*schemas.ModelTurn
	err      error
	requests []schemas.TurnRequest
}

func (f *fakeTransport) NextTurn(_ context.Context, req schemas.TurnRequest) (*schemas.ModelTurn, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.requests) - 1
	if idx >= len(f.turns) {
		return textTurn("TASK_COMPLETED: fallback"), nil
	}
	return f.turns[idx], nil
}

type fakeGateway struct {
	cmds       []schemas.Command
	execHook   func(cmd schemas.Command) error
	captures   int
	captureErr error
	url        string
}

func (f *fakeGateway) Exec(_ context.Context, cmd schemas.Command) error {
	f.cmds = append(f.cmds, cmd)
	if f.execHook != nil {
		return f.execHook(cmd)
	}
	return nil
}

func (f *fakeGateway) CaptureScreenshot(_ context.Context) (string, error) {
	if f.captureErr != nil {
		return "", f.captureErr
	}
	f.captures++
	return fmt.Sprintf("shot-%d", f.captures), nil
}

func (f *fakeGateway) CurrentURL(_ context.Context) (string, error) {
	return f.url, nil
}

func (f *fakeGateway) Close(_ context.Context) error { return nil }

// -- turn builders --

func textTurn(texts ...string) *schemas.ModelTurn {
	turn := &schemas.ModelTurn{}
	for _, s := range texts {
		turn.Items = append(turn.Items, schemas.TurnItem{Kind: schemas.TurnItemText, Text: s})
	}
	return turn
}

func actionItem(id, name, args string) schemas.TurnItem {
	return schemas.TurnItem{
		Kind: schemas.TurnItemAction,
		Request: &schemas.ActionRequest{
			CallID: id,
			Name:   name,
			Args:   json.RawMessage(args),
		},
	}
}

func mixedTurn(items ...schemas.TurnItem) *schemas.ModelTurn {
	return &schemas.ModelTurn{Items: items}
}

func textItem(s string) schemas.TurnItem {
	return schemas.TurnItem{Kind: schemas.TurnItemText, Text: s}
}

// -- setup --

func newTestController(t *testing.T, transport schemas.ModelTransport, gateway schemas.SessionControl, opts ...func(*ControllerConfig)) *Controller {
	t.Helper()
	vp := schemas.Viewport{Width: 1024, Height: 768}
	mapper, err := coords.NewMapper(vp, coords.PolicyScale, true, zap.NewNop())
	require.NoError(t, err)

	cfg := ControllerConfig{
		Transport:     transport,
		Gateway:       gateway,
		Translator:    translate.New(mapper, zap.NewNop()),
		Policy:        newPolicy(t),
		Gate:          NewAutoGate(zap.NewNop()),
		Viewport:      vp,
		ModelViewport: mapper.ModelViewport(),
		MaxIterations: 10,
		Logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	c, err := NewController(cfg)
	require.NoError(t, err)
	return c
}

// -- tests --

func TestExecuteTaskHappyPath(t *testing.T) {
	transport := &fakeTransport{turns: []*schemas.ModelTurn{
		mixedTurn(
			textItem("Clicking the button."),
			actionItem("call-1", "left_click", `{"coordinate":[100,100]}`),
		),
		textTurn("TASK_COMPLETED: the button was clicked"),
	}}
	gateway := &fakeGateway{url: "https://example.com"}

	c := newTestController(t, transport, gateway)
	res, err := c.ExecuteTask(context.Background(), "click the button")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, ReasonExplicitSuccess, res.Reason)
	assert.Equal(t, 2, res.Iterations)
	assert.Contains(t, res.FinalText, "the button was clicked")

	// The click expanded into a move and a click; screenshots go through
	// CaptureScreenshot, not Exec.
	require.Len(t, gateway.cmds, 2)
	assert.Equal(t, schemas.CmdMoveMouse, gateway.cmds[0].Type)
	assert.Equal(t, schemas.CmdClickMouse, gateway.cmds[1].Type)
	assert.Equal(t, 2, gateway.captures, "initial observation plus one action")
}

func TestExecuteTaskTranscriptOrdering(t *testing.T) {
	transport := &fakeTransport{turns: []*schemas.ModelTurn{
		mixedTurn(
			actionItem("call-1", "left_click", `{"coordinate":[10,10]}`),
			actionItem("call-2", "left_click", `{"coordinate":[20,20]}`),
		),
		textTurn("TASK_COMPLETED: done"),
	}}
	gateway := &fakeGateway{}

	c := newTestController(t, transport, gateway)
	_, err := c.ExecuteTask(context.Background(), "do two clicks")
	require.NoError(t, err)

	// The second request shows the transcript after turn one. Each action's
	// observation must precede the next action's dispatch.
	require.Len(t, transport.requests, 2)
	msgs := transport.requests[1].Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, schemas.RoleUser, msgs[0].Role)
	assert.NotEmpty(t, msgs[0].ScreenshotB64, "initial observation rides on the task message")

	require.NotNil(t, msgs[1].Call)
	assert.Equal(t, "call-1", msgs[1].Call.CallID)
	assert.Equal(t, schemas.RoleTool, msgs[2].Role)
	assert.Equal(t, "call-1", msgs[2].CallID)
	assert.NotEmpty(t, msgs[2].ScreenshotB64)

	require.NotNil(t, msgs[3].Call)
	assert.Equal(t, "call-2", msgs[3].Call.CallID)
	assert.Equal(t, schemas.RoleTool, msgs[4].Role)
	assert.Equal(t, "call-2", msgs[4].CallID)
}

func TestExecuteTaskInvalidActionFeedsBack(t *testing.T) {
	transport := &fakeTransport{turns: []*schemas.ModelTurn{
		mixedTurn(actionItem("call-1", "open_terminal", `{}`)),
		textTurn("TASK_FAILED: that tool does not exist"),
	}}
	gateway := &fakeGateway{}

	c := newTestController(t, transport, gateway)
	res, err := c.ExecuteTask(context.Background(), "misbehave")
	require.NoError(t, err)
	assert.False(t, res.Success)

	msgs := transport.requests[1].Messages
	last := msgs[len(msgs)-1]
	assert.Equal(t, schemas.RoleTool, last.Role)
	assert.True(t, last.IsError)
	assert.Contains(t, last.Text, string(ErrCodeInvalidAction))
	assert.Empty(t, gateway.cmds, "nothing reaches the browser")
}

func TestExecuteTaskOutOfBoundsFeedsBack(t *testing.T) {
	transport := &fakeTransport{turns: []*schemas.ModelTurn{
		mixedTurn(actionItem("call-1", "left_click", `{"coordinate":[5000,100]}`)),
		textTurn("TASK_COMPLETED: recovered"),
	}}
	gateway := &fakeGateway{}

	c := newTestController(t, transport, gateway)
	res, err := c.ExecuteTask(context.Background(), "click far away")
	require.NoError(t, err)
	assert.True(t, res.Success)

	msgs := transport.requests[1].Messages
	last := msgs[len(msgs)-1]
	assert.True(t, last.IsError)
	assert.Contains(t, last.Text, string(ErrCodeOutOfBounds))
}

func TestExecuteTaskTransportErrorIsFatal(t *testing.T) {
	transport := &fakeTransport{err: &llmclient.TransportError{Provider: "gemini", Err: fmt.Errorf("boom")}}
	c := newTestController(t, transport, &fakeGateway{})

	res, err := c.ExecuteTask(context.Background(), "anything")
	require.Error(t, err)
	var te *llmclient.TransportError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, NoFinalMessage, res.FinalText)
}

func TestExecuteTaskBlockedNavigationIsFatal(t *testing.T) {
	transport := &fakeTransport{turns: []*schemas.ModelTurn{
		mixedTurn(actionItem("call-1", "goto", `{"url":"https://evil.com"}`)),
	}}
	gateway := &fakeGateway{execHook: func(cmd schemas.Command) error {
		if cmd.Type == schemas.CmdNavigate {
			return &session.BlockedNavigationError{URL: cmd.Text, Domain: "evil.com"}
		}
		return nil
	}}

	c := newTestController(t, transport, gateway)
	_, err := c.ExecuteTask(context.Background(), "visit evil")
	require.Error(t, err)
	var blocked *session.BlockedNavigationError
	assert.ErrorAs(t, err, &blocked)
}

func TestExecuteTaskSafetyRejectionIsFatal(t *testing.T) {
	transport := &fakeTransport{turns: []*schemas.ModelTurn{
		mixedTurn(schemas.TurnItem{
			Kind: schemas.TurnItemAction,
			Request: &schemas.ActionRequest{
				CallID: "call-1",
				Name:   "left_click",
				Args:   json.RawMessage(`{"coordinate":[10,10]}`),
				SafetyChecks: []schemas.SafetyCheck{
					{ID: "chk-1", Message: "purchase ahead"},
				},
			},
		}),
	}}
	refuse := NewPromptGate(func(_ context.Context, _ schemas.SafetyCheck) (bool, error) {
		return false, nil
	}, zap.NewNop())

	c := newTestController(t, transport, &fakeGateway{}, func(cfg *ControllerConfig) {
		cfg.Gate = refuse
	})
	_, err := c.ExecuteTask(context.Background(), "buy the thing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSafetyRejected)
}

func TestExecuteTaskStallsAfterNoActionTurns(t *testing.T) {
	transport := &fakeTransport{turns: []*schemas.ModelTurn{
		textTurn("alpha bravo"),
		textTurn("charlie delta"),
		textTurn("echo foxtrot"),
	}}
	c := newTestController(t, transport, &fakeGateway{})

	res, err := c.ExecuteTask(context.Background(), "stall out")
	require.NoError(t, err)
	assert.Equal(t, ReasonStalled, res.Reason)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Iterations)

	// The loop nudged the model after each idle turn.
	msgs := transport.requests[1].Messages
	assert.Equal(t, continueNudge, msgs[len(msgs)-1].Text)
}

func TestExecuteTaskIterationCap(t *testing.T) {
	transport := &fakeTransport{turns: []*schemas.ModelTurn{
		mixedTurn(actionItem("c1", "screenshot", `{}`)),
		mixedTurn(actionItem("c2", "screenshot", `{}`)),
		mixedTurn(actionItem("c3", "screenshot", `{}`)),
	}}
	c := newTestController(t, transport, &fakeGateway{}, func(cfg *ControllerConfig) {
		cfg.MaxIterations = 2
	})

	res, err := c.ExecuteTask(context.Background(), "never finish")
	require.NoError(t, err)
	assert.Equal(t, ReasonIterationCap, res.Reason)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, NoFinalMessage, res.FinalText)
	assert.Len(t, transport.requests, 2)
}

func TestExecuteTaskRepetitionStops(t *testing.T) {
	transport := &fakeTransport{turns: []*schemas.ModelTurn{
		mixedTurn(
			textItem("I will click the blue submit button now"),
			actionItem("c1", "left_click", `{"coordinate":[10,10]}`),
		),
		mixedTurn(
			textItem("I will click the blue submit button again"),
			actionItem("c2", "left_click", `{"coordinate":[10,10]}`),
		),
	}}
	c := newTestController(t, transport, &fakeGateway{})

	res, err := c.ExecuteTask(context.Background(), "loop forever")
	require.NoError(t, err)
	assert.Equal(t, ReasonRepetition, res.Reason)
	assert.Equal(t, 2, res.Iterations)
}

func TestExecuteTaskInitialObservationFailureIsFatal(t *testing.T) {
	gateway := &fakeGateway{captureErr: fmt.Errorf("no page yet")}
	c := newTestController(t, &fakeTransport{}, gateway)

	_, err := c.ExecuteTask(context.Background(), "anything")
	assert.Error(t, err)
}

func TestNewControllerValidation(t *testing.T) {
	_, err := NewController(ControllerConfig{})
	assert.Error(t, err)
}
