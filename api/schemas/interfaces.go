// File: api/schemas/interfaces.go
package schemas

import "context"

// SessionSpec is the request to provision a remote browser session.
type SessionSpec struct {
	Viewport     Viewport
	UseProxy     bool
	SolveCaptcha bool
	BlockAds     bool
	// Timeout is the server-side idle timeout in milliseconds; zero means
	// the provider default.
	TimeoutMS int
}

// BrowserSession is a provisioned remote browser.
type BrowserSession struct {
	ID string
	// ConnectURL is the CDP websocket endpoint for driving the session.
	ConnectURL string
	// ViewerURL is a human-watchable live view, logged for the operator.
	ViewerURL string
	Viewport  Viewport
}

// Provisioner creates and releases remote browser sessions.
type Provisioner interface {
	CreateSession(ctx context.Context, spec SessionSpec) (*BrowserSession, error)
	ReleaseSession(ctx context.Context, id string) error
}

// SessionControl executes primitive commands against a live session. Exec
// is synchronous; when it returns the command has been applied (or failed).
type SessionControl interface {
	Exec(ctx context.Context, cmd Command) error
	CaptureScreenshot(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// TurnRequest is everything a transport needs to ask the model for its next
// turn: the system prompt, the transcript so far, and the viewport the
// model's coordinates are expressed in.
type TurnRequest struct {
	System   string
	Messages []Message
	Viewport Viewport
}

// ModelTransport is a provider adapter. Implementations own payload
// construction, retries and rate limiting; failures they return are fatal
// to the task.
type ModelTransport interface {
	NextTurn(ctx context.Context, req TurnRequest) (*ModelTurn, error)
}
