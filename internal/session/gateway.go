// File: internal/session/gateway.go
package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
)

const (
	inputTimeout    = 10 * time.Second
	navigateTimeout = 30 * time.Second
	captureTimeout  = 15 * time.Second
)

// cursorScript renders a small overlay dot so the live session viewer shows
// where the agent's pointer is. It is cosmetic; input events do not depend
// on it.
const cursorScript = `
(function(x, y) {
    let dot = document.getElementById('__webpilot_cursor__');
    if (!dot) {
        dot = document.createElement('div');
        dot.id = '__webpilot_cursor__';
        dot.style.cssText = 'position:fixed;width:14px;height:14px;border-radius:50%%;' +
            'background:rgba(255,64,64,0.75);border:2px solid white;z-index:2147483647;' +
            'pointer-events:none;transform:translate(-50%%,-50%%);transition:left 80ms,top 80ms;';
        if (document.body) document.body.appendChild(dot);
    }
    dot.style.left = x + 'px';
    dot.style.top = y + 'px';
})(%d, %d);`

// Gateway drives a provisioned remote browser over CDP. It implements
// schemas.SessionControl. Commands execute sequentially; the Gateway is not
// safe for concurrent Exec calls.
type Gateway struct {
	browserCtx  context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      *zap.Logger
	blocklist   *Blocklist
	showCursor  bool
}

var _ schemas.SessionControl = (*Gateway)(nil)

// Connect attaches to the session's CDP endpoint and waits for the first
// target to become available.
func Connect(ctx context.Context, sess *schemas.BrowserSession, blocklist *Blocklist, connectTimeout time.Duration, showCursor bool, logger *zap.Logger) (*Gateway, error) {
	if sess == nil || sess.ConnectURL == "" {
		return nil, fmt.Errorf("session has no CDP connect URL")
	}

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, sess.ConnectURL, chromedp.NoModifyURL)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	g := &Gateway{
		browserCtx:  browserCtx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		logger:      logger.Named("session.gateway"),
		blocklist:   blocklist,
		showCursor:  showCursor,
	}

	// An empty Run establishes the websocket connection and the first tab.
	connCtx, cancel := context.WithTimeout(browserCtx, connectTimeout)
	defer cancel()
	if err := chromedp.Run(connCtx); err != nil {
		g.release()
		return nil, fmt.Errorf("failed to connect to session %s: %w", sess.ID, err)
	}

	g.logger.Info("Connected to remote browser.", zap.String("session_id", sess.ID))
	return g, nil
}

// Exec applies one primitive command. CmdCaptureScreenshot is not handled
// here; callers use CaptureScreenshot to obtain the image data.
func (g *Gateway) Exec(ctx context.Context, cmd schemas.Command) error {
	switch cmd.Type {
	case schemas.CmdMoveMouse:
		return g.moveMouse(ctx, cmd.Point)
	case schemas.CmdClickMouse:
		return g.clickMouse(ctx, cmd)
	case schemas.CmdDragMouse:
		return g.dragMouse(ctx, cmd.Path)
	case schemas.CmdScroll:
		return g.scroll(ctx, cmd)
	case schemas.CmdPressKey:
		return g.pressKeys(ctx, cmd.Keys, cmd.Hold)
	case schemas.CmdTypeText:
		return g.typeText(ctx, cmd.Text, cmd.KeyDelay)
	case schemas.CmdWait:
		return g.run(ctx, cmd.Hold+inputTimeout, chromedp.Sleep(cmd.Hold))
	case schemas.CmdNavigate:
		return g.navigate(ctx, cmd.Text)
	case schemas.CmdGoBack:
		return g.run(ctx, navigateTimeout, chromedp.NavigateBack())
	case schemas.CmdGoForward:
		return g.run(ctx, navigateTimeout, chromedp.NavigateForward())
	case schemas.CmdCaptureScreenshot:
		return fmt.Errorf("capture_screenshot must go through CaptureScreenshot")
	default:
		return fmt.Errorf("unknown command type %q", cmd.Type)
	}
}

// CaptureScreenshot returns the current page as base64 PNG.
func (g *Gateway) CaptureScreenshot(ctx context.Context) (string, error) {
	var buf []byte
	if err := g.run(ctx, captureTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", fmt.Errorf("screenshot capture failed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// CurrentURL returns the active page's location.
func (g *Gateway) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := g.run(ctx, inputTimeout, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// Close detaches from the browser. The remote session itself is released by
// the provisioning client, not here.
func (g *Gateway) Close(ctx context.Context) error {
	err := chromedp.Cancel(g.browserCtx)
	g.release()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to detach from browser: %w", err)
	}
	return nil
}

func (g *Gateway) release() {
	g.cancelCtx()
	g.cancelAlloc()
}

// run executes chromedp actions against the session with a bounded timeout.
func (g *Gateway) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(g.browserCtx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(opCtx, actions...) }()

	select {
	case err := <-done:
		if err != nil && opCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("command timed out after %v: %w", timeout, opCtx.Err())
		}
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (g *Gateway) moveMouse(ctx context.Context, p schemas.Point) error {
	move := input.DispatchMouseEvent(input.MouseMoved, float64(p.X), float64(p.Y))
	if err := g.run(ctx, inputTimeout, move); err != nil {
		return fmt.Errorf("mouse move failed: %w", err)
	}
	g.syncCursor(ctx, p)
	return nil
}

func (g *Gateway) clickMouse(ctx context.Context, cmd schemas.Command) error {
	button := input.MouseButton(cmd.Button)
	count := int64(cmd.ClickCount)
	if count == 0 {
		count = 1
	}
	mods := modifierMask(cmd.Keys)

	press := input.DispatchMouseEvent(input.MousePressed, float64(cmd.Point.X), float64(cmd.Point.Y)).
		WithButton(button).
		WithClickCount(count).
		WithModifiers(mods)
	release := input.DispatchMouseEvent(input.MouseReleased, float64(cmd.Point.X), float64(cmd.Point.Y)).
		WithButton(button).
		WithClickCount(count).
		WithModifiers(mods)

	if err := g.run(ctx, inputTimeout, press, release); err != nil {
		return fmt.Errorf("mouse click failed: %w", err)
	}
	g.syncCursor(ctx, cmd.Point)
	return nil
}

func (g *Gateway) dragMouse(ctx context.Context, path []schemas.Point) error {
	if len(path) < 2 {
		return fmt.Errorf("drag path needs at least 2 points, got %d", len(path))
	}

	start, end := path[0], path[len(path)-1]
	actions := []chromedp.Action{
		input.DispatchMouseEvent(input.MouseMoved, float64(start.X), float64(start.Y)),
		input.DispatchMouseEvent(input.MousePressed, float64(start.X), float64(start.Y)).
			WithButton(input.Left).
			WithClickCount(1),
	}
	for _, wp := range path[1:] {
		actions = append(actions,
			input.DispatchMouseEvent(input.MouseMoved, float64(wp.X), float64(wp.Y)).
				WithButton(input.Left),
			chromedp.Sleep(20*time.Millisecond),
		)
	}
	actions = append(actions,
		input.DispatchMouseEvent(input.MouseReleased, float64(end.X), float64(end.Y)).
			WithButton(input.Left).
			WithClickCount(1),
	)

	timeout := inputTimeout + time.Duration(len(path))*50*time.Millisecond
	if err := g.run(ctx, timeout, actions...); err != nil {
		return fmt.Errorf("mouse drag failed: %w", err)
	}
	g.syncCursor(ctx, end)
	return nil
}

func (g *Gateway) scroll(ctx context.Context, cmd schemas.Command) error {
	wheel := input.DispatchMouseEvent(input.MouseWheel, float64(cmd.Point.X), float64(cmd.Point.Y)).
		WithDeltaX(cmd.DeltaX).
		WithDeltaY(cmd.DeltaY).
		WithModifiers(modifierMask(cmd.Keys))
	if err := g.run(ctx, inputTimeout, wheel); err != nil {
		return fmt.Errorf("scroll failed: %w", err)
	}
	return nil
}

// pressKeys presses the chord in order, holds it, and releases in reverse.
func (g *Gateway) pressKeys(ctx context.Context, keys []string, hold time.Duration) error {
	if len(keys) == 0 {
		return fmt.Errorf("press_key needs at least one key")
	}

	mods := modifierMask(keys)
	var actions []chromedp.Action
	for _, k := range keys {
		actions = append(actions, input.DispatchKeyEvent(input.KeyDown).
			WithModifiers(mods).
			WithKey(k))
	}
	if hold > 0 {
		actions = append(actions, chromedp.Sleep(hold))
	}
	for i := len(keys) - 1; i >= 0; i-- {
		actions = append(actions, input.DispatchKeyEvent(input.KeyUp).
			WithModifiers(mods).
			WithKey(keys[i]))
	}

	if err := g.run(ctx, hold+inputTimeout, actions...); err != nil {
		return fmt.Errorf("key press failed: %w", err)
	}
	return nil
}

func (g *Gateway) typeText(ctx context.Context, text string, delay time.Duration) error {
	if text == "" {
		return nil
	}
	var actions []chromedp.Action
	for _, r := range text {
		actions = append(actions, chromedp.KeyEvent(string(r)))
		if delay > 0 {
			actions = append(actions, chromedp.Sleep(delay))
		}
	}
	timeout := inputTimeout + time.Duration(len(text))*delay
	if err := g.run(ctx, timeout, actions...); err != nil {
		return fmt.Errorf("typing failed: %w", err)
	}
	return nil
}

func (g *Gateway) navigate(ctx context.Context, url string) error {
	if err := g.blocklist.Check(url); err != nil {
		return err
	}
	if err := g.run(ctx, navigateTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %q failed: %w", url, err)
	}
	return nil
}

// syncCursor best-effort updates the overlay dot. Failures are logged and
// ignored.
func (g *Gateway) syncCursor(ctx context.Context, p schemas.Point) {
	if !g.showCursor {
		return
	}
	script := fmt.Sprintf(cursorScript, p.X, p.Y)
	err := g.run(ctx, inputTimeout, chromedp.Evaluate(script, nil, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithSilent(true)
	}))
	if err != nil {
		g.logger.Debug("Cursor overlay update failed.", zap.Error(err))
	}
}

// modifierMask converts modifier key names in a chord to the CDP bitmask.
func modifierMask(keys []string) input.Modifier {
	var mods input.Modifier
	for _, k := range keys {
		switch k {
		case "Alt":
			mods |= input.ModifierAlt
		case "Control":
			mods |= input.ModifierCtrl
		case "Meta":
			mods |= input.ModifierMeta
		case "Shift":
			mods |= input.ModifierShift
		}
	}
	return mods
}
