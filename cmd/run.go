// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/webpilot-cli/api/schemas"
	"github.com/xkilldash9x/webpilot-cli/internal/agent"
	"github.com/xkilldash9x/webpilot-cli/internal/config"
	"github.com/xkilldash9x/webpilot-cli/internal/coords"
	"github.com/xkilldash9x/webpilot-cli/internal/llmclient"
	"github.com/xkilldash9x/webpilot-cli/internal/observability"
	"github.com/xkilldash9x/webpilot-cli/internal/session"
	"github.com/xkilldash9x/webpilot-cli/internal/translate"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [task...]",
		Short: "Run one or more browser tasks, each in its own remote session",
		Long: `Run provisions a remote browser session per task and lets the model drive
it until the task completes, fails, or the iteration cap is reached. Tasks
come from the arguments, or from WEBPILOT_TASK when no argument is given.`,
		Args: cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			bindings := map[string]string{
				"model.model":           "model",
				"agent.max_iterations":  "max-iterations",
				"agent.start_url":       "start-url",
				"agent.safety_mode":     "safety-mode",
				"session.width":         "width",
				"session.height":        "height",
				"session.use_proxy":     "proxy",
				"session.solve_captcha": "solve-captcha",
				"coordinates.policy":    "coordinate-policy",
			}
			for key, flag := range bindings {
				if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
					return fmt.Errorf("failed to bind flag %q: %w", flag, err)
				}
			}
			return nil
		},
		RunE: runTasks,
	}

	flags := cmd.Flags()
	flags.String("model", "", "model to use (overrides config)")
	flags.Int("max-iterations", 50, "maximum model turns per task")
	flags.String("start-url", "", "page each session opens before the task starts")
	flags.String("safety-mode", "auto", "safety check handling: auto or prompt")
	flags.Int("width", 1024, "session viewport width")
	flags.Int("height", 768, "session viewport height")
	flags.Bool("proxy", false, "route session traffic through the provider proxy")
	flags.Bool("solve-captcha", false, "enable provider captcha solving")
	flags.String("coordinate-policy", "scale", "model coordinate space: scale or normalized")

	return cmd
}

func runTasks(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewConfigFromViper(viper.GetViper())
	if err != nil {
		return err
	}
	logger := observability.GetLogger()

	tasks := args
	if len(tasks) == 0 {
		if t := os.Getenv("WEBPILOT_TASK"); t != "" {
			tasks = []string{t}
		}
	}
	if len(tasks) == 0 {
		return fmt.Errorf("no task given: pass it as an argument or set WEBPILOT_TASK")
	}

	client, err := session.NewClient(cfg.Session, logger)
	if err != nil {
		return err
	}
	transport, err := llmclient.New(cfg.Model, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(cmd.Context())
	results := make([]*agent.Result, len(tasks))
	for i, task := range tasks {
		g.Go(func() error {
			res, err := runOne(gctx, cfg, client, transport, task,
				logger.With(zap.Int("task_index", i)))
			results[i] = res
			return err
		})
	}
	runErr := g.Wait()

	for i, res := range results {
		if res == nil {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n--- Task %d (%s) ---\n%s\n", i+1, res.Reason, res.FinalText)
	}
	if runErr != nil {
		return runErr
	}
	for _, res := range results {
		if res != nil && !res.Success {
			return fmt.Errorf("task did not succeed (%s)", res.Reason)
		}
	}
	return nil
}

// runOne provisions a session, drives the task, and always tears the
// session down, collecting every cleanup failure.
func runOne(ctx context.Context, cfg *config.Config, client *session.Client, transport schemas.ModelTransport, task string, logger *zap.Logger) (res *agent.Result, err error) {
	sess, err := client.CreateSession(ctx, schemas.SessionSpec{
		Viewport:     cfg.Session.Viewport(),
		UseProxy:     cfg.Session.UseProxy,
		SolveCaptcha: cfg.Session.SolveCaptcha,
		BlockAds:     cfg.Session.BlockAds,
		TimeoutMS:    cfg.Session.TimeoutMS,
	})
	if err != nil {
		return nil, err
	}
	if sess.ViewerURL != "" {
		logger.Info("Watch the session live.", zap.String("viewer_url", sess.ViewerURL))
	}

	var gateway *session.Gateway
	defer func() {
		err = errors.Join(err, teardown(gateway, client, sess.ID, logger))
	}()

	blocklist := session.NewBlocklist(cfg.Session.BlockedDomains)
	gateway, err = session.Connect(ctx, sess, blocklist, cfg.Session.ConnectTimeout, cfg.Session.ShowCursor, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Agent.StartURL != "" {
		if err := gateway.Exec(ctx, schemas.Command{Type: schemas.CmdNavigate, Text: cfg.Agent.StartURL}); err != nil {
			return nil, fmt.Errorf("failed to open start URL: %w", err)
		}
	}

	mapper, err := coords.NewMapper(sess.Viewport, coords.Policy(cfg.Coordinates.Policy), cfg.Coordinates.Strict, logger)
	if err != nil {
		return nil, err
	}
	policy, err := agent.NewTerminationPolicy(cfg.Agent.Termination)
	if err != nil {
		return nil, err
	}
	gate, err := agent.NewGate(cfg.Agent.SafetyMode, logger)
	if err != nil {
		return nil, err
	}

	controller, err := agent.NewController(agent.ControllerConfig{
		Transport:     transport,
		Gateway:       gateway,
		Translator:    translate.New(mapper, logger),
		Policy:        policy,
		Gate:          gate,
		Viewport:      sess.Viewport,
		ModelViewport: mapper.ModelViewport(),
		MaxIterations: cfg.Agent.MaxIterations,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	return controller.ExecuteTask(ctx, task)
}

// teardown detaches from the browser and releases the remote session. Both
// steps always run, even when the task context is already canceled.
func teardown(gateway *session.Gateway, client *session.Client, sessionID string, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var errs []error
	if gateway != nil {
		if err := gateway.Close(ctx); err != nil {
			logger.Warn("Failed to detach from browser.", zap.Error(err))
			errs = append(errs, fmt.Errorf("gateway close: %w", err))
		}
	}
	if err := client.ReleaseSession(ctx, sessionID); err != nil {
		logger.Warn("Failed to release session.", zap.Error(err))
		errs = append(errs, fmt.Errorf("session release: %w", err))
	}
	return errors.Join(errs...)
}
