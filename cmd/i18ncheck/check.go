package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ahrdadan/i18ncheck/internal/browser"
	"github.com/ahrdadan/i18ncheck/internal/config"
	"github.com/ahrdadan/i18ncheck/internal/events"
	"github.com/ahrdadan/i18ncheck/internal/nats"
	"github.com/ahrdadan/i18ncheck/internal/verify"
)

func newCheckCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the language-switch verification (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.check(cmd.Context())
		},
	}
}

func (c *cli) check(ctx context.Context) error {
	return runCheck(ctx, c.cfg, c.logger)
}

// runCheck launches the browser, runs one verification and tears everything
// down whatever the outcome.
func runCheck(ctx context.Context, cfg *config.Config, logger *zap.Logger) (err error) {
	if cfg.Timeouts.Run > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeouts.Run)
		defer cancel()
	}

	hub := newEventHub(cfg, logger)
	defer func() {
		if closeErr := hub.Close(); closeErr != nil {
			logger.Warn("failed to close event sinks", zap.Error(closeErr))
		}
	}()
	reporter := events.NewReporter(hub)
	logger = logger.With(zap.String("run_id", reporter.RunID()))

	chrome, err := startChrome(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := chrome.Stop(); stopErr != nil {
			logger.Warn("failed to stop chrome", zap.Error(stopErr))
		}
	}()

	reporter.Info("verifying " + cfg.BaseURL)
	v := verify.NewVerifier(verify.PlanFromConfig(cfg),
		verify.WithLogger(logger),
		verify.WithReporter(reporter),
	)

	opts := browser.SessionOptions{
		NavigationTimeout: cfg.Timeouts.Navigation,
		ActionTimeout:     cfg.Timeouts.Action,
		IdleWindow:        cfg.Timeouts.NetworkIdle,
	}
	err = browser.WithSession(ctx, chrome, opts, logger, func(s *browser.Session) error {
		return v.Run(ctx, s)
	})
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	paths := make([]string, 0, len(v.Artifacts()))
	for _, a := range v.Artifacts() {
		paths = append(paths, a.Path)
	}
	logger.Info("verification passed", zap.Strings("artifacts", paths))
	return nil
}

func newEventHub(cfg *config.Config, logger *zap.Logger) *events.Hub {
	hub := events.NewHub(events.NewLogSink(logger))
	if cfg.Nats.URL == "" {
		return hub
	}

	nc, err := nats.Connect(cfg.Nats.URL, config.AppName, logger)
	if err != nil {
		logger.Warn("event publishing disabled", zap.Error(err))
		return hub
	}
	hub.Register(nats.NewSink(nc, cfg.Nats.SubjectPrefix, logger))
	return hub
}

func startChrome(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*browser.ChromeManager, error) {
	opts := browser.ChromeOptions{
		RemoteURL: cfg.Browser.RemoteURL,
		Headless:  cfg.Browser.Headless,
		NoSandbox: cfg.Browser.NoSandbox,
		Width:     cfg.Browser.WindowWidth,
		Height:    cfg.Browser.WindowHeight,
	}

	if opts.RemoteURL == "" {
		bin, err := browser.ResolveBin(ctx, cfg.Browser.Bin, cfg.Browser.InstallChrome, cfg.Browser.ChromeRevision, logger)
		if err != nil {
			return nil, err
		}
		opts.Bin = bin
	}

	chrome := browser.NewChromeManager(opts, logger)
	if err := chrome.Start(); err != nil {
		return nil, err
	}
	logger.Debug("browser ready", zap.String("endpoint", chrome.GetEndpoint()))
	return chrome, nil
}
