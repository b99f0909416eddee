package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ahrdadan/i18ncheck/internal/config"
	"github.com/ahrdadan/i18ncheck/internal/logging"
)

// cli carries the state shared by every command of one invocation.
type cli struct {
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

// rootCommand builds the command tree. Running it without a subcommand
// performs the check.
func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Verify a web page switches its UI language correctly",
		Long: `i18ncheck opens the target page in Chrome, waits for the default-language
content, switches the language selector to the alternate language and checks
the heading follows. A screenshot is saved for each language.`,
		Version:           config.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.check(cmd.Context())
		},
	}
	root.SetVersionTemplate(`{{printf "%s v%s\n" .Name .Version}}`)

	d := config.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringVarP(&c.configFile, "config", "c", "", "config file (default is ./"+config.AppName+".yaml)")
	pf.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
	pf.String("log-format", d.Log.Format, "log format (console or json)")

	pf.String("base-url", d.BaseURL, "URL of the page to verify")
	pf.String("default-lang", d.Languages.Default, "language code shown on load")
	pf.String("default-heading", d.Languages.DefaultHeading, "heading expected in the default language")
	pf.String("empty-message", d.Languages.EmptyMessage, "empty-state message expected in the default language")
	pf.String("alt-lang", d.Languages.Alternate, "language code to switch to")
	pf.String("alt-heading", d.Languages.AltHeading, "heading expected after switching")
	pf.Bool("exact", d.Languages.ExactMatch, "require exact, case-sensitive text matches")

	pf.Duration("ready-timeout", d.Timeouts.Ready, "time allowed for the default-language content to appear")
	pf.Duration("assert-timeout", d.Timeouts.Assert, "time allowed for each heading assertion")
	pf.Duration("action-timeout", d.Timeouts.Action, "time allowed to find the language selector")
	pf.Duration("nav-timeout", d.Timeouts.Navigation, "time allowed for navigation and network idle")
	pf.Duration("idle-window", d.Timeouts.NetworkIdle, "quiet period that counts as network idle")
	pf.Duration("run-timeout", d.Timeouts.Run, "time allowed for the whole run (0 disables)")

	pf.String("chrome-bin", d.Browser.Bin, "Chrome/Chromium executable (also CHROME_BIN)")
	pf.String("browser-url", d.Browser.RemoteURL, "connect to a running browser instead of launching one")
	pf.Bool("headless", d.Browser.Headless, "run the browser headless")
	pf.Bool("no-sandbox", d.Browser.NoSandbox, "disable the Chrome sandbox (containers)")
	pf.Bool("install-chrome", d.Browser.InstallChrome, "download Chromium when no browser is installed")
	pf.Int("chrome-revision", d.Browser.ChromeRevision, "Chromium revision to download (0 for rod's default)")

	pf.String("artifact-dir", d.Artifacts.Dir, "directory screenshots are written to")
	pf.String("nats-url", d.Nats.URL, "publish run events to this NATS server")
	pf.String("nats-subject", d.Nats.SubjectPrefix, "subject prefix for run events")

	root.AddCommand(newCheckCommand(c), newServeCommand(c), newVersionCommand())
	return root
}

func (c *cli) setup(cmd *cobra.Command, args []string) error {
	v, err := config.New(c.configFile)
	if err != nil {
		return err
	}
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewWithWriter(cfg.Log, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = logger
	logger.Debug("configuration loaded", zap.String("base_url", cfg.BaseURL), zap.String("version", config.Version))
	return nil
}

// Execute runs the CLI with args and reports a failure once: through the
// logger when setup got that far, on stderr otherwise.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{}
	root := c.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if c.logger != nil {
		defer func() { _ = c.logger.Sync() }()
	}
	if err == nil {
		return nil
	}

	if c.logger != nil {
		c.logger.Error("command failed", zap.Error(err))
	} else {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return err
}
