package main

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ahrdadan/i18ncheck/internal/config"
	"github.com/ahrdadan/i18ncheck/internal/fixture"
)

func newServeCommand(c *cli) *cobra.Command {
	var selfCheck bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the bundled storefront the check can run against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context(), selfCheck)
		},
	}

	d := config.DefaultConfig()
	f := cmd.Flags()
	f.String("host", d.Fixture.Host, "listen host")
	f.Int("port", d.Fixture.Port, "listen port (0 picks a free port)")
	f.Int("seed-items", d.Fixture.SeedItems, "number of products to list (0 shows the empty state)")
	f.Bool("disable-switcher", d.Fixture.DisableSwitcher, "leave the language selector out of the page")
	f.Duration("latency", d.Fixture.Latency, "delay added to every API response")
	f.BoolVar(&selfCheck, "check", false, "run the check against the served page, then exit")

	return cmd
}

func (c *cli) serve(ctx context.Context, selfCheck bool) error {
	app, err := fixture.New(fixture.OptionsFromConfig(c.cfg, c.logger))
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(c.cfg.Fixture.Host, strconv.Itoa(c.cfg.Fixture.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	url := localURL(ln.Addr())
	c.logger.Info("fixture listening", zap.String("url", url))

	if !selfCheck {
		return fixture.Serve(ctx, app, ln)
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	defer stopServing()

	g.Go(func() error {
		return fixture.Serve(serveCtx, app, ln)
	})
	g.Go(func() error {
		defer stopServing()
		cfg := *c.cfg
		cfg.BaseURL = url
		return runCheck(gctx, &cfg, c.logger)
	})

	return g.Wait()
}

// localURL turns a listener address into a URL a local browser can open.
func localURL(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok {
		return "http://" + addr.String() + "/"
	}
	host := tcp.IP.String()
	if tcp.IP == nil || tcp.IP.IsUnspecified() {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(tcp.Port)) + "/"
}
