package verify_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ahrdadan/i18ncheck/internal/browser"
	"github.com/ahrdadan/i18ncheck/internal/config"
	"github.com/ahrdadan/i18ncheck/internal/fixture"
	"github.com/ahrdadan/i18ncheck/internal/verify"
)

func startChrome(t *testing.T) *browser.ChromeManager {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}

	bin := os.Getenv("CHROME_BIN")
	if bin == "" {
		path, found := launcher.LookPath()
		if !found {
			t.Skip("no Chrome/Chromium executable available")
		}
		bin = path
	}

	m := browser.NewChromeManager(browser.ChromeOptions{
		Bin:       bin,
		Headless:  true,
		NoSandbox: true,
		Width:     1024,
		Height:    768,
	}, zaptest.NewLogger(t))
	require.NoError(t, m.Start())
	t.Cleanup(func() { _ = m.Stop() })
	return m
}

func startFixture(t *testing.T, opts fixture.Options) string {
	t.Helper()
	app, err := fixture.New(opts)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = fixture.Serve(ctx, app, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return "http://" + ln.Addr().String() + "/"
}

func runAgainst(t *testing.T, chrome *browser.ChromeManager, opts fixture.Options, dir string) (*verify.Verifier, error) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BaseURL = startFixture(t, opts)
	cfg.Artifacts.Dir = dir
	cfg.Timeouts.Ready = 10 * time.Second
	cfg.Timeouts.Action = 2 * time.Second

	v := verify.NewVerifier(verify.PlanFromConfig(cfg), verify.WithLogger(zaptest.NewLogger(t)))
	err := browser.WithSession(context.Background(), chrome, browser.SessionOptions{
		NavigationTimeout: cfg.Timeouts.Navigation,
		ActionTimeout:     cfg.Timeouts.Action,
		IdleWindow:        cfg.Timeouts.NetworkIdle,
	}, zaptest.NewLogger(t), func(s *browser.Session) error {
		return v.Run(context.Background(), s)
	})
	return v, err
}

func TestVerificationAgainstFixture(t *testing.T) {
	chrome := startChrome(t)

	t.Run("empty catalogue", func(t *testing.T) {
		dir := t.TempDir()
		v, err := runAgainst(t, chrome, fixture.Options{}, dir)
		require.NoError(t, err)
		assert.Len(t, v.Artifacts(), 2)
	})

	t.Run("seeded catalogue", func(t *testing.T) {
		v, err := runAgainst(t, chrome, fixture.Options{SeedItems: 5, Latency: 50 * time.Millisecond}, t.TempDir())
		require.NoError(t, err)
		assert.Len(t, v.Artifacts(), 2)
	})

	t.Run("artifacts are overwritten", func(t *testing.T) {
		dir := t.TempDir()
		_, err := runAgainst(t, chrome, fixture.Options{}, dir)
		require.NoError(t, err)
		_, err = runAgainst(t, chrome, fixture.Options{SeedItems: 2}, dir)
		require.NoError(t, err)

		fs := afero.NewOsFs()
		for _, name := range []string{"verification_ja.png", "verification_en.png"} {
			info, err := fs.Stat(filepath.Join(dir, name))
			require.NoError(t, err)
			assert.Positive(t, info.Size())
		}
	})

	t.Run("missing switcher", func(t *testing.T) {
		_, err := runAgainst(t, chrome, fixture.Options{DisableSwitcher: true}, t.TempDir())

		var stepErr *verify.StepError
		require.ErrorAs(t, err, &stepErr)
		assert.Equal(t, 5, stepErr.Step)
		assert.ErrorIs(t, err, browser.ErrElementNotFound)
	})
}

func TestVerificationUnreachableTarget(t *testing.T) {
	chrome := startChrome(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	url := "http://" + ln.Addr().String() + "/"
	require.NoError(t, ln.Close())

	cfg := config.DefaultConfig()
	cfg.BaseURL = url
	cfg.Artifacts.Dir = t.TempDir()

	err = browser.WithSession(context.Background(), chrome, browser.SessionOptions{}, zaptest.NewLogger(t), func(s *browser.Session) error {
		return verify.NewVerifier(verify.PlanFromConfig(cfg)).Run(context.Background(), s)
	})

	var stepErr *verify.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Step)
	assert.ErrorIs(t, err, browser.ErrNavigation)

	entries, err := os.ReadDir(cfg.Artifacts.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
