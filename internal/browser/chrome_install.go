package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

// ErrNoBrowser is returned by ResolveBin when no executable is available and
// downloading is not allowed.
var ErrNoBrowser = errors.New("no Chrome/Chromium executable found")

// InstallChrome downloads a Chromium build for the current OS/arch and returns its path.
func InstallChrome(ctx context.Context, revision int, logger *zap.Logger) (string, error) {
	downloader := launcher.NewBrowser()
	downloader.Context = ctx
	if revision > 0 {
		downloader.Revision = revision
	}
	if logger != nil {
		downloader.Logger = zap.NewStdLog(logger.Named("chrome-install"))
	}

	path, err := downloader.Get()
	if err != nil {
		return "", fmt.Errorf("failed to download chrome: %w", err)
	}

	return path, nil
}

// ResolveBin picks the browser executable: an explicit path wins, then a
// browser installed on the system, then a download when install is true.
func ResolveBin(ctx context.Context, bin string, install bool, revision int, logger *zap.Logger) (string, error) {
	if bin != "" {
		return bin, nil
	}

	if path, found := launcher.LookPath(); found {
		return path, nil
	}

	if !install {
		return "", fmt.Errorf("%w: pass --chrome-bin, set CHROME_BIN or use --install-chrome", ErrNoBrowser)
	}

	return InstallChrome(ctx, revision, logger)
}
