package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ChromeOptions controls how the Chrome instance is obtained.
type ChromeOptions struct {
	// Bin is the browser executable. Ignored when RemoteURL is set.
	Bin string
	// RemoteURL connects to an already running browser (ws:// or http://host:port).
	RemoteURL string
	Headless  bool
	NoSandbox bool
	Width     int
	Height    int
}

// ChromeManager manages a Chromium/Chrome instance launched by rod.
type ChromeManager struct {
	opts      ChromeOptions
	logger    *zap.Logger
	mu        sync.Mutex
	restartMu sync.Mutex
	launcher  *launcher.Launcher
	browser   *rod.Browser
	wsURL     string
	running   bool
}

// NewChromeManager creates a new Chrome manager.
func NewChromeManager(opts ChromeOptions, logger *zap.Logger) *ChromeManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromeManager{
		opts:   opts,
		logger: logger.Named("chrome"),
	}
}

// Start launches Chrome (or resolves the remote endpoint) and connects via CDP.
func (m *ChromeManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	var l *launcher.Launcher
	wsURL := m.opts.RemoteURL
	if wsURL != "" {
		resolved, err := launcher.ResolveURL(wsURL)
		if err != nil {
			return fmt.Errorf("failed to resolve browser url %s: %w", wsURL, err)
		}
		wsURL = resolved
	} else {
		l = m.newLauncher()
		launched, err := l.Launch()
		if err != nil {
			return fmt.Errorf("failed to launch chrome: %w", err)
		}
		wsURL = launched
	}

	browser := rod.New().ControlURL(wsURL).NoDefaultDevice()
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
			l.Cleanup()
		}
		return fmt.Errorf("failed to connect to chrome: %w", err)
	}

	m.launcher = l
	m.browser = browser
	m.wsURL = wsURL
	m.running = true

	m.logger.Info("Chrome started", zap.String("endpoint", wsURL), zap.Bool("remote", l == nil))
	return nil
}

func (m *ChromeManager) newLauncher() *launcher.Launcher {
	l := launcher.New().Headless(m.opts.Headless)
	if m.opts.Bin != "" {
		l = l.Bin(m.opts.Bin)
	}
	if m.opts.NoSandbox {
		l = l.NoSandbox(true).Set("disable-dev-shm-usage")
	}
	if m.opts.Width > 0 && m.opts.Height > 0 {
		l = l.Set("window-size", fmt.Sprintf("%d,%d", m.opts.Width, m.opts.Height))
	}
	return l
}

// Stop closes the browser. A launched process is killed and its profile
// directory removed; a remote browser is only disconnected.
func (m *ChromeManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	if m.browser != nil {
		if m.launcher != nil {
			if err := m.browser.Close(); err != nil {
				m.logger.Warn("failed to close chrome", zap.Error(err))
			}
		}
	}

	if m.launcher != nil {
		m.launcher.Kill()
		m.launcher.Cleanup()
	}

	m.launcher = nil
	m.browser = nil
	m.wsURL = ""
	m.running = false

	m.logger.Info("Chrome stopped")
	return nil
}

// IsRunning reports whether Chrome is running.
func (m *ChromeManager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// GetEndpoint returns the Chrome DevTools endpoint.
func (m *ChromeManager) GetEndpoint() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wsURL
}

// NewPage creates a new blank page.
func (m *ChromeManager) NewPage(ctx context.Context) (*rod.Page, error) {
	if err := m.ensureStarted(); err != nil {
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	page, err := m.currentBrowser().Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		if !isConnectionError(err) {
			return nil, fmt.Errorf("failed to create new page: %w", err)
		}

		if restartErr := m.restartBrowser(); restartErr != nil {
			return nil, fmt.Errorf("failed to restart chrome after connection error: %w", restartErr)
		}

		page, err = m.currentBrowser().Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			return nil, fmt.Errorf("failed to create new page: %w", err)
		}
	}

	if m.opts.Width > 0 && m.opts.Height > 0 {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             m.opts.Width,
			Height:            m.opts.Height,
			DeviceScaleFactor: 1,
		}); err != nil {
			_ = page.Close()
			return nil, fmt.Errorf("failed to set viewport: %w", err)
		}
	}

	return page, nil
}

func (m *ChromeManager) currentBrowser() *rod.Browser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser
}

func (m *ChromeManager) ensureStarted() error {
	if m.IsRunning() {
		return nil
	}

	m.restartMu.Lock()
	defer m.restartMu.Unlock()

	if m.IsRunning() {
		return nil
	}

	return m.Start()
}

func (m *ChromeManager) restartBrowser() error {
	m.restartMu.Lock()
	defer m.restartMu.Unlock()

	if err := m.Stop(); err != nil {
		m.logger.Warn("failed to stop chrome before restart", zap.Error(err))
	}

	return m.Start()
}
