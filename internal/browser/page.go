package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// SessionOptions tunes the waits performed by a Session.
type SessionOptions struct {
	NavigationTimeout time.Duration
	ActionTimeout     time.Duration
	// IdleWindow is how long the network must stay quiet to count as idle.
	IdleWindow   time.Duration
	PollInterval time.Duration
}

// DefaultSessionOptions returns default session options
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		NavigationTimeout: 30 * time.Second,
		ActionTimeout:     30 * time.Second,
		IdleWindow:        500 * time.Millisecond,
		PollInterval:      100 * time.Millisecond,
	}
}

// Long-lived connections never finish loading and would keep the page busy forever.
var idleExcludedTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeWebSocket,
	proto.NetworkResourceTypeEventSource,
}

// Session drives one page. It is owned by a single run and is not safe for
// concurrent actions, except WaitVisible which may race against itself.
type Session struct {
	page   *rod.Page
	opts   SessionOptions
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	pending *idleWaiter
	closed  bool
}

// Open acquires a fresh page from client. The caller must Close the session.
func Open(ctx context.Context, client Client, opts SessionOptions, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultSessionOptions()
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = defaults.NavigationTimeout
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaults.ActionTimeout
	}
	if opts.IdleWindow <= 0 {
		opts.IdleWindow = defaults.IdleWindow
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}

	// The page outlives cancellation of ctx so Close can always release it.
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	page, err := client.NewPage(sctx)
	if err != nil {
		cancel()
		return nil, err
	}

	return &Session{
		page:   page,
		opts:   opts,
		logger: logger.Named("session"),
		ctx:    sctx,
		cancel: cancel,
	}, nil
}

// WithSession opens a session, runs fn and closes the session on every exit
// path. A close failure is reported only when fn succeeded.
func WithSession(ctx context.Context, client Client, opts SessionOptions, logger *zap.Logger, fn func(*Session) error) (err error) {
	s, err := Open(ctx, client, opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(s)
}

// Close releases the page. Calling it more than once is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending != nil {
		pending.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.page.Context(ctx).Close()
	s.cancel()
	if err != nil {
		return fmt.Errorf("failed to close page: %w", err)
	}
	return nil
}

// Navigate loads url and waits until the network is idle. Unreachable targets
// and error responses for the document fail with ErrNavigation.
func (s *Session) Navigate(ctx context.Context, url string) error {
	ctx, cancel := withTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	s.dropPending()
	page := s.page.Context(ctx)

	var status atomic.Int64
	go page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		status.Store(int64(e.Response.Status))
		return true
	})()

	idle := page.WaitRequestIdle(s.opts.IdleWindow, nil, nil, idleExcludedTypes)

	if err := page.Navigate(url); err != nil {
		if parentDone(ctx) {
			return ctx.Err()
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s did not respond", ErrTimeout, url)
		}
		return fmt.Errorf("%w: failed to navigate to %s: %v", ErrNavigation, url, err)
	}

	idle()

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s did not reach network idle", ErrTimeout, url)
		}
		return err
	}

	if code := status.Load(); code >= 400 {
		return fmt.Errorf("%w: %s responded with HTTP %d", ErrNavigation, url, code)
	}

	s.logger.Debug("navigation settled", zap.String("url", url), zap.Int64("status", status.Load()))
	return nil
}

// WaitVisible blocks until an element matching loc is visible. It fails with
// ErrTimeout when ctx reaches its deadline first.
func (s *Session) WaitVisible(ctx context.Context, loc Locator) error {
	if err := loc.Validate(); err != nil {
		return err
	}

	if _, err := s.waitFor(ctx, loc); err != nil {
		return err
	}
	return nil
}

// Text returns the text content of the first visible element matching loc.
func (s *Session) Text(ctx context.Context, loc Locator) (string, error) {
	if err := loc.Validate(); err != nil {
		return "", err
	}

	ctx, cancel := withTimeout(ctx, s.opts.ActionTimeout)
	defer cancel()

	el, err := s.waitFor(ctx, loc)
	if err != nil {
		return "", err
	}

	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("failed to read text of %s: %w", loc, err)
	}
	return text, nil
}

// SelectOption picks the option whose value (or label) equals value in the
// select-like control matched by loc. A missing control or option fails with
// ErrElementNotFound. Requests triggered by the change are tracked by the next
// WaitNetworkIdle call.
func (s *Session) SelectOption(ctx context.Context, loc Locator, value string) error {
	if err := loc.Validate(); err != nil {
		return err
	}

	actx, cancel := withTimeout(ctx, s.opts.ActionTimeout)
	defer cancel()

	el, err := s.waitFor(actx, loc)
	if err != nil {
		if parentDone(ctx) {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s", ErrElementNotFound, loc)
	}

	waiter := s.armIdle()
	res, err := el.Eval(selectJS, value)
	if err != nil {
		waiter.cancel()
		return fmt.Errorf("failed to select %q in %s: %w", value, loc, err)
	}
	if !res.Value.Bool() {
		waiter.cancel()
		return fmt.Errorf("%w: option %q in %s", ErrElementNotFound, value, loc)
	}

	s.setPending(waiter)
	return nil
}

// WaitNetworkIdle waits until no request has been in flight for the idle
// window, counting requests started since the previous action.
func (s *Session) WaitNetworkIdle(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	w := s.takePending()
	if w == nil {
		w = s.armIdle()
	}

	if err := w.wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: network did not become idle", ErrTimeout)
		}
		return err
	}
	if s.ctx.Err() != nil {
		return errors.New("session closed while waiting for network idle")
	}
	return nil
}

// Screenshot captures the viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	data, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return data, nil
}

func (s *Session) waitFor(ctx context.Context, loc Locator) (*rod.Element, error) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		el, err := s.page.Context(ctx).Sleeper(rod.NotFoundSleeper).
			ElementByJS(rod.Eval(locatorJS, loc.Role, loc.Name, loc.Text, loc.Exact))
		if err == nil {
			return el, nil
		}

		// Evaluation errors while the page re-renders are retried like misses.
		var notFound *rod.ElementNotFoundError
		if !errors.As(err, &notFound) {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				if lastErr != nil {
					return nil, fmt.Errorf("%w: %s not visible (last error: %v)", ErrTimeout, loc, lastErr)
				}
				return nil, fmt.Errorf("%w: %s not visible", ErrTimeout, loc)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

type idleWaiter struct {
	run    func()
	cancel context.CancelFunc
}

// armIdle subscribes to network events now so requests started before wait
// is called are still counted.
func (s *Session) armIdle() *idleWaiter {
	ctx, cancel := context.WithCancel(s.ctx)
	run := s.page.Context(ctx).WaitRequestIdle(s.opts.IdleWindow, nil, nil, idleExcludedTypes)
	return &idleWaiter{run: run, cancel: cancel}
}

func (w *idleWaiter) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.run()
	}()

	select {
	case <-done:
		w.cancel()
		return nil
	case <-ctx.Done():
		w.cancel()
		<-done
		return ctx.Err()
	}
}

func (s *Session) setPending(w *idleWaiter) {
	s.mu.Lock()
	prev := s.pending
	s.pending = w
	s.mu.Unlock()
	if prev != nil {
		prev.cancel()
	}
}

func (s *Session) takePending() *idleWaiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.pending
	s.pending = nil
	return w
}

func (s *Session) dropPending() {
	if w := s.takePending(); w != nil {
		w.cancel()
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// parentDone reports whether ctx ended for a reason other than its own
// deadline, e.g. the run being interrupted.
func parentDone(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}
