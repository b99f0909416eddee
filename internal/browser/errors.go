package browser

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Failure kinds of a browser session. Returned errors wrap exactly one of these.
var (
	// ErrNavigation means the target could not be reached or failed to load.
	ErrNavigation = errors.New("navigation failed")
	// ErrTimeout means an expected page state was not reached in time.
	ErrTimeout = errors.New("timed out")
	// ErrElementNotFound means an interactive control is absent from the page.
	ErrElementNotFound = errors.New("element not found")
)

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "eof")
}
