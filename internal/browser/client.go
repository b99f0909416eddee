package browser

import (
	"context"

	"github.com/go-rod/rod"
)

// Client defines the browser operations a verification session needs.
type Client interface {
	IsRunning() bool
	GetEndpoint() string
	NewPage(ctx context.Context) (*rod.Page, error)
}
