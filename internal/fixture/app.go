package fixture

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ahrdadan/i18ncheck/internal/config"
)

//go:embed static/index.html
var indexHTML []byte

// Options controls the storefront's behaviour
type Options struct {
	// DefaultLang is the language rendered on load.
	DefaultLang string
	// SeedItems is the number of products; zero shows the empty-state message.
	SeedItems int
	// DisableSwitcher omits the language selector from the page.
	DisableSwitcher bool
	// Latency delays every API response.
	Latency time.Duration
	Logger  *zap.Logger
}

// OptionsFromConfig maps the fixture section of cfg to Options.
func OptionsFromConfig(cfg *config.Config, logger *zap.Logger) Options {
	return Options{
		DefaultLang:     cfg.Languages.Default,
		SeedItems:       cfg.Fixture.SeedItems,
		DisableSwitcher: cfg.Fixture.DisableSwitcher,
		Latency:         cfg.Fixture.Latency,
		Logger:          logger,
	}
}

// New creates the storefront Fiber app
func New(opts Options) (*fiber.App, error) {
	if opts.DefaultLang == "" {
		opts.DefaultLang = "ja"
	}
	if _, ok := MessagesFor(opts.DefaultLang); !ok {
		return nil, fmt.Errorf("fixture has no messages for language %q (have %v)", opts.DefaultLang, Languages())
	}
	if opts.SeedItems < 0 {
		opts.SeedItems = 0
	}

	app := fiber.New(fiber.Config{
		AppName:               config.AppName + " fixture",
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(recover.New())
	if opts.Logger != nil {
		app.Use(logger.New(logger.Config{
			Output: zap.NewStdLog(opts.Logger.Named("fixture")).Writer(),
			Format: "${status} - ${method} ${path} ${latency}\n",
		}))
	}
	app.Use(cors.New())
	app.Use(HeadersMiddleware())

	SetupRoutes(app, NewHandler(opts), opts.Latency)
	return app, nil
}

// SetupRoutes configures the storefront routes
func SetupRoutes(app *fiber.App, handler *Handler, latency time.Duration) {
	app.Get("/health", handler.HealthCheck)
	app.Get("/", handler.Index)

	api := app.Group("/api")
	if latency > 0 {
		api.Use(func(c *fiber.Ctx) error {
			time.Sleep(latency)
			return c.Next()
		})
	}
	api.Get("/languages", handler.Languages)
	api.Get("/messages/:lang", handler.Messages)
	api.Get("/products", handler.Products)
}

// Serve runs app on ln until ctx is cancelled, then shuts it down.
func Serve(ctx context.Context, app *fiber.App, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down fixture: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
