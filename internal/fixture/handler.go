package fixture

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ErrorHandler is the custom error handler for Fiber
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(Response{
		Success: false,
		Error:   err.Error(),
	})
}

// Handler handles storefront requests
type Handler struct {
	opts Options
}

// NewHandler creates a new handler
func NewHandler(opts Options) *Handler {
	return &Handler{opts: opts}
}

// HealthCheck returns health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(Response{
		Success: true,
		Data: map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// Index serves the client-rendered storefront page
func (h *Handler) Index(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(indexHTML)
}

// LanguageOption is one entry of the language selector.
type LanguageOption struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Languages describes the selector the page should render
func (h *Handler) Languages(c *fiber.Ctx) error {
	options := make([]LanguageOption, 0, len(catalog))
	for _, code := range Languages() {
		options = append(options, LanguageOption{Code: code, Label: catalog[code].Label})
	}

	return c.JSON(Response{
		Success: true,
		Data: map[string]interface{}{
			"default":   h.opts.DefaultLang,
			"switcher":  !h.opts.DisableSwitcher,
			"languages": options,
		},
	})
}

// Messages returns the UI strings of a language
func (h *Handler) Messages(c *fiber.Ctx) error {
	lang := c.Params("lang")
	m, ok := MessagesFor(lang)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "Unknown language: "+lang)
	}

	return c.JSON(Response{
		Success: true,
		Data:    m,
	})
}

// Products returns the seeded products with names in the requested language
func (h *Handler) Products(c *fiber.Ctx) error {
	lang := c.Query("lang", h.opts.DefaultLang)
	if _, ok := MessagesFor(lang); !ok {
		return fiber.NewError(fiber.StatusBadRequest, "Unknown language: "+lang)
	}

	return c.JSON(Response{
		Success: true,
		Data:    seedProducts(h.opts.SeedItems, lang),
	})
}
