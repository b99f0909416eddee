package verify

import (
	"time"

	"github.com/ahrdadan/i18ncheck/internal/browser"
	"github.com/ahrdadan/i18ncheck/internal/config"
)

// Checkpoint is a named condition over page state. With several locators it
// holds as soon as any one of them is visible.
type Checkpoint struct {
	Description string
	AnyOf       []browser.Locator
	Timeout     time.Duration
}

// Plan is the language-specific data a run checks.
type Plan struct {
	BaseURL string

	DefaultLang    string
	DefaultHeading string
	EmptyMessage   string
	AltLang        string
	AltHeading     string
	Exact          bool

	// Switcher locates the language selector.
	Switcher browser.Locator

	ReadyTimeout  time.Duration
	AssertTimeout time.Duration

	DefaultArtifact string
	AltArtifact     string
}

// PlanFromConfig builds the plan described by cfg.
func PlanFromConfig(cfg *config.Config) Plan {
	return Plan{
		BaseURL:         cfg.BaseURL,
		DefaultLang:     cfg.Languages.Default,
		DefaultHeading:  cfg.Languages.DefaultHeading,
		EmptyMessage:    cfg.Languages.EmptyMessage,
		AltLang:         cfg.Languages.Alternate,
		AltHeading:      cfg.Languages.AltHeading,
		Exact:           cfg.Languages.ExactMatch,
		Switcher:        browser.ByRole("combobox", ""),
		ReadyTimeout:    cfg.Timeouts.Ready,
		AssertTimeout:   cfg.Timeouts.Assert,
		DefaultArtifact: cfg.ArtifactPath(cfg.Languages.Default),
		AltArtifact:     cfg.ArtifactPath(cfg.Languages.Alternate),
	}
}

// DefaultPlan returns the plan of the default configuration.
func DefaultPlan() Plan {
	return PlanFromConfig(config.DefaultConfig())
}

// Ready is satisfied by the default heading or, for an empty catalogue, the
// empty-state message.
func (p Plan) Ready() Checkpoint {
	return Checkpoint{
		Description: "default-language heading or empty-state message",
		AnyOf: []browser.Locator{
			browser.ByRole("heading", p.DefaultHeading).WithExact(p.Exact),
			browser.ByText(p.EmptyMessage).WithExact(p.Exact),
		},
		Timeout: p.ReadyTimeout,
	}
}

// DefaultHeadingVisible is satisfied by the default-language heading.
func (p Plan) DefaultHeadingVisible() Checkpoint {
	return Checkpoint{
		Description: "default-language heading",
		AnyOf:       []browser.Locator{browser.ByRole("heading", p.DefaultHeading).WithExact(p.Exact)},
		Timeout:     p.AssertTimeout,
	}
}

// AltHeadingVisible is satisfied by the alternate-language heading.
func (p Plan) AltHeadingVisible() Checkpoint {
	return Checkpoint{
		Description: "alternate-language heading",
		AnyOf:       []browser.Locator{browser.ByRole("heading", p.AltHeading).WithExact(p.Exact)},
		Timeout:     p.AssertTimeout,
	}
}
