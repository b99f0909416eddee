package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/ahrdadan/i18ncheck/internal/browser"
	"github.com/ahrdadan/i18ncheck/internal/events"
)

// Session is the browser capability a run needs.
type Session interface {
	Waiter
	Navigate(ctx context.Context, url string) error
	SelectOption(ctx context.Context, loc browser.Locator, value string) error
	WaitNetworkIdle(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
}

var _ Session = (*browser.Session)(nil)

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithReporter sets where step events go.
func WithReporter(r *events.Reporter) Option {
	return func(v *Verifier) {
		v.reporter = r
	}
}

// WithFs sets the filesystem artifacts are written to.
func WithFs(fs afero.Fs) Option {
	return func(v *Verifier) {
		if fs != nil {
			v.fs = fs
		}
	}
}

// Verifier runs the language-switch verification against one session.
type Verifier struct {
	plan      Plan
	logger    *zap.Logger
	reporter  *events.Reporter
	fs        afero.Fs
	artifacts []Artifact
}

// NewVerifier creates a verifier for plan. Artifacts go to the OS filesystem
// unless WithFs is given.
func NewVerifier(plan Plan, opts ...Option) *Verifier {
	v := &Verifier{
		plan:   plan,
		logger: zap.NewNop(),
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.Named("verify")
	return v
}

type step struct {
	name string
	run  func(ctx context.Context, s Session) error
}

func (v *Verifier) steps() []step {
	p := v.plan
	return []step{
		{"navigate", func(ctx context.Context, s Session) error {
			return s.Navigate(ctx, p.BaseURL)
		}},
		{"wait for default content", func(ctx context.Context, s Session) error {
			return v.await(ctx, s, p.Ready())
		}},
		{"capture " + p.DefaultLang + " screenshot", func(ctx context.Context, s Session) error {
			return v.capture(ctx, s, p.DefaultLang, p.DefaultArtifact)
		}},
		{"assert default heading", func(ctx context.Context, s Session) error {
			return v.await(ctx, s, p.DefaultHeadingVisible())
		}},
		{"select " + p.AltLang, func(ctx context.Context, s Session) error {
			return s.SelectOption(ctx, p.Switcher, p.AltLang)
		}},
		{"wait for network idle", func(ctx context.Context, s Session) error {
			return s.WaitNetworkIdle(ctx)
		}},
		{"assert alternate heading", func(ctx context.Context, s Session) error {
			return v.await(ctx, s, p.AltHeadingVisible())
		}},
		{"capture " + p.AltLang + " screenshot", func(ctx context.Context, s Session) error {
			return v.capture(ctx, s, p.AltLang, p.AltArtifact)
		}},
	}
}

// Run executes every step in order and stops at the first failure, which is
// returned as a *StepError. Artifacts written before the failure stay on disk.
func (v *Verifier) Run(ctx context.Context, s Session) error {
	v.artifacts = nil

	for i, st := range v.steps() {
		n := i + 1
		v.reporter.Started(n, st.name)
		start := time.Now()

		err := st.run(ctx, s)
		took := time.Since(start)
		if err != nil {
			v.reporter.Failed(n, st.name, took, err)
			return &StepError{Step: n, Name: st.name, Err: err}
		}

		v.reporter.Passed(n, st.name, took)
	}

	return nil
}

// Artifacts returns the screenshots written by the last Run.
func (v *Verifier) Artifacts() []Artifact {
	out := make([]Artifact, len(v.artifacts))
	copy(out, v.artifacts)
	return out
}

func (v *Verifier) await(ctx context.Context, s Session, cp Checkpoint) error {
	if cp.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cp.Timeout)
		defer cancel()
	}

	loc, err := WaitAny(ctx, s, cp.AnyOf...)
	if err != nil {
		return fmt.Errorf("%s not visible within %v: %w", cp.Description, cp.Timeout, err)
	}

	v.logger.Debug("checkpoint satisfied",
		zap.String("checkpoint", cp.Description),
		zap.Stringer("by", loc),
	)
	return nil
}

func (v *Verifier) capture(ctx context.Context, s Session, name, path string) error {
	data, err := s.Screenshot(ctx)
	if err != nil {
		return err
	}

	artifact, err := writeArtifact(v.fs, name, path, data)
	if err != nil {
		return err
	}
	v.artifacts = append(v.artifacts, artifact)

	v.logger.Info("screenshot saved",
		zap.String("path", artifact.Path),
		zap.Int("bytes", artifact.Size),
	)
	return nil
}
