package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ahrdadan/i18ncheck/internal/browser"
)

// Waiter waits for a locator to become visible.
type Waiter interface {
	WaitVisible(ctx context.Context, loc browser.Locator) error
}

// WaitAny races one wait per locator within ctx and returns the first locator
// that became visible. The losing waits are cancelled and have returned by the
// time WaitAny does.
func WaitAny(ctx context.Context, w Waiter, locs ...browser.Locator) (browser.Locator, error) {
	switch len(locs) {
	case 0:
		return browser.Locator{}, errors.New("no locators to wait for")
	case 1:
		return locs[0], w.WaitVisible(ctx, locs[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		loc browser.Locator
		err error
	}
	results := make(chan result, len(locs))

	var wg sync.WaitGroup
	for _, loc := range locs {
		wg.Add(1)
		go func(loc browser.Locator) {
			defer wg.Done()
			results <- result{loc: loc, err: w.WaitVisible(ctx, loc)}
		}(loc)
	}

	var (
		winner *browser.Locator
		errs   []error
	)
	for range locs {
		r := <-results
		if r.err == nil {
			winner = &r.loc
			cancel()
			break
		}
		errs = append(errs, r.err)
	}
	wg.Wait()

	if winner != nil {
		return *winner, nil
	}

	allTimedOut := true
	for _, err := range errs {
		if !errors.Is(err, browser.ErrTimeout) {
			allTimedOut = false
			break
		}
	}
	if allTimedOut {
		return browser.Locator{}, fmt.Errorf("%w: none of %s became visible", browser.ErrTimeout, describe(locs))
	}
	return browser.Locator{}, errors.Join(errs...)
}

func describe(locs []browser.Locator) string {
	parts := make([]string, len(locs))
	for i, loc := range locs {
		parts[i] = loc.String()
	}
	return strings.Join(parts, " | ")
}
