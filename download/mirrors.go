package download

import (
	"context"
	"errors"
	"time"
)

// attemptFunc tries to finish the download from one mirror. It returns true
// once the resource is complete and verified, false when the transfer ended
// early without an error.
type attemptFunc func(ctx context.Context, url string) (bool, error)

// mirrorPolicy holds the state of one Download call: the mirrors still worth
// trying and the shared retry budget.
type mirrorPolicy struct {
	// urls is kept in reverse priority order and walked from its tail, so a
	// full pass visits mirrors most preferred first.
	urls   []string
	budget int
	delay  time.Duration
	log    Logger
	id     string

	attempts int
	last     error
}

func newMirrorPolicy(urls []string, opts Options, id string) *mirrorPolicy {
	return &mirrorPolicy{
		urls:   reversed(urls),
		budget: opts.RetryBudget,
		delay:  opts.RetryDelay,
		log:    opts.Logger,
		id:     id,
	}
}

// run calls attempt for each mirror in turn until one completes the download,
// the mirrors run out or the budget is spent.
func (p *mirrorPolicy) run(ctx context.Context, attempt attemptFunc) error {
	for len(p.urls) > 0 && p.budget > 0 {
		for i := len(p.urls) - 1; i >= 0 && p.budget > 0; i-- {
			p.budget--
			p.attempts++

			url := p.urls[i]

			done, err := attempt(ctx, url)
			if err == nil {
				if done {
					return nil
				}
				p.log.Warn("[%s] download from %s was not completed", p.id, url)
				continue
			}

			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			var ae *AttemptError
			if !errors.As(err, &ae) {
				return err
			}

			p.last = err
			p.log.Warn("[%s] attempt %d failed: %v", p.id, p.attempts, err)

			if ae.Kind.DropsMirror() {
				// the walk continues at i-1, which removal does not shift
				p.urls = removeAt(p.urls, i)
				p.log.Info("[%s] mirror %s removed, %d left", p.id, url, len(p.urls))
			}
		}

		if len(p.urls) == 0 || p.budget <= 0 {
			break
		}

		p.log.Info("[%s] waiting %s before trying again...", p.id, p.delay)
		if err := sleep(ctx, p.delay); err != nil {
			return err
		}
	}

	if p.budget <= 0 {
		return &ResourceError{Err: ErrTooManyRetries, Attempts: p.attempts, Last: p.last}
	}

	return &ResourceError{Err: ErrNoRemainingMirrors, Attempts: p.attempts, Last: p.last}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
