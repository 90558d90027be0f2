package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Remote fetches a link and executes its body. Every call is checked
// against Policy first; a link that is not "@<url>" or http(s) is logged
// and skipped.
type Remote struct {
	Policy   Policy
	Fetcher  Fetcher  // nil uses an HTTPFetcher
	Executor Executor // required
	Logger   *slog.Logger
}

// NewRemote returns a Remote using HTTP fetching and the given executor.
func NewRemote(p Policy, exec Executor, logger *slog.Logger) *Remote {
	return &Remote{
		Policy:   p,
		Fetcher:  &HTTPFetcher{UserAgent: "atff-link/1"},
		Executor: exec,
		Logger:   logger,
	}
}

// Resolve fetches and executes link. Failures are logged and returned;
// whether they are fatal is up to the caller.
func (r *Remote) Resolve(ctx context.Context, link string) error {
	log := r.logger().With("run", uuid.NewString(), "link", link)

	target, ok := Target(link)
	if !ok {
		log.WarnContext(ctx, "skipping invalid link (must be @url or http(s)://)")
		return nil
	}

	u, err := r.Policy.Check(target)
	if err != nil {
		log.ErrorContext(ctx, "link rejected", "error", err)
		return err
	}

	if r.Policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Policy.Timeout)
		defer cancel()
	}

	log.InfoContext(ctx, "fetching link", "url", u.String())
	code, err := r.fetch(ctx, u, log)
	if err != nil {
		log.ErrorContext(ctx, "link fetch failed", "error", err)
		return fmt.Errorf("fetch %s: %w", u, err)
	}

	if r.Executor == nil {
		return fmt.Errorf("execute %s: %w", u, ErrNoCommand)
	}
	name := "atff_dep_" + path.Base(u.Path)
	log.InfoContext(ctx, "executing link", "name", name, "bytes", len(code))
	if err := r.Executor.Execute(ctx, name, code); err != nil {
		log.ErrorContext(ctx, "link execution failed", "error", err)
		return fmt.Errorf("execute %s: %w", u, err)
	}
	return nil
}

// fetch retrieves u, retrying temporary failures up to Policy.Retries
// times with exponential backoff.
func (r *Remote) fetch(ctx context.Context, u *url.URL, log *slog.Logger) ([]byte, error) {
	fetcher := r.Fetcher
	if fetcher == nil {
		fetcher = &HTTPFetcher{}
	}
	if r.Policy.Retries <= 0 {
		return fetcher.Fetch(ctx, u, r.Policy.maxBytes())
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.Policy.retryWait()
	b.MaxInterval = 30 * b.InitialInterval
	b.MaxElapsedTime = 0
	b.Reset()

	op := func() ([]byte, error) {
		body, err := fetcher.Fetch(ctx, u, r.Policy.maxBytes())
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}
	notify := func(err error, wait time.Duration) {
		log.WarnContext(ctx, "link fetch failed, retrying", "error", err, "wait", wait)
	}
	return backoff.RetryNotifyWithData(op,
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.Policy.Retries)), ctx),
		notify)
}

func retryable(err error) bool {
	if errors.Is(err, ErrTooLarge) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

func (r *Remote) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}
