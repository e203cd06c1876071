package watcher

import (
	"context"
	"errors"
	"fsblock/internal/util/logger/sl"
	"io"
	"io/fs"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Readiness is the outcome of waiting on a ReadinessGate.
type Readiness int

const (
	// Ready means the file was opened for shared read and released again.
	Ready Readiness = iota
	// NotReady means every attempt failed (locked, access denied).
	NotReady
	// Missing means the file does not exist; retrying cannot help.
	Missing
	// Cancelled means the context ended before the file became readable.
	Cancelled
)

func (r Readiness) String() string {
	switch r {
	case Ready:
		return "ready"
	case NotReady:
		return "not ready"
	case Missing:
		return "missing"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ReadinessGate waits until a file can be opened for shared read access,
// giving up after a bounded number of attempts.
type ReadinessGate struct {
	attempts int
	delay    time.Duration
	open     func(path string) (io.Closer, error)
	logger   *slog.Logger
}

func NewReadinessGate(attempts int, delay time.Duration, logger *slog.Logger) *ReadinessGate {
	if attempts <= 0 {
		attempts = DefaultGateAttempts
	}
	if delay < 0 {
		delay = DefaultGateDelay
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ReadinessGate{
		attempts: attempts,
		delay:    delay,
		open:     openShared,
		logger:   logger,
	}
}

// Await tries to open path up to the configured number of attempts, sleeping
// the retry delay between failures. It never returns an error: callers get
// an explicit Readiness and decide themselves whether to proceed.
func (g *ReadinessGate) Await(ctx context.Context, path string) Readiness {
	op := func() error {
		f, err := g.open(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return backoff.Permanent(err)
			}
			return err
		}
		// The handle is released right away; only openability matters.
		_ = f.Close()
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(g.delay), uint64(g.attempts-1)),
		ctx,
	)

	err := backoff.RetryNotify(op, policy, func(err error, next time.Duration) {
		g.logger.Debug("file not readable yet",
			slog.String("path", path),
			slog.Duration("retry_in", next),
			sl.Err(err),
		)
	})

	switch {
	case err == nil:
		return Ready
	case ctx.Err() != nil:
		return Cancelled
	case errors.Is(err, fs.ErrNotExist):
		return Missing
	default:
		return NotReady
	}
}
