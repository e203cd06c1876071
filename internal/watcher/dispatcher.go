package watcher

import (
	"context"
	"fsblock/internal/command"
	"fsblock/internal/util/logger/sl"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Outcome is the terminal state of one event in the dispatch pipeline.
type Outcome int

const (
	OutcomeDirectory Outcome = iota
	OutcomeIgnored
	OutcomeSuppressed
	OutcomeAnnounced
	OutcomeThrottled
	OutcomeInvoked
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDirectory:
		return "directory"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeAnnounced:
		return "announced"
	case OutcomeThrottled:
		return "throttled"
	case OutcomeInvoked:
		return "invoked"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChangeDispatcher turns raw change events into announcements and command
// invocations. Dispatch is fully serialized: the dedup table, the throttle
// and the command launch are updated as one unit per event.
type ChangeDispatcher struct {
	session  SessionConfig
	gate     *ReadinessGate
	runner   command.Runner
	output   *Feedback
	logger   *slog.Logger
	clock    Clock
	metrics  *DispatchMetrics
	dedup    *Deduplicator
	throttle *Throttle
	stat     func(string) (fs.FileInfo, error)
	mu       sync.Mutex
}

func NewChangeDispatcher(cfg DispatcherConfig) *ChangeDispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Gate == nil {
		cfg.Gate = NewReadinessGate(DefaultGateAttempts, DefaultGateDelay, cfg.Logger)
	}
	if cfg.Output == nil {
		cfg.Output = NewFeedback(os.Stdout)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewDispatchMetrics()
	}
	if cfg.Runner == nil && cfg.Session.Command != nil {
		cfg.Runner = command.NewExecRunner(command.RunnerConfig{Dir: cfg.Session.Root, Logger: cfg.Logger})
	}

	return &ChangeDispatcher{
		session:  cfg.Session,
		gate:     cfg.Gate,
		runner:   cfg.Runner,
		output:   cfg.Output,
		logger:   cfg.Logger,
		clock:    cfg.Clock,
		metrics:  cfg.Metrics,
		dedup:    NewDeduplicator(DebounceWindow),
		throttle: NewThrottle(ThrottleInterval),
		stat:     os.Stat,
	}
}

func (d *ChangeDispatcher) Metrics() *DispatchMetrics {
	return d.metrics
}

// Dispatch runs one event through the pipeline. A single event never fails
// the session; the worst outcome is a no-op.
func (d *ChangeDispatcher) Dispatch(ctx context.Context, ev ChangeEvent) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.metrics.RecordReceived(d.clock())
	log := d.logger.With(slog.String("kind", ev.Kind.String()), slog.String("path", ev.Path))

	if d.isDirectory(ev) {
		d.metrics.RecordDirectory()
		log.Debug("skipping directory event")
		return OutcomeDirectory
	}

	if d.session.Ignore.IsExcluded(ev.Path) {
		d.metrics.RecordIgnored()
		log.Debug("path ignored")
		return OutcomeIgnored
	}

	if ev.Kind != Deleted {
		// Best effort: an unreadable file is still announced.
		if res := d.gate.Await(ctx, ev.Path); res != Ready {
			log.Debug("file not confirmed readable", slog.String("readiness", res.String()))
		}
	}

	if !d.dedup.Accept(ev.Path, ev.Kind, d.clock()) {
		d.metrics.RecordSuppressed()
		log.Debug("duplicate notification suppressed")
		return OutcomeSuppressed
	}
	if ev.Kind == Renamed && ev.OldPath != "" {
		d.dedup.Forget(ev.OldPath)
	}

	d.announce(log, ev)

	if d.session.Command == nil || d.runner == nil {
		return OutcomeAnnounced
	}
	if !d.throttle.Allow(d.clock()) {
		d.metrics.RecordThrottled()
		log.Debug("command throttled")
		return OutcomeThrottled
	}
	return d.invoke(ctx, log, ev)
}

func (d *ChangeDispatcher) announce(log *slog.Logger, ev ChangeEvent) {
	d.metrics.RecordAnnounced()
	log.Debug("file changed", slog.String("line", FormatChange(ev)))

	if !d.session.Feedback {
		return
	}
	if err := d.output.Announce(ev); err != nil {
		log.Debug("failed to write feedback", sl.Err(err))
	}
}

func (d *ChangeDispatcher) invoke(ctx context.Context, log *slog.Logger, ev ChangeEvent) Outcome {
	cmd := d.session.Command

	// Best effort, as for the changed file: a busy executable is still run.
	if res := d.gate.Await(ctx, cmd.ExecutablePath); res != Ready {
		log.Debug("executable not confirmed readable",
			slog.String("executable", cmd.ExecutablePath),
			slog.String("readiness", res.String()),
		)
	}

	inv := command.Invocation{
		Path: cmd.ExecutablePath,
		Args: cmd.Arguments(d.relativeName(ev.Path)),
		Wait: d.session.WaitForCommand,
	}
	err := d.runner.Run(inv)

	now := d.clock()
	d.throttle.Record(now)
	if ev.Kind != Deleted {
		d.dedup.Touch(ev.Path, now)
	}

	if err != nil {
		d.metrics.RecordFailed()
		log.Debug("command failed", slog.String("executable", cmd.ExecutablePath), sl.Err(err))
		return OutcomeFailed
	}
	d.metrics.RecordInvoked()
	log.Debug("command invoked", slog.String("executable", cmd.ExecutablePath), slog.Any("args", inv.Args))
	return OutcomeInvoked
}

func (d *ChangeDispatcher) isDirectory(ev ChangeEvent) bool {
	if ev.IsDir {
		return true
	}
	info, err := d.stat(ev.Path)
	return err == nil && info.IsDir()
}

// relativeName returns path relative to the session root, which is what the
// command receives when file name forwarding is enabled.
func (d *ChangeDispatcher) relativeName(path string) string {
	rel, err := filepath.Rel(d.session.Root, path)
	if err != nil {
		return path
	}
	return rel
}
