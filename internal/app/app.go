package app

import (
	"context"
	"errors"
	"fmt"
	"fsblock/internal/command"
	"fsblock/internal/config"
	"fsblock/internal/util/logger/handlers/slogpretty"
	"fsblock/internal/watcher"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"golang.org/x/term"
)

// Exit statuses.
const (
	ExitOK          = 0
	ExitConfig      = 1
	ExitWatchFailed = 2
	ExitInterrupted = -1
)

// ExitError carries the process exit status for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitConfig
}

// Streams are the process output streams.
type Streams struct {
	Stdout io.Writer
	Stderr io.Writer
}

// App is a configured watch session ready to run.
type App struct {
	session *watcher.Session
	cfg     watcher.SessionConfig
}

// New validates cfg and builds the session. Any failure is a configuration
// error and nothing is watched.
func New(cfg *config.Config, streams Streams) (*App, error) {
	return newApp(cfg, streams, command.NewResolver(), nil)
}

func newApp(cfg *config.Config, streams Streams, resolver *command.Resolver, open watcher.SourceFactory) (*App, error) {
	if streams.Stdout == nil {
		streams.Stdout = os.Stdout
	}
	if streams.Stderr == nil {
		streams.Stderr = os.Stderr
	}

	session, err := BuildSessionConfig(cfg, resolver)
	if err != nil {
		return nil, &ExitError{Code: ExitConfig, Err: err}
	}

	log := setupLogger(cfg.Env, cfg.Verbose, streams.Stderr).
		With(slog.String("session", uuid.NewString()))

	output := watcher.NewFeedback(streams.Stdout)
	dispatcher := watcher.NewChangeDispatcher(watcher.DispatcherConfig{
		Session: session,
		Gate:    watcher.NewReadinessGate(watcher.DefaultGateAttempts, watcher.DefaultGateDelay, log),
		Runner: command.NewExecRunner(command.RunnerConfig{
			Dir:    session.Root,
			Stdout: streams.Stdout,
			Stderr: streams.Stderr,
			Logger: log,
		}),
		Output: output,
		Logger: log,
	})

	if open == nil {
		open = watcher.OpenFSNotifySource(log)
	}
	s, err := watcher.NewSession(session, open, dispatcher, output, log)
	if err != nil {
		return nil, &ExitError{Code: ExitConfig, Err: err}
	}

	return &App{session: s, cfg: session}, nil
}

// BuildSessionConfig checks the root, resolves the command and makes every
// path absolute.
func BuildSessionConfig(cfg *config.Config, resolver *command.Resolver) (watcher.SessionConfig, error) {
	if cfg.Path == "" {
		return watcher.SessionConfig{}, errors.New("path is required")
	}
	if info, err := os.Stat(cfg.Path); err != nil || !info.IsDir() {
		return watcher.SessionConfig{}, fmt.Errorf("path %s does not exist", cfg.Path)
	}
	root, err := filepath.Abs(cfg.Path)
	if err != nil {
		return watcher.SessionConfig{}, fmt.Errorf("resolve path %s: %w", cfg.Path, err)
	}

	var resolved *command.ResolvedCommand
	if cfg.Command != "" {
		resolved, err = resolver.Resolve(cfg.Command, cfg.ForwardFileName)
		if err != nil {
			return watcher.SessionConfig{}, fmt.Errorf("command %s does not exist: %w", cfg.Command, err)
		}
	}

	ignore, err := watcher.NewIgnoreSet(cfg.IgnorePaths)
	if err != nil {
		return watcher.SessionConfig{}, err
	}

	return watcher.SessionConfig{
		Root:           root,
		Recursive:      !cfg.NoRecurse,
		Verbose:        cfg.Verbose,
		Feedback:       !cfg.NoFeedback,
		Continuous:     cfg.Watch,
		WaitForCommand: !cfg.NoWaitForCommand,
		Ignore:         ignore,
		Command:        resolved,
	}, nil
}

// Run watches until the session ends and reports how it ended as an
// *ExitError, or nil after a normal single-shot change.
func (a *App) Run(ctx context.Context) error {
	if !a.cfg.Continuous {
		_, err := a.session.WaitOne(ctx)
		return exitError(err)
	}
	return exitError(a.session.Run(ctx))
}

func exitError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, watcher.ErrInterrupted):
		return &ExitError{Code: ExitInterrupted, Err: err}
	case errors.Is(err, watcher.ErrWatchSourceFatal):
		return &ExitError{Code: ExitWatchFailed, Err: err}
	default:
		return &ExitError{Code: ExitConfig, Err: err}
	}
}

func setupLogger(env string, verbose bool, out io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	var log *slog.Logger

	switch env {
	case config.EnvDev:
		log = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	case config.EnvProd:
		if !verbose {
			level = slog.LevelError
		}
		log = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	default:
		log = setupPrettySlog(out, level)
	}
	return log
}

func setupPrettySlog(out io.Writer, level slog.Level) *slog.Logger {
	if f, ok := out.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		color.NoColor = true
	}

	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: level,
		},
	}

	handler := opts.NewPrettyHandler(out)

	return slog.New(handler)
}
