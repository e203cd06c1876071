package command

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// Invocation is one launch of a resolved command.
type Invocation struct {
	Path string
	Args []string
	Wait bool
}

// Runner launches commands. Run returns once the process has started, or
// once it has exited when Wait is set.
type Runner interface {
	Run(inv Invocation) error
}

type RunnerConfig struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// ExecRunner starts processes directly, without a shell.
type ExecRunner struct {
	dir    string
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func NewExecRunner(config RunnerConfig) *ExecRunner {
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}
	if config.Stderr == nil {
		config.Stderr = os.Stderr
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ExecRunner{
		dir:    config.Dir,
		stdout: config.Stdout,
		stderr: config.Stderr,
		logger: config.Logger,
	}
}

func (r *ExecRunner) Run(inv Invocation) error {
	cmd := exec.Command(inv.Path, inv.Args...)
	cmd.Dir = r.dir
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSpawn, inv.Path, err)
	}

	if !inv.Wait {
		// Reap in the background so the child never lingers as a zombie.
		go func() {
			_ = cmd.Wait()
		}()
		return nil
	}

	err := cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// A non-zero exit status is not a failure of the launch itself.
		r.logger.Debug("command exited", slog.String("path", inv.Path), slog.Int("code", exitErr.ExitCode()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("wait for %s: %w", inv.Path, err)
	}
	r.logger.Debug("command exited", slog.String("path", inv.Path), slog.Int("code", 0))
	return nil
}
