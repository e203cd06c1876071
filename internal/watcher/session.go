package watcher

import (
	"context"
	"errors"
	"fmt"
	"fsblock/internal/util/logger/sl"
	"io"
	"log/slog"
	"os"
)

// Session owns a watch source for one root directory and runs it either
// continuously, dispatching every change, or until the first change.
type Session struct {
	cfg        SessionConfig
	open       SourceFactory
	dispatcher *ChangeDispatcher
	output     *Feedback
	logger     *slog.Logger
	lifecycle  *lifecycle
}

func NewSession(cfg SessionConfig, open SourceFactory, dispatcher *ChangeDispatcher, output *Feedback, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if output == nil {
		output = NewFeedback(os.Stdout)
	}
	if open == nil {
		open = OpenFSNotifySource(logger)
	}
	if dispatcher == nil {
		dispatcher = NewChangeDispatcher(DispatcherConfig{Session: cfg, Output: output, Logger: logger})
	}

	lc, err := newLifecycle(cfg.Root)
	if err != nil {
		return nil, err
	}

	return &Session{
		cfg:        cfg,
		open:       open,
		dispatcher: dispatcher,
		output:     output,
		logger:     logger,
		lifecycle:  lc,
	}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() string {
	return s.lifecycle.current()
}

func (s *Session) start() (ChangeSource, error) {
	if s.State() != StateIdle {
		return nil, ErrSessionNotIdle
	}

	info, err := os.Stat(s.cfg.Root)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("%w: %s", ErrNotDirectory, s.cfg.Root)
	}
	if err != nil {
		_ = s.lifecycle.send(eventFail)
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	src, err := s.open(s.cfg)
	if err != nil {
		_ = s.lifecycle.send(eventFail)
		return nil, fmt.Errorf("%w: %v", ErrWatchSourceFatal, err)
	}

	if err := s.lifecycle.send(eventStart); err != nil {
		src.Close()
		return nil, err
	}
	s.logger.Debug("watching for changes", slog.String("root", s.cfg.Root), slog.Bool("recursive", s.cfg.Recursive))
	return src, nil
}

// Run dispatches changes until ctx is cancelled or the watch source fails.
// Cancellation ends in the stopped state and returns ErrInterrupted; a
// source failure closes the source, ends in the errored state and returns
// an error wrapping ErrWatchSourceFatal.
func (s *Session) Run(ctx context.Context) error {
	src, err := s.start()
	if err != nil {
		return err
	}
	defer func() {
		s.logger.Debug("dispatch stats", slog.Any("stats", s.dispatcher.Metrics().GetStats()))
	}()

	for {
		select {
		case <-ctx.Done():
			return s.stop(src)

		case ev, ok := <-src.Events():
			if !ok {
				return s.fail(src, sourceError(src))
			}
			s.dispatcher.Dispatch(ctx, ev)

		case err, ok := <-src.Errors():
			if !ok {
				err = ErrSourceClosed
			}
			return s.fail(src, err)
		}
	}
}

// WaitOne blocks until the first change whose path is not ignored, announces
// it and returns it. No deduplication or command dispatch takes place.
func (s *Session) WaitOne(ctx context.Context) (ChangeEvent, error) {
	src, err := s.start()
	if err != nil {
		return ChangeEvent{}, err
	}

	for {
		select {
		case <-ctx.Done():
			return ChangeEvent{}, s.stop(src)

		case ev, ok := <-src.Events():
			if !ok {
				return ChangeEvent{}, s.fail(src, sourceError(src))
			}
			if s.cfg.Ignore.IsExcluded(ev.Path) {
				s.logger.Debug("path ignored", slog.String("path", ev.Path))
				continue
			}

			s.logger.Debug("file changed", slog.String("line", FormatChange(ev)))
			if s.cfg.Feedback {
				if err := s.output.Announce(ev); err != nil {
					s.logger.Debug("failed to write feedback", sl.Err(err))
				}
			}
			if err := src.Close(); err != nil {
				s.logger.Debug("failed to close watch source", sl.Err(err))
			}
			_ = s.lifecycle.send(eventStop)
			return ev, nil

		case err, ok := <-src.Errors():
			if !ok {
				err = ErrSourceClosed
			}
			return ChangeEvent{}, s.fail(src, err)
		}
	}
}

func (s *Session) stop(src ChangeSource) error {
	s.logger.Debug("exiting from interrupt signal")
	if err := src.Close(); err != nil {
		s.logger.Debug("failed to close watch source", sl.Err(err))
	}
	_ = s.lifecycle.send(eventStop)
	return ErrInterrupted
}

func (s *Session) fail(src ChangeSource, cause error) error {
	s.logger.Error("watch source failed", sl.Err(cause))
	if err := src.Close(); err != nil {
		s.logger.Debug("failed to close watch source", sl.Err(err))
	}
	_ = s.lifecycle.send(eventFail)
	return errors.Join(ErrWatchSourceFatal, cause)
}

// sourceError returns the error a source reported right before closing its
// event channel, or ErrSourceClosed when it closed without one.
func sourceError(src ChangeSource) error {
	select {
	case err, ok := <-src.Errors():
		if ok && err != nil {
			return err
		}
	default:
	}
	return ErrSourceClosed
}
