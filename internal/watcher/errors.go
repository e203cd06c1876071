package watcher

import "errors"

var (
	ErrSourceClosed     = errors.New("watch source is closed")
	ErrInvalidPath      = errors.New("invalid path")
	ErrNotDirectory     = errors.New("path is not a directory")
	ErrInterrupted      = errors.New("interrupted")
	ErrSessionNotIdle   = errors.New("session is not idle")
	ErrWatchSourceFatal = errors.New("watch source failed")
)
