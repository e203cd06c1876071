package watcher

import (
	"fmt"
	"fsblock/internal/command"
	"log/slog"
	"time"
)

// ChangeKind is the semantic kind of a filesystem change.
type ChangeKind int

const (
	Created ChangeKind = iota + 1
	Modified
	Deleted
	Renamed
)

func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "Created"
	case Modified:
		return "Modified"
	case Deleted:
		return "Deleted"
	case Renamed:
		return "Renamed"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// ChangeEvent is a single change reported by a watch source.
// OldPath is set only for Renamed events. IsDir is set when the source
// knows Path names a directory, which for deletions is the only way to
// tell since the path no longer exists.
type ChangeEvent struct {
	Kind    ChangeKind
	Path    string
	OldPath string
	IsDir   bool
}

// Clock returns the current time. Tests replace it to drive the
// debounce and throttle windows deterministically.
type Clock func() time.Time

// SessionConfig is the immutable configuration of a watch session.
// Root and every entry of Ignore are absolute.
type SessionConfig struct {
	Root           string
	Recursive      bool
	Verbose        bool
	Feedback       bool
	Continuous     bool
	WaitForCommand bool
	Ignore         IgnoreSet
	Command        *command.ResolvedCommand
}

// DispatcherConfig holds the collaborators of a ChangeDispatcher.
type DispatcherConfig struct {
	Session SessionConfig
	Gate    *ReadinessGate
	Runner  command.Runner
	Output  *Feedback
	Logger  *slog.Logger
	Clock   Clock
	Metrics *DispatchMetrics
}
