package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// DebounceWindow is the interval within which repeat notifications
	// for the same path are suppressed.
	DebounceWindow = 100 * time.Millisecond

	// ThrottleInterval is the minimum spacing between two command invocations.
	ThrottleInterval = 200 * time.Millisecond

	DefaultGateAttempts = 100
	DefaultGateDelay    = 50 * time.Millisecond

	DefaultBufferSize = 100

	// renamePairWindow bounds how long a Rename waits for the matching Create.
	renamePairWindow = 20 * time.Millisecond
)

// WatchedOps are the fsnotify operations translated into change events.
// Attribute-only changes (Chmod) are not content changes and are dropped.
var WatchedOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
