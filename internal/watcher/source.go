package watcher

import (
	"fmt"
	"fsblock/internal/util/logger/sl"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeSource delivers raw change notifications for one directory tree.
// Errors reported on Errors are fatal for the source. Close stops delivery
// and releases the underlying OS watches.
type ChangeSource interface {
	Events() <-chan ChangeEvent
	Errors() <-chan error
	Close() error
}

// SourceFactory opens a ChangeSource for a session.
type SourceFactory func(cfg SessionConfig) (ChangeSource, error)

type SourceConfig struct {
	Root       string
	Recursive  bool
	BufferSize int
	Logger     *slog.Logger
}

// FSNotifySource is a ChangeSource backed by fsnotify. fsnotify watches are
// per directory, so recursive mode walks the tree at startup and adds
// directories created later.
type FSNotifySource struct {
	watcher   *fsnotify.Watcher
	root      string
	recursive bool
	events    chan ChangeEvent
	errors    chan error
	logger    *slog.Logger
	// known maps watched paths to their last seen identity. Only the run
	// goroutine touches it once the source is started.
	known     map[string]os.FileInfo
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewFSNotifySource(config SourceConfig) (*FSNotifySource, error) {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultBufferSize
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	info, err := os.Stat(config.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, config.Root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	src := &FSNotifySource{
		watcher:   watcher,
		root:      config.Root,
		recursive: config.Recursive,
		events:    make(chan ChangeEvent, config.BufferSize),
		errors:    make(chan error, 1),
		logger:    config.Logger,
		known:     make(map[string]os.FileInfo),
		stopChan:  make(chan struct{}),
	}

	if err := src.watchTree(config.Root); err != nil {
		watcher.Close()
		return nil, err
	}

	src.wg.Add(1)
	go src.run()

	return src, nil
}

// OpenFSNotifySource is a SourceFactory for FSNotifySource.
func OpenFSNotifySource(logger *slog.Logger) SourceFactory {
	return func(cfg SessionConfig) (ChangeSource, error) {
		return NewFSNotifySource(SourceConfig{
			Root:      cfg.Root,
			Recursive: cfg.Recursive,
			Logger:    logger,
		})
	}
}

func (s *FSNotifySource) Events() <-chan ChangeEvent {
	return s.events
}

func (s *FSNotifySource) Errors() <-chan error {
	return s.errors
}

func (s *FSNotifySource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)
		if cerr := s.watcher.Close(); cerr != nil {
			err = fmt.Errorf("failed to close watcher: %w", cerr)
		}
		s.wg.Wait()
	})
	return err
}

func (s *FSNotifySource) watchTree(root string) error {
	if !s.recursive {
		if err := s.watcher.Add(root); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", root, err)
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			return fmt.Errorf("failed to list directory %s: %w", root, err)
		}
		for _, entry := range entries {
			s.rememberEntry(filepath.Join(root, entry.Name()), entry)
		}
		return nil
	}

	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Subtrees can vanish or be unreadable while walking.
			return nil
		}
		if path != root {
			s.rememberEntry(path, entry)
		}
		if !entry.IsDir() {
			return nil
		}
		if err := s.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

func (s *FSNotifySource) run() {
	defer s.wg.Done()
	defer close(s.events)
	defer close(s.errors)

	// A rename is reported as Rename(old) followed by Create(new). The old
	// name is held until a Create for the same file shows up or the pairing
	// window ends; in between, Creates of other files pass through.
	var (
		pendingRename string
		pendingInfo   os.FileInfo
		renameTimer   *time.Timer
		renameC       <-chan time.Time
	)
	clearRename := func() {
		pendingRename = ""
		pendingInfo = nil
		renameC = nil
		if renameTimer != nil {
			renameTimer.Stop()
		}
	}
	flushRename := func() bool {
		if pendingRename == "" {
			return true
		}
		ev := ChangeEvent{Kind: Deleted, Path: pendingRename, IsDir: pendingInfo != nil && pendingInfo.IsDir()}
		clearRename()
		return s.emit(ev)
	}

	for {
		select {
		case <-s.stopChan:
			return

		case <-renameC:
			if !flushRename() {
				return
			}

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&WatchedOps == 0 {
				continue
			}

			switch {
			case event.Has(fsnotify.Create):
				info := s.remember(event.Name)
				change := ChangeEvent{Kind: Created, Path: event.Name, IsDir: info != nil && info.IsDir()}
				if pendingRename != "" && sameFile(pendingInfo, info) {
					change.Kind = Renamed
					change.OldPath = pendingRename
					s.moveTree(pendingRename, event.Name)
					clearRename()
				}
				s.followDirectory(event.Name, info)
				if !s.emit(change) {
					return
				}

			case event.Has(fsnotify.Rename):
				if !flushRename() {
					return
				}
				pendingRename = event.Name
				pendingInfo = s.known[event.Name]
				delete(s.known, event.Name)
				if renameTimer == nil {
					renameTimer = time.NewTimer(renamePairWindow)
				} else {
					renameTimer.Reset(renamePairWindow)
				}
				renameC = renameTimer.C

			case event.Has(fsnotify.Remove):
				info := s.known[event.Name]
				s.forgetTree(event.Name)
				if !s.emit(ChangeEvent{Kind: Deleted, Path: event.Name, IsDir: info != nil && info.IsDir()}) {
					return
				}

			default:
				info := s.remember(event.Name)
				if !s.emit(ChangeEvent{Kind: Modified, Path: event.Name, IsDir: info != nil && info.IsDir()}) {
					return
				}
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			select {
			case s.errors <- err:
			case <-s.stopChan:
			}
			return
		}
	}
}

// followDirectory starts watching a directory created after startup.
func (s *FSNotifySource) followDirectory(path string, info os.FileInfo) {
	if !s.recursive || info == nil || !info.IsDir() {
		return
	}
	if err := s.watchTree(path); err != nil {
		s.logger.Warn("failed to follow new directory", slog.String("path", path), sl.Err(err))
	}
}

// remember records the current identity of path. It returns nil when the
// path is already gone.
func (s *FSNotifySource) remember(path string) os.FileInfo {
	info, err := os.Lstat(path)
	if err != nil {
		return nil
	}
	s.store(path, info)
	return info
}

func (s *FSNotifySource) rememberEntry(path string, entry fs.DirEntry) {
	info, err := entry.Info()
	if err != nil {
		return
	}
	s.store(path, info)
}

func (s *FSNotifySource) store(path string, info os.FileInfo) {
	// Loads the file identity while the path still exists; on windows it
	// is otherwise read lazily from the path.
	os.SameFile(info, info)
	s.known[path] = info
}

// forgetTree drops path and, for a directory, everything below it.
func (s *FSNotifySource) forgetTree(path string) {
	delete(s.known, path)
	prefix := path + string(filepath.Separator)
	for p := range s.known {
		if strings.HasPrefix(p, prefix) {
			delete(s.known, p)
		}
	}
}

// moveTree re-keys the entries below a renamed directory.
func (s *FSNotifySource) moveTree(oldPath, newPath string) {
	oldPrefix := oldPath + string(filepath.Separator)
	for p, info := range s.known {
		if strings.HasPrefix(p, oldPrefix) {
			delete(s.known, p)
			s.known[filepath.Join(newPath, strings.TrimPrefix(p, oldPrefix))] = info
		}
	}
}

func sameFile(a, b os.FileInfo) bool {
	return a != nil && b != nil && os.SameFile(a, b)
}

func (s *FSNotifySource) emit(ev ChangeEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.stopChan:
		return false
	}
}
