package watcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	events chan ChangeEvent
	errors chan error
	closed atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events: make(chan ChangeEvent),
		errors: make(chan error, 1),
	}
}

func (s *fakeSource) Events() <-chan ChangeEvent { return s.events }
func (s *fakeSource) Errors() <-chan error       { return s.errors }
func (s *fakeSource) Close() error {
	s.closed.Add(1)
	return nil
}

func (s *fakeSource) factory() SourceFactory {
	return func(SessionConfig) (ChangeSource, error) { return s, nil }
}

func newTestSession(t *testing.T, cfg SessionConfig, src *fakeSource, out *bytes.Buffer) *Session {
	t.Helper()

	gate := NewReadinessGate(1, 0, nil)
	gate.open = func(string) (io.Closer, error) { return io.NopCloser(nil), nil }

	output := NewFeedback(out)
	d := NewChangeDispatcher(DispatcherConfig{Session: cfg, Gate: gate, Output: output})

	s, err := NewSession(cfg, src.factory(), d, output, nil)
	require.NoError(t, err)
	return s
}

func runAsync(ctx context.Context, s *Session) <-chan error {
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func TestSession_RunUntilInterrupted(t *testing.T) {
	root := t.TempDir()
	src := newFakeSource()
	out := &bytes.Buffer{}
	s := newTestSession(t, SessionConfig{Root: root, Feedback: true, Continuous: true}, src, out)
	assert.Equal(t, StateIdle, s.State())

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, s)

	src.events <- ChangeEvent{Kind: Created, Path: filepath.Join(root, "a.txt")}
	src.events <- ChangeEvent{Kind: Modified, Path: filepath.Join(root, "b.txt")}
	cancel()

	err := waitDone(t, done)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, StateStopped, s.State())
	assert.Equal(t, int32(1), src.closed.Load())
	assert.Equal(t, []string{
		`Created:"` + filepath.Join(root, "a.txt") + `"`,
		`Modified:"` + filepath.Join(root, "b.txt") + `"`,
	}, lines(out))
}

func TestSession_RunFatalSourceError(t *testing.T) {
	src := newFakeSource()
	s := newTestSession(t, SessionConfig{Root: t.TempDir(), Continuous: true}, src, &bytes.Buffer{})

	done := runAsync(context.Background(), s)
	src.errors <- fsnotify.ErrEventOverflow

	err := waitDone(t, done)
	assert.ErrorIs(t, err, ErrWatchSourceFatal)
	assert.ErrorIs(t, err, fsnotify.ErrEventOverflow)
	assert.Equal(t, StateErrored, s.State())
	assert.Equal(t, int32(1), src.closed.Load())
}

func TestSession_RunSourceClosed(t *testing.T) {
	src := newFakeSource()
	s := newTestSession(t, SessionConfig{Root: t.TempDir(), Continuous: true}, src, &bytes.Buffer{})

	done := runAsync(context.Background(), s)
	close(src.events)

	err := waitDone(t, done)
	assert.ErrorIs(t, err, ErrWatchSourceFatal)
	assert.ErrorIs(t, err, ErrSourceClosed)
	assert.Equal(t, StateErrored, s.State())
}

func TestSession_InvalidRoot(t *testing.T) {
	src := newFakeSource()
	s := newTestSession(t, SessionConfig{Root: filepath.Join(t.TempDir(), "missing")}, src, &bytes.Buffer{})

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrInvalidPath)
	assert.Equal(t, StateErrored, s.State())
}

func TestSession_OpenFailure(t *testing.T) {
	openErr := errors.New("too many open files")
	s, err := NewSession(SessionConfig{Root: t.TempDir()}, func(SessionConfig) (ChangeSource, error) {
		return nil, openErr
	}, nil, NewFeedback(&bytes.Buffer{}), nil)
	require.NoError(t, err)

	_, err = s.WaitOne(context.Background())
	assert.ErrorIs(t, err, ErrWatchSourceFatal)
	assert.Equal(t, StateErrored, s.State())
}

func TestSession_CannotRunTwice(t *testing.T) {
	src := newFakeSource()
	s := newTestSession(t, SessionConfig{Root: t.TempDir()}, src, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), ErrInterrupted)
	assert.ErrorIs(t, s.Run(ctx), ErrSessionNotIdle)
}

func TestSession_WaitOneSkipsIgnoredPaths(t *testing.T) {
	root := t.TempDir()
	ignore, err := NewIgnoreSet([]string{filepath.Join(root, "tmp")})
	require.NoError(t, err)

	src := newFakeSource()
	out := &bytes.Buffer{}
	s := newTestSession(t, SessionConfig{Root: root, Feedback: true, Ignore: ignore}, src, out)

	type result struct {
		ev  ChangeEvent
		err error
	}
	done := make(chan result, 1)
	go func() {
		ev, err := s.WaitOne(context.Background())
		done <- result{ev, err}
	}()

	src.events <- ChangeEvent{Kind: Created, Path: filepath.Join(root, "tmp", "scratch")}
	want := ChangeEvent{Kind: Renamed, Path: filepath.Join(root, "b.txt"), OldPath: filepath.Join(root, "a.txt")}
	src.events <- want

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, want, r.ev)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitOne did not return")
	}

	assert.Equal(t, []string{FormatChange(want)}, lines(out))
	assert.Equal(t, StateStopped, s.State())
	assert.Equal(t, int32(1), src.closed.Load())
}

func TestSession_WaitOneInterrupted(t *testing.T) {
	src := newFakeSource()
	s := newTestSession(t, SessionConfig{Root: t.TempDir(), Feedback: true}, src, &bytes.Buffer{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.WaitOne(ctx)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, StateStopped, s.State())
}
