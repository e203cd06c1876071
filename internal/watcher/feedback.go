package watcher

import (
	"fmt"
	"io"
	"sync"
)

// Feedback writes one human-readable line per announced change.
type Feedback struct {
	out io.Writer
	mu  sync.Mutex
}

func NewFeedback(out io.Writer) *Feedback {
	return &Feedback{out: out}
}

// FormatChange renders ev as Kind:"path", or Kind:"new"<-"old" for renames.
func FormatChange(ev ChangeEvent) string {
	if ev.Kind == Renamed {
		return fmt.Sprintf(`%s:"%s"<-"%s"`, ev.Kind, ev.Path, ev.OldPath)
	}
	return fmt.Sprintf(`%s:"%s"`, ev.Kind, ev.Path)
}

func (f *Feedback) Announce(ev ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := fmt.Fprintln(f.out, FormatChange(ev))
	return err
}
