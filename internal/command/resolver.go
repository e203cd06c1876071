package command

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ResolvedCommand is a user command bound to an executable that existed when
// it was resolved. It is not re-validated before each invocation.
type ResolvedCommand struct {
	ExecutablePath        string
	ArgumentPrefix        []string
	AppendChangedFileName bool
}

// Arguments returns the argument list for one invocation, with changed
// appended when file name forwarding is enabled.
func (c *ResolvedCommand) Arguments(changed string) []string {
	args := make([]string, 0, len(c.ArgumentPrefix)+1)
	args = append(args, c.ArgumentPrefix...)
	if c.AppendChangedFileName && changed != "" {
		args = append(args, changed)
	}
	return args
}

// Resolver maps a raw command string to an absolute executable.
type Resolver struct {
	// Extensions are probed, in order, when the bare name does not exist.
	Extensions []string
	// SearchPath lists the directories searched for bare command names.
	SearchPath []string
	stat       func(string) (fs.FileInfo, error)
}

// NewResolver returns a Resolver for the current platform and PATH.
func NewResolver() *Resolver {
	return &Resolver{
		Extensions: platformExtensions(runtime.GOOS, os.Getenv("PATHEXT")),
		SearchPath: filepath.SplitList(os.Getenv("PATH")),
		stat:       os.Stat,
	}
}

// Resolve splits raw into words without shell interpretation. The first
// word names the executable: an explicit path is made absolute, a bare
// name is looked up on the search path. The remaining words become the
// argument prefix.
func (r *Resolver) Resolve(raw string, appendChangedFileName bool) (*ResolvedCommand, error) {
	// A raw string naming an existing file is taken verbatim, so paths with
	// spaces or backslashes need no quoting.
	if trimmed := strings.TrimSpace(raw); trimmed != "" && LooksLikePath(trimmed) {
		if abs, err := filepath.Abs(trimmed); err == nil {
			if exe := r.probe(abs); exe != "" {
				return &ResolvedCommand{
					ExecutablePath:        exe,
					AppendChangedFileName: appendChangedFileName,
				}, nil
			}
		}
	}

	words, err := shellquote.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", raw, err)
	}
	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}

	name := words[0]
	var exe string
	if LooksLikePath(name) {
		abs, err := filepath.Abs(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCommandNotFound, name, err)
		}
		exe = r.probe(abs)
	} else {
		for _, dir := range r.SearchPath {
			if dir == "" {
				continue
			}
			if exe = r.probe(filepath.Join(dir, name)); exe != "" {
				break
			}
		}
	}
	if exe == "" {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}

	abs, err := filepath.Abs(exe)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCommandNotFound, name, err)
	}

	return &ResolvedCommand{
		ExecutablePath:        abs,
		ArgumentPrefix:        words[1:],
		AppendChangedFileName: appendChangedFileName,
	}, nil
}

// probe returns candidate if it is an existing file, otherwise the first
// candidate+extension that is.
func (r *Resolver) probe(candidate string) string {
	if r.isFile(candidate) {
		return candidate
	}
	for _, ext := range r.Extensions {
		if withExt := candidate + ext; r.isFile(withExt) {
			return withExt
		}
	}
	return ""
}

func (r *Resolver) isFile(path string) bool {
	stat := r.stat
	if stat == nil {
		stat = os.Stat
	}
	info, err := stat(path)
	return err == nil && !info.IsDir()
}

// LooksLikePath reports whether name is meant as a filesystem path rather
// than a command to look up on the search path.
func LooksLikePath(name string) bool {
	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return true
	}
	if strings.HasPrefix(name, ".") {
		return true
	}
	return strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator)
}

func platformExtensions(goos, pathext string) []string {
	if goos != "windows" {
		return nil
	}
	if strings.TrimSpace(pathext) == "" {
		return []string{".com", ".exe", ".bat", ".cmd"}
	}
	var exts []string
	for _, ext := range strings.Split(strings.ToLower(pathext), ";") {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	return exts
}
