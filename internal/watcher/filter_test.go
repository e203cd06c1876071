package watcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreSet_IsExcluded(t *testing.T) {
	set, err := NewIgnoreSet([]string{"/watched/tmp", "/watched/.git"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		excluded bool
	}{
		{"file inside ignored dir", "/watched/tmp/b.txt", true},
		{"ignored dir itself", "/watched/tmp", true},
		{"nested ignored dir", "/watched/.git/objects/ab", true},
		{"sibling sharing a name prefix", "/watched/tmpfile.txt", true},
		{"regular file", "/watched/a.txt", false},
		{"parent of ignored dir", "/watched", false},
		{"unrelated tree", "/other/file", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.excluded, set.IsExcluded(tt.path))
		})
	}
}

func TestIgnoreSet_Empty(t *testing.T) {
	set, err := NewIgnoreSet(nil)
	require.NoError(t, err)

	assert.False(t, set.IsExcluded("/anything"))
}

func TestNewIgnoreSet_ResolvesRelativeEntries(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	set, err := NewIgnoreSet([]string{"build", "  ", ""})
	require.NoError(t, err)

	require.Len(t, set, 1)
	assert.Equal(t, filepath.Join(wd, "build"), set[0])
	assert.True(t, set.IsExcluded(filepath.Join(wd, "build", "out.o")))
	assert.True(t, set.IsExcluded(filepath.Join("build", "out.o")))
}
