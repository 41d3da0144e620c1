package inbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempInbox(t *testing.T) *Dir {
	t.Helper()
	d, err := NewDir(filepath.Join(t.TempDir(), "inbox"))
	require.NoError(t, err)
	return d
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewDir_CreatesRoot(t *testing.T) {
	d := tempInbox(t)
	assert.DirExists(t, d.Root())
}

func TestNewDir_RejectsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	writeFile(t, f, "x")
	_, err := NewDir(f)
	assert.Error(t, err)
}

func TestList_FiltersAndSorts(t *testing.T) {
	d := tempInbox(t)
	require.NoError(t, os.MkdirAll(filepath.Join(d.Root(), "sub"), 0o755))
	for _, name := range []string{"b.md", "a.md", ".hidden.md", "image.png", "sub/c.md"} {
		writeFile(t, filepath.Join(d.Root(), name), "# x")
	}

	got, err := d.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md", filepath.Join("sub", "c.md")}, got)
}

func TestReadRemove_TraversalBlocked(t *testing.T) {
	d := tempInbox(t)
	_, err := d.Read("../../etc/passwd")
	assert.Error(t, err, "traversal on read")
	assert.Error(t, d.Remove("../outside.md"), "traversal on remove")
	_, err = d.Read("/etc/passwd")
	assert.Error(t, err, "absolute path")
}

func TestImportable(t *testing.T) {
	cases := map[string]bool{
		"note.md":          true,
		"dir/note.md":      true,
		".note.md.swp":     false,
		".tmp-note.md":     false,
		"note.markdown":    false,
		"note.md.download": false,
	}
	for name, want := range cases {
		assert.Equal(t, want, Importable(name), name)
	}
}
