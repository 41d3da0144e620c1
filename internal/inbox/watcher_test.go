package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/sprig/internal/core"
	"github.com/starford/sprig/internal/models"
	"github.com/starford/sprig/internal/testutil"
)

func importerTestEnv(t *testing.T) (*Dir, *core.Core, *Importer) {
	t.Helper()
	d := tempInbox(t)
	c := core.New(testutil.TestDB(t), core.Options{})
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return d, c, NewImporter(d, c, logger, 50*time.Millisecond)
}

// startImporter runs im until the test ends and waits for it to stop.
func startImporter(t *testing.T, im *Importer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = im.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

// hasNote reports whether a note titled title exists. It is polled from
// assert.Eventually, so it must not fail the test itself.
func hasNote(c *core.Core, title string) bool {
	list, err := c.Notes.List(context.Background(), models.ListOptions{})
	if err != nil {
		return false
	}
	for _, n := range list {
		if n.Title == title {
			return true
		}
	}
	return false
}

func TestImportAll_CreatesNotesAndRemovesFiles(t *testing.T) {
	d, c, im := importerTestEnv(t)
	writeFile(t, filepath.Join(d.Root(), "one.md"), "# One\nfirst")
	writeFile(t, filepath.Join(d.Root(), "two.md"), "# Two\nsecond")
	writeFile(t, filepath.Join(d.Root(), "blank.md"), "  \n")

	ids := im.ImportAll(context.Background(), "")
	require.Len(t, ids, 2)
	assert.True(t, hasNote(c, "One"))
	assert.True(t, hasNote(c, "Two"))

	left, err := d.List("")
	require.NoError(t, err)
	assert.Equal(t, []string{"blank.md"}, left, "blank files stay in the inbox")
}

func TestRun_ImportsExistingThenNewFiles(t *testing.T) {
	d, c, im := importerTestEnv(t)
	writeFile(t, filepath.Join(d.Root(), "early.md"), "# Early")

	startImporter(t, im)

	assert.Eventually(t, func() bool { return hasNote(c, "Early") },
		5*time.Second, 50*time.Millisecond, "existing file not imported at startup")

	writeFile(t, filepath.Join(d.Root(), "late.md"), "# Late\nbody")
	assert.Eventually(t, func() bool { return hasNote(c, "Late") },
		5*time.Second, 50*time.Millisecond, "new file not imported by watcher")

	assert.Eventually(t, func() bool {
		left, err := d.List("")
		return err == nil && len(left) == 0
	}, 2*time.Second, 50*time.Millisecond, "imported files not removed")
}

func TestRun_NewSubdirWatched(t *testing.T) {
	d, c, im := importerTestEnv(t)
	startImporter(t, im)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(d.Root(), "batch")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(sub, "deep.md"), "# Deep")

	assert.Eventually(t, func() bool { return hasNote(c, "Deep") },
		5*time.Second, 50*time.Millisecond, "file in new subdir not imported")
}
