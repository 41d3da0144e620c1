package inbox

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/sprig/internal/core"
	"github.com/starford/sprig/internal/models"
)

// DefaultSettle is how long a file must stay quiet before it is imported.
const DefaultSettle = 200 * time.Millisecond

// Importer turns inbox files into notes.
type Importer struct {
	dir    *Dir
	core   *core.Core
	logger *slog.Logger
	settle time.Duration
}

// NewImporter creates an importer writing into c. A non-positive settle
// uses DefaultSettle.
func NewImporter(dir *Dir, c *core.Core, logger *slog.Logger, settle time.Duration) *Importer {
	if settle <= 0 {
		settle = DefaultSettle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{dir: dir, core: c, logger: logger, settle: settle}
}

// Run imports the files already in the inbox, then watches it and imports
// new or rewritten files until ctx is cancelled. Each imported file is
// removed from the inbox.
//
// Writes are debounced so that a file copied in several chunks is imported
// once, after it has settled.
func (im *Importer) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := im.dir.Root()
	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	im.logger.Info("inbox: started", slog.String("root", root))

	im.ImportAll(ctx, "")

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(rel string) {
		pending[rel] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(im.settle)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(im.settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			im.logger.Info("inbox: stopped")
			return nil

		case <-settleCh:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			for _, p := range paths {
				im.importFile(ctx, p)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						im.logger.Warn("inbox: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					rel, relErr := im.dir.Rel(ev.Name)
					if relErr != nil {
						continue
					}
					files, _ := im.dir.List(rel)
					for _, f := range files {
						schedule(f)
					}
					continue
				}
			}

			if !Importable(ev.Name) {
				continue
			}
			rel, relErr := im.dir.Rel(ev.Name)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(rel)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				delete(pending, rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// ImportAll imports every file currently under dir and returns the ids of
// the created notes.
func (im *Importer) ImportAll(ctx context.Context, dir string) []int64 {
	files, err := im.dir.List(dir)
	if err != nil {
		im.logger.Warn("inbox: list failed", slog.String("error", err.Error()))
		return nil
	}
	var ids []int64
	for _, f := range files {
		if id, ok := im.importFile(ctx, f); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// importFile creates a note from one file and removes the file. Blank files
// are left in place since they are usually still being written.
func (im *Importer) importFile(ctx context.Context, rel string) (int64, bool) {
	data, err := im.dir.Read(rel)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			im.logger.Warn("inbox: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		}
		return 0, false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		im.logger.Debug("inbox: skipping blank file", slog.String("path", rel))
		return 0, false
	}

	note, err := im.core.Notes.Create(ctx, models.NoteInput{Content: string(data)})
	if err != nil {
		im.logger.Warn("inbox: import failed", slog.String("path", rel), slog.String("error", err.Error()))
		return 0, false
	}
	im.core.Emit(models.KindNote, "created", note.ID)

	if err := im.dir.Remove(rel); err != nil {
		im.logger.Warn("inbox: remove failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
	im.logger.Info("inbox: imported",
		slog.String("path", rel),
		slog.Int64("note_id", note.ID),
		slog.String("title", note.Title))
	return note.ID, true
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
