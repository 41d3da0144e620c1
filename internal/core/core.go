// Package core builds every service on one database and wires the note
// delete cascade between them. Transports (REST, MCP, inbox) talk to a *Core.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/sprig/internal/assets"
	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/hierarchy"
	"github.com/starford/sprig/internal/history"
	"github.com/starford/sprig/internal/models"
	"github.com/starford/sprig/internal/notes"
	"github.com/starford/sprig/internal/registry"
	"github.com/starford/sprig/internal/search"
	"github.com/starford/sprig/internal/tags"
	"github.com/starford/sprig/internal/tasks"
)

// Publisher receives change notifications after a mutation has committed.
type Publisher interface {
	PublishChange(entity, action string, id int64)
}

type nopPublisher struct{}

func (nopPublisher) PublishChange(string, string, int64) {}

// Options configures the services built by New.
type Options struct {
	History   history.Policy
	Search    search.Limits
	Logger    *slog.Logger
	Publisher Publisher
}

// Core holds every service of one database.
type Core struct {
	DB       *db.DB
	Notes    *notes.Service
	Tags     *tags.Service
	Tasks    *tasks.Service
	Registry *registry.Registry
	Assets   *assets.Service
	History  *history.Tracker
	Index    *search.Indexer

	logger *slog.Logger
	pub    Publisher
}

// Open opens the database at path and builds the services on it.
func Open(path string, opts Options) (*Core, error) {
	d, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	return New(d, opts), nil
}

// New builds the services on an open database.
func New(d *db.DB, opts Options) *Core {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	hist := history.NewTracker(d, opts.History)
	idx := search.NewIndexer(d, opts.Search)

	c := &Core{
		DB:       d,
		Notes:    notes.NewService(d, hist, idx),
		Tags:     tags.NewService(d),
		Tasks:    tasks.NewService(d),
		Registry: registry.New(d),
		Assets:   assets.NewService(d, idx),
		History:  hist,
		Index:    idx,
		logger:   opts.Logger,
		pub:      opts.Publisher,
	}
	c.Notes.OnDelete(c.Tasks)
	c.Notes.OnDelete(c.Tags)
	c.Notes.OnDelete(c.Registry)
	c.Notes.OnDelete(c.Assets)
	return c
}

// SetPublisher replaces the change publisher.
func (c *Core) SetPublisher(p Publisher) {
	if p == nil {
		p = nopPublisher{}
	}
	c.pub = p
}

// Close closes the database.
func (c *Core) Close() error {
	return c.DB.Close()
}

// Emit publishes a committed change.
func (c *Core) Emit(entity, action string, id int64) {
	c.pub.PublishChange(entity, action, id)
}

// DeleteNote deletes a note subtree and announces every removed note.
func (c *Core) DeleteNote(ctx context.Context, id int64) ([]int64, error) {
	removed, err := c.Notes.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("note subtree deleted",
		slog.Int64("root", id),
		slog.Int("count", len(removed)))
	for _, nid := range removed {
		c.Emit(models.KindNote, "deleted", nid)
	}
	return removed, nil
}

// NoteTree returns the note forest with every note's tags filled in.
func (c *Core) NoteTree(ctx context.Context, withContent bool) ([]*hierarchy.Node[models.Note], error) {
	roots, err := c.Notes.Tree(ctx, withContent)
	if err != nil {
		return nil, err
	}
	byNote, err := c.Tags.TagsByNote(ctx)
	if err != nil {
		return nil, err
	}
	var fill func(nodes []*hierarchy.Node[models.Note])
	fill = func(nodes []*hierarchy.Node[models.Note]) {
		for _, n := range nodes {
			n.Item.Tags = byNote[n.Item.ID]
			fill(n.Children)
		}
	}
	fill(roots)
	return roots, nil
}

// Search runs a ranked full-text query over notes and assets.
func (c *Core) Search(ctx context.Context, text string, limit int) ([]models.SearchHit, error) {
	return c.Index.Query(ctx, text, limit)
}

// CompactHistory applies the retention policy to every note.
func (c *Core) CompactHistory(ctx context.Context) error {
	n, err := c.History.CompactAll(ctx)
	if err != nil {
		return fmt.Errorf("compact history: %w", err)
	}
	if n > 0 {
		c.logger.Info("history compacted", slog.Int64("removed", n))
	}
	return nil
}

// RunCompactor compacts history every interval until ctx is done. A
// non-positive interval returns immediately.
func (c *Core) RunCompactor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.CompactHistory(ctx); err != nil {
				c.logger.Warn("history compaction failed", slog.String("error", err.Error()))
			}
		}
	}
}
