package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"quire/internal/doc"
	"quire/internal/schedule"
	"quire/internal/snapshot"
)

// Versioning captures version snapshots into the snapshot store. It
// carries the longest debounce of all plugins, so it sees settled
// document states, and it skips writes whose content hash matches the
// last one taken.
type Versioning struct {
	doc   *doc.Document
	store *snapshot.Store
	now   func() time.Time

	mu       sync.Mutex
	lastHash string
	primed   bool
}

func NewVersioning(d *doc.Document, store *snapshot.Store, now func() time.Time) *Versioning {
	if now == nil {
		now = time.Now
	}
	return &Versioning{doc: d, store: store, now: now}
}

func (p *Versioning) Name() string { return "versioning" }

func (p *Versioning) Priority() schedule.Priority { return schedule.PriorityVersioning }

func (p *Versioning) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec, err := snapshot.Capture(p.doc.Export(), "", p.now())
	if err != nil {
		return fmt.Errorf("versioning: %w", err)
	}

	last, err := p.last(ctx)
	if err != nil {
		return fmt.Errorf("versioning: %w", err)
	}
	if rec.ContentHash == last {
		return nil
	}

	_, inserted, err := p.store.Write(ctx, rec)
	if err != nil {
		return fmt.Errorf("versioning: %w", err)
	}

	p.mu.Lock()
	p.lastHash = rec.ContentHash
	p.mu.Unlock()

	slog.Debug("snapshot captured",
		"revision", rec.Revision,
		"content_hash", rec.ContentHash[:12],
		"inserted", inserted)
	return nil
}

// last returns the hash of the previous snapshot, reading it from the
// store on the first run so restarts don't duplicate the final state of
// the previous session.
func (p *Versioning) last(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.primed {
		hash, err := p.store.LatestHash(ctx)
		if err != nil {
			return "", err
		}
		p.lastHash = hash
		p.primed = true
	}
	return p.lastHash, nil
}
