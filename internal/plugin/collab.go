package plugin

import (
	"context"
	"slices"
	"sync"

	"quire/internal/doc"
	"quire/internal/schedule"
)

// Broadcast relays a settled change summary to collaborators. The core
// never inspects what the callback does with it.
type Broadcast func(Update)

// Update is the coalesced summary of changes since the last relay.
type Update struct {
	// Revision is the latest document revision in the batch.
	Revision int64
	// Changes is the number of committed transactions coalesced in.
	Changes int
	// PageIDs are the touched pages, in first-touch order.
	PageIDs []string
	// Structural is set when any change in the batch altered the page set.
	Structural bool
}

// Collab buffers change notifications and relays one coalesced Update
// per drain. With no callback configured it stays a silent slot.
type Collab struct {
	fn Broadcast

	mu      sync.Mutex
	pending Update
	noted   bool
}

func NewCollab(fn Broadcast) *Collab {
	return &Collab{fn: fn}
}

func (p *Collab) Name() string { return "collab" }

func (p *Collab) Priority() schedule.Priority { return schedule.PriorityCollaboration }

// Note records one committed change. Called synchronously from the
// session's document listener; must stay cheap.
func (p *Collab) Note(change doc.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.noted = true
	p.pending.Revision = change.Revision
	p.pending.Changes++
	p.pending.Structural = p.pending.Structural || change.Structural
	for _, id := range change.PageIDs {
		if !slices.Contains(p.pending.PageIDs, id) {
			p.pending.PageIDs = append(p.pending.PageIDs, id)
		}
	}
}

func (p *Collab) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	if !p.noted {
		p.mu.Unlock()
		return nil
	}
	batch := p.pending
	p.pending = Update{}
	p.noted = false
	p.mu.Unlock()

	if p.fn != nil {
		p.fn(batch)
	}
	return nil
}
