// Package session assembles a complete editing session: document tree,
// page metadata store, measurement oracle, pagination engine,
// reconciler and plugin set, wired through one update scheduler.
//
// ARCHITECTURE: Mount Order
//
// A session mounts store-first. The page store starts empty, is seeded
// with a single default page record stamped from the template, and the
// tree is then populated FROM the store. The store is the source of
// truth for a brand-new document's starting metadata; from that point
// on the tree owns page existence and order, and the store owns
// orientation, section membership and lock state.
//
// ARCHITECTURE: Change Fan-Out
//
// Every committed transaction carries its origin, and the session's
// change listener decides what to wake from the origin alone:
//
//   - user, seed, reconcile: re-sync the store, enqueue the touched
//     pages for an overflow check, and wake every plugin slot.
//   - reflow: re-sync the store and wake every plugin slot. The engine
//     chains its own follow-up page checks inside a flush, so touched
//     pages are not re-enqueued; the reflow slot is still scheduled to
//     drain checks queued outside a flush.
//   - plugin/<name>: enqueue the touched pages and wake only the slots
//     after the writer's in the priority table. Decoration writes flow
//     strictly downhill, so each fan-out round either creates a page or
//     converges to a fixed point where every run writes nothing.
//
// The store subscriber is the reverse wire: an embedder write to page
// metadata schedules a store->tree apply. The reconciler's own store
// writes always mirror the tree, so any record the tree already agrees
// with is ignored.
package session
