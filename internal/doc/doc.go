// Package doc implements the quire document tree.
//
// A document is an ordered sequence of pages (Folio). Each page owns three
// zones in fixed order: a header zone, a content zone, and a footer zone.
// Header and footer zones hold materialized lines; the content zone holds
// editable blocks. Page identity is a stable id; a page's index is derived
// from its position in the tree and is recomputed whenever structure changes.
//
// ARCHITECTURE:
//
// Transactional Single-Writer Mutation:
// All mutation goes through Document.Update, which serializes writers under
// one mutex and applies the whole transaction or none of it. A failed
// transaction restores the pre-transaction state from a deep copy, so
// readers never observe a half-applied edit.
//
// Origin-Tagged Change Notification:
// Every committed transaction produces a Change tagged with the origin that
// requested it. Listeners that write back into the document (pagination,
// header/footer materialization, numbering) use the origin to skip changes
// they caused themselves, which keeps the update cycle finite.
//
// Reads return defensive copies. Callers may hold returned values across
// later mutations without observing them.
package doc
