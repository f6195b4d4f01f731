// Package collection holds the owned-inventory tree and its single
// authorized mutator.
//
// A Collection nests OwnedCard -> OwnedVariant -> StockEntry. Every
// mutation flows through an Editor, which serializes writers, enforces
// quantity invariants, prunes empty nodes, and records the state
// needed for single-step undo. The JSON shape persisted by Save is the
// durable contract external tooling consumes.
package collection
