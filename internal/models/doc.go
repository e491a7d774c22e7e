// Package models defines the core domain records for splitbill.
//
// # Models
//
//   - Bill: a scanned receipt with a derived subtotal
//   - LineItem: one purchased item extracted from the receipt text
//   - Participant: a person splitting one bill, scoped to that bill
//   - Assignment: a participant's claim on a share of one line item
//
// # Design Principles
//
// 1. **Value records only**: models carry ids, never live object graphs.
// Relationships are resolved through explicit storage queries keyed by
// parent id, so no code depends on implicit cascade traversal.
//
// 2. **Storage-assigned identity**: ids are UUID strings populated by the
// storage layer on insert.
//
// 3. **Derived values are recomputed, never patched**: Bill.Subtotal is
// recomputed from the full live item set after every item mutation.
package models
