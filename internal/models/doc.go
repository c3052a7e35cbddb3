// Package models defines the record types of the ledger.
//
// # Records
//
//   - User: a participant, mapping a ParticipantID to a display name
//   - LineItem: one purchased product with a price and a payer
//   - Assignment: a participant's share of responsibility for a line item
//   - Settlement: a payment already made from one participant to another
//
// Records are plain snapshots. They are produced by the storage layer and
// consumed by the calculator; neither mutates them.
//
// # Identifiers
//
// All identifiers are positive integers allocated by the store. The zero
// value means "unset", which is how a null column in the record store
// reaches the calculator: an assignment with a zero LineID or UserID, or
// a line item with a zero PaidBy, takes no part in balance computation.
package models
