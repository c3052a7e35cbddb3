package models

import "time"

// Settlement represents a payment between participants to clear debts.
// It offsets debt in the recorded direction only.
type Settlement struct {
	// SettlementID is the unique identifier, allocated from the "settlements" sequence.
	SettlementID int64

	// FromUserID is the participant who paid (debtor settling up).
	FromUserID ParticipantID

	// ToUserID is the participant who received payment (creditor being paid).
	ToUserID ParticipantID

	// AmountCents is the payment amount in cents. Never negative once stored.
	AmountCents int64

	// CreatedAt is the date the settlement was recorded.
	CreatedAt time.Time

	// Note is an optional description for the settlement.
	Note string
}
