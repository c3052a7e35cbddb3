package calculator

import (
	"errors"

	"github.com/mmynk/splitledger/internal/models"
)

// ErrEmptyParticipantSet marks a line item nobody is responsible for.
// Such an item contributes no debt; the error only lets callers tell it
// apart from a conversion failure.
var ErrEmptyParticipantSet = errors.New("line item has no responsible participants")

// Share is one participant's slice of a line item's price.
type Share struct {
	Participant models.ParticipantID
	Cents       int64
}

// Allocate splits priceCents evenly across participants.
//
// Every participant gets price / n cents (truncated). The cents left over
// by the division go to the payer, so when the payer is a participant the
// shares sum to exactly priceCents. When the payer is not a participant
// the leftover is not allocated to anyone.
//
// Repeated ids are counted once, keeping first-seen order. A negative
// price allocates nothing.
func Allocate(priceCents int64, payer models.ParticipantID, participants []models.ParticipantID) []Share {
	if priceCents < 0 {
		return nil
	}
	unique := uniqueParticipants(participants)
	n := int64(len(unique))
	if n == 0 {
		return nil
	}

	base := priceCents / n
	residue := priceCents - base*n

	shares := make([]Share, len(unique))
	for i, p := range unique {
		cents := base
		if p == payer {
			cents += residue
		}
		shares[i] = Share{Participant: p, Cents: cents}
	}
	return shares
}

// SplitItem returns the debts one line item creates: every participant
// other than the payer owes their share to the payer. The payer's own
// share is never charged. Items with a non-positive price or no payer
// create no debt.
func SplitItem(priceCents int64, payer models.ParticipantID, participants []models.ParticipantID) ([]DebtEdge, error) {
	if len(participants) == 0 {
		return nil, ErrEmptyParticipantSet
	}
	if priceCents <= 0 || payer == 0 {
		return nil, nil
	}

	var debts []DebtEdge
	for _, share := range Allocate(priceCents, payer, participants) {
		if share.Participant == payer || share.Cents == 0 {
			continue
		}
		debts = append(debts, DebtEdge{
			Debtor:      share.Participant,
			Creditor:    payer,
			AmountCents: share.Cents,
		})
	}
	return debts, nil
}

// ParticipantsByLine groups assignment user ids by line id, in record
// order. Assignments missing a line or a user are skipped.
func ParticipantsByLine(assignments []models.Assignment) map[int64][]models.ParticipantID {
	byLine := make(map[int64][]models.ParticipantID)
	for _, a := range assignments {
		if a.LineID == 0 || a.UserID == 0 {
			continue
		}
		byLine[a.LineID] = append(byLine[a.LineID], a.UserID)
	}
	return byLine
}

func uniqueParticipants(participants []models.ParticipantID) []models.ParticipantID {
	seen := make(map[models.ParticipantID]bool, len(participants))
	unique := make([]models.ParticipantID, 0, len(participants))
	for _, p := range participants {
		if seen[p] {
			continue
		}
		seen[p] = true
		unique = append(unique, p)
	}
	return unique
}
