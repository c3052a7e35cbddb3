package service

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// SettledAssignments returns the mapping ids that settlements from one
// participant to another newly pay off.
//
// Payments from A to B cover A's assignments on items B paid for. All of
// A's payments to B are pooled, and the shares of A's assignments already
// marked paid are taken out of the pool first, so a debt paid in
// instalments is covered once the instalments add up. The remaining pool
// then covers unpaid assignments oldest line first; visiting stops at the
// first share it cannot cover in full. Zero shares are always covered.
//
// The function reads its inputs only; persisting the new statuses is the
// caller's job.
func SettledAssignments(items []models.LineItem, assignments []models.Assignment, settlements []models.Settlement, from, to models.ParticipantID) ([]int64, error) {
	if from == to {
		return nil, nil
	}

	var pool int64
	for _, s := range settlements {
		if s.FromUserID != from || s.ToUserID != to || s.AmountCents <= 0 {
			continue
		}
		if s.AmountCents > math.MaxInt64-pool {
			pool = math.MaxInt64
			continue
		}
		pool += s.AmountCents
	}

	itemsByLine := make(map[int64]models.LineItem, len(items))
	for _, item := range items {
		itemsByLine[item.LineID] = item
	}

	participants := calculator.ParticipantsByLine(assignments)
	// consumed holds lines whose share has already been taken from the pool.
	consumed := make(map[int64]bool)

	var candidates []models.Assignment
	for _, a := range assignments {
		if a.UserID != from {
			continue
		}
		item, ok := itemsByLine[a.LineID]
		if !ok || item.PaidBy != to {
			continue
		}
		if a.Status != models.StatusPaid {
			candidates = append(candidates, a)
			continue
		}
		if consumed[a.LineID] {
			continue
		}
		share, err := shareOf(item, a.UserID, participants[a.LineID])
		if err != nil {
			return nil, err
		}
		pool = max(pool-share, 0)
		consumed[a.LineID] = true
	}
	slices.SortFunc(candidates, func(a, b models.Assignment) int {
		return cmp.Or(cmp.Compare(a.LineID, b.LineID), cmp.Compare(a.MappingID, b.MappingID))
	})

	var paid []int64
	for _, a := range candidates {
		// A second mapping for the same user and line shares the first one's slice.
		if consumed[a.LineID] {
			paid = append(paid, a.MappingID)
			continue
		}

		share, err := shareOf(itemsByLine[a.LineID], a.UserID, participants[a.LineID])
		if err != nil {
			return nil, err
		}
		if share > pool {
			break
		}
		pool -= share
		consumed[a.LineID] = true
		paid = append(paid, a.MappingID)
	}

	return paid, nil
}

// shareOf returns what user owes the payer for one item.
func shareOf(item models.LineItem, user models.ParticipantID, participants []models.ParticipantID) (int64, error) {
	priceCents, err := money.ToCents(item.Price)
	if err != nil {
		return 0, fmt.Errorf("line %d price: %w", item.LineID, err)
	}
	if priceCents <= 0 {
		return 0, nil
	}
	for _, share := range calculator.Allocate(priceCents, item.PaidBy, participants) {
		if share.Participant == user {
			return share.Cents, nil
		}
	}
	return 0, nil
}
