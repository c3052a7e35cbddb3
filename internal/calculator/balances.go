// Package calculator computes ledger balances from line items,
// responsibility assignments and settlements.
//
// The pipeline is pure and works in integer cents:
//
//	line items + assignments -> AggregateDebts -> ApplySettlements -> NetPairs -> NetBalances
//
// Nothing here performs I/O or keeps state between calls, so concurrent
// calls over different snapshots are safe.
package calculator

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// DebtKey is an ordered (debtor, creditor) pair.
type DebtKey struct {
	Debtor   models.ParticipantID
	Creditor models.ParticipantID
}

// DebtMap holds summed directed debt in cents. Pairs with no debt are absent.
type DebtMap map[DebtKey]int64

// DebtEdge represents a debt from one person to another before netting.
type DebtEdge struct {
	Debtor      models.ParticipantID // Person who owes
	Creditor    models.ParticipantID // Person who is owed
	AmountCents int64
}

// NettedEdge is the single amount owed between a pair after opposite
// debts cancel. AmountCents is always positive.
type NettedEdge struct {
	Debtor      models.ParticipantID
	Creditor    models.ParticipantID
	AmountCents int64
}

// Result is the output of Compute.
type Result struct {
	// Debts is the aggregated directed debt before settlements.
	Debts DebtMap

	// Settled is Debts after settlement payments were subtracted.
	Settled DebtMap

	// Edges holds at most one edge per pair, ordered by (lower id, higher id).
	Edges []NettedEdge

	// Net maps participants to their position: positive is owed money,
	// negative owes money. Participants without edges are absent.
	Net map[models.ParticipantID]int64
}

// Compute runs the full balance pipeline over one snapshot of records.
// A nil settlements slice skips settlement reduction.
func Compute(items []models.LineItem, assignments []models.Assignment, settlements []models.Settlement) (*Result, error) {
	debts, err := AggregateDebts(items, assignments)
	if err != nil {
		return nil, err
	}

	settled := ApplySettlements(debts, settlements)
	edges := NetPairs(settled)

	return &Result{
		Debts:   debts,
		Settled: settled,
		Edges:   edges,
		Net:     NetBalances(edges),
	}, nil
}

// AggregateDebts splits every line item across its assigned participants
// and sums the resulting debts per (debtor, creditor).
//
// Items without a payer or without participants are skipped. A price that
// cannot be converted to cents aborts the whole computation.
func AggregateDebts(items []models.LineItem, assignments []models.Assignment) (DebtMap, error) {
	participants := ParticipantsByLine(assignments)
	debts := make(DebtMap)
	// Bounding the sum of all debts also bounds every pair and every
	// participant's net.
	var total int64

	for _, item := range items {
		if item.PaidBy == 0 {
			continue
		}

		priceCents, err := money.ToCents(item.Price)
		if err != nil {
			return nil, fmt.Errorf("line %d price: %w", item.LineID, err)
		}

		edges, err := SplitItem(priceCents, item.PaidBy, participants[item.LineID])
		if errors.Is(err, ErrEmptyParticipantSet) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("line %d split: %w", item.LineID, err)
		}

		for _, e := range edges {
			if e.AmountCents > math.MaxInt64-total {
				return nil, fmt.Errorf("line %d: %w: total debt exceeds int64 cents", item.LineID, money.ErrInvalidAmount)
			}
			total += e.AmountCents
			debts[DebtKey{Debtor: e.Debtor, Creditor: e.Creditor}] += e.AmountCents
		}
	}

	return debts, nil
}

// ApplySettlements subtracts settlement payments from the debt in the
// same direction, clamping at zero. A payment from A to B never touches
// debt from B to A, and payments with no matching debt have no effect.
// Non-positive amounts are ignored. The input map is not modified.
func ApplySettlements(debts DebtMap, settlements []models.Settlement) DebtMap {
	reduced := make(DebtMap, len(debts))
	for key, amount := range debts {
		reduced[key] = amount
	}

	paid := make(map[DebtKey]int64)
	for _, s := range settlements {
		if s.AmountCents <= 0 {
			continue
		}
		key := DebtKey{Debtor: s.FromUserID, Creditor: s.ToUserID}
		paid[key] = saturatingAdd(paid[key], s.AmountCents)
	}

	for key, amount := range paid {
		owed, ok := reduced[key]
		if !ok {
			continue
		}
		if amount >= owed {
			delete(reduced, key)
			continue
		}
		reduced[key] = owed - amount
	}

	return reduced
}

// saturatingAdd adds two non-negative amounts, stopping at math.MaxInt64.
func saturatingAdd(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}

// NetPairs collapses both directions of debt between each pair into one
// edge. Pairs whose debts cancel exactly get no edge.
func NetPairs(debts DebtMap) []NettedEdge {
	type pair struct{ lo, hi models.ParticipantID }

	signed := make(map[pair]int64)
	for key, amount := range debts {
		switch {
		case key.Debtor < key.Creditor:
			signed[pair{key.Debtor, key.Creditor}] += amount
		case key.Debtor > key.Creditor:
			signed[pair{key.Creditor, key.Debtor}] -= amount
		}
	}

	pairs := make([]pair, 0, len(signed))
	for p := range signed {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(a, b pair) int {
		return cmp.Or(cmp.Compare(a.lo, b.lo), cmp.Compare(a.hi, b.hi))
	})

	var edges []NettedEdge
	for _, p := range pairs {
		amount := signed[p]
		switch {
		case amount > 0:
			edges = append(edges, NettedEdge{Debtor: p.lo, Creditor: p.hi, AmountCents: amount})
		case amount < 0:
			edges = append(edges, NettedEdge{Debtor: p.hi, Creditor: p.lo, AmountCents: -amount})
		}
	}
	return edges
}

// NetBalances sums netted edges per participant: the debtor goes down by
// the amount, the creditor goes up.
func NetBalances(edges []NettedEdge) map[models.ParticipantID]int64 {
	net := make(map[models.ParticipantID]int64)
	for _, e := range edges {
		net[e.Debtor] -= e.AmountCents
		net[e.Creditor] += e.AmountCents
	}
	return net
}

// Edges lists the map's entries ordered by debtor, then creditor.
func (d DebtMap) Edges() []DebtEdge {
	edges := make([]DebtEdge, 0, len(d))
	for key, amount := range d {
		edges = append(edges, DebtEdge{Debtor: key.Debtor, Creditor: key.Creditor, AmountCents: amount})
	}
	slices.SortFunc(edges, func(a, b DebtEdge) int {
		return cmp.Or(cmp.Compare(a.Debtor, b.Debtor), cmp.Compare(a.Creditor, b.Creditor))
	})
	return edges
}
