package calculator

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mmynk/splitledger/internal/models"
)

const (
	alice models.ParticipantID = 1
	bob   models.ParticipantID = 2
	carol models.ParticipantID = 3
	dave  models.ParticipantID = 4
)

func sumShares(shares []Share) int64 {
	var total int64
	for _, s := range shares {
		total += s.Cents
	}
	return total
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name         string
		price        int64
		payer        models.ParticipantID
		participants []models.ParticipantID
		want         []Share
	}{
		{
			name:         "even split",
			price:        600,
			payer:        alice,
			participants: []models.ParticipantID{alice, bob},
			want:         []Share{{alice, 300}, {bob, 300}},
		},
		{
			name:         "residue goes to payer",
			price:        1000,
			payer:        alice,
			participants: []models.ParticipantID{alice, bob, carol},
			want:         []Share{{alice, 334}, {bob, 333}, {carol, 333}},
		},
		{
			name:         "residue goes to payer listed last",
			price:        1001,
			payer:        carol,
			participants: []models.ParticipantID{alice, bob, carol},
			want:         []Share{{alice, 333}, {bob, 333}, {carol, 335}},
		},
		{
			name:         "payer not a participant keeps residue unallocated",
			price:        1000,
			payer:        dave,
			participants: []models.ParticipantID{alice, bob, carol},
			want:         []Share{{alice, 333}, {bob, 333}, {carol, 333}},
		},
		{
			name:         "single participant takes everything",
			price:        799,
			payer:        bob,
			participants: []models.ParticipantID{bob},
			want:         []Share{{bob, 799}},
		},
		{
			name:         "duplicate participants counted once",
			price:        900,
			payer:        alice,
			participants: []models.ParticipantID{alice, bob, bob, carol, alice},
			want:         []Share{{alice, 300}, {bob, 300}, {carol, 300}},
		},
		{
			name:         "price smaller than participant count",
			price:        2,
			payer:        alice,
			participants: []models.ParticipantID{alice, bob, carol},
			want:         []Share{{alice, 2}, {bob, 0}, {carol, 0}},
		},
		{
			name:  "no participants",
			price: 1000,
			payer: alice,
			want:  nil,
		},
		{
			name:         "negative price allocates nothing",
			price:        -1001,
			payer:        alice,
			participants: []models.ParticipantID{alice, bob, carol},
			want:         nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allocate(tt.price, tt.payer, tt.participants)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Allocate(%d, %d, %v) = %v, want %v", tt.price, tt.payer, tt.participants, got, tt.want)
			}
		})
	}
}

func TestAllocate_ConservesPrice(t *testing.T) {
	prices := []int64{1, 2, 7, 99, 100, 101, 1000, 12345, 999999, 1_000_000_007, 9_000_000_000_000_000}

	for n := 1; n <= 60; n++ {
		participants := make([]models.ParticipantID, n)
		for i := range participants {
			participants[i] = models.ParticipantID(i + 1)
		}
		// Payer somewhere in the middle of the list.
		payer := participants[n/2]

		for _, price := range prices {
			shares := Allocate(price, payer, participants)
			if len(shares) != n {
				t.Fatalf("n=%d price=%d: got %d shares", n, price, len(shares))
			}
			if got := sumShares(shares); got != price {
				t.Errorf("n=%d price=%d: shares sum to %d", n, price, got)
			}
		}
	}
}

func TestAllocate_PayerAbsentLosesResidue(t *testing.T) {
	// The leftover cents are reserved for the payer; when the payer did
	// not take part in the item nobody is charged for them.
	shares := Allocate(1000, dave, []models.ParticipantID{alice, bob, carol})
	if got := sumShares(shares); got != 999 {
		t.Errorf("shares sum = %d, want 999 (one cent uncollected)", got)
	}

	debts, err := SplitItem(1000, dave, []models.ParticipantID{alice, bob, carol})
	if err != nil {
		t.Fatalf("SplitItem failed: %v", err)
	}
	var owed int64
	for _, d := range debts {
		owed += d.AmountCents
	}
	if owed != 999 {
		t.Errorf("total owed to payer = %d, want 999", owed)
	}
}

func TestSplitItem(t *testing.T) {
	tests := []struct {
		name         string
		price        int64
		payer        models.ParticipantID
		participants []models.ParticipantID
		want         []DebtEdge
		wantErr      error
	}{
		{
			name:         "payer share discarded",
			price:        1000,
			payer:        alice,
			participants: []models.ParticipantID{alice, bob, carol},
			want: []DebtEdge{
				{Debtor: bob, Creditor: alice, AmountCents: 333},
				{Debtor: carol, Creditor: alice, AmountCents: 333},
			},
		},
		{
			name:         "payer alone owes nothing",
			price:        1000,
			payer:        alice,
			participants: []models.ParticipantID{alice},
		},
		{
			name:         "zero price",
			price:        0,
			payer:        alice,
			participants: []models.ParticipantID{alice, bob},
		},
		{
			name:         "negative price",
			price:        -500,
			payer:        alice,
			participants: []models.ParticipantID{alice, bob},
		},
		{
			name:         "missing payer",
			price:        500,
			payer:        0,
			participants: []models.ParticipantID{alice, bob},
		},
		{
			name:         "zero shares create no debt",
			price:        1,
			payer:        alice,
			participants: []models.ParticipantID{alice, bob},
		},
		{
			name:    "no participants",
			price:   1000,
			payer:   alice,
			wantErr: ErrEmptyParticipantSet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitItem(tt.price, tt.payer, tt.participants)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SplitItem() error = %v, want %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitItem() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitItem_PayerNeverOwesThemself(t *testing.T) {
	participants := []models.ParticipantID{alice, bob, carol, dave}
	for _, payer := range participants {
		for price := int64(1); price < 50; price++ {
			debts, err := SplitItem(price, payer, participants)
			if err != nil {
				t.Fatalf("SplitItem failed: %v", err)
			}
			for _, d := range debts {
				if d.Debtor == payer {
					t.Fatalf("payer %d listed as debtor for price %d", payer, price)
				}
				if d.Creditor != payer {
					t.Fatalf("debt directed at %d, want payer %d", d.Creditor, payer)
				}
			}
		}
	}
}

func TestParticipantsByLine(t *testing.T) {
	assignments := []models.Assignment{
		{MappingID: 1, LineID: 10, UserID: bob},
		{MappingID: 2, LineID: 10, UserID: alice},
		{MappingID: 3, LineID: 11, UserID: carol},
		{MappingID: 4, LineID: 0, UserID: dave},
		{MappingID: 5, LineID: 11, UserID: 0},
	}

	got := ParticipantsByLine(assignments)
	want := map[int64][]models.ParticipantID{
		10: {bob, alice},
		11: {carol},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParticipantsByLine() = %v, want %v", got, want)
	}
}
