package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := &models.User{FullName: "Alice", Email: "alice@example.com"}
	bob := &models.User{FullName: "Bob"}

	t.Run("CreateUser allocates sequential ids", func(t *testing.T) {
		if err := store.CreateUser(ctx, alice); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if err := store.CreateUser(ctx, bob); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if alice.UserID != 1 || bob.UserID != 2 {
			t.Errorf("ids = %d, %d; want 1, 2", alice.UserID, bob.UserID)
		}
	})

	t.Run("GetUser and ListUsers", func(t *testing.T) {
		got, err := store.GetUser(ctx, alice.UserID)
		if err != nil {
			t.Fatalf("GetUser failed: %v", err)
		}
		if *got != *alice {
			t.Errorf("GetUser = %+v, want %+v", got, alice)
		}

		users, err := store.ListUsers(ctx)
		if err != nil {
			t.Fatalf("ListUsers failed: %v", err)
		}
		if len(users) != 2 {
			t.Errorf("ListUsers returned %d users, want 2", len(users))
		}
	})

	t.Run("GetUser returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetUser(ctx, 999)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetUser(999) error = %v, want ErrNotFound", err)
		}
	})

	var item *models.LineItem

	t.Run("CreateLineItem round trip", func(t *testing.T) {
		item = &models.LineItem{
			ReceiptID:    "R-1",
			StoreName:    "Corner Shop",
			PurchaseDate: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			ItemName:     "Milk",
			Price:        decimal.RequireFromString("3.49"),
			PaidBy:       alice.UserID,
		}
		if err := store.CreateLineItem(ctx, item); err != nil {
			t.Fatalf("CreateLineItem failed: %v", err)
		}
		if item.LineID == 0 {
			t.Fatal("Expected line id to be allocated")
		}

		got, err := store.GetLineItem(ctx, item.LineID)
		if err != nil {
			t.Fatalf("GetLineItem failed: %v", err)
		}
		if !got.Price.Equal(item.Price) {
			t.Errorf("Price = %s, want %s", got.Price, item.Price)
		}
		if !got.PurchaseDate.Equal(item.PurchaseDate) {
			t.Errorf("PurchaseDate = %v, want %v", got.PurchaseDate, item.PurchaseDate)
		}
		if got.PaidBy != alice.UserID || got.ItemName != "Milk" || got.ReceiptID != "R-1" || got.StoreName != "Corner Shop" {
			t.Errorf("GetLineItem = %+v, want %+v", got, item)
		}
	})

	t.Run("line item without payer keeps zero PaidBy", func(t *testing.T) {
		orphan := &models.LineItem{ItemName: "Mystery", Price: decimal.NewFromInt(1)}
		if err := store.CreateLineItem(ctx, orphan); err != nil {
			t.Fatalf("CreateLineItem failed: %v", err)
		}
		got, err := store.GetLineItem(ctx, orphan.LineID)
		if err != nil {
			t.Fatalf("GetLineItem failed: %v", err)
		}
		if got.PaidBy != 0 {
			t.Errorf("PaidBy = %d, want 0", got.PaidBy)
		}
		if !got.PurchaseDate.IsZero() {
			t.Errorf("PurchaseDate = %v, want zero", got.PurchaseDate)
		}
	})

	var mappings []*models.Assignment

	t.Run("CreateAssignment defaults to unpaid", func(t *testing.T) {
		for _, u := range []models.ParticipantID{alice.UserID, bob.UserID} {
			a := &models.Assignment{LineID: item.LineID, UserID: u}
			if err := store.CreateAssignment(ctx, a); err != nil {
				t.Fatalf("CreateAssignment failed: %v", err)
			}
			mappings = append(mappings, a)
		}

		got, err := store.ListAssignments(ctx)
		if err != nil {
			t.Fatalf("ListAssignments failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("ListAssignments returned %d, want 2", len(got))
		}
		for _, a := range got {
			if a.Status != models.StatusUnpaid {
				t.Errorf("assignment %d status = %q, want unpaid", a.MappingID, a.Status)
			}
		}
	})

	t.Run("SetAssignmentStatus", func(t *testing.T) {
		if err := store.SetAssignmentStatus(ctx, []int64{mappings[1].MappingID}, models.StatusPaid); err != nil {
			t.Fatalf("SetAssignmentStatus failed: %v", err)
		}
		got, err := store.ListAssignments(ctx)
		if err != nil {
			t.Fatalf("ListAssignments failed: %v", err)
		}
		for _, a := range got {
			want := models.StatusUnpaid
			if a.MappingID == mappings[1].MappingID {
				want = models.StatusPaid
			}
			if a.Status != want {
				t.Errorf("assignment %d status = %q, want %q", a.MappingID, a.Status, want)
			}
		}

		err = store.SetAssignmentStatus(ctx, []int64{mappings[0].MappingID, 12345}, models.StatusPaid)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("unknown mapping error = %v, want ErrNotFound", err)
		}
		if err := store.SetAssignmentStatus(ctx, nil, "bogus"); err == nil {
			t.Error("expected invalid status to be rejected")
		}
	})

	t.Run("CreateSettlement and ListSettlements", func(t *testing.T) {
		s := &models.Settlement{
			FromUserID:  bob.UserID,
			ToUserID:    alice.UserID,
			AmountCents: 175,
			CreatedAt:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			Note:        "milk money",
		}
		if err := store.CreateSettlement(ctx, s); err != nil {
			t.Fatalf("CreateSettlement failed: %v", err)
		}
		if s.SettlementID != 1 {
			t.Errorf("SettlementID = %d, want 1", s.SettlementID)
		}

		got, err := store.GetSettlement(ctx, s.SettlementID)
		if err != nil {
			t.Fatalf("GetSettlement failed: %v", err)
		}
		if got.FromUserID != s.FromUserID || got.ToUserID != s.ToUserID ||
			got.AmountCents != s.AmountCents || got.Note != s.Note || !got.CreatedAt.Equal(s.CreatedAt) {
			t.Errorf("GetSettlement = %+v, want %+v", got, s)
		}

		noNote := &models.Settlement{FromUserID: alice.UserID, ToUserID: bob.UserID, AmountCents: 5}
		if err := store.CreateSettlement(ctx, noNote); err != nil {
			t.Fatalf("CreateSettlement failed: %v", err)
		}
		if noNote.CreatedAt.IsZero() {
			t.Error("Expected CreatedAt to be set")
		}

		all, err := store.ListSettlements(ctx)
		if err != nil {
			t.Fatalf("ListSettlements failed: %v", err)
		}
		if len(all) != 2 {
			t.Fatalf("ListSettlements returned %d, want 2", len(all))
		}
		if all[1].Note != "" {
			t.Errorf("Note = %q, want empty", all[1].Note)
		}
	})

	t.Run("negative settlement rejected by schema", func(t *testing.T) {
		s := &models.Settlement{FromUserID: bob.UserID, ToUserID: alice.UserID, AmountCents: -1}
		if err := store.CreateSettlement(ctx, s); err == nil {
			t.Error("expected negative amount to be rejected")
		}
	})

	t.Run("DeleteLineItem cascades to assignments", func(t *testing.T) {
		if err := store.DeleteLineItem(ctx, item.LineID); err != nil {
			t.Fatalf("DeleteLineItem failed: %v", err)
		}
		if _, err := store.GetLineItem(ctx, item.LineID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetLineItem after delete error = %v, want ErrNotFound", err)
		}
		got, err := store.ListAssignments(ctx)
		if err != nil {
			t.Fatalf("ListAssignments failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("ListAssignments returned %d after delete, want 0", len(got))
		}
		if err := store.DeleteLineItem(ctx, item.LineID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second DeleteLineItem error = %v, want ErrNotFound", err)
		}
	})
}

func TestNextID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("monotonic per sequence", func(t *testing.T) {
		var last int64
		for i := 0; i < 5; i++ {
			id, err := store.NextID(ctx, storage.SeqLineItems)
			if err != nil {
				t.Fatalf("NextID failed: %v", err)
			}
			if id <= last {
				t.Fatalf("NextID = %d after %d", id, last)
			}
			last = id
		}

		id, err := store.NextID(ctx, storage.SeqSettlements)
		if err != nil {
			t.Fatalf("NextID failed: %v", err)
		}
		if id != 1 {
			t.Errorf("first settlement id = %d, want 1", id)
		}
	})

	t.Run("skips ids inserted explicitly", func(t *testing.T) {
		if err := store.CreateUser(ctx, &models.User{UserID: 41, FullName: "Preset"}); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		id, err := store.NextID(ctx, storage.SeqUsers)
		if err != nil {
			t.Fatalf("NextID failed: %v", err)
		}
		if id != 42 {
			t.Errorf("NextID(users) = %d, want 42", id)
		}

		if err := store.CreateUser(ctx, &models.User{UserID: 100, FullName: "Later"}); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		id, err = store.NextID(ctx, storage.SeqUsers)
		if err != nil {
			t.Fatalf("NextID failed: %v", err)
		}
		if id != 101 {
			t.Errorf("NextID(users) = %d, want 101", id)
		}
	})

	t.Run("unknown sequence", func(t *testing.T) {
		if _, err := store.NextID(ctx, "bogus"); err == nil {
			t.Error("expected error for unknown sequence")
		}
	})
}

func TestNew_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "ledger.db")
	ctx := context.Background()

	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := store.CreateUser(ctx, &models.User{FullName: "Alice"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	store.Close()

	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	users, err := reopened.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 1 || users[0].FullName != "Alice" {
		t.Errorf("ListUsers after reopen = %+v", users)
	}
}
