package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
	"github.com/mmynk/splitledger/internal/storage"
)

// Common errors
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNegativeSettlement = errors.New("settlement amount must be positive")
	ErrSelfSettlement     = errors.New("cannot settle with yourself")
	ErrAlreadyAssigned    = errors.New("user is already responsible for this item")
)

// dateLayout is the accepted format for request dates.
const dateLayout = "2006-01-02"

// LedgerService orchestrates the record store and the balance calculator.
type LedgerService struct {
	store   storage.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewLedgerService creates a LedgerService over the given storage backend.
// m may be nil.
func NewLedgerService(store storage.Store, m *metrics.Metrics) *LedgerService {
	return &LedgerService{store: store, metrics: m, now: time.Now}
}

// CreateUserRequest is the input for CreateUser.
type CreateUserRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// CreateLineItemRequest is the input for CreateLineItem. Price is a decimal
// dollar string such as "4.99".
type CreateLineItemRequest struct {
	ReceiptID    string               `json:"receipt_id"`
	StoreName    string               `json:"store_name"`
	PurchaseDate string               `json:"purchase_date"`
	ItemName     string               `json:"item_name"`
	Price        string               `json:"price"`
	PaidBy       models.ParticipantID `json:"paid_by"`
}

// RecordSettlementRequest is the input for RecordSettlement. Amount is a
// decimal dollar string; Date defaults to today.
type RecordSettlementRequest struct {
	FromUserID models.ParticipantID `json:"from_user_id"`
	ToUserID   models.ParticipantID `json:"to_user_id"`
	Amount     string               `json:"amount"`
	Date       string               `json:"date"`
	Note       string               `json:"note"`
}

// SettlementResult is a recorded settlement plus the assignments it paid off.
type SettlementResult struct {
	Settlement models.Settlement
	MarkedPaid []int64
}

// ResponsibilityView is one assignment joined with its item and user names.
type ResponsibilityView struct {
	MappingID  int64                   `json:"mapping_id"`
	LineID     int64                   `json:"line_id"`
	ReceiptID  string                  `json:"receipt_id"`
	ItemName   string                  `json:"item_name"`
	PriceCents int64                   `json:"price_cents"`
	UserName   string                  `json:"user_name"`
	Status     models.AssignmentStatus `json:"status"`
	PaidBy     string                  `json:"paid_by"`
}

// EdgeView is a netted edge with resolved names.
type EdgeView struct {
	DebtorID    models.ParticipantID `json:"debtor_id"`
	Debtor      string               `json:"debtor"`
	CreditorID  models.ParticipantID `json:"creditor_id"`
	Creditor    string               `json:"creditor"`
	AmountCents int64                `json:"amount_cents"`
}

// MemberView is one participant's net position.
// Positive = owed money, negative = owes money.
type MemberView struct {
	UserID   models.ParticipantID `json:"user_id"`
	Name     string               `json:"name"`
	NetCents int64                `json:"net_cents"`
}

// BalanceSummary is the presentation-ready result of a balance computation.
type BalanceSummary struct {
	Edges            []EdgeView   `json:"edges"`
	Members          []MemberView `json:"members"`
	OutstandingCents int64        `json:"outstanding_cents"`
}

// CreateUser registers a participant.
func (s *LedgerService) CreateUser(ctx context.Context, req CreateUserRequest) (*models.User, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrInvalidArgument)
	}

	user := &models.User{FullName: name, Email: strings.TrimSpace(req.Email)}
	if err := s.store.CreateUser(ctx, user); err != nil {
		slog.Error("CreateUser failed", "error", err)
		return nil, err
	}

	slog.Info("User created", "user_id", user.UserID)
	return user, nil
}

// ListUsers returns every participant ordered by id.
func (s *LedgerService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// CreateLineItem validates and stores a purchased item.
func (s *LedgerService) CreateLineItem(ctx context.Context, req CreateLineItemRequest) (*models.LineItem, error) {
	if strings.TrimSpace(req.ItemName) == "" {
		return nil, fmt.Errorf("%w: item name is required", ErrInvalidArgument)
	}

	price, err := money.ParseAmount(req.Price)
	if err != nil {
		return nil, err
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrInvalidArgument)
	}
	// Reject anything the calculator could not convert later.
	if _, err := money.ToCents(price); err != nil {
		return nil, fmt.Errorf("price %q: %w", req.Price, err)
	}

	purchased, err := parseDate(req.PurchaseDate)
	if err != nil {
		return nil, err
	}

	if err := s.requireUser(ctx, req.PaidBy); err != nil {
		return nil, err
	}

	item := &models.LineItem{
		ReceiptID:    strings.TrimSpace(req.ReceiptID),
		StoreName:    strings.TrimSpace(req.StoreName),
		PurchaseDate: purchased,
		ItemName:     strings.TrimSpace(req.ItemName),
		Price:        price,
		PaidBy:       req.PaidBy,
	}
	if err := s.store.CreateLineItem(ctx, item); err != nil {
		slog.Error("CreateLineItem failed", "error", err)
		return nil, err
	}

	slog.Info("Line item created",
		"line_id", item.LineID,
		"receipt_id", item.ReceiptID,
		"price", item.Price.String(),
		"paid_by", item.PaidBy,
	)
	return item, nil
}

// ListLineItems returns line items, limited to one receipt when receiptID
// is not empty.
func (s *LedgerService) ListLineItems(ctx context.Context, receiptID string) ([]models.LineItem, error) {
	items, err := s.store.ListLineItems(ctx)
	if err != nil {
		return nil, err
	}
	if receiptID == "" {
		return items, nil
	}

	var filtered []models.LineItem
	for _, item := range items {
		if item.ReceiptID == receiptID {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// ListReceipts returns the distinct non-empty receipt ids, sorted.
func (s *LedgerService) ListReceipts(ctx context.Context) ([]string, error) {
	items, err := s.store.ListLineItems(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var receipts []string
	for _, item := range items {
		if item.ReceiptID == "" || seen[item.ReceiptID] {
			continue
		}
		seen[item.ReceiptID] = true
		receipts = append(receipts, item.ReceiptID)
	}
	slices.Sort(receipts)
	return receipts, nil
}

// DeleteLineItem removes an item and its assignments.
func (s *LedgerService) DeleteLineItem(ctx context.Context, lineID int64) error {
	if err := s.store.DeleteLineItem(ctx, lineID); err != nil {
		slog.Warn("DeleteLineItem failed", "line_id", lineID, "error", err)
		return err
	}
	slog.Info("Line item deleted", "line_id", lineID)
	return nil
}

// AssignItem makes userID responsible for a share of line lineID.
func (s *LedgerService) AssignItem(ctx context.Context, lineID int64, userID models.ParticipantID) (*models.Assignment, error) {
	if _, err := s.store.GetLineItem(ctx, lineID); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	existing, err := s.store.ListAssignments(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.LineID == lineID && a.UserID == userID {
			return nil, fmt.Errorf("%w: line %d, user %d", ErrAlreadyAssigned, lineID, userID)
		}
	}

	a := &models.Assignment{LineID: lineID, UserID: userID, Status: models.StatusUnpaid}
	if err := s.store.CreateAssignment(ctx, a); err != nil {
		slog.Error("AssignItem failed", "line_id", lineID, "user_id", userID, "error", err)
		return nil, err
	}

	slog.Info("Item assigned", "mapping_id", a.MappingID, "line_id", lineID, "user_id", userID)
	return a, nil
}

// Unassign removes an assignment.
func (s *LedgerService) Unassign(ctx context.Context, mappingID int64) error {
	if err := s.store.DeleteAssignment(ctx, mappingID); err != nil {
		slog.Warn("Unassign failed", "mapping_id", mappingID, "error", err)
		return err
	}
	return nil
}

// ListResponsibilities joins every assignment with its item and names,
// ordered by line id. Assignments for missing items are left out.
func (s *LedgerService) ListResponsibilities(ctx context.Context) ([]ResponsibilityView, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	itemsByLine := make(map[int64]models.LineItem, len(snap.items))
	for _, item := range snap.items {
		itemsByLine[item.LineID] = item
	}

	views := make([]ResponsibilityView, 0, len(snap.assignments))
	for _, a := range snap.assignments {
		item, ok := itemsByLine[a.LineID]
		if !ok {
			continue
		}
		priceCents, err := money.ToCents(item.Price)
		if err != nil {
			return nil, fmt.Errorf("line %d price: %w", item.LineID, err)
		}
		views = append(views, ResponsibilityView{
			MappingID:  a.MappingID,
			LineID:     a.LineID,
			ReceiptID:  item.ReceiptID,
			ItemName:   item.ItemName,
			PriceCents: priceCents,
			UserName:   models.DisplayName(snap.names, a.UserID),
			Status:     a.Status,
			PaidBy:     models.DisplayName(snap.names, item.PaidBy),
		})
	}

	slices.SortStableFunc(views, func(a, b ResponsibilityView) int {
		return cmp.Compare(a.LineID, b.LineID)
	})
	return views, nil
}

// RecordSettlement validates and stores a payment, then marks the payer's
// assignments it covers as paid.
func (s *LedgerService) RecordSettlement(ctx context.Context, req RecordSettlementRequest) (*SettlementResult, error) {
	cents, err := money.ParseCents(req.Amount)
	if err != nil {
		return nil, err
	}
	if cents <= 0 {
		return nil, ErrNegativeSettlement
	}
	if req.FromUserID == req.ToUserID {
		return nil, ErrSelfSettlement
	}
	if err := s.requireUser(ctx, req.FromUserID); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, req.ToUserID); err != nil {
		return nil, err
	}

	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if date.IsZero() {
		y, m, d := s.now().Date()
		date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	settlement := &models.Settlement{
		FromUserID:  req.FromUserID,
		ToUserID:    req.ToUserID,
		AmountCents: cents,
		CreatedAt:   date,
		Note:        strings.TrimSpace(req.Note),
	}
	if err := s.store.CreateSettlement(ctx, settlement); err != nil {
		slog.Error("RecordSettlement failed", "error", err)
		return nil, err
	}

	marked, err := s.reconcile(ctx, *settlement)
	if err != nil {
		// The settlement itself is stored; balances already account for it.
		slog.Error("Settlement reconciliation failed",
			"settlement_id", settlement.SettlementID,
			"error", err,
		)
		return nil, fmt.Errorf("settlement %d recorded but reconciliation failed: %w", settlement.SettlementID, err)
	}

	s.metrics.SettlementRecorded(cents, len(marked))
	slog.Info("Settlement recorded",
		"settlement_id", settlement.SettlementID,
		"from_user_id", settlement.FromUserID,
		"to_user_id", settlement.ToUserID,
		"amount_cents", cents,
		"marked_paid", len(marked),
	)

	return &SettlementResult{Settlement: *settlement, MarkedPaid: marked}, nil
}

// ListSettlements returns every recorded settlement, oldest first.
func (s *LedgerService) ListSettlements(ctx context.Context) ([]models.Settlement, error) {
	return s.store.ListSettlements(ctx)
}

// Balances computes the current balances and resolves display names.
// Edges are ordered by debtor name then creditor name; members by name.
// Every known user is listed, with a zero net when they have no edges.
func (s *LedgerService) Balances(ctx context.Context) (*BalanceSummary, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := calculator.Compute(snap.items, snap.assignments, snap.settlements)
	if err != nil {
		s.metrics.BalanceFailed()
		slog.Error("Balance computation failed", "error", err)
		return nil, fmt.Errorf("compute balances: %w", err)
	}
	s.metrics.ObserveBalances(time.Since(start), res)

	summary := &BalanceSummary{
		Edges:   make([]EdgeView, 0, len(res.Edges)),
		Members: make([]MemberView, 0, len(snap.names)),
	}
	for _, e := range res.Edges {
		summary.Edges = append(summary.Edges, EdgeView{
			DebtorID:    e.Debtor,
			Debtor:      models.DisplayName(snap.names, e.Debtor),
			CreditorID:  e.Creditor,
			Creditor:    models.DisplayName(snap.names, e.Creditor),
			AmountCents: e.AmountCents,
		})
		summary.OutstandingCents += e.AmountCents
	}
	slices.SortFunc(summary.Edges, func(a, b EdgeView) int {
		return cmp.Or(
			strings.Compare(a.Debtor, b.Debtor),
			strings.Compare(a.Creditor, b.Creditor),
			cmp.Compare(a.DebtorID, b.DebtorID),
			cmp.Compare(a.CreditorID, b.CreditorID),
		)
	})

	ids := make(map[models.ParticipantID]bool, len(snap.names)+len(res.Net))
	for id := range snap.names {
		ids[id] = true
	}
	for id := range res.Net {
		ids[id] = true
	}
	for id := range ids {
		summary.Members = append(summary.Members, MemberView{
			UserID:   id,
			Name:     models.DisplayName(snap.names, id),
			NetCents: res.Net[id],
		})
	}
	slices.SortFunc(summary.Members, func(a, b MemberView) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.UserID, b.UserID))
	})

	slog.Debug("Balances computed",
		"items", len(snap.items),
		"assignments", len(snap.assignments),
		"settlements", len(snap.settlements),
		"edges", len(res.Edges),
	)
	return summary, nil
}

// snapshot is one read of every record set the calculator needs.
type snapshot struct {
	names       map[models.ParticipantID]string
	items       []models.LineItem
	assignments []models.Assignment
	settlements []models.Settlement
}

func (s *LedgerService) snapshot(ctx context.Context) (*snapshot, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.store.ListLineItems(ctx)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.ListAssignments(ctx)
	if err != nil {
		return nil, err
	}
	settlements, err := s.store.ListSettlements(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[models.ParticipantID]string, len(users))
	for _, u := range users {
		names[u.UserID] = u.FullName
	}
	return &snapshot{names: names, items: items, assignments: assignments, settlements: settlements}, nil
}

func (s *LedgerService) reconcile(ctx context.Context, settlement models.Settlement) ([]int64, error) {
	items, err := s.store.ListLineItems(ctx)
	if err != nil {
		return nil, err
	}
	assignments, err := s.store.ListAssignments(ctx)
	if err != nil {
		return nil, err
	}

	settlements, err := s.store.ListSettlements(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := SettledAssignments(items, assignments, settlements, settlement.FromUserID, settlement.ToUserID)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetAssignmentStatus(ctx, ids, models.StatusPaid); err != nil {
		return nil, err
	}
	return ids, nil
}

// requireUser fails with ErrInvalidArgument when id is not a known user.
func (s *LedgerService) requireUser(ctx context.Context, id models.ParticipantID) error {
	if id <= 0 {
		return fmt.Errorf("%w: user id is required", ErrInvalidArgument)
	}
	_, err := s.store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: unknown user %d", ErrInvalidArgument, id)
	}
	return err
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidArgument, s)
	}
	return t, nil
}
