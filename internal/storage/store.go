// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitledger/internal/models"
)

// ErrNotFound is returned (wrapped) when a record does not exist.
var ErrNotFound = errors.New("not found")

// Sequence names an id sequence handed out by Store.NextID.
type Sequence string

const (
	SeqUsers       Sequence = "users"
	SeqLineItems   Sequence = "line_items"
	SeqAssignments Sequence = "assignments"
	SeqSettlements Sequence = "settlements"
)

// Store defines the data-access operations the ledger needs.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer. Implementations are passed to callers
// explicitly; there is no package-level client.
type Store interface {
	// NextID atomically allocates the next id of a sequence. Ids are never
	// handed out twice, and never collide with ids already stored.
	NextID(ctx context.Context, seq Sequence) (int64, error)

	// CreateUser persists a user. A zero UserID is allocated by the store.
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id models.ParticipantID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// CreateLineItem persists a line item. A zero LineID is allocated by the store.
	CreateLineItem(ctx context.Context, item *models.LineItem) error
	GetLineItem(ctx context.Context, lineID int64) (*models.LineItem, error)
	ListLineItems(ctx context.Context) ([]models.LineItem, error)

	// DeleteLineItem removes a line item together with its assignments.
	DeleteLineItem(ctx context.Context, lineID int64) error

	// CreateAssignment persists an assignment. A zero MappingID is allocated by the store.
	CreateAssignment(ctx context.Context, a *models.Assignment) error
	ListAssignments(ctx context.Context) ([]models.Assignment, error)
	DeleteAssignment(ctx context.Context, mappingID int64) error

	// SetAssignmentStatus updates the status of every listed assignment in
	// one transaction.
	SetAssignmentStatus(ctx context.Context, mappingIDs []int64, status models.AssignmentStatus) error

	// CreateSettlement persists a settlement. A zero SettlementID is allocated by the store.
	CreateSettlement(ctx context.Context, s *models.Settlement) error
	GetSettlement(ctx context.Context, id int64) (*models.Settlement, error)
	ListSettlements(ctx context.Context) ([]models.Settlement, error)

	// Close releases any resources held by the store.
	Close() error
}
