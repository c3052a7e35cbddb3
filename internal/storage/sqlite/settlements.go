package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const settlementColumns = "settlement_id, from_user_id, to_user_id, amount_cents, created_at, note"

// CreateSettlement persists a new settlement to the database.
func (s *SQLiteStore) CreateSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.CreatedAt.IsZero() {
		settlement.CreatedAt = time.Now().UTC().Truncate(24 * time.Hour)
	}

	var note interface{} = nil
	if settlement.Note != "" {
		note = settlement.Note
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if settlement.SettlementID == 0 {
		id, err := nextID(ctx, tx, storage.SeqSettlements)
		if err != nil {
			return err
		}
		settlement.SettlementID = id
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO settlements ("+settlementColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		settlement.SettlementID, int64(settlement.FromUserID), int64(settlement.ToUserID),
		settlement.AmountCents, formatDate(settlement.CreatedAt), note,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSettlement retrieves a settlement by ID.
func (s *SQLiteStore) GetSettlement(ctx context.Context, settlementID int64) (*models.Settlement, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+settlementColumns+" FROM settlements WHERE settlement_id = ?",
		settlementID,
	)
	settlement, err := scanSettlement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settlement %d: %w", settlementID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}

	return &settlement, nil
}

// ListSettlements retrieves all settlements, oldest first.
func (s *SQLiteStore) ListSettlements(ctx context.Context) ([]models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+settlementColumns+" FROM settlements ORDER BY created_at, settlement_id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []models.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, settlement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}

func scanSettlement(row rowScanner) (models.Settlement, error) {
	var (
		settlement models.Settlement
		created    string
		note       sql.NullString
	)
	if err := row.Scan(&settlement.SettlementID, &settlement.FromUserID, &settlement.ToUserID,
		&settlement.AmountCents, &created, &note); err != nil {
		return models.Settlement{}, err
	}

	createdAt, err := parseDate(created)
	if err != nil {
		return models.Settlement{}, err
	}
	settlement.CreatedAt = createdAt
	if note.Valid {
		settlement.Note = note.String
	}
	return settlement, nil
}
