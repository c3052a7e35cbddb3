package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

const lineItemColumns = "line_id, receipt_id, store_name, purchase_date, item_name, price, paid_by"

// CreateLineItem persists a new line item to the database.
func (s *SQLiteStore) CreateLineItem(ctx context.Context, item *models.LineItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if item.LineID == 0 {
		id, err := nextID(ctx, tx, storage.SeqLineItems)
		if err != nil {
			return err
		}
		item.LineID = id
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO line_items ("+lineItemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		item.LineID, item.ReceiptID, item.StoreName, formatDate(item.PurchaseDate),
		item.ItemName, item.Price.String(), nullID(int64(item.PaidBy)),
	)
	if err != nil {
		return fmt.Errorf("failed to insert line item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetLineItem retrieves a line item by id.
func (s *SQLiteStore) GetLineItem(ctx context.Context, lineID int64) (*models.LineItem, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+lineItemColumns+" FROM line_items WHERE line_id = ?",
		lineID,
	)
	item, err := scanLineItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("line item %d: %w", lineID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get line item: %w", err)
	}
	return &item, nil
}

// ListLineItems retrieves all line items ordered by id.
func (s *SQLiteStore) ListLineItems(ctx context.Context) ([]models.LineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+lineItemColumns+" FROM line_items ORDER BY line_id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate line items: %w", err)
	}

	return items, nil
}

// DeleteLineItem removes a line item. Its assignments go with it.
func (s *SQLiteStore) DeleteLineItem(ctx context.Context, lineID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM line_items WHERE line_id = ?", lineID)
	if err != nil {
		return fmt.Errorf("failed to delete line item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete line item: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("line item %d: %w", lineID, storage.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLineItem(row rowScanner) (models.LineItem, error) {
	var (
		item   models.LineItem
		date   string
		paidBy sql.NullInt64
	)
	if err := row.Scan(&item.LineID, &item.ReceiptID, &item.StoreName, &date,
		&item.ItemName, &item.Price, &paidBy); err != nil {
		return models.LineItem{}, err
	}

	purchased, err := parseDate(date)
	if err != nil {
		return models.LineItem{}, err
	}
	item.PurchaseDate = purchased
	if paidBy.Valid {
		item.PaidBy = models.ParticipantID(paidBy.Int64)
	}
	return item, nil
}
