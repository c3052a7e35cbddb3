package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
)

// CreateAssignment persists a new responsibility mapping.
func (s *SQLiteStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	if a.Status == "" {
		a.Status = models.StatusUnpaid
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if a.MappingID == 0 {
		id, err := nextID(ctx, tx, storage.SeqAssignments)
		if err != nil {
			return err
		}
		a.MappingID = id
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO assignments (mapping_id, line_id, user_id, status) VALUES (?, ?, ?, ?)",
		a.MappingID, nullID(a.LineID), nullID(int64(a.UserID)), string(a.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListAssignments retrieves all assignments ordered by line, then mapping id.
func (s *SQLiteStore) ListAssignments(ctx context.Context) ([]models.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT mapping_id, line_id, user_id, status
		 FROM assignments ORDER BY line_id, mapping_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []models.Assignment
	for rows.Next() {
		var (
			a      models.Assignment
			lineID sql.NullInt64
			userID sql.NullInt64
			status string
		)
		if err := rows.Scan(&a.MappingID, &lineID, &userID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		a.LineID = lineID.Int64
		a.UserID = models.ParticipantID(userID.Int64)
		a.Status = models.AssignmentStatus(status)
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}

	return assignments, nil
}

// DeleteAssignment removes an assignment by mapping id.
func (s *SQLiteStore) DeleteAssignment(ctx context.Context, mappingID int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM assignments WHERE mapping_id = ?", mappingID)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("assignment %d: %w", mappingID, storage.ErrNotFound)
	}
	return nil
}

// SetAssignmentStatus updates the status of the given assignments.
// Unknown mapping ids are an error and nothing is changed.
func (s *SQLiteStore) SetAssignmentStatus(ctx context.Context, mappingIDs []int64, status models.AssignmentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid assignment status: %q", status)
	}
	if len(mappingIDs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range mappingIDs {
		res, err := tx.ExecContext(ctx,
			"UPDATE assignments SET status = ? WHERE mapping_id = ?",
			string(status), id,
		)
		if err != nil {
			return fmt.Errorf("failed to update assignment: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update assignment: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("assignment %d: %w", id, storage.ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
