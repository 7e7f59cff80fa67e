package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/fintrack/backend/src/models"
)

const transactionColumns = `id, transaction_time, description, amount, currency, source, source_id, category, raw_data, created_at, updated_at`

// InsertTransaction persists a new transaction record. created_at and
// updated_at are assigned by the database; any values on tx are ignored.
//
// If tx.SourceID is non-null and already stored, the outcome depends on the
// store's duplicate policy: DuplicateReject returns ErrDuplicateSourceID and
// leaves the table untouched, DuplicateIgnore succeeds without inserting
// (idempotent re-ingestion). Rows with a null SourceID are never subject to
// deduplication.
func (s *Store) InsertTransaction(ctx context.Context, tx *models.Transaction) error {
	statement := `
	INSERT INTO transactions (transaction_time, description, amount, currency, source, source_id, category, raw_data)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if s.onDuplicate == DuplicateIgnore {
		statement += `
	ON CONFLICT(source_id) DO NOTHING`
	}

	err := s.Exec(ctx, statement,
		tx.TransactionTime,
		tx.Description,
		tx.Amount,
		tx.Currency,
		tx.Source,
		tx.SourceID,
		tx.Category,
		tx.RawData,
	)
	if err != nil {
		if tx.SourceID.Valid && isUniqueViolation(err) {
			return fmt.Errorf("insert transaction (source_id %q): %w", tx.SourceID.String, ErrDuplicateSourceID)
		}
		return err
	}
	return nil
}

// GetTransactionBySourceID looks a transaction up by its dedup key.
// Returns ErrNotFound when no row carries sourceID.
func (s *Store) GetTransactionBySourceID(ctx context.Context, sourceID string) (*models.Transaction, error) {
	statement := `
	SELECT ` + transactionColumns + `
	FROM transactions
	WHERE source_id = ?`

	row := s.db.QueryRowContext(ctx, statement, sourceID)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source_id %q: %w", sourceID, ErrNotFound)
		}
		s.logger.Error("Error fetching transaction", "sourceID", sourceID, "error", err)
		return nil, fmt.Errorf("get transaction by source_id: %w", err)
	}
	return tx, nil
}

// ListTransactionsByTimeRange returns all transactions with
// from <= transaction_time < to, ordered by time then id. Bounds are ISO 8601
// strings compared lexicographically, which matches chronological order for
// that format. An empty result is a non-nil empty slice.
func (s *Store) ListTransactionsByTimeRange(ctx context.Context, from, to string) ([]models.Transaction, error) {
	statement := `
	SELECT ` + transactionColumns + `
	FROM transactions
	WHERE transaction_time >= ? AND transaction_time < ?
	ORDER BY transaction_time ASC, id ASC`
	return s.listTransactions(ctx, statement, from, to)
}

// ListTransactionsByCategory returns all transactions assigned the given
// category, ordered by time then id. An empty result is a non-nil empty slice.
func (s *Store) ListTransactionsByCategory(ctx context.Context, category string) ([]models.Transaction, error) {
	statement := `
	SELECT ` + transactionColumns + `
	FROM transactions
	WHERE category = ?
	ORDER BY transaction_time ASC, id ASC`
	return s.listTransactions(ctx, statement, category)
}

// UpdateTransactionCategory assigns a category to an existing transaction.
// This is the only supported post-insert mutation; updated_at is refreshed by
// the database trigger, never by the caller. Returns ErrNotFound when id does
// not exist.
func (s *Store) UpdateTransactionCategory(ctx context.Context, id int64, category string) error {
	statement := `UPDATE transactions SET category = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, statement, category, id)
	if err != nil {
		s.logger.Error("Error executing update", "query", statement, "params", []any{category, id}, "error", err)
		return fmt.Errorf("update category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction id %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) listTransactions(ctx context.Context, statement string, params ...any) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, statement, params...)
	if err != nil {
		s.logger.Error("Error executing query", "query", statement, "params", params, "error", err)
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			s.logger.Error("Error scanning transaction", "error", err)
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("Error iterating transactions", "error", err)
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return transactions, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.Scan(
		&tx.ID,
		&tx.TransactionTime,
		&tx.Description,
		&tx.Amount,
		&tx.Currency,
		&tx.Source,
		&tx.SourceID,
		&tx.Category,
		&tx.RawData,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
