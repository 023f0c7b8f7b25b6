package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"mrcreams/internal/deletion/models"
	"mrcreams/internal/sentinel"
)

// erasureTables lists the dependent tables in the order they can be cleared
// without violating foreign keys. The users row goes last.
var erasureTables = []struct {
	name   string
	column string
}{
	{"audit_log", "user_id"},
	{"consent_records", "user_id"},
	{"emotion_checkins", "user_id"},
	{"conflicts", "user_id"},
	{"therapy_sessions", "client_id"},
	{"support_tickets", "user_id"},
	{"user_metadata", "user_id"},
	{"users", "id"},
}

// PostgresStore persists deletion requests in PostgreSQL and runs the
// erasure transaction.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed deletion store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts a pending request after re-checking, inside the same
// transaction, that no pending or approved request exists for the user.
func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	if req == nil {
		return fmt.Errorf("deletion request is required")
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now()
	}
	req.Status = models.StatusPending

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin deletion request tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var outstanding bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM deletion_requests
			WHERE user_id = $1 AND status IN ('pending', 'approved')
		)
	`, req.UserID).Scan(&outstanding)
	if err != nil {
		return fmt.Errorf("check outstanding deletion request: %w", err)
	}
	if outstanding {
		return ErrOutstandingRequest
	}

	// The partial unique index on (user_id) WHERE status IN
	// ('pending','approved') backstops the check above under concurrency.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO deletion_requests (id, user_id, reason, status, requested_at)
		VALUES ($1, $2, $3, $4, $5)
	`, req.ID, req.UserID, req.Reason, req.Status, req.RequestedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrOutstandingRequest
		}
		return fmt.Errorf("insert deletion request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit deletion request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	query := `
		SELECT id, user_id, reason, status, requested_at, completed_at, processed_by
		FROM deletion_requests
		WHERE id = $1
	`
	req, err := scanRequest(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get deletion request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.Request, error) {
	query := `
		SELECT id, user_id, reason, status, requested_at, completed_at, processed_by
		FROM deletion_requests
		WHERE status = $1
		ORDER BY requested_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list deletion requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deletion request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deletion requests: %w", err)
	}
	return requests, nil
}

// SetStatus transitions a request from one state to another. The WHERE
// clause carries the expected current status so a stale transition affects
// zero rows and is reported as an invalid state.
func (s *PostgresStore) SetStatus(ctx context.Context, id uuid.UUID, from, to models.Status, processedBy uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deletion_requests
		SET status = $3, processed_by = $4
		WHERE id = $1 AND status = $2
	`, id, from, to, processedBy)
	if err != nil {
		return fmt.Errorf("update deletion request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update deletion request rows: %w", err)
	}
	if affected == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

// Erase removes every row referencing the user and marks the request
// completed. All statements run in one transaction; any failure rolls the
// whole erasure back so a partial deletion can never be reported as success.
func (s *PostgresStore) Erase(ctx context.Context, req *models.Request, processedBy uuid.UUID, completedAt time.Time) (map[string]int64, error) {
	if req == nil {
		return nil, fmt.Errorf("deletion request is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin erasure tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	counts := make(map[string]int64, len(erasureTables))
	for _, t := range erasureTables {
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE %s = $1", t.name, t.column), req.UserID)
		if err != nil {
			return nil, fmt.Errorf("erase %s: %w", t.name, err)
		}
		deleted, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("erase %s rows: %w", t.name, err)
		}
		counts[t.name] = deleted
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE deletion_requests
		SET status = $2, completed_at = $3, processed_by = $4
		WHERE id = $1 AND status = $5
	`, req.ID, models.StatusCompleted, completedAt, processedBy, models.StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("complete deletion request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("complete deletion request rows: %w", err)
	}
	if affected == 0 {
		return nil, sentinel.ErrInvalidState
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit erasure: %w", err)
	}
	return counts, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

type requestRow interface {
	Scan(dest ...any) error
}

func scanRequest(row requestRow) (*models.Request, error) {
	var req models.Request
	var completedAt sql.NullTime
	var processedBy uuid.NullUUID
	if err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.Reason,
		&req.Status,
		&req.RequestedAt,
		&completedAt,
		&processedBy,
	); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		req.CompletedAt = &completedAt.Time
	}
	if processedBy.Valid {
		id := processedBy.UUID
		req.ProcessedBy = &id
	}
	return &req, nil
}
