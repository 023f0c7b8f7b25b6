package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mrcreams/internal/consent/models"
)

// PostgresStore persists the consent ledger in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed consent store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record *models.Record) error {
	if record == nil {
		return fmt.Errorf("consent record is required")
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO consent_records
			(id, user_id, consent_type, consent_version, granted, granted_at, revoked_at, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.UserID,
		record.ConsentType,
		record.ConsentVersion,
		record.Granted,
		record.GrantedAt,
		record.RevokedAt,
		record.IPAddress,
		record.UserAgent,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append consent record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, userID uuid.UUID, consentType string) (*models.Record, error) {
	query := `
		SELECT id, user_id, consent_type, consent_version, granted, granted_at, revoked_at, ip_address, user_agent, created_at
		FROM consent_records
		WHERE user_id = $1 AND consent_type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, userID, consentType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest consent record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Record, error) {
	query := `
		SELECT id, user_id, consent_type, consent_version, granted, granted_at, revoked_at, ip_address, user_agent, created_at
		FROM consent_records
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list consent records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent records: %w", err)
	}
	return records, nil
}

// RevokeActive stamps revoked_at on every currently active record of the
// given type. History is preserved; nothing is deleted.
func (s *PostgresStore) RevokeActive(ctx context.Context, userID uuid.UUID, consentType string, revokedAt time.Time) (int64, error) {
	query := `
		UPDATE consent_records
		SET revoked_at = $3
		WHERE user_id = $1 AND consent_type = $2 AND granted = TRUE AND revoked_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query, userID, consentType, revokedAt)
	if err != nil {
		return 0, fmt.Errorf("revoke active consents: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke active consents rows: %w", err)
	}
	return affected, nil
}

type recordRow interface {
	Scan(dest ...any) error
}

func scanRecord(row recordRow) (*models.Record, error) {
	var record models.Record
	var grantedAt, revokedAt sql.NullTime
	var ipAddress, userAgent sql.NullString
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.ConsentType,
		&record.ConsentVersion,
		&record.Granted,
		&grantedAt,
		&revokedAt,
		&ipAddress,
		&userAgent,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}
	if grantedAt.Valid {
		record.GrantedAt = &grantedAt.Time
	}
	if revokedAt.Valid {
		record.RevokedAt = &revokedAt.Time
	}
	record.IPAddress = ipAddress.String
	record.UserAgent = userAgent.String
	return &record, nil
}
