package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// categoryQueries maps each bundle category to its source query. Therapy
// sessions are scoped by client_id rather than user_id; everything else keys
// on user_id directly.
var categoryQueries = map[string]string{
	CategoryProfile: `
		SELECT id, email, display_name, created_at
		FROM users WHERE id = $1`,
	CategoryEmotionCheckins: `
		SELECT id, emotion, intensity, note, created_at
		FROM emotion_checkins WHERE user_id = $1 ORDER BY created_at DESC`,
	CategoryConflicts: `
		SELECT id, title, description, status, created_at
		FROM conflicts WHERE user_id = $1 ORDER BY created_at DESC`,
	CategoryTherapySessions: `
		SELECT id, therapist, notes, scheduled_at, created_at
		FROM therapy_sessions WHERE client_id = $1 ORDER BY created_at DESC`,
	CategoryConsentRecords: `
		SELECT id, consent_type, consent_version, granted, granted_at, revoked_at, created_at
		FROM consent_records WHERE user_id = $1 ORDER BY created_at DESC`,
	CategoryAuditLog: `
		SELECT id, action, resource_type, details, created_at
		FROM audit_log WHERE user_id = $1 ORDER BY created_at DESC`,
	CategorySupportTickets: `
		SELECT id, subject, body, status, created_at
		FROM support_tickets WHERE user_id = $1 ORDER BY created_at DESC`,
}

// PostgresStore reads export categories from PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed export store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FetchCategory runs the category's query and converts rows generically,
// preserving column order so every output format lists fields identically.
func (s *PostgresStore) FetchCategory(ctx context.Context, name string, userID uuid.UUID) ([]Record, error) {
	query, ok := categoryQueries[name]
	if !ok {
		return nil, fmt.Errorf("unknown export category %q", name)
	}

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", name, err)
	}

	var records []Record
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}

		fields := make([]Field, len(columns))
		for i, col := range columns {
			fields[i] = Field{Key: col, Value: values[i]}
		}
		records = append(records, Record{Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}
	return records, nil
}
