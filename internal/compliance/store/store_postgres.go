package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"mrcreams/internal/compliance/models"
	dErrors "mrcreams/pkg/domain-errors"
)

// PostgresStore persists the activity register in PostgreSQL and runs the
// report aggregates.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed compliance store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListActivities(ctx context.Context, activeOnly bool) ([]*models.Activity, error) {
	query := `
		SELECT id, activity_name, purpose, legal_basis, data_categories, retention_period, is_active, created_at, updated_at
		FROM data_processing_activities
	`
	if activeOnly {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY activity_name ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list processing activities: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(
			&a.ID,
			&a.ActivityName,
			&a.Purpose,
			&a.LegalBasis,
			&a.DataCategories,
			&a.RetentionPeriod,
			&a.IsActive,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan processing activity: %w", err)
		}
		activities = append(activities, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processing activities: %w", err)
	}
	return activities, nil
}

// UpdateActivity builds the SET clause only from allow-listed column names.
// Values are always bound positionally; column names never come from the
// request verbatim.
func (s *PostgresStore) UpdateActivity(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return dErrors.New(dErrors.CodeValidation, "no fields to update")
	}

	columns := make([]string, 0, len(updates))
	for column := range updates {
		if !UpdatableColumn(column) {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("field %q is not updatable", column))
		}
		columns = append(columns, column)
	}
	sort.Strings(columns)

	set := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+1)
	args = append(args, id)
	for _, column := range columns {
		args = append(args, updates[column])
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	set = append(set, "updated_at = NOW()")

	query := fmt.Sprintf(
		"UPDATE data_processing_activities SET %s WHERE id = $1",
		strings.Join(set, ", "),
	)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update processing activity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update processing activity rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertActivity adds one register entry. Used by seeding, not by the
// request path.
func (s *PostgresStore) InsertActivity(ctx context.Context, a *models.Activity) error {
	if a == nil {
		return fmt.Errorf("activity is required")
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO data_processing_activities
			(id, activity_name, purpose, legal_basis, data_categories, retention_period, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, a.ActivityName, a.Purpose, a.LegalBasis, a.DataCategories, a.RetentionPeriod, a.IsActive, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert processing activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) ConsentStatistics(ctx context.Context, start, end time.Time) ([]models.ConsentTypeCount, error) {
	query := `
		SELECT consent_type,
		       COUNT(*) FILTER (WHERE granted) AS granted,
		       COUNT(*) FILTER (WHERE NOT granted) AS revoked
		FROM consent_records
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY consent_type
		ORDER BY consent_type
	`
	rows, err := s.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("consent statistics: %w", err)
	}
	defer rows.Close()

	var stats []models.ConsentTypeCount
	for rows.Next() {
		var c models.ConsentTypeCount
		if err := rows.Scan(&c.ConsentType, &c.Granted, &c.Revoked); err != nil {
			return nil, fmt.Errorf("scan consent statistics: %w", err)
		}
		stats = append(stats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consent statistics: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) ProcessingStatistics(ctx context.Context) (models.ProcessingStats, error) {
	var stats models.ProcessingStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active)
		FROM data_processing_activities
	`).Scan(&stats.Total, &stats.Active)
	if err != nil {
		return models.ProcessingStats{}, fmt.Errorf("processing statistics: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) DeletionStatistics(ctx context.Context, start, end time.Time) (models.DeletionStats, error) {
	var stats models.DeletionStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'pending')
		FROM deletion_requests
		WHERE requested_at >= $1 AND requested_at < $2
	`, start, end).Scan(&stats.Total, &stats.Completed, &stats.Pending)
	if err != nil {
		return models.DeletionStats{}, fmt.Errorf("deletion statistics: %w", err)
	}
	return stats, nil
}
