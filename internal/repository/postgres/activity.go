package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NathiDhliso/ReelApps-sub001/internal/core/domain"
	"github.com/NathiDhliso/ReelApps-sub001/internal/core/port"
	"github.com/NathiDhliso/ReelApps-sub001/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ActivityRepository implements port.ActivityRepository backed by PostgreSQL.
// The table keeps one row per user; a new login replaces the previous
// session's record in place.
type ActivityRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewActivityRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewActivityRepository(exec pgExecutor) *ActivityRepository {
	repo := &ActivityRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// Upsert inserts or replaces the activity record keyed by user id.
func (r *ActivityRepository) Upsert(ctx context.Context, record domain.SessionActivityRecord) error {
	sqlStmt, args, err := r.builder.Insert("sso.user_sessions").
		Columns(
			"user_id",
			"last_activity",
			"expires_at",
			"is_active",
			"ip_address",
			"user_agent",
			"session_id",
			"invalidated_at",
			"created_at",
			"updated_at",
		).
		Values(
			record.UserID,
			record.LastActivity,
			record.ExpiresAt,
			record.IsActive,
			record.IPAddress,
			record.UserAgent,
			record.SessionID,
			record.InvalidatedAt,
			record.CreatedAt,
			record.UpdatedAt,
		).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			last_activity = EXCLUDED.last_activity,
			expires_at = EXCLUDED.expires_at,
			is_active = EXCLUDED.is_active,
			ip_address = EXCLUDED.ip_address,
			user_agent = EXCLUDED.user_agent,
			session_id = EXCLUDED.session_id,
			invalidated_at = EXCLUDED.invalidated_at,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert session activity sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStmt, args...); err != nil {
		return fmt.Errorf("upsert session activity: %w", err)
	}

	return nil
}

// GetByUser fetches the activity record for a user.
func (r *ActivityRepository) GetByUser(ctx context.Context, userID string) (*domain.SessionActivityRecord, error) {
	stmt, args, err := r.builder.
		Select(
			"user_id",
			"last_activity",
			"expires_at",
			"is_active",
			"ip_address",
			"user_agent",
			"session_id",
			"invalidated_at",
			"created_at",
			"updated_at",
		).
		From("sso.user_sessions").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session activity sql: %w", err)
	}

	var record domain.SessionActivityRecord
	err = r.exec.QueryRow(ctx, stmt, args...).Scan(
		&record.UserID,
		&record.LastActivity,
		&record.ExpiresAt,
		&record.IsActive,
		&record.IPAddress,
		&record.UserAgent,
		&record.SessionID,
		&record.InvalidatedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select session activity: %w", err)
	}

	return &record, nil
}

// InvalidateAllForUser marks every active record for the user inactive except
// the one bound to exceptSessionID, returning how many rows changed.
func (r *ActivityRepository) InvalidateAllForUser(ctx context.Context, userID, exceptSessionID string, at time.Time) (int, error) {
	update := r.builder.Update("sso.user_sessions").
		Set("is_active", false).
		Set("invalidated_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Eq{"is_active": true})
	if exceptSessionID != "" {
		update = update.Where(squirrel.NotEq{"session_id": exceptSessionID})
	}

	stmt, args, err := update.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build invalidate session activity sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("invalidate session activity: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

var _ port.ActivityRepository = (*ActivityRepository)(nil)
