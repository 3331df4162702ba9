package notification

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/visakit/pkg/pg"
)

// Migrations holds the embedded goose migrations for the notifications
// schema. Apply with pg.Migrate before constructing a PostgresStorage.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// PostgresStorage implements Storage on top of a PostgreSQL table using pgx.
// Claims are conditional UPDATE ... RETURNING statements and Mutate runs
// inside a row-locking transaction, so the same record is never mutated by
// two workers at once.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage creates a Postgres-backed notification storage.
func NewPostgresStorage(pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, errors.New("pgx pool is required")
	}
	return &PostgresStorage{pool: pool}, nil
}

const notificationColumns = `
	id, user_id, related_id, related_type, event_type, priority, title, message,
	metadata, channels, delivery, status, is_read, read_at, read_by,
	retry_count, max_retries, last_retry_at, archived, archived_at,
	scheduled_for, claimed_by, claimed_until, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.RelatedID, &n.RelatedType, &n.EventType,
		&n.Priority, &n.Title, &n.Message,
		&n.Metadata, &n.Channels, &n.Delivery, &n.Status,
		&n.IsRead, &n.ReadAt, &n.ReadBy,
		&n.RetryCount, &n.MaxRetries, &n.LastRetryAt,
		&n.Archived, &n.ArchivedAt,
		&n.ScheduledFor, &n.ClaimedBy, &n.ClaimedUntil,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *PostgresStorage) Create(ctx context.Context, n *Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	cp := n.Clone()
	cp.Normalize()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (
			id, user_id, related_id, related_type, event_type, priority, title, message,
			metadata, channels, delivery, status, is_read, read_at, read_by,
			retry_count, max_retries, last_retry_at, archived, archived_at,
			scheduled_for, claimed_by, claimed_until, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25
		)`,
		cp.ID, cp.UserID, cp.RelatedID, cp.RelatedType, cp.EventType,
		cp.Priority, cp.Title, cp.Message,
		cp.Metadata, cp.Channels, cp.Delivery, cp.Status,
		cp.IsRead, cp.ReadAt, cp.ReadBy,
		cp.RetryCount, cp.MaxRetries, cp.LastRetryAt,
		cp.Archived, cp.ArchivedAt,
		cp.ScheduledFor, cp.ClaimedBy, cp.ClaimedUntil,
		cp.CreatedAt, cp.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, id string) (*Notification, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)

	n, err := scanNotification(row)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notification: %w", err)
	}
	return n, nil
}

func (s *PostgresStorage) Mutate(ctx context.Context, id string, fn func(*Notification) error) (*Notification, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	row := tx.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1 FOR UPDATE`, id)

	n, err := scanNotification(row)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock notification: %w", err)
	}

	if err := fn(n); err != nil {
		return nil, err
	}

	n.Normalize()
	n.UpdatedAt = time.Now()

	_, err = tx.Exec(ctx, `
		UPDATE notifications SET
			related_id = $2, related_type = $3, event_type = $4, priority = $5,
			title = $6, message = $7, metadata = $8, channels = $9, delivery = $10,
			status = $11, is_read = $12, read_at = $13, read_by = $14,
			retry_count = $15, max_retries = $16, last_retry_at = $17,
			archived = $18, archived_at = $19, scheduled_for = $20,
			claimed_by = $21, claimed_until = $22, updated_at = $23
		WHERE id = $1`,
		n.ID, n.RelatedID, n.RelatedType, n.EventType, n.Priority,
		n.Title, n.Message, n.Metadata, n.Channels, n.Delivery,
		n.Status, n.IsRead, n.ReadAt, n.ReadBy,
		n.RetryCount, n.MaxRetries, n.LastRetryAt,
		n.Archived, n.ArchivedAt, n.ScheduledFor,
		n.ClaimedBy, n.ClaimedUntil, n.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit notification update: %w", err)
	}

	return n, nil
}

func (s *PostgresStorage) Claim(ctx context.Context, id string, workerID string, lease time.Duration) (*Notification, error) {
	now := time.Now()
	row := s.pool.QueryRow(ctx, `
		UPDATE notifications SET
			claimed_by = $2, claimed_until = $3, updated_at = $4
		WHERE id = $1
			AND status = $5
			AND archived = false
			AND (claimed_until IS NULL OR claimed_until < $4)
		RETURNING `+notificationColumns,
		id, workerID, now.Add(lease), now, StatusPending,
	)

	n, err := scanNotification(row)
	if pg.IsNotFoundError(err) {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrClaimConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim notification: %w", err)
	}

	return n, nil
}

func (s *PostgresStorage) Release(ctx context.Context, id string, workerID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET
			claimed_by = NULL, claimed_until = NULL, updated_at = now()
		WHERE id = $1 AND claimed_by = $2`,
		id, workerID,
	)
	if err != nil {
		return fmt.Errorf("failed to release notification claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrNotClaimed
	}
	return nil
}

func (s *PostgresStorage) DueForDelivery(ctx context.Context, limit int) ([]*Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = $1
			AND archived = false
			AND retry_count < max_retries
			AND (scheduled_for IS NULL OR scheduled_for <= now())
			AND (claimed_until IS NULL OR claimed_until < now())
		ORDER BY
			CASE priority
				WHEN 'urgent' THEN 4
				WHEN 'high' THEN 3
				WHEN 'normal' THEN 2
				WHEN 'low' THEN 1
				ELSE 0
			END DESC,
			created_at ASC`

	args := []any{StatusPending}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query due notifications: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func (s *PostgresStorage) ListForUser(ctx context.Context, userID string, opts ListOptions) ([]*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	args := []any{userID}

	if !opts.IncludeArchived {
		query += ` AND archived = false`
	}
	if opts.UnreadOnly {
		query += ` AND is_read = false`
	}
	if opts.Priority != "" {
		args = append(args, opts.Priority)
		query += fmt.Sprintf(` AND priority = $%d`, len(args))
	}
	if len(opts.Types) > 0 {
		args = append(args, opts.Types)
		query += fmt.Sprintf(` AND event_type = ANY($%d)`, len(args))
	}

	offset, limit := opts.offsetLimit()
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

func (s *PostgresStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE user_id = $1 AND is_read = false AND archived = false`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStorage) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE archived = true
			AND (metadata ->> 'expires_at') IS NOT NULL
			AND (metadata ->> 'expires_at')::timestamptz <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func collectNotifications(rows pgx.Rows) ([]*Notification, error) {
	notifications := []*Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notification rows: %w", err)
	}
	return notifications, nil
}
