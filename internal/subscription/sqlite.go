package subscription

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db  DBTX
	now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a store over conn.
func NewSQLiteStore(conn DBTX) *SQLiteStore {
	return &SQLiteStore{db: conn, now: time.Now}
}

// WithClock replaces the clock used for updated_at.
func (r *SQLiteStore) WithClock(now func() time.Time) *SQLiteStore {
	r.now = now
	return r
}

func (r *SQLiteStore) stamp() string {
	return r.now().UTC().Format(time.RFC3339)
}

const selectColumns = `SELECT user_id, novena_id, novena_title, current_day, active,
	last_completed, token, platform, updated_at FROM subscriptions`

func (r *SQLiteStore) Upsert(ctx context.Context, s *Subscription) error {
	if err := s.Validate(); err != nil {
		return err
	}
	query := `INSERT INTO subscriptions (user_id, novena_id, novena_title, current_day,
		active, last_completed, token, platform, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			novena_id = excluded.novena_id,
			novena_title = excluded.novena_title,
			current_day = excluded.current_day,
			active = excluded.active,
			last_completed = excluded.last_completed,
			token = excluded.token,
			platform = excluded.platform,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		s.UserID,
		s.NovenaID,
		s.NovenaTitle,
		s.CurrentDay,
		boolToInt(s.Active),
		s.LastCompleted,
		s.Token,
		string(s.Platform),
		r.stamp(),
	)
	if err != nil {
		return fmt.Errorf("upserting subscription %q: %w", s.UserID, err)
	}
	return nil
}

func (r *SQLiteStore) Get(ctx context.Context, userID string) (*Subscription, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE user_id = ?`, userID)
	s, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("scanning subscription: %w", err)
	}
	return s, nil
}

// MarkCompleted records that the user prayed the current day on date.
func (r *SQLiteStore) MarkCompleted(ctx context.Context, userID, date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalid, date)
	}
	return r.update(ctx, userID,
		`UPDATE subscriptions SET last_completed = ?, updated_at = ? WHERE user_id = ?`,
		date, r.stamp(), userID)
}

// Advance moves the user to the next day.
func (r *SQLiteStore) Advance(ctx context.Context, userID string) error {
	return r.update(ctx, userID,
		`UPDATE subscriptions SET current_day = current_day + 1, updated_at = ? WHERE user_id = ?`,
		r.stamp(), userID)
}

func (r *SQLiteStore) SetActive(ctx context.Context, userID string, active bool) error {
	return r.update(ctx, userID,
		`UPDATE subscriptions SET active = ?, updated_at = ? WHERE user_id = ?`,
		boolToInt(active), r.stamp(), userID)
}

// ListActive returns active subscriptions ordered by user id.
func (r *SQLiteStore) ListActive(ctx context.Context) ([]Subscription, error) {
	return r.list(ctx, selectColumns+` WHERE active = 1 ORDER BY user_id`)
}

// List returns every subscription ordered by user id.
func (r *SQLiteStore) List(ctx context.Context) ([]Subscription, error) {
	return r.list(ctx, selectColumns+` ORDER BY user_id`)
}

func (r *SQLiteStore) update(ctx context.Context, userID, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating subscription %q: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating subscription %q: %w", userID, err)
	}
	if n == 0 {
		return fmt.Errorf("user %q: %w", userID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteStore) list(ctx context.Context, query string) ([]Subscription, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscriptions: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row scanner) (*Subscription, error) {
	var (
		s         Subscription
		active    int
		platform  string
		updatedAt string
	)
	if err := row.Scan(
		&s.UserID,
		&s.NovenaID,
		&s.NovenaTitle,
		&s.CurrentDay,
		&active,
		&s.LastCompleted,
		&s.Token,
		&platform,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	s.Active = active != 0
	s.Platform = Platform(platform)
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		s.UpdatedAt = t
	}
	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
