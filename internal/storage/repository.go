package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertHistorySQL = `INSERT INTO history (
        user_id,
        input,
        result,
        entry_type
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id, created_at;`

	countHistorySQL = `SELECT COUNT(*) FROM history WHERE user_id = $1;`

	pruneHistorySQL = `DELETE FROM history
    WHERE user_id = $1
      AND id NOT IN (
        SELECT id FROM history
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    );`

	listHistorySQL = `SELECT
        id,
        user_id,
        input,
        result,
        entry_type,
        created_at
    FROM history
    WHERE user_id = $1
    ORDER BY created_at DESC, id DESC
    LIMIT $2;`

	clearHistorySQL = `DELETE FROM history WHERE user_id = $1;`

	upsertSnapshotSQL = `INSERT INTO rate_snapshots (
        bucket_ts,
        from_code,
        to_code,
        method,
        rate,
        source
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    )
    ON CONFLICT (bucket_ts, from_code, to_code, method) DO UPDATE
    SET rate   = EXCLUDED.rate,
        source = EXCLUDED.source;`

	listSnapshotsBetweenSQL = `SELECT
        bucket_ts,
        from_code,
        to_code,
        method,
        rate,
        source,
        created_at
    FROM rate_snapshots
    WHERE from_code = $1
      AND to_code = $2
      AND bucket_ts >= $3
      AND bucket_ts < $4
    ORDER BY bucket_ts;`

	listRecentSnapshotsSQL = `SELECT
        bucket_ts,
        from_code,
        to_code,
        method,
        rate,
        source,
        created_at
    FROM rate_snapshots
    WHERE from_code = $1
      AND to_code = $2
    ORDER BY bucket_ts DESC
    LIMIT $3;`

	countSnapshotsSQL = `SELECT COUNT(*) FROM rate_snapshots;`
)

// HistoryStore defines operations for per-user action history.
type HistoryStore interface {
	InsertHistory(ctx context.Context, entry HistoryEntry) (HistoryEntry, error)
	ListHistory(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error)
	ClearHistory(ctx context.Context, userID int64) error
}

// SnapshotStore defines operations for sampled rate persistence.
type SnapshotStore interface {
	UpsertSnapshot(ctx context.Context, snapshot RateSnapshot) error
	ListSnapshotsBetween(ctx context.Context, fromCode, toCode string, from, to time.Time) ([]RateSnapshot, error)
	ListRecentSnapshots(ctx context.Context, fromCode, toCode string, limit int) ([]RateSnapshot, error)
	CountSnapshots(ctx context.Context) (int64, error)
}

// Store aggregates access to history and rate snapshots.
type Store struct {
	pool         *pgxpool.Pool
	historyLimit int
}

// NewStore wires a pgx pool into a Store. historyLimit bounds how many
// entries each user keeps.
func NewStore(pool *pgxpool.Pool, historyLimit int) *Store {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	return &Store{pool: pool, historyLimit: historyLimit}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertHistory persists an entry and lazily prunes the user's tail. The
// prune only runs once the user is well past the limit, so the common path
// stays a single insert.
func (s *Store) InsertHistory(ctx context.Context, entry HistoryEntry) (HistoryEntry, error) {
	pool, err := s.getPool()
	if err != nil {
		return HistoryEntry{}, err
	}

	row := pool.QueryRow(ctx, insertHistorySQL,
		entry.UserID,
		entry.Input,
		entry.Result,
		entry.EntryType,
	)
	if scanErr := row.Scan(&entry.ID, &entry.CreatedAt); scanErr != nil {
		return HistoryEntry{}, fmt.Errorf("insert history: %w", scanErr)
	}

	var count int64
	if scanErr := pool.QueryRow(ctx, countHistorySQL, entry.UserID).Scan(&count); scanErr != nil {
		return entry, nil
	}
	if count > int64(s.historyLimit*2) {
		if _, execErr := pool.Exec(ctx, pruneHistorySQL, entry.UserID, s.historyLimit); execErr != nil {
			return entry, fmt.Errorf("prune history: %w", execErr)
		}
	}

	return entry, nil
}

// ListHistory returns the user's most recent entries, newest first.
func (s *Store) ListHistory(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}

	rows, queryErr := pool.Query(ctx, listHistorySQL, userID, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list history: %w", queryErr)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var e HistoryEntry
		if scanErr := rows.Scan(&e.ID, &e.UserID, &e.Input, &e.Result, &e.EntryType, &e.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("scan history entry: %w", scanErr)
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

// ClearHistory removes all of a user's entries.
func (s *Store) ClearHistory(ctx context.Context, userID int64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, clearHistorySQL, userID); execErr != nil {
		return fmt.Errorf("clear history: %w", execErr)
	}
	return nil
}

// UpsertSnapshot persists or updates a sampled rate observation.
func (s *Store) UpsertSnapshot(ctx context.Context, snapshot RateSnapshot) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, upsertSnapshotSQL,
		snapshot.Bucket,
		snapshot.FromCode,
		snapshot.ToCode,
		snapshot.Method,
		snapshot.Rate.String(),
		snapshot.Source,
	)
	if execErr != nil {
		return fmt.Errorf("upsert rate snapshot: %w", execErr)
	}
	return nil
}

// ListSnapshotsBetween lists snapshots for a pair within a time window.
func (s *Store) ListSnapshotsBetween(ctx context.Context, fromCode, toCode string, from, to time.Time) ([]RateSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSnapshotsBetweenSQL, fromCode, toCode, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list snapshots between: %w", queryErr)
	}
	defer rows.Close()

	return scanSnapshots(rows, 0)
}

// ListRecentSnapshots lists the most recent snapshots for a pair.
func (s *Store) ListRecentSnapshots(ctx context.Context, fromCode, toCode string, limit int) ([]RateSnapshot, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSnapshotsSQL, fromCode, toCode, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent snapshots: %w", queryErr)
	}
	defer rows.Close()

	return scanSnapshots(rows, limit)
}

// CountSnapshots counts stored snapshots.
func (s *Store) CountSnapshots(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSnapshotsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count snapshots: %w", scanErr)
	}
	return count, nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanSnapshots(rows rowScanner, capacity int) ([]RateSnapshot, error) {
	snapshots := make([]RateSnapshot, 0, capacity)
	for rows.Next() {
		var (
			snap    RateSnapshot
			rateStr string
		)
		if scanErr := rows.Scan(&snap.Bucket, &snap.FromCode, &snap.ToCode, &snap.Method,
			&rateStr, &snap.Source, &snap.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("scan rate snapshot: %w", scanErr)
		}
		rate, parseErr := decimal.NewFromString(rateStr)
		if parseErr != nil {
			return nil, fmt.Errorf("parse snapshot rate %q: %w", rateStr, parseErr)
		}
		snap.Rate = rate
		snapshots = append(snapshots, snap)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return snapshots, nil
}

var (
	_ HistoryStore  = (*Store)(nil)
	_ SnapshotStore = (*Store)(nil)
)
