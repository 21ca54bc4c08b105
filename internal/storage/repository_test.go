package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestUnconfiguredStoreReturnsSentinel(t *testing.T) {
	store := NewStore(nil, 10)
	ctx := context.Background()

	if _, err := store.InsertHistory(ctx, HistoryEntry{UserID: 1}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("InsertHistory error = %v, want ErrNotConfigured", err)
	}
	if _, err := store.ListHistory(ctx, 1, 5); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("ListHistory error = %v, want ErrNotConfigured", err)
	}
	if err := store.ClearHistory(ctx, 1); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("ClearHistory error = %v, want ErrNotConfigured", err)
	}
	if err := store.UpsertSnapshot(ctx, RateSnapshot{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("UpsertSnapshot error = %v, want ErrNotConfigured", err)
	}
	if _, err := store.CountSnapshots(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("CountSnapshots error = %v, want ErrNotConfigured", err)
	}
}

func TestNewStoreDefaultsHistoryLimit(t *testing.T) {
	if got := NewStore(nil, 0).historyLimit; got != 10 {
		t.Fatalf("historyLimit = %d, want 10", got)
	}
	if got := NewStore(nil, 25).historyLimit; got != 25 {
		t.Fatalf("historyLimit = %d, want 25", got)
	}
}

func TestPruneStatementKeepsNewest(t *testing.T) {
	for _, clause := range []string{
		"NOT IN",
		"ORDER BY created_at DESC, id DESC",
		"LIMIT $2",
	} {
		if !strings.Contains(pruneHistorySQL, clause) {
			t.Errorf("prune statement missing %q", clause)
		}
	}
	if !strings.Contains(upsertSnapshotSQL, "ON CONFLICT (bucket_ts, from_code, to_code, method)") {
		t.Errorf("snapshot upsert missing conflict clause")
	}
	if !strings.Contains(insertHistorySQL, "RETURNING id, created_at") {
		t.Errorf("history insert missing RETURNING clause")
	}
}

type fakeRows struct {
	rows [][]any
	pos  int
	err  error
}

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.rows) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	row := f.rows[f.pos-1]
	for i, d := range dest {
		switch v := d.(type) {
		case *time.Time:
			*v = row[i].(time.Time)
		case *string:
			*v = row[i].(string)
		default:
			return errors.New("unexpected scan destination")
		}
	}
	return nil
}

func (f *fakeRows) Err() error { return f.err }

func TestScanSnapshots(t *testing.T) {
	bucket := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	rows := &fakeRows{rows: [][]any{
		{bucket, "USDTTRC20", "CASHAMD", "", "402.5", "feed", bucket},
		{bucket.Add(5 * time.Minute), "USDTTRC20", "CASHAMD", "", "403.1", "feed", bucket},
	}}

	snapshots, err := scanSnapshots(rows, 2)
	if err != nil {
		t.Fatalf("scanSnapshots: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("got %d snapshots, want 2", len(snapshots))
	}
	if snapshots[0].Rate.String() != "402.5" || snapshots[1].Rate.String() != "403.1" {
		t.Fatalf("rates = %s, %s", snapshots[0].Rate, snapshots[1].Rate)
	}
	if !snapshots[1].Bucket.Equal(bucket.Add(5 * time.Minute)) {
		t.Fatalf("second bucket = %v", snapshots[1].Bucket)
	}
}

func TestScanSnapshotsBadRate(t *testing.T) {
	bucket := time.Now()
	rows := &fakeRows{rows: [][]any{
		{bucket, "USDT", "AMD", "", "not-a-number", "feed", bucket},
	}}
	if _, err := scanSnapshots(rows, 1); err == nil {
		t.Fatal("expected parse error for malformed rate")
	}
}

func TestHistoryEntryFormatted(t *testing.T) {
	e := HistoryEntry{Input: "2+2", Result: "4"}
	if got := e.Formatted(); got != "2+2 = 4" {
		t.Fatalf("Formatted = %q", got)
	}
}
