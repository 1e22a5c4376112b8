package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrations string

// Record is one delivery attempt outcome.
type Record struct {
	Destination string
	Camera      string
	Detections  string
	OK          bool
	Error       string
	Took        time.Duration
	At          time.Time
}

// Stat is the aggregate per destination over a window.
type Stat struct {
	Destination string
	Sent        int64
	Failed      int64
}

// Store keeps delivery history in sqlite. It is append-only from the workers'
// point of view; alerts are never replayed from it.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path and applies
// migrations.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create dir: %w", err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	// modernc sqlite is single-writer; serialize access through one conn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Append records one delivery attempt.
func (s *Store) Append(ctx context.Context, r Record) error {
	at := r.At
	if at.IsZero() {
		at = time.Now()
	}
	ok := 0
	if r.OK {
		ok = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (destination, camera, detections, ok, error, took_ms, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Destination, r.Camera, r.Detections, ok, r.Error, r.Took.Milliseconds(), at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

// StatsSince returns per-destination sent/failed counts for attempts at or
// after since, ordered by destination name.
func (s *Store) StatsSince(ctx context.Context, since time.Time) ([]Stat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT destination,
		        SUM(CASE WHEN ok = 1 THEN 1 ELSE 0 END),
		        SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END)
		   FROM deliveries
		  WHERE at >= ?
		  GROUP BY destination
		  ORDER BY destination`,
		since.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("history: stats: %w", err)
	}
	defer rows.Close()

	var stats []Stat
	for rows.Next() {
		var st Stat
		if err := rows.Scan(&st.Destination, &st.Sent, &st.Failed); err != nil {
			return nil, fmt.Errorf("history: stats scan: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: stats rows: %w", err)
	}
	return stats, nil
}

// Prune deletes records older than before. Returns the number removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM deliveries WHERE at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
