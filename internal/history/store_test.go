package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndStats(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	records := []Record{
		{Destination: "discord", Camera: "front_door", Detections: "person", OK: true, Took: 120 * time.Millisecond, At: now},
		{Destination: "discord", Camera: "gate", Detections: "car", OK: false, Error: "timeout", At: now},
		{Destination: "slack", Camera: "front_door", Detections: "person", OK: true, At: now},
	}
	for _, r := range records {
		if err := s.Append(ctx, r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	stats, err := s.StatsSince(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("StatsSince: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %+v, want 2 destinations", stats)
	}
	if stats[0].Destination != "discord" || stats[0].Sent != 1 || stats[0].Failed != 1 {
		t.Fatalf("discord stats = %+v", stats[0])
	}
	if stats[1].Destination != "slack" || stats[1].Sent != 1 || stats[1].Failed != 0 {
		t.Fatalf("slack stats = %+v", stats[1])
	}
}

func TestStatsWindowExcludesOldRecords(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	old := Record{Destination: "discord", Camera: "c", OK: true, At: now.Add(-48 * time.Hour)}
	recent := Record{Destination: "discord", Camera: "c", OK: true, At: now}
	if err := s.Append(ctx, old); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(ctx, recent); err != nil {
		t.Fatalf("Append: %v", err)
	}

	stats, err := s.StatsSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("StatsSince: %v", err)
	}
	if len(stats) != 1 || stats[0].Sent != 1 {
		t.Fatalf("stats = %+v, want one recent send", stats)
	}
}

func TestPrune(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, at := range []time.Time{now.Add(-72 * time.Hour), now.Add(-48 * time.Hour), now} {
		if err := s.Append(ctx, Record{Destination: "d", Camera: "c", OK: true, At: at}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	n, err := s.Prune(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Fatalf("Prune removed %d, want 2", n)
	}

	stats, err := s.StatsSince(ctx, now.Add(-96*time.Hour))
	if err != nil {
		t.Fatalf("StatsSince: %v", err)
	}
	if len(stats) != 1 || stats[0].Sent != 1 {
		t.Fatalf("stats after prune = %+v", stats)
	}
}
