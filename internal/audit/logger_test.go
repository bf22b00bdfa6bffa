package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func mustNew(t *testing.T, retentionDays int) *Logger {
	t.Helper()
	l, err := New(filepath.Join(t.TempDir(), "audit_test.db"), retentionDays)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLogAndQuery(t *testing.T) {
	l := mustNew(t, 30)
	ctx := context.Background()

	if err := l.Log(ctx, Entry{Kind: KindChat, ClientIP: "10.0.0.1", Query: "how many", Intent: "count", Response: "Current scan detects 3"}); err != nil {
		t.Fatalf("Log: %v", err)
	}
	if err := l.Log(ctx, Entry{Kind: KindLogin, ClientIP: "10.0.0.2", Username: "astro", Success: true}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	chats, err := l.Query(ctx, QueryOpts{Kind: KindChat})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("expected 1 chat entry, got %d", len(chats))
	}
	if chats[0].Intent != "count" || chats[0].Query != "how many" {
		t.Errorf("unexpected chat entry: %+v", chats[0])
	}

	logins, err := l.Query(ctx, QueryOpts{Kind: KindLogin})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(logins) != 1 || !logins[0].Success || logins[0].Username != "astro" {
		t.Errorf("unexpected login entries: %+v", logins)
	}

	all, err := l.Query(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 entries, got %d", len(all))
	}
}

func TestQueryLimit(t *testing.T) {
	l := mustNew(t, 30)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		l.Log(ctx, Entry{Kind: KindChat, Query: "q"})
	}

	entries, err := l.Query(ctx, QueryOpts{Limit: 3})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(entries))
	}
}

func TestStats(t *testing.T) {
	l := mustNew(t, 30)
	ctx := context.Background()
	l.Log(ctx, Entry{Kind: KindChat})
	l.Log(ctx, Entry{Kind: KindChat})
	l.Log(ctx, Entry{Kind: KindLogin})

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	counts := map[string]int64{}
	for _, s := range stats {
		counts[s.Kind] += s.Count
	}
	if counts[KindChat] != 2 || counts[KindLogin] != 1 {
		t.Errorf("counts = %v, want chat=2 login=1", counts)
	}
}

func TestCleanup(t *testing.T) {
	l := mustNew(t, 7)
	ctx := context.Background()

	l.Log(ctx, Entry{Kind: KindChat, Query: "old", CreatedAt: time.Now().UTC().AddDate(0, 0, -30)})
	l.Log(ctx, Entry{Kind: KindChat, Query: "new"})

	n, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}

	entries, _ := l.Query(ctx, QueryOpts{})
	if len(entries) != 1 || entries[0].Query != "new" {
		t.Errorf("remaining entries = %+v", entries)
	}
}

// TestNilLogger verifies a disabled audit log is a no-op.
func TestNilLogger(t *testing.T) {
	var l *Logger
	ctx := context.Background()
	if err := l.Log(ctx, Entry{Kind: KindChat}); err != nil {
		t.Errorf("Log on nil: %v", err)
	}
	if entries, err := l.Query(ctx, QueryOpts{}); err != nil || entries != nil {
		t.Errorf("Query on nil = %v, %v", entries, err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil: %v", err)
	}
}
