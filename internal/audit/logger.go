// Package audit records chat queries and login attempts in a SQLite database.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry kinds.
const (
	KindChat  = "chat"
	KindLogin = "login"
)

// Entry is one audited request. Passwords are never recorded.
type Entry struct {
	ID        int64
	Kind      string
	ClientIP  string
	Username  string
	Query     string
	Intent    string
	Response  string
	Success   bool
	CreatedAt time.Time
}

// QueryOpts filters Query results.
type QueryOpts struct {
	Kind  string
	Since time.Time
	Limit int
}

// Stat is a count of entries per kind and day.
type Stat struct {
	Kind  string
	Day   string
	Count int64
}

// Logger writes and queries audit entries. A nil *Logger discards everything.
type Logger struct {
	db            *sql.DB
	retentionDays int
	done          chan struct{}
	wg            sync.WaitGroup
}

// New opens the audit database at path and creates the schema.
func New(path string, retentionDays int) (*Logger, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	l := &Logger{
		db:            db,
		retentionDays: retentionDays,
		done:          make(chan struct{}),
	}

	if retentionDays > 0 {
		l.wg.Add(1)
		go l.retentionLoop()
	}

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS audit_log (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		kind       TEXT NOT NULL,
		client_ip  TEXT,
		username   TEXT,
		query      TEXT,
		intent     TEXT,
		response   TEXT,
		success    INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_kind ON audit_log(kind)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at)`)
	return err
}

// Log inserts an entry. CreatedAt defaults to now.
func (l *Logger) Log(ctx context.Context, e Entry) error {
	if l == nil || l.db == nil {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO audit_log (kind, client_ip, username, query, intent, response, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Kind, e.ClientIP, e.Username, e.Query, e.Intent, e.Response, e.Success, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Query returns entries newest first.
func (l *Logger) Query(ctx context.Context, opts QueryOpts) ([]Entry, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}

	q := `SELECT id, kind, client_ip, username, query, intent, response, success, created_at
		FROM audit_log WHERE 1=1`
	var args []any

	if opts.Kind != "" {
		q += " AND kind = ?"
		args = append(args, opts.Kind)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}

	q += " ORDER BY created_at DESC, id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var clientIP, username, query, intent, response sql.NullString
		if err := rows.Scan(&e.ID, &e.Kind, &clientIP, &username, &query, &intent, &response, &e.Success, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.ClientIP = clientIP.String
		e.Username = username.String
		e.Query = query.String
		e.Intent = intent.String
		e.Response = response.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns counts grouped by kind and day.
func (l *Logger) Stats(ctx context.Context) ([]Stat, error) {
	if l == nil || l.db == nil {
		return nil, nil
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT kind, date(created_at) AS day, count(*) AS cnt
		 FROM audit_log GROUP BY kind, day ORDER BY day DESC, kind`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []Stat
	for rows.Next() {
		var s Stat
		var day sql.NullString
		if err := rows.Scan(&s.Kind, &day, &s.Count); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	if l == nil || l.db == nil || l.retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -l.retentionDays)
	res, err := l.db.ExecContext(ctx, `DELETE FROM audit_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}
