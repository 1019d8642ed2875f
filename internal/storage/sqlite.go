package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/user/netdiag/internal/model"
)

// Index is the sqlite history of saved diagnoses. It mirrors the record
// files and can be rebuilt from them.
type Index struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenIndex opens or creates the history database at path.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	idx := &Index{db: db}
	if err := idx.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return idx, nil
}

func (idx *Index) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			kind TEXT,
			label TEXT,
			outcome TEXT,
			bad_count INTEGER DEFAULT 0,
			warn_count INTEGER DEFAULT 0,
			latency_ms REAL,
			jitter_ms REAL,
			packet_loss_pct REAL,
			download_mbps REAL,
			upload_mbps REAL,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_history_kind ON history(kind)`,
	}

	for _, table := range tables {
		if _, err := idx.db.Exec(table); err != nil {
			return fmt.Errorf("failed to execute: %s: %w", table, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// EntryFor builds the history row for a saved probe result.
func EntryFor(info model.RecordInfo, res model.ProbeResult) model.HistoryEntry {
	return model.HistoryEntry{
		Name:          info.Name,
		Title:         info.Title,
		Kind:          res.Invocation.Kind,
		Label:         res.Diagnosis.Label,
		Outcome:       res.Diagnosis.Outcome,
		BadCount:      res.Diagnosis.BadCount(),
		WarnCount:     res.Diagnosis.WarnCount(),
		LatencyMs:     res.Metrics.LatencyMs,
		JitterMs:      res.Metrics.JitterMs,
		PacketLossPct: res.Metrics.PacketLossPct,
		DownloadMbps:  res.Metrics.DownloadMbps,
		UploadMbps:    res.Metrics.UploadMbps,
		Timestamp:     info.Timestamp,
	}
}

// Add inserts e, replacing any row with the same record name.
func (idx *Index) Add(e *model.HistoryEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	result, err := idx.db.Exec(
		`INSERT OR REPLACE INTO history
		 (name, title, kind, label, outcome, bad_count, warn_count,
		  latency_ms, jitter_ms, packet_loss_pct, download_mbps, upload_mbps, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Name, e.Title, string(e.Kind), string(e.Label), string(e.Outcome), e.BadCount, e.WarnCount,
		nullFloat(e.LatencyMs), nullFloat(e.JitterMs), nullFloat(e.PacketLossPct),
		nullFloat(e.DownloadMbps), nullFloat(e.UploadMbps), e.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get entry ID: %w", err)
	}
	e.ID = id
	return nil
}

// Recent returns up to limit entries, newest first. An empty kind returns
// every kind.
func (idx *Index) Recent(limit int, kind model.ProbeKind) ([]model.HistoryEntry, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	query := `SELECT id, name, title, kind, label, outcome, bad_count, warn_count,
			  latency_ms, jitter_ms, packet_loss_pct, download_mbps, upload_mbps, timestamp
			  FROM history`
	var args []interface{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := idx.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []model.HistoryEntry
	for rows.Next() {
		var e model.HistoryEntry
		var kindStr, label, outcome string
		var latency, jitter, loss, down, up sql.NullFloat64
		if err := rows.Scan(&e.ID, &e.Name, &e.Title, &kindStr, &label, &outcome, &e.BadCount, &e.WarnCount,
			&latency, &jitter, &loss, &down, &up, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Kind = model.ProbeKind(kindStr)
		e.Label = model.Label(label)
		e.Outcome = model.Outcome(outcome)
		e.LatencyMs = floatPtr(latency)
		e.JitterMs = floatPtr(jitter)
		e.PacketLossPct = floatPtr(loss)
		e.DownloadMbps = floatPtr(down)
		e.UploadMbps = floatPtr(up)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LabelCounts returns how many entries carry each label since the given time.
func (idx *Index) LabelCounts(since time.Time) (map[model.Label]int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	rows, err := idx.db.Query(
		`SELECT label, COUNT(*) FROM history WHERE timestamp >= ? AND label != '' GROUP BY label`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to count labels: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Label]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("failed to scan label count: %w", err)
		}
		counts[model.Label(label)] = n
	}
	return counts, rows.Err()
}

// Has reports whether a record name is indexed.
func (idx *Index) Has(name string) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var n int
	if err := idx.db.QueryRow("SELECT COUNT(*) FROM history WHERE name = ?", name).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", name, err)
	}
	return n > 0, nil
}

// Remove deletes the entry for a record name.
func (idx *Index) Remove(name string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, err := idx.db.Exec("DELETE FROM history WHERE name = ?", name); err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
