package cyclelog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// SQLiteStore persists records to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS cycles (
        seq INTEGER,
        ts INTEGER,
        demand INTEGER,
        residual INTEGER,
        discharged INTEGER,
        charged INTEGER,
        active_slots TEXT,
        record TEXT
    );
    CREATE INDEX IF NOT EXISTS cycles_ts ON cycles (ts);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// activeSlots encodes the slots that moved energy as ",1,3," so a LIKE
// filter can match one slot number.
func activeSlots(rec Record) string {
	out := ","
	for _, s := range rec.Slots {
		if s.Mode != model.ModeIdle {
			out += fmt.Sprintf("%d,", s.Slot)
		}
	}
	return out
}

// Append writes the record to the database.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cycles (seq, ts, demand, residual, discharged, charged, active_slots, record)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Seq, rec.Timestamp.UnixNano(), int64(rec.Demand), int64(rec.Residual),
		int64(rec.TotalDischarged), int64(rec.TotalCharged), activeSlots(rec), string(b))
	return err
}

// Query returns records matching q in time order.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var args []any
	query := `SELECT record FROM cycles WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	if q.UnmetOnly {
		query += ` AND residual > 0`
	}
	if q.Slot > 0 {
		query += ` AND active_slots LIKE ?`
		args = append(args, fmt.Sprintf("%%,%d,%%", q.Slot))
	}
	query += ` ORDER BY ts, seq`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return q.trim(res), nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
