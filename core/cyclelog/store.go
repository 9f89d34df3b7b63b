// Package cyclelog keeps a history of committed control cycles for dashboards
// and offline analysis. It never restores slot state.
package cyclelog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// ErrUnknownBackend is returned by New for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cycle log backend")

// SlotRecord is the state of one slot at the end of a cycle.
type SlotRecord struct {
	Slot           int          `json:"slot"`
	Occupied       bool         `json:"occupied"`
	ChargeLevel    model.Energy `json:"charge_level"`
	ParkedDuration int          `json:"parked_duration"`
	Mode           model.Mode   `json:"mode"`
	Delta          model.Energy `json:"delta"`
}

// Record captures one committed cycle.
type Record struct {
	Seq             uint64       `json:"seq"`
	Timestamp       time.Time    `json:"timestamp"`
	Demand          model.Power  `json:"demand"`
	Deficit         model.Power  `json:"deficit"`
	Residual        model.Energy `json:"residual"`
	TotalDischarged model.Energy `json:"total_discharged"`
	TotalCharged    model.Energy `json:"total_charged"`
	OccupiedCount   int          `json:"occupied_count"`
	Slots           []SlotRecord `json:"slots"`
}

// Unmet reports whether the cycle left demand uncovered.
func (r Record) Unmet() bool { return r.Residual > 0 }

// Touches reports whether the slot with wire number n moved energy.
func (r Record) Touches(n int) bool {
	for _, s := range r.Slots {
		if s.Slot == n && s.Mode != model.ModeIdle {
			return true
		}
	}
	return false
}

// FromSnapshot converts a snapshot into a record.
func FromSnapshot(s model.Snapshot) Record {
	rec := Record{
		Seq:             s.Seq,
		Timestamp:       s.Time,
		Demand:          s.Demand,
		Deficit:         s.Deficit,
		Residual:        s.Residual,
		TotalDischarged: s.TotalDischarged,
		TotalCharged:    s.TotalCharged,
		OccupiedCount:   s.OccupiedCount,
		Slots:           make([]SlotRecord, len(s.Slots)),
	}
	for i, v := range s.Slots {
		rec.Slots[i] = SlotRecord{
			Slot:           v.ID.Number(),
			Occupied:       v.Occupied,
			ChargeLevel:    v.ChargeLevel,
			ParkedDuration: v.ParkedDuration,
			Mode:           v.Mode,
			Delta:          v.Delta,
		}
	}
	return rec
}

// Query defines filters for retrieving records. Zero values match all.
type Query struct {
	Start time.Time
	End   time.Time
	// Slot restricts results to cycles where this slot number charged or
	// discharged.
	Slot      int
	UnmetOnly bool
	// Limit keeps only the most recent records.
	Limit int
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.UnmetOnly && !r.Unmet() {
		return false
	}
	if q.Slot > 0 && !r.Touches(q.Slot) {
		return false
	}
	return true
}

func (q Query) trim(res []Record) []Record {
	if q.Limit > 0 && len(res) > q.Limit {
		return res[len(res)-q.Limit:]
	}
	return res
}

// LogStore persists records and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// New opens a store for the named backend: "jsonl", "sqlite" or "memory".
func New(backend, path string) (LogStore, error) {
	switch backend {
	case "jsonl":
		return NewJSONLStore(path)
	case "sqlite":
		return NewSQLiteStore(path)
	case "memory":
		return NewMemoryStore(0), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
}
