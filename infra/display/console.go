// Package display renders committed cycles as the text panel shown on the
// bay's front display.
package display

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/logger"
	"github.com/kristi80/Datakomm-prosjekt-2022/core/model"
)

// Console writes one panel per rendered cycle.
type Console struct {
	w     io.Writer
	log   logger.Logger
	every uint64
	unit  model.Energy

	mu sync.Mutex
}

// NewConsole returns a Console rendering every n-th cycle. When w is nil the
// panel goes to log at debug level instead.
func NewConsole(w io.Writer, log logger.Logger, every int, unit model.Energy) *Console {
	if every <= 0 {
		every = 1
	}
	if unit <= 0 {
		unit = 3600
	}
	return &Console{w: w, log: log, every: uint64(every), unit: unit}
}

// Observe renders s.
func (c *Console) Observe(_ context.Context, s model.Snapshot) error {
	if s.Seq%c.every != 0 {
		return nil
	}
	panel := Render(s, c.unit)
	if c.w == nil {
		c.log.Debugw("panel", map[string]any{
			"seq":      s.Seq,
			"demand":   int64(s.Demand),
			"residual": int64(s.Residual),
			"occupied": s.OccupiedCount,
			"panel":    panel,
		})
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.w, panel); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	return nil
}

func modeMark(m model.Mode) string {
	switch m {
	case model.ModeCharging:
		return "+"
	case model.ModeDischarging:
		return "-"
	default:
		return " "
	}
}

// Render formats s as a fixed-width panel, one line per slot.
func Render(s model.Snapshot, unit model.Energy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%-5d need %6d  park %5d\n", s.Seq, s.Demand, s.TotalDischarged)
	for _, v := range s.Slots {
		if !v.Occupied {
			fmt.Fprintf(&b, "P%d [ ] free\n", v.ID.Number())
			continue
		}
		fmt.Fprintf(&b, "P%d [%s] %3d%% %3du %4dc\n", v.ID.Number(), modeMark(v.Mode), v.Percent, v.ChargeLevel.Units(unit), v.ParkedDuration)
	}
	status := "ok"
	if s.Unmet() {
		status = fmt.Sprintf("short %d", s.Residual)
	}
	aux := "off"
	if s.Aux {
		aux = "on"
	}
	fmt.Fprintf(&b, "%d/%d parked  %s  aux %s\n", s.OccupiedCount, len(s.Slots), status, aux)
	return b.String()
}
