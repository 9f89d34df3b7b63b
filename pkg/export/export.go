package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/cyclelog"
)

// WriteJSON writes the cycle records to w as a JSON array.
func WriteJSON(w io.Writer, recs []cyclelog.Record) error {
	if recs == nil {
		recs = []cyclelog.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// WriteCSV writes one row per cycle. Slot columns repeat per slot as
// charge_<n>, mode_<n> and parked_<n>.
func WriteCSV(w io.Writer, recs []cyclelog.Record) error {
	slots := 0
	for _, r := range recs {
		slots = max(slots, len(r.Slots))
	}
	cw := csv.NewWriter(w)
	header := []string{"seq", "timestamp", "demand", "deficit", "residual", "discharged", "charged", "occupied"}
	for n := 1; n <= slots; n++ {
		header = append(header, fmt.Sprintf("charge_%d", n), fmt.Sprintf("mode_%d", n), fmt.Sprintf("parked_%d", n))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			strconv.FormatUint(r.Seq, 10),
			r.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatInt(int64(r.Demand), 10),
			strconv.FormatInt(int64(r.Deficit), 10),
			strconv.FormatInt(int64(r.Residual), 10),
			strconv.FormatInt(int64(r.TotalDischarged), 10),
			strconv.FormatInt(int64(r.TotalCharged), 10),
			strconv.Itoa(r.OccupiedCount),
		}
		for i := 0; i < slots; i++ {
			if i >= len(r.Slots) {
				row = append(row, "", "", "")
				continue
			}
			s := r.Slots[i]
			mode := s.Mode.String()
			if !s.Occupied {
				mode = "free"
			}
			row = append(row, strconv.FormatInt(int64(s.ChargeLevel), 10), mode, strconv.Itoa(s.ParkedDuration))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Format picks the writer for name ("csv", "json" or "html").
func Format(name string) (func(io.Writer, []cyclelog.Record) error, error) {
	switch strings.ToLower(name) {
	case "csv":
		return WriteCSV, nil
	case "json", "":
		return WriteJSON, nil
	case "html":
		return WriteHTML, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", name)
	}
}
