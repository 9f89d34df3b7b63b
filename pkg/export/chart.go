package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kristi80/Datakomm-prosjekt-2022/core/cyclelog"
)

// WriteHTML renders demand, discharged, charged and residual energy per cycle
// as a standalone HTML line chart.
func WriteHTML(w io.Writer, recs []cyclelog.Record) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Bay cycles"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Cycle"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Wh"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	xAxis := make([]string, len(recs))
	demand := make([]opts.LineData, len(recs))
	discharged := make([]opts.LineData, len(recs))
	charged := make([]opts.LineData, len(recs))
	residual := make([]opts.LineData, len(recs))
	for i, r := range recs {
		xAxis[i] = fmt.Sprintf("%d", r.Seq)
		demand[i] = opts.LineData{Value: int64(r.Demand)}
		discharged[i] = opts.LineData{Value: int64(r.TotalDischarged)}
		charged[i] = opts.LineData{Value: int64(r.TotalCharged)}
		residual[i] = opts.LineData{Value: int64(r.Residual)}
	}
	line.SetXAxis(xAxis).
		AddSeries("Demand", demand).
		AddSeries("Discharged", discharged).
		AddSeries("Charged", charged).
		AddSeries("Residual", residual)

	if err := line.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
