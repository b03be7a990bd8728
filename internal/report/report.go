package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"ubcc/internal/analysis"
	"ubcc/internal/collector"
	"ubcc/internal/integrity"
	"ubcc/internal/timeframe"
)

const timeLayout = "2006-01-02 15:04"

// RenderSummary 以表格输出一次采集会话的结果。
func RenderSummary(w io.Writer, symbol string, tf timeframe.Timeframe, res collector.Result) {
	var missing int64
	for _, g := range res.Gaps {
		missing += g.MissingCandles
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("%s 采集结果", symbol))
	t.AppendRows([]table.Row{
		{"Collection Period", fmt.Sprintf("%s ~ %s",
			res.AdjustedStart.Format(timeLayout), res.AdjustedEnd.Format(timeLayout))},
		{"Timeframe", fmt.Sprintf("%s (%d minutes)", tf, tf.Minutes())},
		{"Collected Candles", res.TotalCount},
		{"Expected Candles", res.ExpectedCandles},
		{"Data Gaps", missing},
		{"Order Mismatches", res.OrderingMismatches},
	})
	t.Render()
}

// RenderGaps 输出 gap 明细；无 gap 时打一行提示。
func RenderGaps(w io.Writer, gaps []integrity.Gap, loc *time.Location) {
	if len(gaps) == 0 {
		fmt.Fprintln(w, "No missing candles found.")
		return
	}
	if loc == nil {
		loc = time.UTC
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("GAP 明细（%d 处）", len(gaps)))
	t.AppendHeader(table.Row{"Start", "End", "Duration", "Missing"})
	for _, g := range gaps {
		t.AppendRow(table.Row{
			time.UnixMilli(g.Start).In(loc).Format(timeLayout),
			time.UnixMilli(g.End).In(loc).Format(timeLayout),
			g.Duration,
			g.MissingCandles,
		})
	}
	t.Render()
}

// RenderSnapshot 输出指标速览。
func RenderSnapshot(w io.Writer, snap analysis.Snapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("指标速览")
	t.AppendRows([]table.Row{
		{"Candles", snap.Count},
		{"Last Close", snap.LastClose},
		{"SMA", fmt.Sprintf("%.4f", snap.SMA)},
		{"EMA", fmt.Sprintf("%.4f", snap.EMA)},
		{"RSI", fmt.Sprintf("%.2f", snap.RSI)},
	})
	t.Render()
}
