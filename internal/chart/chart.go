package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"ubcc/internal/logger"
	"ubcc/internal/market"
	"ubcc/internal/timeframe"
)

// Render 把一段已存 K 线渲染为独立的 HTML 蜡烛图，返回文件路径。
func Render(dir, symbol string, tf timeframe.Timeframe, candles []market.Candle, loc *time.Location) (string, error) {
	if len(candles) == 0 {
		return "", fmt.Errorf("没有可绘制的数据")
	}
	if loc == nil {
		loc = time.UTC
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建图表目录失败: %w", err)
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s %s", strings.ToUpper(symbol), tf),
			Subtitle: fmt.Sprintf("%d candles", len(candles)),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)

	x := make([]string, 0, len(candles))
	y := make([]opts.KlineData, 0, len(candles))
	for _, c := range candles {
		x = append(x, time.UnixMilli(c.Timestamp).In(loc).Format("01-02 15:04"))
		// echarts 蜡烛图取值顺序固定为 [open, close, low, high]
		y = append(y, opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}})
	}
	kline.SetXAxis(x).AddSeries("ohlcv", y)

	name := fmt.Sprintf("%s_%s_%s.html",
		strings.ToUpper(strings.TrimSpace(symbol)), tf, time.Now().Format("20060102_1504"))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建图表文件失败: %w", err)
	}
	defer f.Close()
	if err := kline.Render(f); err != nil {
		return "", fmt.Errorf("渲染图表失败: %w", err)
	}
	logger.Infof("[chart] 图表已保存: %s", path)
	return path, nil
}
