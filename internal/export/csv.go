package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ubcc/internal/logger"
	"ubcc/internal/market"
	"ubcc/internal/timeframe"
)

// Options 控制 CSV 导出。
type Options struct {
	// FilterGaps 只保留与前一行正好间隔一个周期的行（首行恒保留），
	// 用于剔除断档两侧的孤立数据。
	FilterGaps bool
	// Location 决定时间列的显示时区，默认 UTC。
	Location *time.Location
}

// WriteCSV 渲染 K 线为 CSV，首行为列头。
func WriteCSV(w io.Writer, candles []market.Candle, tf timeframe.Timeframe, opts Options) error {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	if opts.FilterGaps {
		candles = filterGapRows(candles, tf)
	}
	var b strings.Builder
	b.WriteString("timestamp,open,high,low,close,volume\n")
	for _, c := range candles {
		b.WriteString(time.UnixMilli(c.Timestamp).In(loc).Format("2006-01-02 15:04:05"))
		b.WriteByte(',')
		b.WriteString(formatFloat(c.Open))
		b.WriteByte(',')
		b.WriteString(formatFloat(c.High))
		b.WriteByte(',')
		b.WriteString(formatFloat(c.Low))
		b.WriteByte(',')
		b.WriteString(formatFloat(c.Close))
		b.WriteByte(',')
		b.WriteString(formatFloat(c.Volume))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ToFile 导出到 {dir}/{symbol}_{timeframe}_{yyyymmdd_hhmm}.csv，返回文件路径。
func ToFile(dir, symbol string, tf timeframe.Timeframe, candles []market.Candle, opts Options) (string, error) {
	if len(candles) == 0 {
		return "", fmt.Errorf("没有可导出的数据")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("创建导出目录失败: %w", err)
	}
	name := fmt.Sprintf("%s_%s_%s.csv",
		strings.ToUpper(strings.TrimSpace(symbol)), tf, time.Now().Format("20060102_1504"))
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建 CSV 文件失败: %w", err)
	}
	defer f.Close()
	if err := WriteCSV(f, candles, tf, opts); err != nil {
		return "", err
	}
	logger.Infof("[export] CSV 已保存: %s", path)
	return path, nil
}

// filterGapRows 保留与前一行间隔正好一个周期的行。
func filterGapRows(candles []market.Candle, tf timeframe.Timeframe) []market.Candle {
	if len(candles) == 0 {
		return candles
	}
	stepMs := tf.Step().Milliseconds()
	out := make([]market.Candle, 0, len(candles))
	out = append(out, candles[0])
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp-candles[i-1].Timestamp == stepMs {
			out = append(out, candles[i])
		}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
