package integrity

import (
	"context"
	"time"

	"ubcc/internal/timeframe"
)

// Gap 表示相邻两根已存 K 线之间缺失的连续区间。
// Start/End 是实际存在的两端时间戳（UTC 毫秒），缺失的在两者之间。
type Gap struct {
	Start          int64   `json:"start"`
	End            int64   `json:"end"`
	Duration       string  `json:"duration"`
	MissingCandles int64   `json:"missing_candles"`
	Missing        []int64 `json:"missing,omitempty"`
}

// Report 汇总一次校验的结果。
type Report struct {
	TotalCount         int64 `json:"total_count"`
	OrderingMismatches int64 `json:"ordering_mismatches"`
	Gaps               []Gap `json:"gaps"`
}

// MissingTotal 返回全部 gap 的缺失根数之和。
func (r Report) MissingTotal() int64 {
	var total int64
	for _, g := range r.Gaps {
		total += g.MissingCandles
	}
	return total
}

func (r Report) Complete() bool { return len(r.Gaps) == 0 }

// TimestampSource 提供区间内按升序排列的时间戳序列。
type TimestampSource interface {
	ReadTimestamps(ctx context.Context, start, end int64) ([]int64, error)
}

// Verifier 提供区间统计与顺序校验。
type Verifier interface {
	CountInRange(ctx context.Context, start, end int64) (int64, error)
	OrderingViolations(ctx context.Context, start, end int64) (int64, error)
}

// AnalyzeGaps 扫描区间内相邻时间戳，间隔大于一个周期即记为 gap。
// 只读、可重复调用；少于两行或无断档时返回空切片而非错误。
func AnalyzeGaps(ctx context.Context, src TimestampSource, tf timeframe.Timeframe, start, end int64) ([]Gap, error) {
	timestamps, err := src.ReadTimestamps(ctx, start, end)
	if err != nil {
		return nil, err
	}
	stepMs := tf.Step().Milliseconds()
	var gaps []Gap
	for i := 0; i+1 < len(timestamps); i++ {
		current, next := timestamps[i], timestamps[i+1]
		diff := next - current
		if diff <= stepMs {
			continue
		}
		missing := diff/stepMs - 1
		if missing <= 0 {
			continue
		}
		gap := Gap{
			Start:          current,
			End:            next,
			Duration:       (time.Duration(diff) * time.Millisecond).String(),
			MissingCandles: missing,
			Missing:        make([]int64, 0, missing),
		}
		for k := int64(1); k <= missing; k++ {
			gap.Missing = append(gap.Missing, current+stepMs*k)
		}
		gaps = append(gaps, gap)
	}
	return gaps, nil
}

// Verify 返回区间内总行数与时间顺序异常对数。纯读取，无副作用。
func Verify(ctx context.Context, v Verifier, start, end int64) (total, mismatches int64, err error) {
	total, err = v.CountInRange(ctx, start, end)
	if err != nil {
		return 0, 0, err
	}
	mismatches, err = v.OrderingViolations(ctx, start, end)
	if err != nil {
		return 0, 0, err
	}
	return total, mismatches, nil
}

// Check 一次性产出完整报告（计数 + 顺序 + gap 列表）。
func Check(ctx context.Context, store interface {
	Verifier
	TimestampSource
}, tf timeframe.Timeframe, start, end int64) (Report, error) {
	total, mismatches, err := Verify(ctx, store, start, end)
	if err != nil {
		return Report{}, err
	}
	gaps, err := AnalyzeGaps(ctx, store, tf, start, end)
	if err != nil {
		return Report{}, err
	}
	return Report{TotalCount: total, OrderingMismatches: mismatches, Gaps: gaps}, nil
}
