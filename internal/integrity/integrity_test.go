package integrity

import (
	"context"
	"testing"

	"ubcc/internal/timeframe"
)

const minuteMs = int64(60 * 1000)

type sliceSource struct {
	stamps []int64
}

func (s sliceSource) ReadTimestamps(_ context.Context, start, end int64) ([]int64, error) {
	var out []int64
	for _, ts := range s.stamps {
		if start != 0 && ts < start {
			continue
		}
		if end != 0 && ts > end {
			continue
		}
		out = append(out, ts)
	}
	return out, nil
}

type fixedVerifier struct {
	count, mismatches int64
}

func (v fixedVerifier) CountInRange(context.Context, int64, int64) (int64, error) {
	return v.count, nil
}
func (v fixedVerifier) OrderingViolations(context.Context, int64, int64) (int64, error) {
	return v.mismatches, nil
}

// [T, T+2m, T+3m] 在周期 m 下恰好报告一个缺 1 根的 gap。
func TestAnalyzeGapsSingleGap(t *testing.T) {
	base := int64(1_700_000_400_000)
	m := timeframe.Minute1
	src := sliceSource{stamps: []int64{base, base + 2*minuteMs, base + 3*minuteMs}}

	gaps, err := AnalyzeGaps(context.Background(), src, m, 0, 0)
	if err != nil {
		t.Fatalf("AnalyzeGaps: %v", err)
	}
	if len(gaps) != 1 {
		t.Fatalf("gap 数 = %d, want 1", len(gaps))
	}
	g := gaps[0]
	if g.Start != base || g.End != base+2*minuteMs {
		t.Fatalf("gap 区间 = (%d, %d), want (%d, %d)", g.Start, g.End, base, base+2*minuteMs)
	}
	if g.MissingCandles != 1 {
		t.Fatalf("MissingCandles = %d, want 1", g.MissingCandles)
	}
	if len(g.Missing) != 1 || g.Missing[0] != base+minuteMs {
		t.Fatalf("Missing = %v, want [%d]", g.Missing, base+minuteMs)
	}
}

func TestAnalyzeGapsMissingExpansion(t *testing.T) {
	base := int64(1_700_000_400_000)
	src := sliceSource{stamps: []int64{base, base + 4*minuteMs}}

	gaps, err := AnalyzeGaps(context.Background(), src, timeframe.Minute1, 0, 0)
	if err != nil {
		t.Fatalf("AnalyzeGaps: %v", err)
	}
	if len(gaps) != 1 || gaps[0].MissingCandles != 3 {
		t.Fatalf("gaps = %+v, want 1 个缺 3 根", gaps)
	}
	want := []int64{base + minuteMs, base + 2*minuteMs, base + 3*minuteMs}
	for i, ts := range want {
		if gaps[0].Missing[i] != ts {
			t.Fatalf("Missing[%d] = %d, want %d", i, gaps[0].Missing[i], ts)
		}
	}
}

func TestAnalyzeGapsNoGap(t *testing.T) {
	base := int64(1_700_000_400_000)
	cases := [][]int64{
		nil,
		{base},
		{base, base + minuteMs, base + 2*minuteMs},
	}
	for _, stamps := range cases {
		gaps, err := AnalyzeGaps(context.Background(), sliceSource{stamps: stamps}, timeframe.Minute1, 0, 0)
		if err != nil {
			t.Fatalf("AnalyzeGaps(%v): %v", stamps, err)
		}
		if len(gaps) != 0 {
			t.Fatalf("AnalyzeGaps(%v) = %v, want 空", stamps, gaps)
		}
	}
}

func TestVerifyAndReport(t *testing.T) {
	total, mismatches, err := Verify(context.Background(), fixedVerifier{count: 7, mismatches: 0}, 0, 0)
	if err != nil || total != 7 || mismatches != 0 {
		t.Fatalf("Verify = (%d, %d, %v)", total, mismatches, err)
	}

	rep := Report{TotalCount: 7, Gaps: []Gap{{MissingCandles: 2}, {MissingCandles: 3}}}
	if rep.MissingTotal() != 5 {
		t.Fatalf("MissingTotal = %d, want 5", rep.MissingTotal())
	}
	if rep.Complete() {
		t.Fatalf("有 gap 时 Complete 应为 false")
	}
	if !(Report{}).Complete() {
		t.Fatalf("无 gap 时 Complete 应为 true")
	}
}
