package analysis

import (
	"math"
	"testing"

	"ubcc/internal/market"
)

func closes(n int) []market.Candle {
	out := make([]market.Candle, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, market.Candle{Timestamp: int64(i), Close: float64(i)})
	}
	return out
}

func TestComputeInsufficientData(t *testing.T) {
	// 最长周期是 EMA 的 21，数据不够时要返回错误而不是 NaN 指标
	if _, err := Compute(closes(21), Settings{}); err == nil {
		t.Fatalf("21 根不足以覆盖 21 周期，应报错")
	}
	if _, err := Compute(nil, Settings{}); err == nil {
		t.Fatalf("空输入应报错")
	}
}

func TestCompute(t *testing.T) {
	snap, err := Compute(closes(30), Settings{})
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if snap.Count != 30 || snap.LastClose != 30 {
		t.Fatalf("snapshot = %+v", snap)
	}
	// 收盘价 1..30 的 20 周期均线最新值为 mean(11..30) = 20.5
	if math.Abs(snap.SMA-20.5) > 1e-9 {
		t.Fatalf("SMA = %v, want 20.5", snap.SMA)
	}
	if snap.EMA <= 0 || snap.RSI <= 0 {
		t.Fatalf("EMA/RSI 未计算: %+v", snap)
	}
}
