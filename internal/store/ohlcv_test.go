package store

import (
	"context"
	"path/filepath"
	"testing"

	"ubcc/internal/market"
	"ubcc/internal/timeframe"
)

const hourMs = int64(60 * 60 * 1000)

func openTestStore(t *testing.T) *OHLCVStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "KRW-BTC_minute60.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func candle(ts int64, close float64) market.Candle {
	return market.Candle{Timestamp: ts, Open: close - 1, High: close + 1, Low: close - 2, Close: close, Volume: 10}
}

func TestUpsertBatchIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := int64(1_700_000_400_000)
	if _, err := s.UpsertBatch(ctx, []market.Candle{candle(base, 100)}); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	// 同一 timestamp 重复写入，后写的值生效且只有一行
	if _, err := s.UpsertBatch(ctx, []market.Candle{candle(base, 200)}); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	total, err := s.CountInRange(ctx, 0, 0)
	if err != nil {
		t.Fatalf("CountInRange: %v", err)
	}
	if total != 1 {
		t.Fatalf("重复 upsert 后行数 = %d, want 1", total)
	}
	rows, err := s.ReadRange(ctx, 0, 0)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if rows[0].Close != 200 {
		t.Fatalf("重复 upsert 后 close = %v, want 200（后写覆盖）", rows[0].Close)
	}
}

func TestExtremesEmptyAndFilled(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, _, ok, err := s.Extremes(ctx); err != nil || ok {
		t.Fatalf("空库 Extremes ok=%v err=%v, want ok=false", ok, err)
	}
	base := int64(1_700_000_400_000)
	batch := []market.Candle{candle(base, 1), candle(base+hourMs, 2), candle(base+2*hourMs, 3)}
	if _, err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	min, max, ok, err := s.Extremes(ctx)
	if err != nil || !ok {
		t.Fatalf("Extremes ok=%v err=%v", ok, err)
	}
	if min != base || max != base+2*hourMs {
		t.Fatalf("Extremes = (%d, %d), want (%d, %d)", min, max, base, base+2*hourMs)
	}
}

func TestRangeQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := int64(1_700_000_400_000)
	var batch []market.Candle
	for i := int64(0); i < 5; i++ {
		batch = append(batch, candle(base+i*hourMs, float64(i)))
	}
	if _, err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}

	total, err := s.CountInRange(ctx, base+hourMs, base+3*hourMs)
	if err != nil {
		t.Fatalf("CountInRange: %v", err)
	}
	if total != 3 {
		t.Fatalf("有界计数 = %d, want 3", total)
	}
	total, err = s.CountInRange(ctx, 0, 0)
	if err != nil || total != 5 {
		t.Fatalf("无界计数 = %d err=%v, want 5", total, err)
	}

	rows, err := s.ReadRange(ctx, base+hourMs, 0)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("单侧有界读取 %d 行, want 4", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Timestamp <= rows[i-1].Timestamp {
			t.Fatalf("ReadRange 未按时间升序")
		}
	}

	stamps, err := s.ReadTimestamps(ctx, 0, base+2*hourMs)
	if err != nil {
		t.Fatalf("ReadTimestamps: %v", err)
	}
	if len(stamps) != 3 || stamps[0] != base {
		t.Fatalf("ReadTimestamps = %v", stamps)
	}
}

func TestOrderingViolationsZero(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := int64(1_700_000_400_000)
	// 乱序写入也不可能破坏主键顺序
	batch := []market.Candle{candle(base+2*hourMs, 3), candle(base, 1), candle(base+hourMs, 2)}
	if _, err := s.UpsertBatch(ctx, batch); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	n, err := s.OrderingViolations(ctx, 0, 0)
	if err != nil {
		t.Fatalf("OrderingViolations: %v", err)
	}
	if n != 0 {
		t.Fatalf("OrderingViolations = %d, want 0", n)
	}
}

func TestPersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := FilePath(dir, "krw-btc", timeframe.Minute60)
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	base := int64(1_700_000_400_000)
	if _, err := s.UpsertBatch(ctx, []market.Candle{candle(base, 42)}); err != nil {
		t.Fatalf("UpsertBatch: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// 重新打开（含重复建表）后数据仍在
	s, err = Open(path)
	if err != nil {
		t.Fatalf("重新 Open: %v", err)
	}
	defer s.Close()
	total, err := s.CountInRange(ctx, 0, 0)
	if err != nil || total != 1 {
		t.Fatalf("重开后计数 = %d err=%v, want 1", total, err)
	}
}
