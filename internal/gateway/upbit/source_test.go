package upbit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ubcc/internal/timeframe"
)

var kst = time.FixedZone("KST", 9*60*60)

const payload = `[
  {"market":"KRW-BTC","candle_date_time_utc":"2024-03-05T04:00:00",
   "candle_date_time_kst":"2024-03-05T13:00:00","opening_price":100.5,
   "high_price":101,"low_price":99.5,"trade_price":100.75,
   "timestamp":1709611200123,"candle_acc_trade_price":123456.7,
   "candle_acc_trade_volume":12.25,"unit":60},
  {"market":"KRW-BTC","candle_date_time_utc":"2024-03-05T03:00:00",
   "candle_date_time_kst":"2024-03-05T12:00:00","opening_price":99,
   "high_price":100.6,"low_price":98.8,"trade_price":100.5,
   "timestamp":1709607600123,"candle_acc_trade_price":98765.4,
   "candle_acc_trade_volume":8.5,"unit":60}
]`

func TestFetchPageRequestShape(t *testing.T) {
	var gotPath, gotMarket, gotCount, gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		q := r.URL.Query()
		gotMarket, gotCount, gotTo = q.Get("market"), q.Get("count"), q.Get("to")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	src := New(Config{BaseURL: srv.URL, Location: kst})
	before := time.Date(2024, 3, 5, 14, 0, 0, 0, kst)
	candles, err := src.FetchPage(context.Background(), "krw-btc", timeframe.Minute60, before, 2)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if gotPath != "/v1/candles/minutes/60" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotMarket != "KRW-BTC" || gotCount != "2" {
		t.Fatalf("market=%s count=%s", gotMarket, gotCount)
	}
	// to 参数要减去 9 小时的固定上报偏移，否则拿到偏移 9 小时的数据
	if want := "2024-03-05 05:00:00"; gotTo != want {
		t.Fatalf("to = %q, want %q", gotTo, want)
	}

	if len(candles) != 2 {
		t.Fatalf("candles = %d, want 2", len(candles))
	}
	wantTs := time.Date(2024, 3, 5, 13, 0, 0, 0, kst).UnixMilli()
	if candles[0].Timestamp != wantTs {
		t.Fatalf("Timestamp = %d, want %d（按 KST 解析）", candles[0].Timestamp, wantTs)
	}
	if candles[0].Open != 100.5 || candles[0].Close != 100.75 || candles[0].Volume != 12.25 {
		t.Fatalf("字段映射错误: %+v", candles[0])
	}
}

func TestFetchPageHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := New(Config{BaseURL: srv.URL})
	_, err := src.FetchPage(context.Background(), "KRW-BTC", timeframe.Day, time.Now(), 10)
	if err == nil {
		t.Fatalf("非 2xx 应报错")
	}
}

func TestCandlePath(t *testing.T) {
	cases := map[timeframe.Timeframe]string{
		timeframe.Minute1:   "/v1/candles/minutes/1",
		timeframe.Minute240: "/v1/candles/minutes/240",
		timeframe.Day:       "/v1/candles/days",
		timeframe.Week:      "/v1/candles/weeks",
		timeframe.Month:     "/v1/candles/months",
	}
	for tf, want := range cases {
		got, err := candlePath(tf)
		if err != nil || got != want {
			t.Fatalf("candlePath(%s) = %q, %v; want %q", tf, got, err, want)
		}
	}
}
