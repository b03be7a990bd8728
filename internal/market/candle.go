package market

import "sort"

// Candle 表示一根 OHLCV K 线，Timestamp 为 UTC 毫秒且是唯一主键。
type Candle struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// SortAsc 原地按时间升序排序。上游分页返回顺序不做任何假设。
func SortAsc(candles []Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp < candles[j].Timestamp
	})
}

// Earliest 返回最早一根的时间戳；空切片返回 0 和 false。
func Earliest(candles []Candle) (int64, bool) {
	if len(candles) == 0 {
		return 0, false
	}
	min := candles[0].Timestamp
	for _, c := range candles[1:] {
		if c.Timestamp < min {
			min = c.Timestamp
		}
	}
	return min, true
}
