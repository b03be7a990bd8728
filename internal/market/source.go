package market

import (
	"context"
	"time"

	"ubcc/internal/timeframe"
)

// Source 统一不同交易所的历史 K 线分页拉取行为。
type Source interface {
	// FetchPage 拉取 before 之前（含）最多 count 根 K 线；返回顺序不保证，
	// 可能为空。空结果不是错误，由调用方决定如何向前跳跃。
	FetchPage(ctx context.Context, symbol string, tf timeframe.Timeframe, before time.Time, count int) ([]Candle, error)
	// Name 返回数据源标识，用于日志与错误上下文。
	Name() string
}
