package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"

	"ubcc/internal/logger"
	"ubcc/internal/market"
	"ubcc/internal/timeframe"
)

const maxPageLimit = 1000

// Source 实现 market.Source，通过官方 SDK 拉取 Binance 现货 K 线。
// 历史接口无需鉴权。
type Source struct {
	client *binance.Client
}

func New() *Source {
	return &Source{client: binance.NewClient("", "")}
}

func (s *Source) Name() string { return "binance" }

func (s *Source) FetchPage(ctx context.Context, symbol string, tf timeframe.Timeframe, before time.Time, count int) ([]market.Candle, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval, err := intervalName(tf)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 1
	}
	if count > maxPageLimit {
		count = maxPageLimit
	}
	// endTime 对开盘时间是闭区间；减 1 毫秒排除恰好开在游标上的那根，
	// 否则游标停在原地，分页循环无法前进。
	endTime := before.UnixMilli() - 1
	logger.Debugf("[binance] klines %s %s to=%d limit=%d", symbol, interval, endTime, count)
	klines, err := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		EndTime(endTime).
		Limit(count).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		out = append(out, market.Candle{
			Timestamp: k.OpenTime,
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
		})
	}
	return out, nil
}

// normalizeSymbol 把 Upbit 风格的 "KRW-BTC" 归一成 Binance 交易对。
func normalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if fiat, coin, ok := strings.Cut(symbol, "-"); ok {
		if fiat == "USDT" || fiat == "BTC" {
			return coin + fiat
		}
		return coin + "USDT"
	}
	return symbol
}

// intervalName 把周期映射为 Binance interval；minute10 在 Binance 没有对应档位。
func intervalName(tf timeframe.Timeframe) (string, error) {
	switch tf {
	case timeframe.Minute1:
		return "1m", nil
	case timeframe.Minute3:
		return "3m", nil
	case timeframe.Minute5:
		return "5m", nil
	case timeframe.Minute15:
		return "15m", nil
	case timeframe.Minute30:
		return "30m", nil
	case timeframe.Minute60:
		return "1h", nil
	case timeframe.Minute240:
		return "4h", nil
	case timeframe.Day:
		return "1d", nil
	case timeframe.Week:
		return "1w", nil
	case timeframe.Month:
		return "1M", nil
	default:
		return "", fmt.Errorf("timeframe %q is not supported by binance", tf)
	}
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
