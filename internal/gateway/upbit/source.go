package upbit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ubcc/internal/logger"
	"ubcc/internal/market"
	"ubcc/internal/timeframe"
)

const maxPageLimit = 200

// Source 实现 market.Source，对接 Upbit 的 REST K 线接口。
type Source struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Source {
	final := cfg.withDefaults()
	return &Source{
		cfg:        final,
		httpClient: &http.Client{Timeout: final.HTTPTimeout},
	}
}

func (s *Source) Name() string { return "upbit" }

// FetchPage 拉取 before 之前最多 count 根 K 线。
// to 参数按 UTC 解释而 K 线按 KST 报告，因此请求前要减去固定的上报偏移；
// 不减会得到悄悄偏移 9 小时的数据。
func (s *Source) FetchPage(ctx context.Context, symbol string, tf timeframe.Timeframe, before time.Time, count int) ([]market.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if count <= 0 {
		count = 1
	}
	if count > maxPageLimit {
		count = maxPageLimit
	}
	path, err := candlePath(tf)
	if err != nil {
		return nil, err
	}
	to := before.Add(-s.cfg.ReportOffset).Format("2006-01-02 15:04:05")
	reqURL := fmt.Sprintf("%s%s?market=%s&count=%d&to=%s",
		s.cfg.BaseURL, path, url.QueryEscape(symbol), count, url.QueryEscape(to))
	logger.Debugf("[upbit] REST %s", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("upbit candles error: %s", resp.Status)
	}
	var raw []candlePayload
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]market.Candle, 0, len(raw))
	for _, item := range raw {
		ts, err := time.ParseInLocation("2006-01-02T15:04:05", item.CandleDateTimeKST, s.cfg.Location)
		if err != nil {
			logger.Warnf("[upbit] 跳过无法解析的时间 %q: %v", item.CandleDateTimeKST, err)
			continue
		}
		out = append(out, market.Candle{
			Timestamp: ts.UnixMilli(),
			Open:      item.OpeningPrice,
			High:      item.HighPrice,
			Low:       item.LowPrice,
			Close:     item.TradePrice,
			Volume:    item.CandleAccTradeVolume,
		})
	}
	return out, nil
}

// candlePath 把周期映射为 Upbit 的端点路径。
func candlePath(tf timeframe.Timeframe) (string, error) {
	switch tf {
	case timeframe.Day:
		return "/v1/candles/days", nil
	case timeframe.Week:
		return "/v1/candles/weeks", nil
	case timeframe.Month:
		return "/v1/candles/months", nil
	default:
		unit := tf.Minutes()
		if unit <= 0 {
			return "", fmt.Errorf("unknown timeframe %q", tf)
		}
		return fmt.Sprintf("/v1/candles/minutes/%d", unit), nil
	}
}

type candlePayload struct {
	Market               string  `json:"market"`
	CandleDateTimeUTC    string  `json:"candle_date_time_utc"`
	CandleDateTimeKST    string  `json:"candle_date_time_kst"`
	OpeningPrice         float64 `json:"opening_price"`
	HighPrice            float64 `json:"high_price"`
	LowPrice             float64 `json:"low_price"`
	TradePrice           float64 `json:"trade_price"`
	Timestamp            int64   `json:"timestamp"`
	CandleAccTradePrice  float64 `json:"candle_acc_trade_price"`
	CandleAccTradeVolume float64 `json:"candle_acc_trade_volume"`
	Unit                 int     `json:"unit"`
}
