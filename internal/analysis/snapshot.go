package analysis

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"ubcc/internal/market"
)

// Settings 控制指标快照的周期参数。
type Settings struct {
	SMAPeriod int
	EMAPeriod int
	RSIPeriod int
}

func (s *Settings) withDefaults() Settings {
	out := *s
	if out.SMAPeriod <= 0 {
		out.SMAPeriod = 20
	}
	if out.EMAPeriod <= 0 {
		out.EMAPeriod = 21
	}
	if out.RSIPeriod <= 0 {
		out.RSIPeriod = 14
	}
	return out
}

// Snapshot 是采集区间收盘价上的指标速览，只取各序列最新值。
type Snapshot struct {
	Count     int     `json:"count"`
	LastClose float64 `json:"last_close"`
	SMA       float64 `json:"sma"`
	EMA       float64 `json:"ema"`
	RSI       float64 `json:"rsi"`
}

// Compute 基于收盘价序列计算指标快照；数据不足以覆盖最长周期时返回错误。
func Compute(candles []market.Candle, cfg Settings) (Snapshot, error) {
	final := cfg.withDefaults()
	longest := final.SMAPeriod
	if final.EMAPeriod > longest {
		longest = final.EMAPeriod
	}
	if final.RSIPeriod > longest {
		longest = final.RSIPeriod
	}
	if len(candles) <= longest {
		return Snapshot{}, fmt.Errorf("need more than %d candles, got %d", longest, len(candles))
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	sma := talib.Sma(closes, final.SMAPeriod)
	ema := talib.Ema(closes, final.EMAPeriod)
	rsi := talib.Rsi(closes, final.RSIPeriod)
	return Snapshot{
		Count:     len(candles),
		LastClose: closes[len(closes)-1],
		SMA:       sma[len(sma)-1],
		EMA:       ema[len(ema)-1],
		RSI:       rsi[len(rsi)-1],
	}, nil
}
