package upbit

import "time"

// Config 描述 Upbit REST 数据源的参数。
type Config struct {
	BaseURL     string
	HTTPTimeout time.Duration
	// ReportOffset 是交易所时间与请求参数之间的固定上报偏移：
	// K 线按 KST 报告，to 参数按 UTC 解释，两者相差 9 小时。
	ReportOffset time.Duration
	// Location 用于解析响应里的交易所当地时间。
	Location *time.Location
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = "https://api.upbit.com"
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 10 * time.Second
	}
	if out.ReportOffset == 0 {
		out.ReportOffset = 9 * time.Hour
	}
	if out.Location == nil {
		out.Location = time.FixedZone("KST", 9*60*60)
	}
	return out
}
