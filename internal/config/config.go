package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config 是进程级配置；采集参数本身仍通过显式参数传递，
// 这里只放路径、节奏与服务端口这类部署项。
type Config struct {
	DataDir          string `toml:"data_dir"`
	CSVDir           string `toml:"csv_dir"`
	ChartDir         string `toml:"chart_dir"`
	Source           string `toml:"source"` // upbit | binance
	SessionOpenHour  int    `toml:"session_open_hour"`
	PageCap          int    `toml:"page_cap"`
	PacingMillis     int    `toml:"pacing_millis"`
	ExchangeTimezone string `toml:"exchange_timezone"`
	HTTPAddr         string `toml:"http_addr"`
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.DataDir == "" {
		out.DataDir = "db"
	}
	if out.CSVDir == "" {
		out.CSVDir = "csv"
	}
	if out.ChartDir == "" {
		out.ChartDir = "charts"
	}
	if out.Source == "" {
		out.Source = "upbit"
	}
	if out.SessionOpenHour <= 0 {
		out.SessionOpenHour = 9
	}
	if out.PageCap <= 0 {
		out.PageCap = 200
	}
	if out.PacingMillis <= 0 {
		out.PacingMillis = 100
	}
	if out.ExchangeTimezone == "" {
		out.ExchangeTimezone = "Asia/Seoul"
	}
	if out.HTTPAddr == "" {
		out.HTTPAddr = ":9992"
	}
	return out
}

// Default 返回全默认配置。
func Default() Config {
	c := Config{}
	return c.withDefaults()
}

// Load 读取 TOML 配置文件；文件不存在时返回默认配置而非错误。
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("读取配置 %s 失败: %w", path, err)
	}
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("解析配置 %s 失败: %w", path, err)
	}
	return c.withDefaults(), nil
}

// Pacing 返回请求间隔。
func (c Config) Pacing() time.Duration {
	return time.Duration(c.PacingMillis) * time.Millisecond
}

// Location 加载交易所时区；找不到时退回固定 KST 偏移。
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ExchangeTimezone)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}
