package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "no-such.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c != Default() {
		t.Fatalf("缺省配置 = %+v", c)
	}
	if c.DataDir != "db" || c.Source != "upbit" || c.PageCap != 200 {
		t.Fatalf("默认值错误: %+v", c)
	}
	if c.Pacing() != 100*time.Millisecond {
		t.Fatalf("Pacing = %v, want 100ms", c.Pacing())
	}
}

func TestLoadParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ubcc.toml")
	body := `
data_dir = "/var/lib/ubcc"
source = "binance"
page_cap = 50
pacing_millis = 250
exchange_timezone = "Asia/Seoul"
http_addr = ":8080"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("写入临时配置: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DataDir != "/var/lib/ubcc" || c.Source != "binance" || c.PageCap != 50 {
		t.Fatalf("解析结果 = %+v", c)
	}
	if c.Pacing() != 250*time.Millisecond {
		t.Fatalf("Pacing = %v, want 250ms", c.Pacing())
	}
	// 未出现的键仍用默认值
	if c.CSVDir != "csv" || c.SessionOpenHour != 9 {
		t.Fatalf("缺省补齐失败: %+v", c)
	}
}

func TestLocationFallback(t *testing.T) {
	// 无论系统有没有 tzdata，首尔与兜底 KST 的偏移都是 +9h
	for _, tz := range []string{"Asia/Seoul", "Not/AZone"} {
		c := Default()
		c.ExchangeTimezone = tz
		_, offset := time.Now().In(c.Location()).Zone()
		if offset != 9*60*60 {
			t.Fatalf("Location(%s) 偏移 = %d, want +9h", tz, offset)
		}
	}
}
