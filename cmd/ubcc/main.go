package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ubcc/internal/analysis"
	"ubcc/internal/chart"
	"ubcc/internal/collector"
	"ubcc/internal/config"
	"ubcc/internal/export"
	"ubcc/internal/gateway/binance"
	"ubcc/internal/gateway/upbit"
	"ubcc/internal/logger"
	"ubcc/internal/market"
	"ubcc/internal/report"
	"ubcc/internal/service"
	"ubcc/internal/store"
	"ubcc/internal/timeframe"
)

func main() {
	var (
		tfName     = flag.String("timeframe", "day", "K 线周期 (minute1..minute240, day, week, month)")
		days       = flag.Int("days", 30, "采集天数")
		fiat       = flag.String("fiat", "KRW", "计价货币（symbol 不含 '-' 时生效）")
		configPath = flag.String("config", "ubcc.toml", "配置文件路径")
		dbDir      = flag.String("db-dir", "", "数据库目录，默认取配置")
		sourceName = flag.String("source", "", "数据源 (upbit|binance)，默认取配置")
		exportCSV  = flag.Bool("export-csv", false, "采集后导出 CSV")
		drawChart  = flag.Bool("chart", false, "采集后导出蜡烛图 HTML")
		verbose    = flag.Bool("verbose", false, "输出 debug 日志")
		serve      = flag.Bool("serve", false, "以 HTTP 服务方式运行")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "用法: %s [flags] <coin|ticker>\n例如: ubcc --timeframe minute60 --days 30 BTC\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	logger.SetVerbose(*verbose)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	if *dbDir != "" {
		cfg.DataDir = *dbDir
	}
	if *sourceName != "" {
		cfg.Source = *sourceName
	}
	src, err := buildSource(cfg)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	if *serve {
		if err := runServe(cfg, src); err != nil {
			logger.Errorf("HTTP 服务退出: %v", err)
			os.Exit(1)
		}
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	tf, err := timeframe.Parse(*tfName)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	symbol := buildTicker(flag.Arg(0), *fiat)

	if err := runCollect(cfg, src, symbol, tf, *days, *exportCSV, *drawChart, *verbose); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

// buildTicker 把裸币种归一成完整 ticker；已含 '-' 的原样大写。
func buildTicker(arg, fiat string) string {
	arg = strings.ToUpper(strings.TrimSpace(arg))
	if strings.Contains(arg, "-") {
		return arg
	}
	return strings.ToUpper(strings.TrimSpace(fiat)) + "-" + arg
}

func buildSource(cfg config.Config) (market.Source, error) {
	switch cfg.Source {
	case "upbit":
		return upbit.New(upbit.Config{Location: cfg.Location()}), nil
	case "binance":
		return binance.New(), nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

func runCollect(cfg config.Config, src market.Source, symbol string, tf timeframe.Timeframe,
	days int, exportCSV, drawChart, verbose bool) error {
	loc := cfg.Location()
	st, err := store.Open(store.FilePath(cfg.DataDir, symbol, tf))
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Printf("\n%s 数据采集开始（%d 天，%s）\n\n", symbol, days, tf)
	start, end := collector.CollectionWindow(time.Now().In(loc), days, tf, cfg.SessionOpenHour)
	c := collector.New(st, src, newProgress(symbol), collector.Config{
		Symbol:          symbol,
		Timeframe:       tf,
		SessionOpenHour: cfg.SessionOpenHour,
		PageCap:         cfg.PageCap,
		Pacing:          cfg.Pacing(),
	})
	res, err := c.Run(context.Background(), start, end)
	if err != nil {
		return err
	}

	fmt.Println()
	report.RenderSummary(os.Stdout, symbol, tf, res)
	report.RenderGaps(os.Stdout, res.Gaps, loc)

	startMs, endMs := res.AdjustedStart.UnixMilli(), res.AdjustedEnd.UnixMilli()
	if verbose || exportCSV || drawChart {
		candles, err := st.ReadRange(context.Background(), startMs, endMs)
		if err != nil {
			return err
		}
		if verbose {
			if snap, err := analysis.Compute(candles, analysis.Settings{}); err == nil {
				report.RenderSnapshot(os.Stdout, snap)
			} else {
				logger.Warnf("指标速览跳过: %v", err)
			}
		}
		if exportCSV {
			if _, err := export.ToFile(cfg.CSVDir, symbol, tf, candles, export.Options{Location: loc}); err != nil {
				return err
			}
		}
		if drawChart {
			if _, err := chart.Render(cfg.ChartDir, symbol, tf, candles, loc); err != nil {
				return err
			}
		}
	}
	return nil
}

func runServe(cfg config.Config, src market.Source) error {
	svc := service.New(cfg, src)
	server, err := service.NewHTTPServer(service.HTTPConfig{Addr: cfg.HTTPAddr, Svc: svc})
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(ctx) })
	logger.Infof("HTTP 服务已启动: %s", cfg.HTTPAddr)
	return g.Wait()
}

// progress 把采集进度渲染成单行刷新计数。
type progress struct {
	symbol    string
	total     int64
	completed int64
}

func newProgress(symbol string) *progress { return &progress{symbol: symbol} }

func (p *progress) OnStart(expected int64) { p.total = expected }

func (p *progress) OnPageCollected(saved, requested int) {
	p.completed += int64(saved)
	if saved < requested && p.total > int64(requested-saved) {
		p.total -= int64(requested - saved)
	}
	fmt.Fprintf(os.Stderr, "\r%s: %d/%d candles", p.symbol, p.completed, p.total)
}

func (p *progress) OnComplete(collector.Result) {
	if p.completed > 0 {
		fmt.Fprintln(os.Stderr)
	}
}
