package collector

import (
	"context"
	"fmt"
	"time"

	"ubcc/internal/integrity"
	"ubcc/internal/logger"
	"ubcc/internal/market"
	"ubcc/internal/timeframe"
)

// CandleStore 是回补循环需要的最小存储能力。
type CandleStore interface {
	UpsertBatch(ctx context.Context, candles []market.Candle) (int, error)
	Extremes(ctx context.Context) (min, max int64, ok bool, err error)
	integrity.Verifier
	integrity.TimestampSource
}

// Reporter 将采集进度与最终结果解耦到调用方（进度条、日志等）。
type Reporter interface {
	// OnStart 在分页开始前上报预期总根数。
	OnStart(expected int64)
	// OnPageCollected 每成功落库一页调用；requested 是本页请求的根数，
	// saved 小于 requested 说明上游在该区间本就缺数据，预期总量应相应缩减。
	OnPageCollected(saved, requested int)
	// OnComplete 在校验与 gap 分析结束后携带最终结果调用。
	OnComplete(res Result)
}

// NopReporter 丢弃所有进度回调。
type NopReporter struct{}

func (NopReporter) OnStart(int64)            {}
func (NopReporter) OnPageCollected(int, int) {}
func (NopReporter) OnComplete(Result)        {}

// Config 控制一次回补会话。
type Config struct {
	Symbol          string
	Timeframe       timeframe.Timeframe
	SessionOpenHour int           // 开始边界的日内锚点小时，默认 9
	PageCap         int           // 单页最大根数，默认 200
	Pacing          time.Duration // 每次请求后的固定间隔，默认 100ms
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.SessionOpenHour <= 0 {
		out.SessionOpenHour = timeframe.DefaultSessionOpenHour
	}
	if out.PageCap <= 0 {
		out.PageCap = 200
	}
	if out.Pacing <= 0 {
		out.Pacing = 100 * time.Millisecond
	}
	return out
}

// Result 是一次采集会话的结构化报告。
type Result struct {
	TotalCount         int64           `json:"total_count"`
	ExpectedCandles    int64           `json:"expected_candles"`
	OrderingMismatches int64           `json:"ordering_mismatches"`
	Gaps               []integrity.Gap `json:"gaps"`
	AdjustedStart      time.Time       `json:"adjusted_start"`
	AdjustedEnd        time.Time       `json:"adjusted_end"`
}

// Collector 从上游向过去分页回补 [start, end]，从已存数据断点续采。
type Collector struct {
	store    CandleStore
	source   market.Source
	reporter Reporter
	cfg      Config
}

func New(store CandleStore, source market.Source, reporter Reporter, cfg Config) *Collector {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Collector{store: store, source: source, reporter: reporter, cfg: cfg.withDefaults()}
}

// phase 是回补循环的显式状态，转移逻辑是纯函数，便于独立测试。
type phase int

const (
	phasePaginating phase = iota
	phaseExhaustedGap
	phaseDone
	phaseFailed
)

// pageSize 按剩余时间换算本页请求根数，夹在 [1, pageCap] 内。
// diffMinutes/interval 不足 1 时仍请求 1 根，保证循环必然前进；
// 这一公式在区间尾部可能少取，与上游的历史行为保持一致。
func pageSize(cursor, start time.Time, tf timeframe.Timeframe, pageCap int) int {
	diffMinutes := int(cursor.Sub(start) / time.Minute)
	need := diffMinutes / tf.Minutes()
	if need > pageCap {
		need = pageCap
	}
	if need < 1 {
		need = 1
	}
	return need
}

// jumpBack 在上游返回空页时把游标整页向过去跳，避免在稀疏区间停滞。
func jumpBack(cursor time.Time, tf timeframe.Timeframe, pageCap int) time.Time {
	return cursor.Add(-time.Duration(pageCap*tf.Minutes()) * time.Minute)
}

// step 是分页循环的纯转移函数：根据一页的拉取结果推进游标并给出下一状态。
// 不触碰存储与网络，可脱离真实上游单测边界策略。
func step(cursor, effectiveStart time.Time, page []market.Candle, fetchErr error,
	tf timeframe.Timeframe, pageCap int) (phase, time.Time) {
	if fetchErr != nil {
		return phaseFailed, cursor
	}
	if len(page) == 0 {
		// 上游该区间无数据，整页向过去跳，避免停滞。
		return phaseExhaustedGap, jumpBack(cursor, tf, pageCap)
	}
	earliest, _ := market.Earliest(page)
	next := time.UnixMilli(earliest).In(cursor.Location())
	if !next.After(effectiveStart) {
		return phaseDone, next
	}
	return phasePaginating, next
}

// Run 执行完整的回补会话：断点决策 → 边界对齐 → 向后分页 → 校验与 gap 分析。
// 拉取或写入错误立即中止并向上传播；已提交页保持落库，下次调用凭
// store 的 min/max 断点续采。
func (c *Collector) Run(ctx context.Context, start, end time.Time) (Result, error) {
	effectiveStart, err := c.resolveStart(ctx, start)
	if err != nil {
		return Result{}, err
	}

	adjustedStart := c.cfg.Timeframe.AlignStart(effectiveStart, c.cfg.SessionOpenHour)
	adjustedEnd := c.cfg.Timeframe.AlignEnd(end)
	expected := c.cfg.Timeframe.CountBetween(adjustedStart, adjustedEnd)
	logger.Debugf("[collector] %s %s 区间 %s ~ %s（对齐后 %s ~ %s），预期 %d 根",
		c.cfg.Symbol, c.cfg.Timeframe,
		start.Format(time.DateTime), end.Format(time.DateTime),
		adjustedStart.Format(time.DateTime), adjustedEnd.Format(time.DateTime), expected)
	c.reporter.OnStart(expected)

	if err := c.paginate(ctx, effectiveStart, end); err != nil {
		return Result{}, err
	}
	return c.finalize(ctx, adjustedStart, adjustedEnd)
}

// resolveStart 读取 store 极值做断点决策：
// 空库从头采；已存最早点晚于请求起点说明前面还有洞，保留请求起点；
// 否则只需要已存最晚点之后的新数据。
func (c *Collector) resolveStart(ctx context.Context, start time.Time) (time.Time, error) {
	min, max, ok, err := c.store.Extremes(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("读取 %s %s 断点失败: %w", c.cfg.Symbol, c.cfg.Timeframe, err)
	}
	if !ok {
		logger.Debugf("[collector] %s %s 数据库为空，全新采集", c.cfg.Symbol, c.cfg.Timeframe)
		return start, nil
	}
	loc := start.Location()
	if time.UnixMilli(min).In(loc).After(start) {
		logger.Infof("[collector] %s %s 已存数据最早点 %s 晚于请求起点 %s，从请求起点补采",
			c.cfg.Symbol, c.cfg.Timeframe,
			time.UnixMilli(min).In(loc).Format(time.DateTime), start.Format(time.DateTime))
		return start, nil
	}
	resumed := time.UnixMilli(max).In(loc)
	logger.Debugf("[collector] %s %s 从断点 %s 续采", c.cfg.Symbol, c.cfg.Timeframe, resumed.Format(time.DateTime))
	return resumed, nil
}

// paginate 从未对齐的请求终点向过去逐页拉取，直到越过 effectiveStart。
func (c *Collector) paginate(ctx context.Context, effectiveStart, end time.Time) error {
	cursor := end
	for cursor.After(effectiveStart) {
		count := pageSize(cursor, effectiveStart, c.cfg.Timeframe, c.cfg.PageCap)
		page, fetchErr := c.source.FetchPage(ctx, c.cfg.Symbol, c.cfg.Timeframe, cursor, count)
		c.pace(ctx)

		state, next := step(cursor, effectiveStart, page, fetchErr, c.cfg.Timeframe, c.cfg.PageCap)
		switch state {
		case phaseFailed:
			return fmt.Errorf("拉取 %s %s（cursor=%s count=%d）失败: %w",
				c.cfg.Symbol, c.cfg.Timeframe, cursor.Format(time.DateTime), count, fetchErr)
		case phaseExhaustedGap:
			logger.Debugf("[collector] %s %s 空页，游标跳至 %s",
				c.cfg.Symbol, c.cfg.Timeframe, next.Format(time.DateTime))
		default:
			market.SortAsc(page)
			saved, err := c.store.UpsertBatch(ctx, page)
			if err != nil {
				return fmt.Errorf("落库 %s %s（cursor=%s）失败: %w",
					c.cfg.Symbol, c.cfg.Timeframe, cursor.Format(time.DateTime), err)
			}
			c.reporter.OnPageCollected(saved, count)
			logger.Debugf("[collector] %s %s 本页 %d 根，游标回退到 %s",
				c.cfg.Symbol, c.cfg.Timeframe, saved, next.Format(time.DateTime))
		}
		cursor = next
	}
	return nil
}

// finalize 在对齐后的区间上运行校验与 gap 分析；区间为空也照常执行。
func (c *Collector) finalize(ctx context.Context, adjustedStart, adjustedEnd time.Time) (Result, error) {
	startMs, endMs := adjustedStart.UnixMilli(), adjustedEnd.UnixMilli()
	total, mismatches, err := integrity.Verify(ctx, c.store, startMs, endMs)
	if err != nil {
		return Result{}, fmt.Errorf("校验 %s %s 失败: %w", c.cfg.Symbol, c.cfg.Timeframe, err)
	}
	gaps, err := integrity.AnalyzeGaps(ctx, c.store, c.cfg.Timeframe, startMs, endMs)
	if err != nil {
		return Result{}, fmt.Errorf("分析 %s %s gap 失败: %w", c.cfg.Symbol, c.cfg.Timeframe, err)
	}
	res := Result{
		TotalCount:         total,
		ExpectedCandles:    c.cfg.Timeframe.CountBetween(adjustedStart, adjustedEnd),
		OrderingMismatches: mismatches,
		Gaps:               gaps,
		AdjustedStart:      adjustedStart,
		AdjustedEnd:        adjustedEnd,
	}
	c.reporter.OnComplete(res)
	return res, nil
}

// pace 在每次请求之后固定等待，成功失败一视同仁，约束请求频率。
func (c *Collector) pace(ctx context.Context) {
	timer := time.NewTimer(c.cfg.Pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
