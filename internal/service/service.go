package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ubcc/internal/collector"
	"ubcc/internal/config"
	"ubcc/internal/integrity"
	"ubcc/internal/logger"
	"ubcc/internal/market"
	"ubcc/internal/store"
	"ubcc/internal/timeframe"
)

// Service 管理采集任务：提交、进度快照与已存数据查询。
// 采集是严格串行的——同一时刻只允许一个任务在跑，与底层 store 的
// 单写者约定保持一致。
type Service struct {
	cfg    config.Config
	source market.Source

	mu      sync.Mutex
	jobs    map[string]*Job
	order   []string
	running bool
}

func New(cfg config.Config, source market.Source) *Service {
	return &Service{cfg: cfg, source: source, jobs: make(map[string]*Job)}
}

// SubmitCollect 登记并异步执行一个采集任务；已有任务在跑时直接拒绝。
func (s *Service) SubmitCollect(params CollectParams) (Job, error) {
	tf, err := timeframe.Parse(params.Timeframe)
	if err != nil {
		return Job{}, err
	}
	symbol := strings.ToUpper(strings.TrimSpace(params.Symbol))
	if symbol == "" {
		return Job{}, fmt.Errorf("symbol 不能为空")
	}
	if params.Days <= 0 {
		params.Days = 30
	}
	params.Symbol = symbol

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Job{}, fmt.Errorf("已有采集任务在执行，稍后再试")
	}
	s.running = true
	now := time.Now()
	job := &Job{
		ID:        uuid.NewString(),
		Status:    JobStatusPending,
		Params:    params,
		StartedAt: now,
		UpdatedAt: now,
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	snap := job.snapshot()
	s.mu.Unlock()

	go s.runJob(job.ID, symbol, tf, params.Days)
	return snap, nil
}

func (s *Service) runJob(id, symbol string, tf timeframe.Timeframe, days int) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.updateJob(id, func(j *Job) { j.Status = JobStatusRunning })

	st, err := store.Open(store.FilePath(s.cfg.DataDir, symbol, tf))
	if err != nil {
		s.failJob(id, err)
		return
	}
	defer st.Close()

	loc := s.cfg.Location()
	start, end := collector.CollectionWindow(time.Now().In(loc), days, tf, s.cfg.SessionOpenHour)
	c := collector.New(st, s.source, &jobReporter{svc: s, id: id}, collector.Config{
		Symbol:          symbol,
		Timeframe:       tf,
		SessionOpenHour: s.cfg.SessionOpenHour,
		PageCap:         s.cfg.PageCap,
		Pacing:          s.cfg.Pacing(),
	})
	res, err := c.Run(context.Background(), start, end)
	if err != nil {
		s.failJob(id, err)
		return
	}
	s.updateJob(id, func(j *Job) {
		j.Status = JobStatusDone
		j.Result = &res
	})
}

func (s *Service) failJob(id string, err error) {
	logger.Errorf("[service] 任务 %s 失败: %v", id, err)
	s.updateJob(id, func(j *Job) {
		j.Status = JobStatusFailed
		j.Message = err.Error()
	})
}

func (s *Service) updateJob(id string, fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[id]; ok {
		fn(j)
		j.UpdatedAt = time.Now()
	}
}

// JobSnapshot 返回指定任务的拷贝。
func (s *Service) JobSnapshot(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return j.snapshot(), true
}

// JobsSnapshot 按提交顺序返回全部任务拷贝。
func (s *Service) JobsSnapshot() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id].snapshot())
	}
	return out
}

// jobReporter 把采集进度写回任务记录。
type jobReporter struct {
	svc *Service
	id  string
}

func (r *jobReporter) OnStart(expected int64) {
	r.svc.updateJob(r.id, func(j *Job) { j.Total = expected })
}

func (r *jobReporter) OnPageCollected(saved, requested int) {
	r.svc.updateJob(r.id, func(j *Job) {
		j.Completed += int64(saved)
		// 一页少于请求数说明上游本就缺数据，预期总量随之缩减。
		if saved < requested && j.Total > int64(requested-saved) {
			j.Total -= int64(requested - saved)
		}
	})
}

func (r *jobReporter) OnComplete(collector.Result) {}

// Manifest 描述某 symbol+timeframe 的已存数据概况。
type Manifest struct {
	Symbol    string           `json:"symbol"`
	Timeframe string           `json:"timeframe"`
	Min       int64            `json:"min"`
	Max       int64            `json:"max"`
	Empty     bool             `json:"empty"`
	Report    integrity.Report `json:"report"`
}

// ManifestInfo 返回已存数据的极值、行数与完整性报告。
func (s *Service) ManifestInfo(ctx context.Context, symbol, tfName string) (Manifest, error) {
	tf, err := timeframe.Parse(tfName)
	if err != nil {
		return Manifest{}, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	st, err := store.Open(store.FilePath(s.cfg.DataDir, symbol, tf))
	if err != nil {
		return Manifest{}, err
	}
	defer st.Close()

	out := Manifest{Symbol: symbol, Timeframe: tfName}
	min, max, ok, err := st.Extremes(ctx)
	if err != nil {
		return Manifest{}, err
	}
	if !ok {
		out.Empty = true
		return out, nil
	}
	out.Min, out.Max = min, max
	report, err := integrity.Check(ctx, st, tf, min, max)
	if err != nil {
		return Manifest{}, err
	}
	out.Report = report
	return out, nil
}

// QueryCandles 返回区间内的已存 K 线；limit>0 时只保留最近 limit 根。
func (s *Service) QueryCandles(ctx context.Context, symbol, tfName string, start, end int64, limit int) ([]market.Candle, error) {
	tf, err := timeframe.Parse(tfName)
	if err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	st, err := store.Open(store.FilePath(s.cfg.DataDir, symbol, tf))
	if err != nil {
		return nil, err
	}
	defer st.Close()
	candles, err := st.ReadRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}
