package service

import (
	"time"

	"ubcc/internal/collector"
)

const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// CollectParams 描述一次采集任务的请求参数。
type CollectParams struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Days      int    `json:"days"`
}

// Job 在内存中跟踪采集任务进度；快照按值返回，外部不可变更内部状态。
type Job struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Params    CollectParams     `json:"params"`
	Total     int64             `json:"total"`
	Completed int64             `json:"completed"`
	StartedAt time.Time         `json:"started_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Message   string            `json:"message"`
	Result    *collector.Result `json:"result,omitempty"`
}

func (j *Job) snapshot() Job {
	if j == nil {
		return Job{}
	}
	out := *j
	if j.Result != nil {
		res := *j.Result
		out.Result = &res
	}
	return out
}
