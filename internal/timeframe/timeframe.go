package timeframe

import (
	"fmt"
	"time"
)

// Timeframe 是固定枚举的 K 线周期，命名沿用交易所 REST 参数。
type Timeframe string

const (
	Minute1   Timeframe = "minute1"
	Minute3   Timeframe = "minute3"
	Minute5   Timeframe = "minute5"
	Minute10  Timeframe = "minute10"
	Minute15  Timeframe = "minute15"
	Minute30  Timeframe = "minute30"
	Minute60  Timeframe = "minute60"
	Minute240 Timeframe = "minute240"
	Day       Timeframe = "day"
	Week      Timeframe = "week"
	Month     Timeframe = "month"
)

// DefaultSessionOpenHour 为开始边界对齐使用的日内锚点（交易所当地 09:00）。
const DefaultSessionOpenHour = 9

var minutesByName = map[Timeframe]int{
	Minute1:   1,
	Minute3:   3,
	Minute5:   5,
	Minute10:  10,
	Minute15:  15,
	Minute30:  30,
	Minute60:  60,
	Minute240: 240,
	Day:       1440,
	Week:      10080,
	Month:     43200,
}

// Parse 校验并返回周期枚举。
func Parse(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := minutesByName[tf]; !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// All 返回全部合法周期，按粒度升序。
func All() []Timeframe {
	return []Timeframe{Minute1, Minute3, Minute5, Minute10, Minute15,
		Minute30, Minute60, Minute240, Day, Week, Month}
}

// Minutes 返回周期对应的分钟数；未知周期返回 0。
func (tf Timeframe) Minutes() int { return minutesByName[tf] }

// Step 返回相邻两根 K 线之间的期望间隔。
func (tf Timeframe) Step() time.Duration {
	return time.Duration(tf.Minutes()) * time.Minute
}

func (tf Timeframe) String() string { return string(tf) }

// AlignStart 将开始边界对齐到下一个周期起点：
// 早于开盘锚点的时间先贴到当日锚点，再以锚点为基准向上取整到周期倍数。
// 秒与亚秒一律清零。计算使用 t 自身的时区。
func (tf Timeframe) AlignStart(t time.Time, sessionOpenHour int) time.Time {
	step := tf.Minutes()
	if step <= 0 {
		return t
	}
	if t.Hour() < sessionOpenHour {
		t = time.Date(t.Year(), t.Month(), t.Day(), sessionOpenHour, 0, 0, 0, t.Location())
	}
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	minutesFromOpen := (t.Hour()-sessionOpenHour)*60 + t.Minute()
	if rem := minutesFromOpen % step; rem != 0 {
		t = t.Add(time.Duration(step-rem) * time.Minute)
	}
	return t
}

// AlignEnd 将结束边界对齐到上一个周期终点：以 00:00 为基准向下取整。
// 秒与亚秒一律清零。
func (tf Timeframe) AlignEnd(t time.Time) time.Time {
	step := tf.Minutes()
	if step <= 0 {
		return t
	}
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, t.Location())
	minutesTotal := t.Hour()*60 + t.Minute()
	if rem := minutesTotal % step; rem != 0 {
		t = t.Add(-time.Duration(rem) * time.Minute)
	}
	return t
}

// ExpectedCandles 先对齐两端，再返回区间内完整周期的数量。
// 对齐后 end 不晚于 start 时返回 0，不计入不完整的尾部周期。
func (tf Timeframe) ExpectedCandles(start, end time.Time, sessionOpenHour int) int64 {
	return tf.CountBetween(tf.AlignStart(start, sessionOpenHour), tf.AlignEnd(end))
}

// CountBetween 返回两个已对齐边界之间完整周期的数量；end 不晚于 start 时为 0。
func (tf Timeframe) CountBetween(start, end time.Time) int64 {
	if !end.After(start) {
		return 0
	}
	totalMinutes := int64(end.Sub(start) / time.Minute)
	return totalMinutes / int64(tf.Minutes())
}
