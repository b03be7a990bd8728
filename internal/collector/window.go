package collector

import (
	"time"

	"ubcc/internal/timeframe"
)

// CollectionWindow 根据天数推出请求区间：终点为 now 按周期向下对齐，
// 起点回退 days 天并贴到当日开盘锚点（时分秒清零到整点）。
func CollectionWindow(now time.Time, days int, tf timeframe.Timeframe, sessionOpenHour int) (start, end time.Time) {
	if sessionOpenHour <= 0 {
		sessionOpenHour = timeframe.DefaultSessionOpenHour
	}
	end = tf.AlignEnd(now)
	back := end.AddDate(0, 0, -days)
	start = time.Date(back.Year(), back.Month(), back.Day(), sessionOpenHour, 0, 0, 0, back.Location())
	return start, end
}
