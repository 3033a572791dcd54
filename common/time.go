package common

import (
	"time"
)

// DayFormat 日期格式,如2025-01-15
const DayFormat = "2006-01-02"

// Clock 返回当前时间,便于测试时替换
type Clock func() time.Time

// SystemClock 系统时间
var SystemClock Clock = time.Now

// UTCDay 取得t对应的UTC日期
func UTCDay(t time.Time) string {
	return t.UTC().Format(DayFormat)
}

// ParseUTCDay 解析UTC日期
func ParseUTCDay(day string) (time.Time, error) {
	return time.ParseInLocation(DayFormat, day, time.UTC)
}
