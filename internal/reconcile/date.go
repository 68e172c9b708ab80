package reconcile

import (
	"errors"
	"strings"
	"time"
)

// DateLayout 是表单与 URL 中日期的唯一格式。
const DateLayout = "2006-01-02"

// ErrInvalidDate 在日期字符串无法解析时返回。
var ErrInvalidDate = errors.New("invalid record date")

// NormalizeToCalendarDate 取输入自身时区下的年月日，返回该日期的 UTC 零点。
// 所有表的 record_date 读写都必须经过它。
func NormalizeToCalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseCalendarDate 将 2006-01-02 解析为 UTC 日历日期。
func ParseCalendarDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return NormalizeToCalendarDate(t), nil
}

// FormatCalendarDate 输出 2006-01-02。
func FormatCalendarDate(t time.Time) string {
	return NormalizeToCalendarDate(t).Format(DateLayout)
}
