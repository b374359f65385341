package scoring

import (
	"fmt"
	"time"
)

// DateKey 是归档桶的规范键，格式为 YYYY-MM-DD
// 字典序与时间序一致，可直接用字符串比较判断先后
type DateKey string

const dateKeyLayout = "2006-01-02"

// DayBucket 返回指定时区下该时刻所在的自然日键
// loc 为 nil 时按 UTC 处理
func DayBucket(at time.Time, loc *time.Location) DateKey {
	if loc == nil {
		loc = time.UTC
	}
	return DateKey(at.In(loc).Format(dateKeyLayout))
}

// WeekBucket 返回指定时区下该时刻所在 ISO 周的周一日期键
// ISO 周从周一开始（周一=1 ... 周日=7），绝不以周日开头
func WeekBucket(at time.Time, loc *time.Location) DateKey {
	if loc == nil {
		loc = time.UTC
	}
	local := at.In(loc)
	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := local.AddDate(0, 0, -(weekday - 1))
	return DateKey(monday.Format(dateKeyLayout))
}

// Time 将日期键解析为 UTC 零点时刻，仅用于日期差值计算
func (k DateKey) Time() (time.Time, error) {
	t, err := time.ParseInLocation(dateKeyLayout, string(k), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", k, err)
	}
	return t, nil
}

// AddDays 返回偏移指定天数后的日期键
func (k DateKey) AddDays(days int) DateKey {
	t, err := k.Time()
	if err != nil {
		return k
	}
	return DateKey(t.AddDate(0, 0, days).Format(dateKeyLayout))
}

// DaysBetween 计算 from 到 to 相隔的整天数，to 在后时为正
func DaysBetween(from, to DateKey) (int, error) {
	a, err := from.Time()
	if err != nil {
		return 0, err
	}
	b, err := to.Time()
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}

// WeeksBetween 计算两个周一键相隔的整周数
func WeeksBetween(from, to DateKey) (int, error) {
	days, err := DaysBetween(from, to)
	if err != nil {
		return 0, err
	}
	return days / 7, nil
}

// BucketFor 按频率选择归档桶：weekly 取周键，daily/none 取日键
func BucketFor(freq Frequency, at time.Time, loc *time.Location) DateKey {
	if freq == FrequencyWeekly {
		return WeekBucket(at, loc)
	}
	return DayBucket(at, loc)
}

// ResolveLocation 解析 IANA 时区名，空串回退到 UTC
func ResolveLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidInput, name)
	}
	return loc, nil
}
