package scoring

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput 在频率或时区等输入非法时返回
var ErrInvalidInput = errors.New("invalid scoring input")

// Frequency 描述任务的重复频率
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyNone   Frequency = "none"
)

// ParseFrequency 校验并规范化频率取值
func ParseFrequency(raw string) (Frequency, error) {
	switch Frequency(strings.TrimSpace(strings.ToLower(raw))) {
	case FrequencyDaily:
		return FrequencyDaily, nil
	case FrequencyWeekly:
		return FrequencyWeekly, nil
	case FrequencyNone:
		return FrequencyNone, nil
	default:
		return "", fmt.Errorf("%w: unsupported frequency %q", ErrInvalidInput, raw)
	}
}

// Streak 根据上一次归档桶与本次归档桶推导连续完成数。
// 规则只看紧邻的前一个桶：相差恰好一个周期记为 2，其余情况（同桶重复、
// 跨多个周期断档、无历史）一律记为 1。none 频率不追踪连续性，恒为 1。
// 这是有意保留的行为：不维护跨多周期的累计计数器。
func Streak(freq Frequency, last *DateKey, current DateKey) (int, error) {
	if freq == FrequencyNone || last == nil {
		return 1, nil
	}

	var gap int
	var err error
	switch freq {
	case FrequencyDaily:
		gap, err = DaysBetween(*last, current)
	case FrequencyWeekly:
		gap, err = WeeksBetween(*last, current)
	default:
		return 0, fmt.Errorf("%w: unsupported frequency %q", ErrInvalidInput, freq)
	}
	if err != nil {
		return 0, err
	}

	if gap == 1 {
		return 2, nil
	}
	return 1, nil
}
