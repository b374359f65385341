package scoring

import (
	"fmt"
	"strings"
)

// Policy 把一次完成（频率 + 连续数）映射为加分值。
// 两种互斥的计分口径各自实现该接口，由配置选择其一。
type Policy interface {
	// Name 返回策略标识（reputation / xp）
	Name() string
	// Award 返回本次完成应得的分值，恒 >= 该频率的基础分
	Award(freq Frequency, streakAfter int) int
}

// 漏打卡的固定扣分值，按已关闭周期的频率区分
const (
	DailyMissPenalty  = -3
	WeeklyMissPenalty = -5
)

// MissPenalty 返回指定频率的漏打卡扣分（负值）
func MissPenalty(freq Frequency) int {
	if freq == FrequencyWeekly {
		return WeeklyMissPenalty
	}
	return DailyMissPenalty
}

// NewPolicy 按名称构造计分策略，默认 reputation
func NewPolicy(name string) (Policy, error) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "", "reputation":
		return ReputationPolicy{}, nil
	case "xp":
		return XPPolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown scoring policy %q", ErrInvalidInput, name)
	}
}
