package scoring

// ReputationPolicy 是有界的「信誉分」口径：基础分加阶梯奖励，
// 数值保持在较小范围内，适合展示 0-100 量级的可靠度
type ReputationPolicy struct{}

func (ReputationPolicy) Name() string { return "reputation" }

// Award 返回 base + 阶梯奖励，奖励随连续数单调不减
func (ReputationPolicy) Award(freq Frequency, streakAfter int) int {
	return repBase(freq) + repStreakBonus(streakAfter)
}

func repBase(freq Frequency) int {
	switch freq {
	case FrequencyDaily:
		return 2
	case FrequencyWeekly:
		return 5
	default:
		return 2
	}
}

func repStreakBonus(streakAfter int) int {
	switch {
	case streakAfter >= 30:
		return 10
	case streakAfter >= 14:
		return 7
	case streakAfter >= 7:
		return 5
	case streakAfter >= 3:
		return 3
	default:
		return 0
	}
}
