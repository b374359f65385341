package scoring

import "math"

// XPPolicy 是无上界的经验值口径：基础分乘以连续加成，
// 累计总分再通过幂律阈值换算为等级
type XPPolicy struct{}

func (XPPolicy) Name() string { return "xp" }

// Award 返回 round(base × (1 + 2% × 连续步数))，步数封顶 10
func (XPPolicy) Award(freq Frequency, streakAfter int) int {
	base := float64(xpBase(freq))
	return int(math.Round(base * xpStreakMultiplier(streakAfter)))
}

func xpBase(freq Frequency) int {
	switch freq {
	case FrequencyDaily:
		return 10
	case FrequencyWeekly:
		return 15
	default:
		return 8
	}
}

func xpStreakMultiplier(streakAfter int) float64 {
	steps := streakAfter - 1
	if steps < 0 {
		steps = 0
	}
	if steps > 10 {
		steps = 10
	}
	return 1 + 0.02*float64(steps)
}

// XPForLevel 返回达到指定等级所需的累计经验：floor(100 × (level-1)^1.5)
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	return int(math.Floor(100 * math.Pow(float64(level-1), 1.5)))
}

// LevelFromXP 返回累计经验对应的等级：阈值不超过总分的最大等级
func LevelFromXP(totalXP int) int {
	level := 1
	for XPForLevel(level+1) <= totalXP {
		level++
	}
	return level
}
