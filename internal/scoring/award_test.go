package scoring

import "testing"

func TestReputationAward(t *testing.T) {
	p := ReputationPolicy{}

	cases := []struct {
		freq   Frequency
		streak int
		want   int
	}{
		{FrequencyDaily, 1, 2},
		{FrequencyDaily, 2, 2},
		{FrequencyDaily, 3, 5},
		{FrequencyDaily, 7, 7},
		{FrequencyDaily, 14, 9},
		{FrequencyDaily, 30, 12},
		{FrequencyWeekly, 1, 5},
		{FrequencyWeekly, 4, 8},
		{FrequencyNone, 1, 2},
	}

	for _, tc := range cases {
		if got := p.Award(tc.freq, tc.streak); got != tc.want {
			t.Fatalf("award(%s, %d): expected %d, got %d", tc.freq, tc.streak, tc.want, got)
		}
	}
}

func TestXPAward(t *testing.T) {
	p := XPPolicy{}

	cases := []struct {
		freq   Frequency
		streak int
		want   int
	}{
		{FrequencyDaily, 1, 10},
		{FrequencyDaily, 2, 10},  // round(10 × 1.02)
		{FrequencyDaily, 6, 11},  // round(10 × 1.10)
		{FrequencyDaily, 11, 12}, // 步数封顶 10 → ×1.20
		{FrequencyDaily, 50, 12},
		{FrequencyWeekly, 1, 15},
		{FrequencyWeekly, 2, 15}, // round(15 × 1.02) = 15
		{FrequencyNone, 1, 8},
	}

	for _, tc := range cases {
		if got := p.Award(tc.freq, tc.streak); got != tc.want {
			t.Fatalf("award(%s, %d): expected %d, got %d", tc.freq, tc.streak, tc.want, got)
		}
	}
}

// 任意合法输入下加分不低于该频率的基础分
func TestAwardNeverBelowBase(t *testing.T) {
	policies := []Policy{ReputationPolicy{}, XPPolicy{}}
	bases := map[string]map[Frequency]int{
		"reputation": {FrequencyDaily: 2, FrequencyWeekly: 5, FrequencyNone: 2},
		"xp":         {FrequencyDaily: 10, FrequencyWeekly: 15, FrequencyNone: 8},
	}

	for _, p := range policies {
		for freq, base := range bases[p.Name()] {
			for streak := 1; streak <= 40; streak++ {
				if got := p.Award(freq, streak); got < base {
					t.Fatalf("%s award(%s, %d) = %d below base %d", p.Name(), freq, streak, got, base)
				}
			}
		}
	}
}

func TestXPLevels(t *testing.T) {
	if got := XPForLevel(1); got != 0 {
		t.Fatalf("level 1 threshold should be 0, got %d", got)
	}
	if got := XPForLevel(2); got != 100 {
		t.Fatalf("level 2 threshold should be 100, got %d", got)
	}
	if got := XPForLevel(5); got != 800 {
		t.Fatalf("level 5 threshold should be 800, got %d", got)
	}

	cases := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{281, 2},
		{282, 3},
		{800, 5},
	}
	for _, tc := range cases {
		if got := LevelFromXP(tc.xp); got != tc.want {
			t.Fatalf("levelFromXP(%d): expected %d, got %d", tc.xp, tc.want, got)
		}
	}
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("")
	if err != nil || p.Name() != "reputation" {
		t.Fatalf("default policy should be reputation, got %v / %v", p, err)
	}

	p, err = NewPolicy("xp")
	if err != nil || p.Name() != "xp" {
		t.Fatalf("expected xp policy, got %v / %v", p, err)
	}

	if _, err := NewPolicy("karma"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestMissPenalty(t *testing.T) {
	if MissPenalty(FrequencyDaily) != -3 {
		t.Fatal("daily penalty should be -3")
	}
	if MissPenalty(FrequencyWeekly) != -5 {
		t.Fatal("weekly penalty should be -5")
	}
}
