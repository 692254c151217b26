package progression

const MaxLevel = 10

var levelThresholds = [MaxLevel]int{0, 100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000}

// LevelFromXP returns the smallest level i (1-indexed) with xp < threshold[i],
// or MaxLevel once xp has passed every threshold.
func LevelFromXP(xp int) int {
	for i, threshold := range levelThresholds {
		if xp < threshold {
			return max(i, 1)
		}
	}
	return MaxLevel
}

// XPToNextLevel is the XP still needed to reach the next level. Zero at MaxLevel.
func XPToNextLevel(xp int) int {
	level := LevelFromXP(xp)
	if level >= MaxLevel {
		return 0
	}
	return levelThresholds[level] - xp
}
