// Package progression holds the XP, level and achievement rules. Nothing in
// here touches storage; callers feed it totals and persist what it returns.
package progression

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	PerfectBonus      = 20
	StreakBonusMin    = 3
	StreakBonusFactor = 2
	StreakBonusCap    = 20
)

var baseXP = map[string]int{
	DifficultyEasy:   5,
	DifficultyMedium: 10,
	DifficultyHard:   15,
}

// BaseXP returns the per-answer XP for a difficulty. Unknown tags score as medium.
func BaseXP(difficulty string) int {
	if xp, ok := baseXP[difficulty]; ok {
		return xp
	}
	return baseXP[DifficultyMedium]
}

// Score computes the XP earned for one submission.
func Score(correct, total, streak int, difficulty string) int {
	xp := correct * BaseXP(difficulty)

	if total > 0 && correct == total {
		xp += PerfectBonus
	}

	if streak >= StreakBonusMin {
		xp += min(streak*StreakBonusFactor, StreakBonusCap)
	}

	return xp
}
