package progression

// AdvanceStreak applies one graded submission to a streak pair.
// A perfect submission extends the current streak by its correct count.
// Anything less sets the current streak to that submission's correct count.
func AdvanceStreak(current, best, correct, total int) (int, int) {
	if total > 0 && correct == total {
		current += correct
	} else {
		current = correct
	}
	return current, max(best, current)
}
