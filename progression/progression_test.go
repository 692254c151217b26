package progression

import (
	"testing"

	"github.com/bytedance/sonic"
)

func TestScore(t *testing.T) {
	cases := []struct {
		name       string
		correct    int
		total      int
		streak     int
		difficulty string
		want       int
	}{
		{"easy perfect", 5, 5, 0, DifficultyEasy, 45},
		{"medium perfect", 5, 5, 0, DifficultyMedium, 70},
		{"hard perfect", 5, 5, 0, DifficultyHard, 95},
		{"unknown difficulty scores as medium", 3, 5, 0, "impossible", 30},
		{"streak below threshold", 3, 5, 2, DifficultyMedium, 30},
		{"streak bonus", 3, 5, 3, DifficultyMedium, 36},
		{"streak bonus capped", 3, 5, 50, DifficultyMedium, 50},
		{"perfect and capped streak", 10, 10, 10, DifficultyMedium, 140},
		{"empty quiz earns nothing", 0, 0, 0, DifficultyMedium, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(tc.correct, tc.total, tc.streak, tc.difficulty); got != tc.want {
				t.Fatalf("Score(%d, %d, %d, %q) = %d, want %d", tc.correct, tc.total, tc.streak, tc.difficulty, got, tc.want)
			}
		})
	}
}

func TestScorePerfectMediumWithoutStreak(t *testing.T) {
	for c := 1; c <= 10; c++ {
		if got := Score(c, c, 0, DifficultyMedium); got != 10*c+20 {
			t.Fatalf("Score(%d, %d, 0, medium) = %d, want %d", c, c, got, 10*c+20)
		}
	}
}

func TestLevelFromXP(t *testing.T) {
	cases := map[int]int{
		0:      1,
		99:     1,
		100:    2,
		249:    2,
		250:    3,
		999:    4,
		1000:   5,
		31999:  9,
		32000:  10,
		999999: 10,
	}

	for xp, want := range cases {
		if got := LevelFromXP(xp); got != want {
			t.Fatalf("LevelFromXP(%d) = %d, want %d", xp, got, want)
		}
	}
}

func TestLevelFromXPMonotonic(t *testing.T) {
	prev := LevelFromXP(0)
	for xp := 1; xp <= 40000; xp++ {
		level := LevelFromXP(xp)
		if level < prev {
			t.Fatalf("level dropped from %d to %d at xp %d", prev, level, xp)
		}
		prev = level
	}
}

func TestXPToNextLevel(t *testing.T) {
	cases := map[int]int{
		0:      100,
		40:     60,
		100:    150,
		250:    250,
		31000:  1000,
		32000:  0,
		100000: 0,
	}

	for xp, want := range cases {
		if got := XPToNextLevel(xp); got != want {
			t.Fatalf("XPToNextLevel(%d) = %d, want %d", xp, got, want)
		}
	}
}

func TestAdvanceStreak(t *testing.T) {
	current, best := AdvanceStreak(0, 0, 1, 2)
	if current != 1 || best != 1 {
		t.Fatalf("partial submission: got (%d, %d), want (1, 1)", current, best)
	}

	current, best = AdvanceStreak(current, best, 2, 2)
	if current != 3 || best != 3 {
		t.Fatalf("perfect submission: got (%d, %d), want (3, 3)", current, best)
	}

	current, best = AdvanceStreak(current, best, 0, 4)
	if current != 0 || best != 3 {
		t.Fatalf("zero correct: got (%d, %d), want (0, 3)", current, best)
	}
}

func TestDetectNewAchievements(t *testing.T) {
	stats := Stats{TotalQuestions: 2, TotalXP: 40, Level: 1, BestStreak: 2, Perfect: true}

	got := DetectNewAchievements(stats, AchievementSet{})
	want := []Achievement{AchievementFirstQuiz, AchievementPerfectScore}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestDetectNewAchievementsOrderAndExisting(t *testing.T) {
	stats := Stats{TotalQuestions: 150, TotalXP: 40000, Level: 10, BestStreak: 12, Perfect: true}
	existing := NewAchievementSet(AchievementFirstQuiz, AchievementPerfectScore, AchievementLevel5)

	got := DetectNewAchievements(stats, existing)
	want := []Achievement{
		AchievementStreak5,
		AchievementStreak10,
		AchievementLevel10,
		AchievementHundredQuestions,
		AchievementThousandXP,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestPerfectScoreNotRepeated(t *testing.T) {
	set := AchievementSet{}
	stats := Stats{TotalQuestions: 2, TotalXP: 40, Level: 1, BestStreak: 2, Perfect: true}

	set.Add(DetectNewAchievements(stats, set)...)
	again := DetectNewAchievements(stats, set)
	for _, code := range again {
		if code == AchievementPerfectScore {
			t.Fatalf("perfect_score reported twice")
		}
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 achievements in set, got %d", set.Len())
	}
}

func TestAchievementSetNoDuplicates(t *testing.T) {
	set := NewAchievementSet(AchievementFirstQuiz, AchievementFirstQuiz, "")
	if added := set.Add(AchievementFirstQuiz, AchievementStreak5); added != 1 {
		t.Fatalf("expected one new code, got %d", added)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 codes, got %v", set.List())
	}
}

func TestAchievementSetJSON(t *testing.T) {
	var set AchievementSet
	if err := sonic.Unmarshal([]byte(`["streak_5","first_quiz","streak_5"]`), &set); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if set.Len() != 2 || !set.Has(AchievementStreak5) || !set.Has(AchievementFirstQuiz) {
		t.Fatalf("unexpected set contents: %v", set.List())
	}

	raw, err := sonic.Marshal(set)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `["streak_5","first_quiz"]` {
		t.Fatalf("unexpected json: %s", raw)
	}
}

func TestCatalogCoversEveryRule(t *testing.T) {
	catalog := Catalog()
	if len(catalog) != 8 {
		t.Fatalf("expected 8 achievements, got %d", len(catalog))
	}
	if catalog[0].Code != AchievementFirstQuiz || catalog[0].Name != "First Steps" {
		t.Fatalf("unexpected first entry: %+v", catalog[0])
	}
}
