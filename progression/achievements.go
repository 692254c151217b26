package progression

import (
	"github.com/bytedance/sonic"
)

type Achievement string

const (
	AchievementFirstQuiz        Achievement = "first_quiz"
	AchievementPerfectScore     Achievement = "perfect_score"
	AchievementStreak5          Achievement = "streak_5"
	AchievementStreak10         Achievement = "streak_10"
	AchievementLevel5           Achievement = "level_5"
	AchievementLevel10          Achievement = "level_10"
	AchievementHundredQuestions Achievement = "hundred_questions"
	AchievementThousandXP       Achievement = "thousand_xp"
)

type AchievementInfo struct {
	Code        Achievement `json:"code"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
}

// Stats is the post-submission snapshot achievements are evaluated against.
type Stats struct {
	TotalQuestions int
	TotalXP        int
	Level          int
	BestStreak     int
	Perfect        bool
}

type rule struct {
	info   AchievementInfo
	earned func(Stats) bool
}

// rules are evaluated in this order and new codes are reported in the same order.
var rules = []rule{
	{AchievementInfo{AchievementFirstQuiz, "First Steps", "Complete your first quiz"},
		func(s Stats) bool { return s.TotalQuestions > 0 }},
	{AchievementInfo{AchievementPerfectScore, "Perfect!", "Get all questions correct"},
		func(s Stats) bool { return s.Perfect }},
	{AchievementInfo{AchievementStreak5, "On Fire", "Answer 5 questions correctly in a row"},
		func(s Stats) bool { return s.BestStreak >= 5 }},
	{AchievementInfo{AchievementStreak10, "Unstoppable", "Answer 10 questions correctly in a row"},
		func(s Stats) bool { return s.BestStreak >= 10 }},
	{AchievementInfo{AchievementLevel5, "Dedicated Learner", "Reach level 5"},
		func(s Stats) bool { return s.Level >= 5 }},
	{AchievementInfo{AchievementLevel10, "Knowledge Seeker", "Reach level 10"},
		func(s Stats) bool { return s.Level >= 10 }},
	{AchievementInfo{AchievementHundredQuestions, "Century", "Answer 100 questions"},
		func(s Stats) bool { return s.TotalQuestions >= 100 }},
	{AchievementInfo{AchievementThousandXP, "XP Hunter", "Earn 1000 XP"},
		func(s Stats) bool { return s.TotalXP >= 1000 }},
}

// Catalog lists every achievement in evaluation order.
func Catalog() []AchievementInfo {
	out := make([]AchievementInfo, len(rules))
	for i, r := range rules {
		out[i] = r.info
	}
	return out
}

// DetectNewAchievements returns the codes earned by stats that are not already in existing.
func DetectNewAchievements(stats Stats, existing AchievementSet) []Achievement {
	var earned []Achievement
	for _, r := range rules {
		if existing.Has(r.info.Code) {
			continue
		}
		if r.earned(stats) {
			earned = append(earned, r.info.Code)
		}
	}
	return earned
}

// AchievementSet keeps codes in first-added order with no duplicates.
// The zero value is an empty set.
type AchievementSet struct {
	codes []Achievement
	index map[Achievement]struct{}
}

func NewAchievementSet(codes ...Achievement) AchievementSet {
	var s AchievementSet
	s.Add(codes...)
	return s
}

func (s *AchievementSet) Has(code Achievement) bool {
	_, ok := s.index[code]
	return ok
}

// Add inserts codes not yet present and reports how many were new.
func (s *AchievementSet) Add(codes ...Achievement) int {
	if s.index == nil {
		s.index = make(map[Achievement]struct{}, len(codes))
	}

	added := 0
	for _, code := range codes {
		if code == "" {
			continue
		}
		if _, ok := s.index[code]; ok {
			continue
		}
		s.index[code] = struct{}{}
		s.codes = append(s.codes, code)
		added++
	}
	return added
}

func (s *AchievementSet) Len() int {
	return len(s.codes)
}

func (s *AchievementSet) List() []Achievement {
	out := make([]Achievement, len(s.codes))
	copy(out, s.codes)
	return out
}

func (s AchievementSet) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(s.List())
}

func (s *AchievementSet) UnmarshalJSON(data []byte) error {
	var codes []Achievement
	if err := sonic.Unmarshal(data, &codes); err != nil {
		return err
	}

	*s = AchievementSet{}
	s.Add(codes...)
	return nil
}
