package dto

import "github.com/densematrix/study_api/progression"

const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeTrueFalse      = "true_false"
	QuestionTypeFillBlank      = "fill_blank"

	DefaultNumQuestions = 5
	DefaultLanguage     = "en"
)

type QuizOption struct {
	ID   string `json:"id" example:"A"`
	Text string `json:"text" example:"Paris"`
}

type QuizQuestion struct {
	ID            string       `json:"id" validate:"required" example:"1a2b3c4d"`
	Type          string       `json:"type" validate:"omitempty,oneof=multiple_choice true_false fill_blank" example:"multiple_choice"`
	Question      string       `json:"question" example:"What is the capital of France?"`
	Options       []QuizOption `json:"options,omitempty"`
	CorrectAnswer string       `json:"correct_answer" example:"A"`
	Explanation   string       `json:"explanation,omitempty"`
}

type GenerateQuizRequest struct {
	Topic        string `json:"topic" validate:"required,notblank,max=500" example:"Photosynthesis"`
	NumQuestions int    `json:"num_questions" validate:"min=1,max=10" example:"5"`
	Difficulty   string `json:"difficulty" validate:"oneof=easy medium hard" example:"medium"`
	Language     string `json:"language" validate:"oneof=en zh ja de fr ko es" example:"en"`
}

// ApplyDefaults fills fields the client left empty.
func (r *GenerateQuizRequest) ApplyDefaults() {
	if r.NumQuestions == 0 {
		r.NumQuestions = DefaultNumQuestions
	}
	if r.Difficulty == "" {
		r.Difficulty = progression.DifficultyMedium
	}
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
}

func (r GenerateQuizRequest) Validate() error {
	return GetValidator().Struct(r)
}

type GenerateQuizResponse struct {
	Topic           string         `json:"topic"`
	Questions       []QuizQuestion `json:"questions"`
	IsFreeTrial     bool           `json:"is_free_trial"`
	TokensRemaining *int           `json:"tokens_remaining,omitempty"`
}

type QuizAnswer struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

type SubmitQuizRequest struct {
	Topic           string         `json:"topic" validate:"max=500"`
	Questions       []QuizQuestion `json:"questions" validate:"required,min=1,dive"`
	Answers         []QuizAnswer   `json:"answers" validate:"dive"`
	DurationSeconds *int           `json:"duration_seconds,omitempty" validate:"omitempty,min=0"`
}

func (r SubmitQuizRequest) Validate() error {
	return GetValidator().Struct(r)
}

type QuestionResult struct {
	QuestionID    string `json:"question_id"`
	Correct       bool   `json:"correct"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

type SubmitQuizResponse struct {
	Results         []QuestionResult          `json:"results"`
	CorrectCount    int                       `json:"correct_count"`
	TotalQuestions  int                       `json:"total_questions"`
	XPEarned        int                       `json:"xp_earned"`
	NewTotalXP      int                       `json:"new_total_xp"`
	NewLevel        int                       `json:"new_level"`
	XPToNextLevel   int                       `json:"xp_to_next_level"`
	Streak          int                       `json:"streak"`
	BestStreak      int                       `json:"best_streak"`
	NewAchievements []progression.Achievement `json:"new_achievements"`
}

type ProgressResponse struct {
	XP              int                       `json:"xp"`
	Level           int                       `json:"level"`
	XPToNextLevel   int                       `json:"xp_to_next_level"`
	TotalQuestions  int                       `json:"total_questions"`
	CorrectAnswers  int                       `json:"correct_answers"`
	AccuracyPercent float64                   `json:"accuracy_percent"`
	CurrentStreak   int                       `json:"current_streak"`
	BestStreak      int                       `json:"best_streak"`
	Achievements    []progression.Achievement `json:"achievements"`
}

type AchievementCatalogResponse struct {
	Achievements []progression.AchievementInfo `json:"achievements"`
}
