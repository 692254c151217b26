package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/densematrix/study_api/config"
	"github.com/densematrix/study_api/dto"
	"github.com/densematrix/study_api/model"
	"github.com/densematrix/study_api/progression"
	"github.com/densematrix/study_api/services/repositories"
	"github.com/rs/zerolog/log"
)

const QUIZ_SVC = "quiz_svc"

// submitDifficulty is the difficulty XP is scored at on submit, whatever was
// requested at generation time.
const submitDifficulty = progression.DifficultyMedium

type QuestionGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) ([]dto.QuizQuestion, error)
}

type Entitlements interface {
	Check(ctx context.Context, deviceID string) (*dto.EntitlementStatus, error)
	Consume(ctx context.Context, deviceID string) (usingFreeTrial bool, tokensRemaining int, err error)
}

type ProgressStore interface {
	GetByDeviceID(ctx context.Context, deviceID string) (*model.Progress, error)
	UpdateProgress(ctx context.Context, deviceID string, fn repositories.ProgressUpdate) (*model.Progress, error)
}

// QuizService runs the generate and submit workflows.
//
// Generate: check entitlement, call the generator, then consume entitlement.
// Nothing is written before the generator succeeds, so a failed or abandoned
// generation costs the device nothing.
type QuizService struct {
	appContext.DefaultService

	generator    QuestionGenerator
	entitlements Entitlements
	progress     ProgressStore
	events       EventPublisher
	dbSvc        Database

	timeout time.Duration
}

func NewQuizService(cfg config.Config) *QuizService {
	return &QuizService{timeout: cfg.GeneratorTimeout}
}

func (svc QuizService) Id() string {
	return QUIZ_SVC
}

func (svc *QuizService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *QuizService) Start() error {
	svc.dbSvc = svc.Service(DATABASE_SVC).(Database)
	svc.generator = svc.Service(GENERATOR_SVC).(*GeneratorService)
	svc.entitlements = svc.Service(ENTITLEMENT_SVC).(*EntitlementService)
	svc.events = svc.Service(EVENT_SVC).(*EventService)
	svc.progress = repositories.NewProgressRepository(svc.dbSvc.Db())
	return nil
}

func (svc *QuizService) Shutdown() {}

// WithDependencies wires collaborators directly, bypassing the service context.
func (svc *QuizService) WithDependencies(generator QuestionGenerator, entitlements Entitlements, progress ProgressStore, events EventPublisher) *QuizService {
	svc.generator = generator
	svc.entitlements = entitlements
	svc.progress = progress
	svc.events = events
	return svc
}

func (svc *QuizService) Generate(ctx context.Context, deviceID string, req dto.GenerateQuizRequest) (*dto.GenerateQuizResponse, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, ErrMissingDeviceIdentity
	}
	req.ApplyDefaults()

	if _, err := svc.entitlements.Check(ctx, deviceID); err != nil {
		return nil, err
	}

	genCtx := ctx
	if svc.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, svc.timeout)
		defer cancel()
	}

	questions, err := svc.generator.Generate(genCtx, GenerationRequest{
		Topic:        strings.TrimSpace(req.Topic),
		NumQuestions: req.NumQuestions,
		Difficulty:   req.Difficulty,
		Language:     req.Language,
	})
	if err != nil {
		reason := "upstream"
		switch {
		case errors.Is(err, ErrMalformedGenerationOutput):
			reason = "malformed"
		case !errors.Is(err, ErrGenerationFailed):
			err = fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		RecordGenerationFailure(reason)
		log.Warn().Err(err).Str("device_id", deviceID).Str("topic", req.Topic).Msg("Quiz generation failed")
		return nil, err
	}

	usingFreeTrial, remaining, err := svc.entitlements.Consume(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	RecordGeneration(req.Difficulty)
	svc.publish(ctx, Event{
		Type:     EventQuizGenerated,
		DeviceID: deviceID,
		Payload: map[string]interface{}{
			"topic":         req.Topic,
			"num_questions": len(questions),
			"difficulty":    req.Difficulty,
			"language":      req.Language,
			"free_trial":    usingFreeTrial,
		},
	})

	resp := &dto.GenerateQuizResponse{
		Topic:       req.Topic,
		Questions:   questions,
		IsFreeTrial: usingFreeTrial,
	}
	if !usingFreeTrial {
		resp.TokensRemaining = &remaining
	}
	return resp, nil
}

// Grade marks each question against the submitted answers. Matching ignores
// case only; an unanswered question is wrong.
func Grade(questions []dto.QuizQuestion, answers []dto.QuizAnswer) ([]dto.QuestionResult, int) {
	byQuestion := make(map[string]string, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a.Answer
	}

	results := make([]dto.QuestionResult, 0, len(questions))
	correctCount := 0
	for _, q := range questions {
		answer, answered := byQuestion[q.ID]
		correct := answered && strings.EqualFold(answer, q.CorrectAnswer)
		if correct {
			correctCount++
		}

		results = append(results, dto.QuestionResult{
			QuestionID:    q.ID,
			Correct:       correct,
			UserAnswer:    answer,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}

	return results, correctCount
}

func (svc *QuizService) Submit(ctx context.Context, deviceID string, req dto.SubmitQuizRequest) (*dto.SubmitQuizResponse, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, ErrMissingDeviceIdentity
	}

	results, correct := Grade(req.Questions, req.Answers)
	total := len(req.Questions)

	var (
		xpEarned        int
		newAchievements []progression.Achievement
	)

	progress, err := svc.progress.UpdateProgress(ctx, deviceID, func(p *model.Progress) (*model.StudySession, error) {
		p.CurrentStreak, p.BestStreak = progression.AdvanceStreak(p.CurrentStreak, p.BestStreak, correct, total)

		xpEarned = progression.Score(correct, total, p.CurrentStreak, submitDifficulty)
		p.XP += xpEarned
		p.TotalQuestions += total
		p.CorrectAnswers += correct
		p.Level = progression.LevelFromXP(p.XP)

		earned, err := p.AchievementSet()
		if err != nil {
			return nil, err
		}
		newAchievements = progression.DetectNewAchievements(progression.Stats{
			TotalQuestions: p.TotalQuestions,
			TotalXP:        p.XP,
			Level:          p.Level,
			BestStreak:     p.BestStreak,
			Perfect:        total > 0 && correct == total,
		}, earned)
		if earned.Add(newAchievements...) > 0 || len(p.Achievements) == 0 {
			if err := p.SetAchievements(earned); err != nil {
				return nil, err
			}
		}

		return &model.StudySession{
			Topic:           req.Topic,
			QuestionsCount:  total,
			CorrectCount:    correct,
			XPEarned:        xpEarned,
			DurationSeconds: req.DurationSeconds,
		}, nil
	})
	if err != nil {
		return nil, svc.handleError(err)
	}

	if newAchievements == nil {
		newAchievements = []progression.Achievement{}
	}

	RecordSubmission(correct, xpEarned)
	svc.publish(ctx, Event{
		Type:     EventQuizSubmitted,
		DeviceID: deviceID,
		Payload: map[string]interface{}{
			"topic":            req.Topic,
			"total_questions":  total,
			"correct_count":    correct,
			"xp_earned":        xpEarned,
			"new_achievements": newAchievements,
		},
	})

	return &dto.SubmitQuizResponse{
		Results:         results,
		CorrectCount:    correct,
		TotalQuestions:  total,
		XPEarned:        xpEarned,
		NewTotalXP:      progress.XP,
		NewLevel:        progress.Level,
		XPToNextLevel:   progression.XPToNextLevel(progress.XP),
		Streak:          progress.CurrentStreak,
		BestStreak:      progress.BestStreak,
		NewAchievements: newAchievements,
	}, nil
}

// Progress returns the device's totals. A device that never submitted gets level 1 and zeroes.
func (svc *QuizService) Progress(ctx context.Context, deviceID string) (*dto.ProgressResponse, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, ErrMissingDeviceIdentity
	}

	p, err := svc.progress.GetByDeviceID(ctx, deviceID)
	if repositories.IsNotFound(err) {
		return &dto.ProgressResponse{
			Level:         1,
			XPToNextLevel: progression.XPToNextLevel(0),
			Achievements:  []progression.Achievement{},
		}, nil
	}
	if err != nil {
		return nil, svc.handleError(err)
	}

	earned, err := p.AchievementSet()
	if err != nil {
		return nil, err
	}
	return &dto.ProgressResponse{
		XP:              p.XP,
		Level:           p.Level,
		XPToNextLevel:   progression.XPToNextLevel(p.XP),
		TotalQuestions:  p.TotalQuestions,
		CorrectAnswers:  p.CorrectAnswers,
		AccuracyPercent: accuracy(p.CorrectAnswers, p.TotalQuestions),
		CurrentStreak:   p.CurrentStreak,
		BestStreak:      p.BestStreak,
		Achievements:    earned.List(),
	}, nil
}

func (svc *QuizService) Achievements() *dto.AchievementCatalogResponse {
	return &dto.AchievementCatalogResponse{Achievements: progression.Catalog()}
}

// accuracy is correct/total as a percentage rounded to one decimal place.
func accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct)/float64(total)*1000) / 10
}

func (svc *QuizService) publish(ctx context.Context, event Event) {
	if svc.events != nil {
		svc.events.Publish(ctx, event)
	}
}

func (svc *QuizService) handleError(err error) error {
	if svc.dbSvc != nil {
		return svc.dbSvc.HandleError(err)
	}
	return err
}
