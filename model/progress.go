package model

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/densematrix/study_api/progression"
	"gorm.io/datatypes"
)

type Progress struct {
	ID             string         `json:"id" gorm:"primaryKey;type:text"`
	DeviceID       string         `json:"device_id" gorm:"uniqueIndex;not null;size:255"`
	XP             int            `json:"xp" gorm:"not null;default:0"`
	Level          int            `json:"level" gorm:"not null;default:1"`
	TotalQuestions int            `json:"total_questions" gorm:"not null;default:0"`
	CorrectAnswers int            `json:"correct_answers" gorm:"not null;default:0"`
	CurrentStreak  int            `json:"current_streak" gorm:"not null;default:0"`
	BestStreak     int            `json:"best_streak" gorm:"not null;default:0"`
	Achievements   datatypes.JSON `json:"achievements"` // JSON array of achievement codes
	CreatedAt      time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"not null"`
}

// AchievementSet decodes the stored codes. A missing column reads as empty.
func (p *Progress) AchievementSet() (progression.AchievementSet, error) {
	var set progression.AchievementSet
	if len(p.Achievements) == 0 {
		return set, nil
	}
	if err := sonic.Unmarshal(p.Achievements, &set); err != nil {
		return progression.AchievementSet{}, fmt.Errorf("decode achievements for device %s: %w", p.DeviceID, err)
	}
	return set, nil
}

func (p *Progress) SetAchievements(set progression.AchievementSet) error {
	raw, err := sonic.Marshal(set)
	if err != nil {
		return err
	}
	p.Achievements = datatypes.JSON(raw)
	return nil
}
