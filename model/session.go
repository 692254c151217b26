package model

import "time"

// StudySession is an append-only history row written once per submission.
type StudySession struct {
	ID              string    `json:"id" gorm:"primaryKey;type:text"`
	DeviceID        string    `json:"device_id" gorm:"index;not null;size:255"`
	Topic           string    `json:"topic" gorm:"size:500"`
	QuestionsCount  int       `json:"questions_count" gorm:"not null"`
	CorrectCount    int       `json:"correct_count" gorm:"not null"`
	XPEarned        int       `json:"xp_earned" gorm:"not null"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at" gorm:"not null"`
}

// Models lists every table the service migrates.
func Models() []interface{} {
	return []interface{}{
		&Progress{},
		&TokenBalance{},
		&FreeTrialUsage{},
		&PaymentTransaction{},
		&StudySession{},
	}
}
