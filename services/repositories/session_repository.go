package repositories

import (
	"context"

	"github.com/densematrix/study_api/model"
	"gorm.io/gorm"
)

// SessionRepository handles the per-submission study history.
type SessionRepository struct {
	BaseRepository
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *SessionRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]model.StudySession, error) {
	var sessions []model.StudySession
	err := r.conn(ctx).
		Where("device_id = ?", deviceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func createSession(db *gorm.DB, session *model.StudySession) error {
	if session.ID == "" {
		session.ID = newTypeID(PrefixStudySession)
	}
	return db.Create(session).Error
}
