package repositories

import (
	"context"
	"errors"

	"github.com/densematrix/study_api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressUpdate mutates a locked progress row and may return a history row
// to record in the same transaction.
type ProgressUpdate func(progress *model.Progress) (*model.StudySession, error)

type ProgressRepository struct {
	BaseRepository
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// GetByDeviceID returns gorm.ErrRecordNotFound when the device has never submitted.
func (r *ProgressRepository) GetByDeviceID(ctx context.Context, deviceID string) (*model.Progress, error) {
	var progress model.Progress
	if err := r.conn(ctx).Where("device_id = ?", deviceID).First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

// UpdateProgress runs fn against the device's progress row while holding its lock.
// The row is created on first use.
func (r *ProgressRepository) UpdateProgress(ctx context.Context, deviceID string, fn ProgressUpdate) (*model.Progress, error) {
	var progress model.Progress

	err := r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		seed := model.Progress{
			ID:           newID(),
			DeviceID:     deviceID,
			Level:        1,
			Achievements: []byte("[]"),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			DoNothing: true,
		}).Create(&seed).Error
		if err != nil {
			return err
		}

		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("device_id = ?", deviceID).
			First(&progress).Error
		if err != nil {
			return err
		}

		session, err := fn(&progress)
		if err != nil {
			return err
		}

		if err := tx.Save(&progress).Error; err != nil {
			return err
		}

		if session == nil {
			return nil
		}
		session.DeviceID = deviceID
		return createSession(tx, session)
	})
	if err != nil {
		return nil, err
	}

	return &progress, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
