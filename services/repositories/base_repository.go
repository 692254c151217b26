package repositories

import (
	"context"

	"github.com/google/uuid"
	"go.jetify.com/typeid/v2"
	"gorm.io/gorm"
)

const (
	PrefixStudySession = "sess"
	PrefixPayment      = "pay"
)

// BaseRepository provides common database functionality
type BaseRepository struct {
	db *gorm.DB
}

func NewBaseRepository(db *gorm.DB) BaseRepository {
	return BaseRepository{db: db}
}

// DB returns the underlying database connection
func (r *BaseRepository) DB() *gorm.DB {
	return r.db
}

func (r *BaseRepository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// newTypeID returns a prefixed, sortable id such as "sess_01h2xcejqtf2nbrexx3vqjhp41".
func newTypeID(prefix string) string {
	tid, err := typeid.Generate(prefix)
	if err != nil {
		return prefix + "_" + newID()
	}
	return tid.String()
}
