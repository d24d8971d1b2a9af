package performers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
)

// Repository exposes persistence helpers for performers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, performer *models.Performer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Performer, error)
	List(ctx context.Context) ([]models.Performer, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a performers repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, performer *models.Performer) error {
	return r.db.WithContext(ctx).Create(performer).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Performer, error) {
	var performer models.Performer
	if err := r.db.WithContext(ctx).First(&performer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &performer, nil
}

func (r *repositoryImpl) List(ctx context.Context) ([]models.Performer, error) {
	var performers []models.Performer
	if err := r.db.WithContext(ctx).Order("sort_order ASC, name ASC").Find(&performers).Error; err != nil {
		return nil, err
	}
	return performers, nil
}
