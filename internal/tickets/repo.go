package tickets

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
)

// Repository exposes persistence helpers for tickets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, tickets []models.Ticket) error
	FindByCode(ctx context.Context, code string) (*models.Ticket, error)
	Admit(ctx context.Context, code string, now time.Time) (bool, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a tickets repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateBatch(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tickets).Error
}

func (r *repositoryImpl) FindByCode(ctx context.Context, code string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Order.Session").
		First(&ticket, "code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Admit flips is_used in a single conditional update so two entrances
// scanning the same ticket cannot both succeed.
func (r *repositoryImpl) Admit(ctx context.Context, code string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("code = ? AND is_used = ?", code, false).
		UpdateColumns(map[string]any{
			"is_used": true,
			"used_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
