package codes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
)

// ListFilter narrows the admin code listing.
type ListFilter struct {
	Used        *bool
	PerformerID *uuid.UUID
	SessionID   *uuid.UUID
	Limit       int
	Offset      int
}

// Repository exposes persistence helpers for exchange codes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, code *models.ExchangeCode) error
	CreateBatch(ctx context.Context, codes []models.ExchangeCode) error
	FindByCode(ctx context.Context, code string) (*models.ExchangeCode, error)
	FindByCodes(ctx context.Context, codes []string) ([]models.ExchangeCode, error)
	Redeem(ctx context.Context, code string, orderID uuid.UUID, now time.Time) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]models.ExchangeCode, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a codes repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, code *models.ExchangeCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *repositoryImpl) CreateBatch(ctx context.Context, codes []models.ExchangeCode) error {
	if len(codes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&codes).Error
}

func (r *repositoryImpl) FindByCode(ctx context.Context, code string) (*models.ExchangeCode, error) {
	var record models.ExchangeCode
	err := r.db.WithContext(ctx).
		Preload("Performer").
		Preload("Session").
		First(&record, "code = ?", code).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repositoryImpl) FindByCodes(ctx context.Context, codes []string) ([]models.ExchangeCode, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	var records []models.ExchangeCode
	err := r.db.WithContext(ctx).
		Preload("Performer").
		Preload("Session").
		Where("code IN ?", codes).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Redeem flips is_used in a single conditional update. Write-once: the
// WHERE clause guarantees at most one caller ever sees RowsAffected > 0.
func (r *repositoryImpl) Redeem(ctx context.Context, code string, orderID uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ExchangeCode{}).
		Where("code = ? AND is_used = ?", code, false).
		UpdateColumns(map[string]any{
			"is_used":            true,
			"used_at":            now,
			"redeeming_order_id": orderID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, filter ListFilter) ([]models.ExchangeCode, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ExchangeCode{}).
		Preload("Performer").
		Preload("Session")
	if filter.Used != nil {
		query = query.Where("is_used = ?", *filter.Used)
	}
	if filter.PerformerID != nil {
		query = query.Where("performer_id = ?", *filter.PerformerID)
	}
	if filter.SessionID != nil {
		query = query.Where("session_id = ?", *filter.SessionID)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var records []models.ExchangeCode
	err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
