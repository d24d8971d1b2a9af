package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
)

// ListFilter narrows the admin order listing.
type ListFilter struct {
	SessionID *uuid.UUID
	Status    *enums.OrderStatus
	Email     string
	Limit     int
	Offset    int
}

// Repository exposes persistence helpers for orders. Status transitions are
// conditional updates guarded on the source status, so an illegal edge
// simply matches zero rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByProviderSession(ctx context.Context, providerSessionID string) (*models.Order, error)
	SetProviderSession(ctx context.Context, id uuid.UUID, providerSessionID string) error
	MarkPaid(ctx context.Context, id uuid.UUID, paymentRef *string, now time.Time) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Session").
		Preload("Tickets").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) FindByProviderSession(ctx context.Context, providerSessionID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Session").
		Preload("Tickets").
		First(&order, "provider_session_id = ?", providerSessionID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) SetProviderSession(ctx context.Context, id uuid.UUID, providerSessionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		UpdateColumn("provider_session_id", providerSessionID).Error
}

func (r *repositoryImpl) MarkPaid(ctx context.Context, id uuid.UUID, paymentRef *string, now time.Time) (bool, error) {
	updates := map[string]any{
		"status":  enums.OrderStatusPaid,
		"paid_at": now,
	}
	if paymentRef != nil {
		updates["payment_ref"] = *paymentRef
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		UpdateColumns(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkCancelled(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPending).
		UpdateColumns(map[string]any{
			"status":       enums.OrderStatusCancelled,
			"cancelled_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkRefunded(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, enums.OrderStatusPaid).
		UpdateColumns(map[string]any{
			"status":      enums.OrderStatusRefunded,
			"refunded_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Session")
	if filter.SessionID != nil {
		query = query.Where("session_id = ?", *filter.SessionID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Email != "" {
		query = query.Where("customer_email = ?", filter.Email)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var records []models.Order
	err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
