package sessions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
)

// Repository exposes persistence helpers for performance sessions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, session *models.PerformanceSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PerformanceSession, error)
	ListVisible(ctx context.Context) ([]models.PerformanceSession, error)
	UpdateSaleStatus(ctx context.Context, id uuid.UUID, status enums.SaleStatus) error
	PaidOrderAggregates(ctx context.Context, sessionID uuid.UUID) (OrderAggregates, error)
	TicketCounts(ctx context.Context, sessionID uuid.UUID) (issued int64, used int64, err error)
}

// OrderAggregates carries the rolled-up figures from paid orders.
type OrderAggregates struct {
	Count         int64
	TotalAmount   int64
	DiscountTotal int64
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a sessions repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, session *models.PerformanceSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.PerformanceSession, error) {
	var session models.PerformanceSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ListVisible returns sessions a customer may see, soonest first. Sessions
// that never went on sale stay hidden.
func (r *repositoryImpl) ListVisible(ctx context.Context) ([]models.PerformanceSession, error) {
	var sessions []models.PerformanceSession
	err := r.db.WithContext(ctx).
		Where("sale_status IN ?", []enums.SaleStatus{
			enums.SaleStatusOnSale,
			enums.SaleStatusSoldOut,
			enums.SaleStatusEnded,
		}).
		Order("starts_at ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *repositoryImpl) UpdateSaleStatus(ctx context.Context, id uuid.UUID, status enums.SaleStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.PerformanceSession{}).
		Where("id = ?", id).
		UpdateColumn("sale_status", status).Error
}

func (r *repositoryImpl) PaidOrderAggregates(ctx context.Context, sessionID uuid.UUID) (OrderAggregates, error) {
	var row struct {
		Count         int64
		TotalAmount   int64
		DiscountTotal int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total_amount, COALESCE(SUM(discount_amount), 0) AS discount_total").
		Where("session_id = ? AND status = ?", sessionID, enums.OrderStatusPaid).
		Scan(&row).Error
	if err != nil {
		return OrderAggregates{}, err
	}
	return OrderAggregates{Count: row.Count, TotalAmount: row.TotalAmount, DiscountTotal: row.DiscountTotal}, nil
}

func (r *repositoryImpl) TicketCounts(ctx context.Context, sessionID uuid.UUID) (int64, int64, error) {
	base := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Joins("JOIN orders ON orders.id = tickets.order_id").
		Where("orders.session_id = ?", sessionID)

	var issued int64
	if err := base.Session(&gorm.Session{}).Count(&issued).Error; err != nil {
		return 0, 0, err
	}
	var used int64
	if err := base.Session(&gorm.Session{}).Where("tickets.is_used = ?", true).Count(&used).Error; err != nil {
		return 0, 0, err
	}
	return issued, used, nil
}
