package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
)

// Repository exposes the conditional counter updates backing the seat ledger.
// All mutations are single UPDATE statements whose WHERE clause encodes the
// capacity invariant, so correctness does not depend on row locks.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindSession(ctx context.Context, sessionID uuid.UUID) (*models.PerformanceSession, error)
	Reserve(ctx context.Context, sessionID uuid.UUID, tier enums.Tier, qty int) (bool, error)
	Release(ctx context.Context, sessionID uuid.UUID, tier enums.Tier, qty int) (bool, error)
	ForceZeroFloor(ctx context.Context, sessionID uuid.UUID, tier enums.Tier) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) FindSession(ctx context.Context, sessionID uuid.UUID) (*models.PerformanceSession, error) {
	var session models.PerformanceSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// Reserve increments the tier's sold counter only while sold + qty stays
// within capacity. Returns false when no row qualified.
func (r *repositoryImpl) Reserve(ctx context.Context, sessionID uuid.UUID, tier enums.Tier, qty int) (bool, error) {
	soldCol, capCol, err := tierColumns(tier)
	if err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).
		Model(&models.PerformanceSession{}).
		Where(fmt.Sprintf("id = ? AND %s + ? <= %s", soldCol, capCol), sessionID, qty).
		UpdateColumn(soldCol, gorm.Expr(fmt.Sprintf("%s + ?", soldCol), qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Release decrements the tier's sold counter only while the result stays
// non-negative. Returns false when the decrement would have gone below zero.
func (r *repositoryImpl) Release(ctx context.Context, sessionID uuid.UUID, tier enums.Tier, qty int) (bool, error) {
	soldCol, _, err := tierColumns(tier)
	if err != nil {
		return false, err
	}

	result := r.db.WithContext(ctx).
		Model(&models.PerformanceSession{}).
		Where(fmt.Sprintf("id = ? AND %s - ? >= 0", soldCol), sessionID, qty).
		UpdateColumn(soldCol, gorm.Expr(fmt.Sprintf("%s - ?", soldCol), qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ForceZeroFloor clamps the tier's sold counter to zero. Used after a
// release would have underflowed, which indicates a prior accounting fault.
func (r *repositoryImpl) ForceZeroFloor(ctx context.Context, sessionID uuid.UUID, tier enums.Tier) error {
	soldCol, _, err := tierColumns(tier)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.PerformanceSession{}).
		Where("id = ?", sessionID).
		UpdateColumn(soldCol, 0).Error
}

func tierColumns(tier enums.Tier) (string, string, error) {
	switch tier {
	case enums.TierGeneral:
		return "general_sold", "general_capacity", nil
	case enums.TierReserved:
		return "reserved_sold", "reserved_capacity", nil
	case enums.TierVIP1:
		return "vip1_sold", "vip1_capacity", nil
	case enums.TierVIP2:
		return "vip2_sold", "vip2_capacity", nil
	}
	return "", "", fmt.Errorf("unknown tier %q", tier)
}
