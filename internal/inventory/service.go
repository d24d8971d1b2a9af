package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/enums"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
	"github.com/stagepass/stagepass-backend/pkg/logger"
)

// Service is the seat ledger. Reserve and Release run against the caller's
// transaction so fulfillment can bundle counter moves with order writes.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) error
	Release(ctx context.Context, tx *gorm.DB, input ReleaseInput) error
}

// ReserveInput names the seats being claimed for one tier.
type ReserveInput struct {
	SessionID uuid.UUID
	Lines     []Line
}

// ReleaseInput names the seats being returned for one tier.
type ReleaseInput struct {
	SessionID uuid.UUID
	Lines     []Line
}

// Line is a tier/quantity pair.
type Line struct {
	Tier enums.Tier
	Qty  int
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds the inventory service with the required dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Reserve claims seats for every line atomically within the caller's
// transaction. The first tier that cannot satisfy its quantity aborts the
// whole reservation, so the surrounding rollback undoes earlier lines.
func (s *service) Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) error {
	if input.SessionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	repo := s.repo.WithTx(tx)
	for _, line := range input.Lines {
		if line.Qty == 0 {
			continue
		}
		if line.Qty < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reserve quantity must be non-negative")
		}
		if !line.Tier.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown tier %q", line.Tier))
		}

		ok, err := repo.Reserve(ctx, input.SessionID, line.Tier, line.Qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve seats")
		}
		if ok {
			continue
		}

		// The conditional update matched nothing. Distinguish a missing
		// session from an exhausted tier for the caller's error code.
		session, err := repo.FindSession(ctx, input.SessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
		}
		if !session.TierOffered(line.Tier) {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("tier %s not offered for this session", line.Tier))
		}
		return pkgerrors.New(pkgerrors.CodeSoldOut, fmt.Sprintf("not enough %s seats remaining", line.Tier)).
			WithDetails(map[string]any{"tier": line.Tier.String(), "remaining": session.Remaining(line.Tier)})
	}
	return nil
}

// Release returns seats to the pool. An underflow is clamped to zero and
// logged loudly because it means the ledger was already inconsistent.
func (s *service) Release(ctx context.Context, tx *gorm.DB, input ReleaseInput) error {
	if input.SessionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	repo := s.repo.WithTx(tx)
	for _, line := range input.Lines {
		if line.Qty == 0 {
			continue
		}
		if line.Qty < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be non-negative")
		}
		if !line.Tier.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown tier %q", line.Tier))
		}

		ok, err := repo.Release(ctx, input.SessionID, line.Tier, line.Qty)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release seats")
		}
		if ok {
			continue
		}

		logCtx := s.logg.WithFields(ctx, map[string]any{
			"session_id": input.SessionID.String(),
			"tier":       line.Tier.String(),
			"qty":        line.Qty,
		})
		s.logg.Warn(logCtx, "release would underflow sold counter, clamping to zero")
		if err := repo.ForceZeroFloor(ctx, input.SessionID, line.Tier); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clamp sold counter")
		}
	}
	return nil
}
