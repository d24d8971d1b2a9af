package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/enums"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
)

// Service exposes the customer listing and the admin summary for sessions.
type Service interface {
	List(ctx context.Context) ([]SessionView, error)
	Get(ctx context.Context, id uuid.UUID) (*SessionView, error)
	SetSaleStatus(ctx context.Context, id uuid.UUID, status enums.SaleStatus) error
	Summary(ctx context.Context, id uuid.UUID) (*Summary, error)
}

type service struct {
	repo Repository
}

// NewService builds a sessions service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]SessionView, error) {
	sessions, err := s.repo.ListVisible(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sessions")
	}
	views := make([]SessionView, 0, len(sessions))
	for i := range sessions {
		views = append(views, viewFromModel(&sessions[i]))
	}
	return views, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SessionView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	view := viewFromModel(session)
	return &view, nil
}

func (s *service) SetSaleStatus(ctx context.Context, id uuid.UUID, status enums.SaleStatus) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid sale status %q", status))
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	if err := s.repo.UpdateSaleStatus(ctx, id, status); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update sale status")
	}
	return nil
}

// Summary aggregates sold counters, paid order revenue and admission figures.
// Monetary sums flow through decimal so later currency formatting stays exact.
func (s *service) Summary(ctx context.Context, id uuid.UUID) (*Summary, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}

	aggregates, err := s.repo.PaidOrderAggregates(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate orders")
	}
	issued, used, err := s.repo.TicketCounts(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count tickets")
	}

	summary := &Summary{
		SessionID:     session.ID,
		Title:         session.Title,
		SaleStatus:    session.SaleStatus,
		PaidOrders:    aggregates.Count,
		TicketsIssued: issued,
		TicketsUsed:   used,
		GrossRevenue:  decimal.NewFromInt(aggregates.TotalAmount),
		DiscountTotal: decimal.NewFromInt(aggregates.DiscountTotal),
	}
	for _, tier := range enums.AllTiers() {
		if !session.TierOffered(tier) {
			continue
		}
		summary.Tiers = append(summary.Tiers, TierStat{
			Tier:      tier,
			Capacity:  session.Capacity(tier),
			Sold:      session.Sold(tier),
			Remaining: session.Remaining(tier),
			UnitPrice: session.Price(tier),
		})
	}
	return summary, nil
}
