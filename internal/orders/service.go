package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/enums"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
)

// Service exposes order reads plus the admin-only status edges. The
// PENDING->PAID edge belongs exclusively to the fulfillment engine and is
// deliberately absent here.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*OrderView, error)
	GetByProviderSession(ctx context.Context, providerSessionID string) (*OrderView, error)
	List(ctx context.Context, filter ListFilter) ([]OrderView, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Refund(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*OrderView, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	view := viewFromModel(order)
	return &view, nil
}

func (s *service) GetByProviderSession(ctx context.Context, providerSessionID string) (*OrderView, error) {
	if providerSessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider session id required")
	}
	order, err := s.repo.FindByProviderSession(ctx, providerSessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	view := viewFromModel(order)
	return &view, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]OrderView, error) {
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	views := make([]OrderView, 0, len(records))
	for i := range records {
		views = append(views, viewFromModel(&records[i]))
	}
	return views, nil
}

// Cancel is legal only from PENDING. Inventory is reserved at fulfillment
// time, so cancelling a pending order releases nothing.
func (s *service) Cancel(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, enums.OrderStatusCancelled, "cancel", s.repo.MarkCancelled)
}

// Refund records the status edge only; computing refund amounts is out of
// scope and handled by the provider's dashboard.
func (s *service) Refund(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, enums.OrderStatusRefunded, "refund", s.repo.MarkRefunded)
}

// transition checks the edge against the order status table before handing
// off to the guarded UPDATE, which stays the authority under concurrency.
func (s *service) transition(
	ctx context.Context,
	id uuid.UUID,
	target enums.OrderStatus,
	verb string,
	mark func(ctx context.Context, id uuid.UUID, at time.Time) (bool, error),
) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !order.Status.CanTransitionTo(target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot %s order in status %s", verb, order.Status))
	}

	ok, err := mark(ctx, id, s.now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, verb+" order")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order status changed while attempting %s", verb))
	}
	return nil
}
