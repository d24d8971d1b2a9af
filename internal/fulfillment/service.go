package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/internal/codes"
	"github.com/stagepass/stagepass-backend/internal/inventory"
	"github.com/stagepass/stagepass-backend/internal/notifications"
	"github.com/stagepass/stagepass-backend/internal/orders"
	"github.com/stagepass/stagepass-backend/internal/tickets"
	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
	"github.com/stagepass/stagepass-backend/pkg/logger"
	"github.com/stagepass/stagepass-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// errAlreadyFulfilled aborts the transaction when another fulfillment won
// the conditional status flip. The caller maps it to a silent success.
var errAlreadyFulfilled = errors.New("order already fulfilled")

// Service converts a paid-for PENDING order into tickets and redeemed
// codes, atomically and idempotently. Payment events arrive at least once,
// so every step tolerates replay: a non-PENDING order is a no-op, a lost
// status race is a no-op, a code already redeemed by this order is a no-op.
type Service interface {
	Fulfill(ctx context.Context, orderID uuid.UUID, paymentRef *string) error
}

type service struct {
	tx        txRunner
	orders    orders.Repository
	inventory inventory.Service
	codes     codes.Service
	tickets   tickets.Service
	notifier  notifications.Notifier
	logg      *logger.Logger
	metrics   *metrics.TicketingMetrics
	now       func() time.Time
}

// NewService builds the fulfillment engine with the required dependencies.
func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	inventorySvc inventory.Service,
	codesSvc codes.Service,
	ticketsSvc tickets.Service,
	notifier notifications.Notifier,
	logg *logger.Logger,
	ticketing *metrics.TicketingMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if inventorySvc == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if codesSvc == nil {
		return nil, fmt.Errorf("codes service required")
	}
	if ticketsSvc == nil {
		return nil, fmt.Errorf("tickets service required")
	}
	if notifier == nil {
		notifier = notifications.Noop{}
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:        tx,
		orders:    ordersRepo,
		inventory: inventorySvc,
		codes:     codesSvc,
		tickets:   ticketsSvc,
		notifier:  notifier,
		logg:      logg,
		metrics:   ticketing,
		now:       time.Now,
	}, nil
}

func (s *service) Fulfill(ctx context.Context, orderID uuid.UUID, paymentRef *string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	var (
		fulfilledOrder *models.Order
		minted         []models.Ticket
	)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusPending {
			// Replayed completion event for an order that already settled.
			return errAlreadyFulfilled
		}

		// Seats are claimed here, not at order creation, so abandoned
		// checkouts never starve inventory. The cost: this reserve can
		// fail with SOLD_OUT even though checkout quoted availability.
		var lines []inventory.Line
		for _, tier := range enums.AllTiers() {
			if qty := order.Qty(tier); qty > 0 {
				lines = append(lines, inventory.Line{Tier: tier, Qty: qty})
			}
		}
		if err := s.inventory.Reserve(ctx, tx, inventory.ReserveInput{
			SessionID: order.SessionID,
			Lines:     lines,
		}); err != nil {
			return err
		}

		ok, err := repo.MarkPaid(ctx, orderID, paymentRef, s.now().UTC())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !ok {
			// A concurrent fulfillment flipped the status after our read.
			return errAlreadyFulfilled
		}

		for _, code := range order.SubmittedCodes {
			if err := s.codes.RedeemForOrder(ctx, tx, code, orderID); err != nil {
				return err
			}
		}

		quantities := make(map[enums.Tier]int, 4)
		for _, tier := range enums.AllTiers() {
			quantities[tier] = order.Qty(tier)
		}
		created, err := s.tickets.Mint(ctx, tx, tickets.MintInput{
			OrderID:         orderID,
			Quantities:      quantities,
			DiscountedCount: order.DiscountedCount,
		})
		if err != nil {
			return err
		}

		fulfilledOrder = order
		minted = created
		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadyFulfilled) {
			s.logg.Info(ctx, "fulfillment replay ignored, order already settled")
			s.metrics.IncFulfillment("replay")
			return nil
		}
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeIntegrity {
			s.logg.Error(ctx, "fulfillment hit integrity fault, needs manual review", err)
		}
		s.metrics.IncFulfillment("failure")
		return err
	}

	s.metrics.IncFulfillment("success")

	// Notification is outside the transaction on purpose: the money moved,
	// tickets exist, and a bounced mail must not unwind either.
	if err := s.notifier.SendConfirmation(ctx, fulfilledOrder, minted); err != nil {
		s.logg.Error(ctx, "confirmation notification failed, follow up manually", err)
	}
	return nil
}
