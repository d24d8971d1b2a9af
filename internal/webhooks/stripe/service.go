package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/stagepass/stagepass-backend/internal/orders"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
	"github.com/stagepass/stagepass-backend/pkg/logger"
	"github.com/stagepass/stagepass-backend/pkg/metrics"
)

type orderResolver interface {
	GetByProviderSession(ctx context.Context, providerSessionID string) (*orders.OrderView, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

type fulfiller interface {
	Fulfill(ctx context.Context, orderID uuid.UUID, paymentRef *string) error
}

type ServiceParams struct {
	Orders      orderResolver
	Fulfillment fulfiller
	Logger      *logger.Logger
	Metrics     *metrics.TicketingMetrics
}

// Service reacts to provider checkout lifecycle events. Delivery is
// at-least-once; every handler tolerates replays because the status-guarded
// fulfillment transaction is the actual idempotency guarantee.
type Service struct {
	orders      orderResolver
	fulfillment fulfiller
	logg        *logger.Logger
	metrics     *metrics.TicketingMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Fulfillment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:      params.Orders,
		fulfillment: params.Fulfillment,
		logg:        params.Logger,
		metrics:     params.Metrics,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		s.metrics.IncWebhookEvent(string(event.Type))
		return s.handleCompleted(ctx, event)
	case stripe.EventTypeCheckoutSessionExpired:
		s.metrics.IncWebhookEvent(string(event.Type))
		return s.handleExpired(ctx, event)
	default:
		return nil
	}
}

// handleCompleted drives the order to PAID. A session that cannot be tied
// to an order is surfaced so the provider retries instead of dropping a
// paid purchase.
func (s *Service) handleCompleted(ctx context.Context, event *stripe.Event) error {
	session, err := decodeSession(event)
	if err != nil {
		return err
	}

	orderID, err := s.resolveOrderID(ctx, session)
	if err != nil {
		return err
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	var paymentRef *string
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		ref := session.PaymentIntent.ID
		paymentRef = &ref
	}

	return s.fulfillment.Fulfill(ctx, orderID, paymentRef)
}

// handleExpired cancels the abandoned PENDING order. An order that already
// moved on (paid, or cancelled by an earlier delivery) is left alone.
func (s *Service) handleExpired(ctx context.Context, event *stripe.Event) error {
	session, err := decodeSession(event)
	if err != nil {
		return err
	}

	orderID, err := s.resolveOrderID(ctx, session)
	if err != nil {
		typed := pkgerrors.As(err)
		if typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			s.logg.Warn(ctx, fmt.Sprintf("expired session %s matches no order", session.ID))
			return nil
		}
		return err
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	if err := s.orders.Cancel(ctx, orderID); err != nil {
		typed := pkgerrors.As(err)
		if typed != nil && (typed.Code() == pkgerrors.CodeStateConflict || typed.Code() == pkgerrors.CodeNotFound) {
			return nil
		}
		return err
	}
	s.logg.Info(ctx, "expired checkout session cancelled order")
	return nil
}

func (s *Service) resolveOrderID(ctx context.Context, session *stripe.CheckoutSession) (uuid.UUID, error) {
	if raw, ok := session.Metadata["order_id"]; ok {
		if id, err := uuid.Parse(raw); err == nil {
			return id, nil
		}
	}
	if session.ID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	order, err := s.orders.GetByProviderSession(ctx, session.ID)
	if err != nil {
		return uuid.Nil, err
	}
	return order.ID, nil
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
	}
	return &session, nil
}
