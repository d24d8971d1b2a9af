package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/internal/codes"
	"github.com/stagepass/stagepass-backend/internal/fulfillment"
	"github.com/stagepass/stagepass-backend/internal/orders"
	"github.com/stagepass/stagepass-backend/internal/pricing"
	"github.com/stagepass/stagepass-backend/internal/sessions"
	"github.com/stagepass/stagepass-backend/pkg/config"
	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
	"github.com/stagepass/stagepass-backend/pkg/logger"
	"github.com/stagepass/stagepass-backend/pkg/metrics"
	"github.com/stagepass/stagepass-backend/pkg/types"
)

// Input is one purchase attempt as submitted by the customer.
type Input struct {
	SessionID     uuid.UUID
	Quantities    pricing.Quantities
	Codes         []string
	CustomerName  string
	CustomerEmail string
}

// Result is either a provider redirect (non-zero total) or a completed
// order reference (zero total, fulfilled synchronously).
type Result struct {
	OrderID     uuid.UUID `json:"order_id"`
	Completed   bool      `json:"completed"`
	RedirectURL string    `json:"redirect_url,omitempty"`
	TotalAmount int       `json:"total_amount"`
}

// Service orchestrates checkout: validate, quote, persist a PENDING order,
// then either hand off to the payment provider or fulfill immediately.
type Service interface {
	Create(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	sessions    sessions.Repository
	codes       codes.Service
	orders      orders.Repository
	fulfillment fulfillment.Service
	provider    PaymentProvider
	cfg         config.CheckoutConfig
	stripeCfg   config.StripeConfig
	validate    *validator.Validate
	logg        *logger.Logger
	metrics     *metrics.TicketingMetrics
}

// NewService builds the checkout orchestrator with the required dependencies.
// provider may be nil only in deployments that sell exclusively zero-total
// orders; any non-zero total then fails with a dependency error.
func NewService(
	sessionsRepo sessions.Repository,
	codesSvc codes.Service,
	ordersRepo orders.Repository,
	fulfillmentSvc fulfillment.Service,
	provider PaymentProvider,
	cfg config.CheckoutConfig,
	stripeCfg config.StripeConfig,
	logg *logger.Logger,
	ticketing *metrics.TicketingMetrics,
) (Service, error) {
	if sessionsRepo == nil {
		return nil, fmt.Errorf("sessions repository required")
	}
	if codesSvc == nil {
		return nil, fmt.Errorf("codes service required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if fulfillmentSvc == nil {
		return nil, fmt.Errorf("fulfillment service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		sessions:    sessionsRepo,
		codes:       codesSvc,
		orders:      ordersRepo,
		fulfillment: fulfillmentSvc,
		provider:    provider,
		cfg:         cfg,
		stripeCfg:   stripeCfg,
		validate:    validator.New(),
		logg:        logg,
		metrics:     ticketing,
	}, nil
}

func (s *service) Create(ctx context.Context, input Input) (*Result, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	ctx = s.logg.WithSessionID(ctx, input.SessionID.String())

	session, err := s.sessions.FindByID(ctx, input.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	if session.SaleStatus != enums.SaleStatusOnSale {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("session is %s", session.SaleStatus))
	}

	// Duplicate submissions fail here, before any registry lookup.
	normalized, err := pricing.NormalizeCodes(input.Codes)
	if err != nil {
		return nil, err
	}
	// Partial redemption is not offered: one bad code fails the request.
	if err := s.codes.EnsureUnused(ctx, normalized); err != nil {
		return nil, err
	}

	quote, err := pricing.Compute(session, input.Quantities, normalized)
	if err != nil {
		return nil, err
	}

	order := s.buildOrder(session, input, quote)
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	if quote.TotalAmount == 0 {
		// Fully voucher-covered: no payment round-trip, fulfill now.
		if err := s.fulfillment.Fulfill(ctx, order.ID, nil); err != nil {
			return nil, err
		}
		s.logg.Info(ctx, "zero-total order fulfilled synchronously")
		s.metrics.IncOrderCreated("zero_total")
		return &Result{OrderID: order.ID, Completed: true, TotalAmount: 0}, nil
	}

	if s.provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider not configured")
	}

	providerCtx := ctx
	if s.cfg.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		providerCtx, cancel = context.WithTimeout(ctx, s.cfg.ProviderTimeout)
		defer cancel()
	}
	providerSession, err := s.provider.CreateCheckoutSession(providerCtx, ProviderRequest{
		OrderID:       order.ID,
		CustomerEmail: order.CustomerEmail,
		Currency:      s.stripeCfg.Currency,
		LineItems:     buildLineItems(session.Title, quote),
		SuccessURL:    s.stripeCfg.SuccessURL,
		CancelURL:     s.stripeCfg.CancelURL,
	})
	if err != nil {
		// The order stays PENDING with no provider session; the buyer can
		// retry and the stale row is cancellable by admin.
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create provider session")
	}

	if err := s.orders.SetProviderSession(ctx, order.ID, providerSession.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store provider session id")
	}

	s.logg.Info(ctx, "checkout session created")
	s.metrics.IncOrderCreated("provider")
	return &Result{
		OrderID:     order.ID,
		RedirectURL: providerSession.RedirectURL,
		TotalAmount: quote.TotalAmount,
	}, nil
}

func (s *service) validateInput(input Input) error {
	if input.SessionID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if input.CustomerName == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}
	if err := s.validate.Var(input.CustomerEmail, "required,email"); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "valid customer email required")
	}
	total := input.Quantities.Total()
	if total <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one seat must be requested")
	}
	if max := s.cfg.MaxTicketsPerOrder; max > 0 && total > max {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d tickets per order", max))
	}
	return nil
}

func (s *service) buildOrder(session *models.PerformanceSession, input Input, quote *pricing.Quote) *models.Order {
	return &models.Order{
		SessionID: session.ID,

		GeneralQty:  input.Quantities.General,
		ReservedQty: input.Quantities.Reserved,
		Vip1Qty:     input.Quantities.Vip1,
		Vip2Qty:     input.Quantities.Vip2,

		GeneralUnitPrice:  quote.UnitPrices[enums.TierGeneral],
		ReservedUnitPrice: quote.UnitPrices[enums.TierReserved],
		Vip1UnitPrice:     quote.UnitPrices[enums.TierVIP1],
		Vip2UnitPrice:     quote.UnitPrices[enums.TierVIP2],

		DiscountedCount: quote.DiscountedCount,
		DiscountAmount:  quote.DiscountAmount,
		TotalAmount:     quote.TotalAmount,

		CustomerName:   input.CustomerName,
		CustomerEmail:  input.CustomerEmail,
		SubmittedCodes: types.CodeList(quote.Codes),
		Status:         enums.OrderStatusPending,
	}
}

// buildLineItems emits one bucket per charged tier plus a zero-priced
// bucket showing the voucher seats, so the provider page itemizes what the
// buyer expects.
func buildLineItems(sessionTitle string, quote *pricing.Quote) []LineItem {
	var items []LineItem
	for _, tier := range enums.AllTiers() {
		qty := quote.ChargeableQty[tier]
		if qty <= 0 {
			continue
		}
		items = append(items, LineItem{
			Name:       fmt.Sprintf("%s (%s)", sessionTitle, tier),
			UnitAmount: quote.UnitPrices[tier],
			Quantity:   qty,
		})
	}
	if quote.DiscountedCount > 0 {
		items = append(items, LineItem{
			Name:       fmt.Sprintf("%s (general, voucher)", sessionTitle),
			UnitAmount: 0,
			Quantity:   quote.DiscountedCount,
		})
	}
	return items
}
