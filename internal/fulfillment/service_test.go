package fulfillment

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/internal/codes"
	"github.com/stagepass/stagepass-backend/internal/inventory"
	"github.com/stagepass/stagepass-backend/internal/orders"
	"github.com/stagepass/stagepass-backend/internal/tickets"
	"github.com/stagepass/stagepass-backend/pkg/db"
	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
	"github.com/stagepass/stagepass-backend/pkg/logger"
	"github.com/stagepass/stagepass-backend/pkg/types"
)

type recordingNotifier struct {
	calls int
	fail  bool
}

func (n *recordingNotifier) SendConfirmation(_ context.Context, _ *models.Order, _ []models.Ticket) error {
	n.calls++
	if n.fail {
		return errors.New("smtp unreachable")
	}
	return nil
}

type fixture struct {
	db       *gorm.DB
	svc      Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:fulfillment_" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(
		&models.Performer{},
		&models.PerformanceSession{},
		&models.ExchangeCode{},
		&models.Order{},
		&models.Ticket{},
	))

	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	invSvc, err := inventory.NewService(inventory.NewRepository(gdb), logg)
	require.NoError(t, err)
	codesSvc, err := codes.NewService(codes.NewRepository(gdb))
	require.NoError(t, err)
	ticketsSvc, err := tickets.NewService(tickets.NewRepository(gdb))
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc, err := NewService(
		db.NewWithConn(gdb),
		orders.NewRepository(gdb),
		invSvc,
		codesSvc,
		ticketsSvc,
		notifier,
		logg,
		nil,
	)
	require.NoError(t, err)

	return &fixture{db: gdb, svc: svc, notifier: notifier}
}

func (f *fixture) seedSession(t *testing.T, generalCap int) *models.PerformanceSession {
	t.Helper()
	session := &models.PerformanceSession{
		Title:            "Evening Show",
		Venue:            "Main Hall",
		SaleStatus:       enums.SaleStatusOnSale,
		GeneralCapacity:  generalCap,
		GeneralPrice:     4500,
		ReservedCapacity: 10,
		ReservedPrice:    6000,
	}
	require.NoError(t, f.db.Create(session).Error)
	return session
}

func (f *fixture) seedOrder(t *testing.T, sessionID uuid.UUID, mutate func(*models.Order)) *models.Order {
	t.Helper()
	order := &models.Order{
		SessionID:        sessionID,
		GeneralQty:       2,
		GeneralUnitPrice: 4500,
		TotalAmount:      9000,
		CustomerName:     "Aiko Tanaka",
		CustomerEmail:    "aiko@example.com",
		Status:           enums.OrderStatusPending,
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, f.db.Create(order).Error)
	return order
}

func TestFulfillMintsAndRedeems(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	session := f.seedSession(t, 10)
	require.NoError(t, f.db.Create(&models.ExchangeCode{Code: "voucher-1"}).Error)

	order := f.seedOrder(t, session.ID, func(o *models.Order) {
		o.SubmittedCodes = types.CodeList{"voucher-1"}
		o.DiscountedCount = 1
		o.DiscountAmount = 4500
		o.TotalAmount = 4500
	})

	ref := "pi_test_123"
	require.NoError(t, f.svc.Fulfill(ctx, order.ID, &ref))

	var reloaded models.Order
	require.NoError(t, f.db.First(&reloaded, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusPaid, reloaded.Status)
	require.NotNil(t, reloaded.PaidAt)
	require.NotNil(t, reloaded.PaymentRef)
	require.Equal(t, ref, *reloaded.PaymentRef)

	var mintedTickets []models.Ticket
	require.NoError(t, f.db.Find(&mintedTickets, "order_id = ?", order.ID).Error)
	require.Len(t, mintedTickets, 2)
	exchanged := 0
	for _, ticket := range mintedTickets {
		if ticket.IsExchanged {
			exchanged++
		}
	}
	require.Equal(t, 1, exchanged)

	var code models.ExchangeCode
	require.NoError(t, f.db.First(&code, "code = ?", "voucher-1").Error)
	require.True(t, code.IsUsed)
	require.NotNil(t, code.RedeemingOrderID)
	require.Equal(t, order.ID, *code.RedeemingOrderID)

	var sess models.PerformanceSession
	require.NoError(t, f.db.First(&sess, "id = ?", session.ID).Error)
	require.Equal(t, 2, sess.GeneralSold)

	require.Equal(t, 1, f.notifier.calls)
}

func TestFulfillReplayIsNoop(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	session := f.seedSession(t, 10)
	require.NoError(t, f.db.Create(&models.ExchangeCode{Code: "voucher-2"}).Error)
	order := f.seedOrder(t, session.ID, func(o *models.Order) {
		o.SubmittedCodes = types.CodeList{"voucher-2"}
		o.DiscountedCount = 1
	})

	require.NoError(t, f.svc.Fulfill(ctx, order.ID, nil))
	require.NoError(t, f.svc.Fulfill(ctx, order.ID, nil))

	var ticketCount int64
	require.NoError(t, f.db.Model(&models.Ticket{}).Where("order_id = ?", order.ID).Count(&ticketCount).Error)
	require.Equal(t, int64(2), ticketCount)

	var sess models.PerformanceSession
	require.NoError(t, f.db.First(&sess, "id = ?", session.ID).Error)
	require.Equal(t, 2, sess.GeneralSold)

	// Only the first run notifies.
	require.Equal(t, 1, f.notifier.calls)
}

func TestFulfillSoldOutLeavesOrderPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	session := f.seedSession(t, 1)
	order := f.seedOrder(t, session.ID, nil) // wants 2 general seats

	err := f.svc.Fulfill(ctx, order.ID, nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeSoldOut, typed.Code())

	var reloaded models.Order
	require.NoError(t, f.db.First(&reloaded, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusPending, reloaded.Status)

	var ticketCount int64
	require.NoError(t, f.db.Model(&models.Ticket{}).Where("order_id = ?", order.ID).Count(&ticketCount).Error)
	require.Zero(t, ticketCount)

	var sess models.PerformanceSession
	require.NoError(t, f.db.First(&sess, "id = ?", session.ID).Error)
	require.Zero(t, sess.GeneralSold)
	require.Zero(t, f.notifier.calls)
}

func TestFulfillIntegrityFaultRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	session := f.seedSession(t, 10)

	otherOrder := uuid.New()
	require.NoError(t, f.db.Create(&models.ExchangeCode{
		Code:             "stolen-1",
		IsUsed:           true,
		RedeemingOrderID: &otherOrder,
	}).Error)

	order := f.seedOrder(t, session.ID, func(o *models.Order) {
		o.SubmittedCodes = types.CodeList{"stolen-1"}
		o.DiscountedCount = 1
	})

	err := f.svc.Fulfill(ctx, order.ID, nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeIntegrity, typed.Code())

	// Everything rolled back: still pending, no seats held, no tickets.
	var reloaded models.Order
	require.NoError(t, f.db.First(&reloaded, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusPending, reloaded.Status)

	var sess models.PerformanceSession
	require.NoError(t, f.db.First(&sess, "id = ?", session.ID).Error)
	require.Zero(t, sess.GeneralSold)

	var ticketCount int64
	require.NoError(t, f.db.Model(&models.Ticket{}).Where("order_id = ?", order.ID).Count(&ticketCount).Error)
	require.Zero(t, ticketCount)
}

func TestFulfillCancelledOrderIsNoop(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	session := f.seedSession(t, 10)
	order := f.seedOrder(t, session.ID, func(o *models.Order) {
		o.Status = enums.OrderStatusCancelled
	})

	require.NoError(t, f.svc.Fulfill(ctx, order.ID, nil))

	var reloaded models.Order
	require.NoError(t, f.db.First(&reloaded, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusCancelled, reloaded.Status)

	var ticketCount int64
	require.NoError(t, f.db.Model(&models.Ticket{}).Count(&ticketCount).Error)
	require.Zero(t, ticketCount)
}

func TestFulfillNotificationFailureDoesNotFail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.notifier.fail = true
	ctx := context.Background()

	session := f.seedSession(t, 10)
	order := f.seedOrder(t, session.ID, nil)

	require.NoError(t, f.svc.Fulfill(ctx, order.ID, nil))

	var reloaded models.Order
	require.NoError(t, f.db.First(&reloaded, "id = ?", order.ID).Error)
	require.Equal(t, enums.OrderStatusPaid, reloaded.Status)
	require.Equal(t, 1, f.notifier.calls)
}

func TestFulfillUnknownOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	err := f.svc.Fulfill(context.Background(), uuid.New(), nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
