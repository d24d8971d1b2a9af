package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
)

func TestGetIncludesLinesAndTickets(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db, func(o *models.Order) {
		o.Status = enums.OrderStatusPaid
	})
	require.NoError(t, db.Create(&models.Ticket{
		OrderID: order.ID,
		Code:    "t-ordertest1",
		Tier:    enums.TierGeneral,
	}).Error)

	view, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusPaid, view.Status)
	require.Equal(t, "Evening Show", view.SessionTitle)
	require.Len(t, view.Lines, 2)
	require.Len(t, view.Tickets, 1)
	require.Equal(t, "t-ordertest1", view.Tickets[0].Code)
}

func TestGetByProviderSession(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	sid := "cs_test_123"
	seedOrder(t, db, func(o *models.Order) {
		o.ProviderSessionID = &sid
	})

	view, err := svc.GetByProviderSession(context.Background(), sid)
	require.NoError(t, err)
	require.NotNil(t, view.ProviderSessionID)
	require.Equal(t, sid, *view.ProviderSessionID)

	_, err = svc.GetByProviderSession(context.Background(), "cs_missing")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListFilters(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	paid := seedOrder(t, db, func(o *models.Order) {
		o.Status = enums.OrderStatusPaid
		o.CustomerEmail = "paid@example.com"
	})
	seedOrder(t, db, nil)

	status := enums.OrderStatusPaid
	views, err := svc.List(ctx, ListFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, paid.ID, views[0].ID)

	views, err = svc.List(ctx, ListFilter{Email: "paid@example.com"})
	require.NoError(t, err)
	require.Len(t, views, 1)

	views, err = svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
}

func TestCancelOnlyFromPending(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	pending := seedOrder(t, db, nil)
	require.NoError(t, svc.Cancel(ctx, pending.ID))

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", pending.ID).Error)
	require.Equal(t, enums.OrderStatusCancelled, reloaded.Status)
	require.NotNil(t, reloaded.CancelledAt)

	paid := seedOrder(t, db, func(o *models.Order) {
		o.Status = enums.OrderStatusPaid
	})
	err := svc.Cancel(ctx, paid.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestRefundOnlyFromPaid(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	paid := seedOrder(t, db, func(o *models.Order) {
		o.Status = enums.OrderStatusPaid
	})
	require.NoError(t, svc.Refund(ctx, paid.ID))

	var reloaded models.Order
	require.NoError(t, db.First(&reloaded, "id = ?", paid.ID).Error)
	require.Equal(t, enums.OrderStatusRefunded, reloaded.Status)
	require.NotNil(t, reloaded.RefundedAt)

	pending := seedOrder(t, db, nil)
	err := svc.Refund(ctx, pending.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestTerminalStatusesRejectAllEdges(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	cancelled := seedOrder(t, db, func(o *models.Order) {
		o.Status = enums.OrderStatusCancelled
	})
	refunded := seedOrder(t, db, func(o *models.Order) {
		o.Status = enums.OrderStatusRefunded
	})

	for _, id := range []uuid.UUID{cancelled.ID, refunded.ID} {
		err := svc.Cancel(ctx, id)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())

		err = svc.Refund(ctx, id)
		typed = pkgerrors.As(err)
		require.NotNil(t, typed)
		require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	err := svc.Cancel(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func seedOrder(t *testing.T, db *gorm.DB, mutate func(*models.Order)) *models.Order {
	t.Helper()
	session := &models.PerformanceSession{
		Title:            "Evening Show",
		Venue:            "Main Hall",
		SaleStatus:       enums.SaleStatusOnSale,
		GeneralCapacity:  100,
		GeneralPrice:     4500,
		ReservedCapacity: 20,
		ReservedPrice:    6000,
	}
	require.NoError(t, db.Create(session).Error)
	order := &models.Order{
		SessionID:         session.ID,
		GeneralQty:        2,
		ReservedQty:       1,
		GeneralUnitPrice:  4500,
		ReservedUnitPrice: 6000,
		TotalAmount:       15000,
		CustomerName:      "Aiko Tanaka",
		CustomerEmail:     "aiko@example.com",
		Status:            enums.OrderStatusPending,
	}
	if mutate != nil {
		mutate(order)
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.PerformanceSession{},
		&models.Order{},
		&models.Ticket{},
	))
	return db
}
