package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
)

func TestListHidesNotOnSale(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	seedSession(t, db, func(s *models.PerformanceSession) {
		s.Title = "Hidden"
		s.SaleStatus = enums.SaleStatusNotOnSale
	})
	seedSession(t, db, func(s *models.PerformanceSession) {
		s.Title = "Visible"
		s.SaleStatus = enums.SaleStatusOnSale
	})

	views, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "Visible", views[0].Title)
}

func TestListOrdersByStartTime(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	later := seedSession(t, db, func(s *models.PerformanceSession) {
		s.Title = "Later"
		s.StartsAt = time.Now().Add(48 * time.Hour)
	})
	sooner := seedSession(t, db, func(s *models.PerformanceSession) {
		s.Title = "Sooner"
		s.StartsAt = time.Now().Add(24 * time.Hour)
	})

	views, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, sooner.ID, views[0].ID)
	require.Equal(t, later.ID, views[1].ID)
}

func TestGetSkipsZeroCapacityTiers(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	session := seedSession(t, db, func(s *models.PerformanceSession) {
		s.Vip1Capacity = 0
		s.Vip2Capacity = 0
	})

	view, err := svc.Get(context.Background(), session.ID)
	require.NoError(t, err)
	require.Len(t, view.Tiers, 2)
	for _, tier := range view.Tiers {
		require.NotEqual(t, enums.TierVIP1, tier.Tier)
		require.NotEqual(t, enums.TierVIP2, tier.Tier)
	}
}

func TestGetAvailabilityFollowsRemaining(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	session := seedSession(t, db, func(s *models.PerformanceSession) {
		s.GeneralSold = s.GeneralCapacity
	})

	view, err := svc.Get(context.Background(), session.ID)
	require.NoError(t, err)
	for _, tier := range view.Tiers {
		if tier.Tier == enums.TierGeneral {
			require.Zero(t, tier.Remaining)
			require.False(t, tier.Available)
		}
	}
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Get(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestSetSaleStatus(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	session := seedSession(t, db, nil)

	require.NoError(t, svc.SetSaleStatus(ctx, session.ID, enums.SaleStatusEnded))

	var reloaded models.PerformanceSession
	require.NoError(t, db.First(&reloaded, "id = ?", session.ID).Error)
	require.Equal(t, enums.SaleStatusEnded, reloaded.SaleStatus)
}

func TestSummaryAggregates(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	session := seedSession(t, db, func(s *models.PerformanceSession) {
		s.GeneralSold = 3
	})

	paid := &models.Order{
		SessionID:        session.ID,
		GeneralQty:       3,
		GeneralUnitPrice: 4500,
		DiscountAmount:   4500,
		TotalAmount:      9000,
		CustomerName:     "Aiko Tanaka",
		CustomerEmail:    "aiko@example.com",
		Status:           enums.OrderStatusPaid,
	}
	require.NoError(t, db.Create(paid).Error)
	pending := &models.Order{
		SessionID:        session.ID,
		GeneralQty:       1,
		GeneralUnitPrice: 4500,
		TotalAmount:      4500,
		CustomerName:     "Ren Sato",
		CustomerEmail:    "ren@example.com",
		Status:           enums.OrderStatusPending,
	}
	require.NoError(t, db.Create(pending).Error)

	usedAt := time.Now()
	for i, ticket := range []models.Ticket{
		{OrderID: paid.ID, Code: "T-AAA111", Tier: enums.TierGeneral},
		{OrderID: paid.ID, Code: "T-BBB222", Tier: enums.TierGeneral, IsUsed: true, UsedAt: &usedAt},
		{OrderID: paid.ID, Code: "T-CCC333", Tier: enums.TierGeneral},
	} {
		require.NoError(t, db.Create(&ticket).Error, "ticket %d", i)
	}

	summary, err := svc.Summary(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), summary.PaidOrders)
	require.Equal(t, int64(3), summary.TicketsIssued)
	require.Equal(t, int64(1), summary.TicketsUsed)
	require.Equal(t, "9000", summary.GrossRevenue.String())
	require.Equal(t, "4500", summary.DiscountTotal.String())

	require.NotEmpty(t, summary.Tiers)
	require.Equal(t, enums.TierGeneral, summary.Tiers[0].Tier)
	require.Equal(t, 3, summary.Tiers[0].Sold)
}

func seedSession(t *testing.T, db *gorm.DB, mutate func(*models.PerformanceSession)) *models.PerformanceSession {
	t.Helper()
	session := &models.PerformanceSession{
		Title:            "Evening Show",
		Venue:            "Main Hall",
		StartsAt:         time.Now().Add(24 * time.Hour),
		SaleStatus:       enums.SaleStatusOnSale,
		GeneralCapacity:  10,
		GeneralPrice:     4500,
		ReservedCapacity: 5,
		ReservedPrice:    6000,
		Vip1Capacity:     2,
		Vip1Price:        9000,
		Vip2Capacity:     2,
		Vip2Price:        12000,
	}
	if mutate != nil {
		mutate(session)
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:sessions_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.PerformanceSession{},
		&models.Order{},
		&models.Ticket{},
	))
	return db
}
