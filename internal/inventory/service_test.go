package inventory

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
	"github.com/stagepass/stagepass-backend/pkg/logger"
)

func TestReserveWithinCapacity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	session := seedSession(t, db, 5, 2)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(ctx, tx, ReserveInput{
			SessionID: session.ID,
			Lines: []Line{
				{Tier: enums.TierGeneral, Qty: 3},
				{Tier: enums.TierReserved, Qty: 2},
			},
		})
	})
	require.NoError(t, err)

	reloaded := reload(t, db, session.ID)
	require.Equal(t, 3, reloaded.GeneralSold)
	require.Equal(t, 2, reloaded.ReservedSold)
}

func TestReserveSoldOutRollsBackEarlierLines(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	session := seedSession(t, db, 5, 1)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(ctx, tx, ReserveInput{
			SessionID: session.ID,
			Lines: []Line{
				{Tier: enums.TierGeneral, Qty: 2},
				{Tier: enums.TierReserved, Qty: 2},
			},
		})
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeSoldOut, typed.Code())

	// The transaction rolled back, so the general line must be undone too.
	reloaded := reload(t, db, session.ID)
	require.Equal(t, 0, reloaded.GeneralSold)
	require.Equal(t, 0, reloaded.ReservedSold)
}

func TestReserveExactlyToCapacity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	session := seedSession(t, db, 4, 0)

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(ctx, tx, ReserveInput{
			SessionID: session.ID,
			Lines:     []Line{{Tier: enums.TierGeneral, Qty: 4}},
		})
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.Reserve(ctx, tx, ReserveInput{
			SessionID: session.ID,
			Lines:     []Line{{Tier: enums.TierGeneral, Qty: 1}},
		})
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeSoldOut, typed.Code())
}

func TestReserveConcurrentLastSeats(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	const (
		capacity = 3
		buyers   = 10
	)
	session := seedSession(t, db, capacity, 0)

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.Transaction(func(tx *gorm.DB) error {
				return svc.Reserve(ctx, tx, ReserveInput{
					SessionID: session.ID,
					Lines:     []Line{{Tier: enums.TierGeneral, Qty: 1}},
				})
			})
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		require.Equal(t, pkgerrors.CodeSoldOut, typed.Code())
	}
	require.Equal(t, capacity, won)
	require.Equal(t, capacity, reload(t, db, session.ID).GeneralSold)
}

func TestReserveUnknownSession(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	err := svc.Reserve(context.Background(), db, ReserveInput{
		SessionID: uuid.New(),
		Lines:     []Line{{Tier: enums.TierGeneral, Qty: 1}},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestReserveTierNotOffered(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	session := seedSession(t, db, 5, 0)

	err := svc.Reserve(context.Background(), db, ReserveInput{
		SessionID: session.ID,
		Lines:     []Line{{Tier: enums.TierVIP1, Qty: 1}},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestReserveZeroQtyIsNoop(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	session := seedSession(t, db, 5, 0)

	require.NoError(t, svc.Reserve(context.Background(), db, ReserveInput{
		SessionID: session.ID,
		Lines:     []Line{{Tier: enums.TierGeneral, Qty: 0}},
	}))

	require.Equal(t, 0, reload(t, db, session.ID).GeneralSold)
}

func TestReserveNegativeQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	session := seedSession(t, db, 5, 0)

	err := svc.Reserve(context.Background(), db, ReserveInput{
		SessionID: session.ID,
		Lines:     []Line{{Tier: enums.TierGeneral, Qty: -1}},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestReleaseReturnsSeats(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	session := seedSession(t, db, 5, 0)
	require.NoError(t, db.Model(&models.PerformanceSession{}).Where("id = ?", session.ID).
		UpdateColumn("general_sold", 3).Error)

	require.NoError(t, svc.Release(ctx, db, ReleaseInput{
		SessionID: session.ID,
		Lines:     []Line{{Tier: enums.TierGeneral, Qty: 2}},
	}))

	require.Equal(t, 1, reload(t, db, session.ID).GeneralSold)
}

func TestReleaseClampsAtZero(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	session := seedSession(t, db, 5, 0)
	require.NoError(t, db.Model(&models.PerformanceSession{}).Where("id = ?", session.ID).
		UpdateColumn("general_sold", 1).Error)

	require.NoError(t, svc.Release(ctx, db, ReleaseInput{
		SessionID: session.ID,
		Lines:     []Line{{Tier: enums.TierGeneral, Qty: 5}},
	}))

	require.Equal(t, 0, reload(t, db, session.ID).GeneralSold)
}

func seedSession(t *testing.T, db *gorm.DB, generalCap, reservedCap int) *models.PerformanceSession {
	t.Helper()
	session := &models.PerformanceSession{
		Title:            "Evening Show",
		Venue:            "Main Hall",
		SaleStatus:       enums.SaleStatusOnSale,
		GeneralCapacity:  generalCap,
		GeneralPrice:     4500,
		ReservedCapacity: reservedCap,
		ReservedPrice:    6000,
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) *models.PerformanceSession {
	t.Helper()
	var session models.PerformanceSession
	require.NoError(t, db.First(&session, "id = ?", id).Error)
	return &session
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	logg := logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
	svc, err := NewService(NewRepository(db), logg)
	require.NoError(t, err)
	return svc
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.PerformanceSession{}))
	return db
}
