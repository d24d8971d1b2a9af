package tickets

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
)

func TestMintTagsExchangedGeneralTickets(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db)

	minted, err := svc.Mint(ctx, db, MintInput{
		OrderID: order.ID,
		Quantities: map[enums.Tier]int{
			enums.TierGeneral:  3,
			enums.TierReserved: 1,
		},
		DiscountedCount: 2,
	})
	require.NoError(t, err)
	require.Len(t, minted, 4)

	exchanged := 0
	for _, ticket := range minted {
		if ticket.IsExchanged {
			exchanged++
			require.Equal(t, enums.TierGeneral, ticket.Tier)
		}
		require.NotEmpty(t, ticket.Code)
	}
	require.Equal(t, 2, exchanged)
}

func TestMintUniqueCodes(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	order := seedOrder(t, db)
	minted, err := svc.Mint(context.Background(), db, MintInput{
		OrderID:    order.ID,
		Quantities: map[enums.Tier]int{enums.TierGeneral: 50},
	})
	require.NoError(t, err)

	seen := make(map[string]struct{}, len(minted))
	for _, ticket := range minted {
		_, dup := seen[ticket.Code]
		require.False(t, dup, "duplicate ticket code %s", ticket.Code)
		seen[ticket.Code] = struct{}{}
	}
}

func TestMintEmptyOrderRejected(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	order := seedOrder(t, db)
	_, err := svc.Mint(context.Background(), db, MintInput{OrderID: order.ID})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestVerifyDoesNotMutate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db)
	ticket := seedTicket(t, db, order.ID, "t-verify1234")

	for i := 0; i < 3; i++ {
		view, err := svc.Verify(ctx, "  T-VERIFY1234 ")
		require.NoError(t, err)
		require.False(t, view.IsUsed)
		require.Equal(t, "Aiko Tanaka", view.CustomerName)
	}

	var reloaded models.Ticket
	require.NoError(t, db.First(&reloaded, "id = ?", ticket.ID).Error)
	require.False(t, reloaded.IsUsed)
}

func TestVerifyUnknownCode(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Verify(context.Background(), "t-nosuchcode")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestAdmitFlipsOnce(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db)
	seedTicket(t, db, order.ID, "t-admitonce1")

	view, err := svc.Admit(ctx, "t-admitonce1")
	require.NoError(t, err)
	require.True(t, view.IsUsed)
	require.NotNil(t, view.UsedAt)

	_, err = svc.Admit(ctx, "t-admitonce1")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeAlreadyUsed, typed.Code())
}

func TestAdmitConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	order := seedOrder(t, db)
	seedTicket(t, db, order.ID, "t-contested1")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Admit(ctx, "t-contested1")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		typed := pkgerrors.As(err)
		require.NotNil(t, typed, "unexpected error: %v", err)
		require.Equal(t, pkgerrors.CodeAlreadyUsed, typed.Code())
	}
	require.Equal(t, 1, winners)
}

func TestQRImage(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	order := seedOrder(t, db)
	seedTicket(t, db, order.ID, "t-qrimage123")

	png, err := svc.QRImage(context.Background(), "t-qrimage123", 0)
	require.NoError(t, err)
	require.NotEmpty(t, png)
	// PNG magic bytes.
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])

	_, err = svc.QRImage(context.Background(), "t-missing999", 0)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func seedOrder(t *testing.T, db *gorm.DB) *models.Order {
	t.Helper()
	session := &models.PerformanceSession{
		Title:           "Evening Show",
		Venue:           "Main Hall",
		SaleStatus:      enums.SaleStatusOnSale,
		GeneralCapacity: 100,
		GeneralPrice:    4500,
	}
	require.NoError(t, db.Create(session).Error)
	order := &models.Order{
		SessionID:     session.ID,
		GeneralQty:    3,
		CustomerName:  "Aiko Tanaka",
		CustomerEmail: "aiko@example.com",
		Status:        enums.OrderStatusPaid,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func seedTicket(t *testing.T, db *gorm.DB, orderID uuid.UUID, code string) *models.Ticket {
	t.Helper()
	ticket := &models.Ticket{OrderID: orderID, Code: code, Tier: enums.TierGeneral}
	require.NoError(t, db.Create(ticket).Error)
	return ticket
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:tickets_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.PerformanceSession{},
		&models.Order{},
		&models.Ticket{},
	))
	return db
}
