package sessions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
)

// TierAvailability is the public view of one tier on a session.
type TierAvailability struct {
	Tier      enums.Tier `json:"tier"`
	Price     int        `json:"price"`
	Remaining int        `json:"remaining"`
	Available bool       `json:"available"`
}

// SessionView is the public listing shape for one performance session.
type SessionView struct {
	ID         uuid.UUID          `json:"id"`
	Title      string             `json:"title"`
	Venue      string             `json:"venue"`
	StartsAt   time.Time          `json:"starts_at"`
	SaleStatus enums.SaleStatus   `json:"sale_status"`
	Tiers      []TierAvailability `json:"tiers"`
}

// TierStat is the admin per-tier breakdown.
type TierStat struct {
	Tier      enums.Tier `json:"tier"`
	Capacity  int        `json:"capacity"`
	Sold      int        `json:"sold"`
	Remaining int        `json:"remaining"`
	UnitPrice int        `json:"unit_price"`
}

// Summary aggregates sales and admission figures for one session.
type Summary struct {
	SessionID     uuid.UUID        `json:"session_id"`
	Title         string           `json:"title"`
	SaleStatus    enums.SaleStatus `json:"sale_status"`
	Tiers         []TierStat       `json:"tiers"`
	PaidOrders    int64            `json:"paid_orders"`
	TicketsIssued int64            `json:"tickets_issued"`
	TicketsUsed   int64            `json:"tickets_used"`
	GrossRevenue  decimal.Decimal  `json:"gross_revenue"`
	DiscountTotal decimal.Decimal  `json:"discount_total"`
}

func viewFromModel(session *models.PerformanceSession) SessionView {
	view := SessionView{
		ID:         session.ID,
		Title:      session.Title,
		Venue:      session.Venue,
		StartsAt:   session.StartsAt,
		SaleStatus: session.SaleStatus,
	}
	for _, tier := range enums.AllTiers() {
		if !session.TierOffered(tier) {
			continue
		}
		remaining := session.Remaining(tier)
		view.Tiers = append(view.Tiers, TierAvailability{
			Tier:      tier,
			Price:     session.Price(tier),
			Remaining: remaining,
			Available: session.SaleStatus == enums.SaleStatusOnSale && remaining > 0,
		})
	}
	return view
}
