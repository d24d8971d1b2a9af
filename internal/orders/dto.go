package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
)

// TicketRef is the order-scoped ticket projection.
type TicketRef struct {
	Code        string     `json:"code"`
	Tier        enums.Tier `json:"tier"`
	IsExchanged bool       `json:"is_exchanged"`
	IsUsed      bool       `json:"is_used"`
}

// TierLine reports one tier's quantity and snapshotted unit price.
type TierLine struct {
	Tier      enums.Tier `json:"tier"`
	Qty       int        `json:"qty"`
	UnitPrice int        `json:"unit_price"`
}

// OrderView is the customer- and admin-facing order projection.
type OrderView struct {
	ID                uuid.UUID         `json:"id"`
	SessionID         uuid.UUID         `json:"session_id"`
	SessionTitle      string            `json:"session_title,omitempty"`
	Status            enums.OrderStatus `json:"status"`
	Lines             []TierLine        `json:"lines"`
	DiscountedCount   int               `json:"discounted_count"`
	DiscountAmount    int               `json:"discount_amount"`
	TotalAmount       int               `json:"total_amount"`
	CustomerName      string            `json:"customer_name"`
	CustomerEmail     string            `json:"customer_email"`
	ProviderSessionID *string           `json:"provider_session_id,omitempty"`
	Tickets           []TicketRef       `json:"tickets,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	CancelledAt       *time.Time        `json:"cancelled_at,omitempty"`
	RefundedAt        *time.Time        `json:"refunded_at,omitempty"`
}

func viewFromModel(order *models.Order) OrderView {
	view := OrderView{
		ID:                order.ID,
		SessionID:         order.SessionID,
		Status:            order.Status,
		DiscountedCount:   order.DiscountedCount,
		DiscountAmount:    order.DiscountAmount,
		TotalAmount:       order.TotalAmount,
		CustomerName:      order.CustomerName,
		CustomerEmail:     order.CustomerEmail,
		ProviderSessionID: order.ProviderSessionID,
		CreatedAt:         order.CreatedAt,
		PaidAt:            order.PaidAt,
		CancelledAt:       order.CancelledAt,
		RefundedAt:        order.RefundedAt,
	}
	if order.Session != nil {
		view.SessionTitle = order.Session.Title
	}
	for _, tier := range enums.AllTiers() {
		if qty := order.Qty(tier); qty > 0 {
			view.Lines = append(view.Lines, TierLine{
				Tier:      tier,
				Qty:       qty,
				UnitPrice: order.UnitPrice(tier),
			})
		}
	}
	for _, ticket := range order.Tickets {
		view.Tickets = append(view.Tickets, TicketRef{
			Code:        ticket.Code,
			Tier:        ticket.Tier,
			IsExchanged: ticket.IsExchanged,
			IsUsed:      ticket.IsUsed,
		})
	}
	return view
}
