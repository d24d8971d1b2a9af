package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/enums"
	"github.com/stagepass/stagepass-backend/pkg/types"
)

// Order is one purchase attempt. Prices are snapshotted at order time so
// later admin price edits never change an open order's total. Only the
// fulfillment engine moves an order to paid and mints tickets, so "has this
// order been fulfilled" is answerable from Status alone.
type Order struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SessionID uuid.UUID `gorm:"column:session_id;type:uuid;not null;index"`

	GeneralQty  int `gorm:"column:general_qty;not null;default:0"`
	ReservedQty int `gorm:"column:reserved_qty;not null;default:0"`
	Vip1Qty     int `gorm:"column:vip1_qty;not null;default:0"`
	Vip2Qty     int `gorm:"column:vip2_qty;not null;default:0"`

	GeneralUnitPrice  int `gorm:"column:general_unit_price;not null;default:0"`
	ReservedUnitPrice int `gorm:"column:reserved_unit_price;not null;default:0"`
	Vip1UnitPrice     int `gorm:"column:vip1_unit_price;not null;default:0"`
	Vip2UnitPrice     int `gorm:"column:vip2_unit_price;not null;default:0"`

	DiscountedCount int `gorm:"column:discounted_count;not null;default:0"`
	DiscountAmount  int `gorm:"column:discount_amount;not null;default:0"`
	TotalAmount     int `gorm:"column:total_amount;not null;default:0"`

	CustomerName  string `gorm:"column:customer_name;not null"`
	CustomerEmail string `gorm:"column:customer_email;not null"`

	SubmittedCodes    types.CodeList    `gorm:"column:submitted_codes;type:jsonb;serializer:json"`
	ProviderSessionID *string           `gorm:"column:provider_session_id;index"`
	PaymentRef        *string           `gorm:"column:payment_ref"`
	Status            enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`

	PaidAt      *time.Time `gorm:"column:paid_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	RefundedAt  *time.Time `gorm:"column:refunded_at"`

	Session *PerformanceSession `gorm:"foreignKey:SessionID"`
	Tickets []Ticket            `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Qty returns the requested quantity for the tier.
func (o *Order) Qty(tier enums.Tier) int {
	switch tier {
	case enums.TierGeneral:
		return o.GeneralQty
	case enums.TierReserved:
		return o.ReservedQty
	case enums.TierVIP1:
		return o.Vip1Qty
	case enums.TierVIP2:
		return o.Vip2Qty
	}
	return 0
}

// UnitPrice returns the snapshotted unit price for the tier.
func (o *Order) UnitPrice(tier enums.Tier) int {
	switch tier {
	case enums.TierGeneral:
		return o.GeneralUnitPrice
	case enums.TierReserved:
		return o.ReservedUnitPrice
	case enums.TierVIP1:
		return o.Vip1UnitPrice
	case enums.TierVIP2:
		return o.Vip2UnitPrice
	}
	return 0
}

// TotalQty returns the total requested seats across tiers.
func (o *Order) TotalQty() int {
	return o.GeneralQty + o.ReservedQty + o.Vip1Qty + o.Vip2Qty
}
