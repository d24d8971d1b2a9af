package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExchangeCode is a single-use voucher redeemable for one general-admission
// ticket. Redemption is write-once: once is_used flips true the
// (used_at, redeeming_order_id) pair never changes.
type ExchangeCode struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Code             string     `gorm:"column:code;not null;uniqueIndex"`
	PerformerID      *uuid.UUID `gorm:"column:performer_id;type:uuid"`
	SessionID        *uuid.UUID `gorm:"column:session_id;type:uuid"`
	IsUsed           bool       `gorm:"column:is_used;not null;default:false"`
	UsedAt           *time.Time `gorm:"column:used_at"`
	RedeemingOrderID *uuid.UUID `gorm:"column:redeeming_order_id;type:uuid"`

	Performer *Performer          `gorm:"foreignKey:PerformerID"`
	Session   *PerformanceSession `gorm:"foreignKey:SessionID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (c *ExchangeCode) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
