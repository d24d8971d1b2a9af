package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/enums"
)

// Ticket is one admit-one credential. is_used flips false->true exactly
// once, through a conditional update guarded on is_used = false.
type Ticket struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	Code        string     `gorm:"column:code;not null;uniqueIndex"`
	Tier        enums.Tier `gorm:"column:tier;type:text;not null"`
	IsExchanged bool       `gorm:"column:is_exchanged;not null;default:false"`
	IsUsed      bool       `gorm:"column:is_used;not null;default:false"`
	UsedAt      *time.Time `gorm:"column:used_at"`

	Order *Order `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (t *Ticket) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
