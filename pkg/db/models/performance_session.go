package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stagepass/stagepass-backend/pkg/enums"
)

// PerformanceSession is one dated showing of a performance. It owns the
// per-tier capacity/sold counters that the inventory ledger mutates; the
// counters are only ever touched through conditional updates so that
// 0 <= sold <= capacity holds under concurrent purchasers.
type PerformanceSession struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Title      string           `gorm:"column:title;not null"`
	Venue      string           `gorm:"column:venue;not null"`
	StartsAt   time.Time        `gorm:"column:starts_at;not null"`
	SaleStatus enums.SaleStatus `gorm:"column:sale_status;type:text;not null;default:'not_on_sale'"`

	GeneralCapacity  int `gorm:"column:general_capacity;not null;default:0"`
	GeneralSold      int `gorm:"column:general_sold;not null;default:0"`
	GeneralPrice     int `gorm:"column:general_price;not null;default:0"`
	ReservedCapacity int `gorm:"column:reserved_capacity;not null;default:0"`
	ReservedSold     int `gorm:"column:reserved_sold;not null;default:0"`
	ReservedPrice    int `gorm:"column:reserved_price;not null;default:0"`
	Vip1Capacity     int `gorm:"column:vip1_capacity;not null;default:0"`
	Vip1Sold         int `gorm:"column:vip1_sold;not null;default:0"`
	Vip1Price        int `gorm:"column:vip1_price;not null;default:0"`
	Vip2Capacity     int `gorm:"column:vip2_capacity;not null;default:0"`
	Vip2Sold         int `gorm:"column:vip2_sold;not null;default:0"`
	Vip2Price        int `gorm:"column:vip2_price;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (s *PerformanceSession) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Capacity returns the configured capacity for the tier.
func (s *PerformanceSession) Capacity(tier enums.Tier) int {
	switch tier {
	case enums.TierGeneral:
		return s.GeneralCapacity
	case enums.TierReserved:
		return s.ReservedCapacity
	case enums.TierVIP1:
		return s.Vip1Capacity
	case enums.TierVIP2:
		return s.Vip2Capacity
	}
	return 0
}

// Sold returns the sold counter for the tier.
func (s *PerformanceSession) Sold(tier enums.Tier) int {
	switch tier {
	case enums.TierGeneral:
		return s.GeneralSold
	case enums.TierReserved:
		return s.ReservedSold
	case enums.TierVIP1:
		return s.Vip1Sold
	case enums.TierVIP2:
		return s.Vip2Sold
	}
	return 0
}

// Price returns the unit price for the tier in currency minor units.
func (s *PerformanceSession) Price(tier enums.Tier) int {
	switch tier {
	case enums.TierGeneral:
		return s.GeneralPrice
	case enums.TierReserved:
		return s.ReservedPrice
	case enums.TierVIP1:
		return s.Vip1Price
	case enums.TierVIP2:
		return s.Vip2Price
	}
	return 0
}

// Remaining returns capacity minus sold for the tier, floored at zero.
func (s *PerformanceSession) Remaining(tier enums.Tier) int {
	remaining := s.Capacity(tier) - s.Sold(tier)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TierOffered reports whether the tier is for sale on this session.
// A zero capacity means the tier does not exist for this showing.
func (s *PerformanceSession) TierOffered(tier enums.Tier) bool {
	return s.Capacity(tier) > 0
}
