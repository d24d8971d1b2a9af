package pricing

import (
	"fmt"
	"strings"

	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/enums"
	pkgerrors "github.com/stagepass/stagepass-backend/pkg/errors"
)

// Quantities is the requested seat count per tier.
type Quantities struct {
	General  int
	Reserved int
	Vip1     int
	Vip2     int
}

// Qty returns the requested quantity for the tier.
func (q Quantities) Qty(tier enums.Tier) int {
	switch tier {
	case enums.TierGeneral:
		return q.General
	case enums.TierReserved:
		return q.Reserved
	case enums.TierVIP1:
		return q.Vip1
	case enums.TierVIP2:
		return q.Vip2
	}
	return 0
}

// Total returns the summed seat count across tiers.
func (q Quantities) Total() int {
	return q.General + q.Reserved + q.Vip1 + q.Vip2
}

// Quote is the calculator's output. Unit prices are snapshotted from the
// session at computation time.
type Quote struct {
	UnitPrices      map[enums.Tier]int
	ChargeableQty   map[enums.Tier]int
	DiscountedCount int
	DiscountAmount  int
	TotalAmount     int
	Codes           []string
}

// NormalizeCode lower-cases and trims a raw exchange code.
func NormalizeCode(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeCodes normalizes every submitted code and rejects duplicates.
// Collapsing duplicates silently would quote a smaller discount than the
// buyer expects, so a repeated code fails the whole submission instead.
func NormalizeCodes(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	normalized := make([]string, 0, len(raw))
	for _, code := range raw {
		norm := NormalizeCode(code)
		if norm == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "empty exchange code submitted")
		}
		if _, dup := seen[norm]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("exchange code %q submitted more than once", norm))
		}
		seen[norm] = struct{}{}
		normalized = append(normalized, norm)
	}
	return normalized, nil
}

// Compute prices an order. Pure function: the caller has already confirmed
// every code in validCodes exists and is unused. Each code forgives one
// general-admission seat, capped at the requested general quantity.
func Compute(session *models.PerformanceSession, quantities Quantities, validCodes []string) (*Quote, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session required")
	}
	for _, tier := range enums.AllTiers() {
		qty := quantities.Qty(tier)
		if qty < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("negative quantity for tier %s", tier))
		}
		if qty > 0 && !session.TierOffered(tier) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("tier %s not offered for this session", tier))
		}
	}
	if quantities.Total() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one seat must be requested")
	}

	codes, err := NormalizeCodes(validCodes)
	if err != nil {
		return nil, err
	}

	discountedCount := len(codes)
	if discountedCount > quantities.General {
		discountedCount = quantities.General
	}

	quote := &Quote{
		UnitPrices:      make(map[enums.Tier]int, 4),
		ChargeableQty:   make(map[enums.Tier]int, 4),
		DiscountedCount: discountedCount,
		Codes:           codes,
	}

	for _, tier := range enums.AllTiers() {
		qty := quantities.Qty(tier)
		price := session.Price(tier)
		quote.UnitPrices[tier] = price

		chargeable := qty
		if tier == enums.TierGeneral {
			chargeable = qty - discountedCount
		}
		quote.ChargeableQty[tier] = chargeable
		quote.TotalAmount += chargeable * price
	}
	quote.DiscountAmount = discountedCount * session.Price(enums.TierGeneral)

	return quote, nil
}
