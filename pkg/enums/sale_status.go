package enums

import "fmt"

// SaleStatus tracks whether a performance session is open for purchase.
type SaleStatus string

const (
	SaleStatusNotOnSale SaleStatus = "not_on_sale"
	SaleStatusOnSale    SaleStatus = "on_sale"
	SaleStatusSoldOut   SaleStatus = "sold_out"
	SaleStatusEnded     SaleStatus = "ended"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusNotOnSale,
	SaleStatusOnSale,
	SaleStatusSoldOut,
	SaleStatusEnded,
}

// String implements fmt.Stringer.
func (s SaleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}
