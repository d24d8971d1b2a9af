package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CodeList stores the literal exchange codes submitted with an order as JSONB.
type CodeList []string

// Value serializes the code list to JSON.
func (c CodeList) Value() (driver.Value, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c)
}

// Scan decodes JSONB into the code list.
func (c *CodeList) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded CodeList
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*c = decoded
	return nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
}
