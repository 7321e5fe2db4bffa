package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ProductID is an opaque product identifier. The catalog and older stored carts
// use either JSON numbers or strings for it, both decode to the same value.
type ProductID string

func (p ProductID) String() string {
	return string(p)
}

func (p ProductID) IsZero() bool {
	return p.Normalize() == ""
}

// Normalize strips surrounding whitespace. Ids are normalized once when they
// enter the cart so stored and incoming ids always compare equal.
func (p ProductID) Normalize() ProductID {
	return ProductID(strings.TrimSpace(string(p)))
}

func (p ProductID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

func (p *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("product id: %w", err)
		}
		*p = ProductID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id must be a string or number: %w", err)
	}
	*p = ProductID(n.String())
	return nil
}
