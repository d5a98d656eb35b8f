package domain

import "strings"

type ShippingInfo struct {
	Address    string `json:"shipping_address"`
	City       string `json:"shipping_city"`
	PostalCode string `json:"shipping_postal_code"`
	Country    string `json:"shipping_country"`
}

// Normalize trims surrounding whitespace from every field.
func (s ShippingInfo) Normalize() ShippingInfo {
	return ShippingInfo{
		Address:    strings.TrimSpace(s.Address),
		City:       strings.TrimSpace(s.City),
		PostalCode: strings.TrimSpace(s.PostalCode),
		Country:    strings.TrimSpace(s.Country),
	}
}

// Validate returns a *ValidationError naming every empty field.
func (s ShippingInfo) Validate() error {
	var missing []string
	if s.Address == "" {
		missing = append(missing, "shipping_address")
	}
	if s.City == "" {
		missing = append(missing, "shipping_city")
	}
	if s.PostalCode == "" {
		missing = append(missing, "shipping_postal_code")
	}
	if s.Country == "" {
		missing = append(missing, "shipping_country")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing, Message: "please fill in all shipping information"}
	}
	return nil
}
