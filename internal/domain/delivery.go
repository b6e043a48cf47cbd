package domain

import (
	"regexp"
	"strings"
)

// DefaultCountry is the country pre-filled in a fresh delivery form.
const DefaultCountry = "Japan"

// DeliveryInfo is the postal address and contact details collected before an
// order is placed.
type DeliveryInfo struct {
	FullName             string `json:"fullName"`
	Email                string `json:"email"`
	Phone                string `json:"phone"`
	PostalCode           string `json:"postalCode"`
	Prefecture           string `json:"prefecture"`
	City                 string `json:"city"`
	AddressLine1         string `json:"addressLine1"`
	AddressLine2         string `json:"addressLine2"`
	Country              string `json:"country"`
	DeliveryInstructions string `json:"deliveryInstructions"`
}

// DefaultDeliveryInfo returns an empty form with the default country.
func DefaultDeliveryInfo() DeliveryInfo {
	return DeliveryInfo{Country: DefaultCountry}
}

// FieldErrors maps a form field name to a message. An empty map means the
// form is valid.
type FieldErrors map[string]string

// OK reports whether there are no errors.
func (e FieldErrors) OK() bool {
	return len(e) == 0
}

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// ValidateDelivery checks every rule of the delivery form and returns all
// failures. Whitespace-only values count as empty.
func ValidateDelivery(form DeliveryInfo) FieldErrors {
	errs := FieldErrors{}

	required := []struct {
		field, value, msg string
	}{
		{"fullName", form.FullName, "Full name is required"},
		{"postalCode", form.PostalCode, "Postal code is required"},
		{"prefecture", form.Prefecture, "Prefecture is required"},
		{"city", form.City, "City/Ward is required"},
		{"addressLine1", form.AddressLine1, "Address is required"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs[r.field] = r.msg
		}
	}

	if email := strings.TrimSpace(form.Email); email != "" && !emailPattern.MatchString(email) {
		errs["email"] = "Invalid email format"
	}
	return errs
}
