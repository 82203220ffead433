package address

import (
	"context"
	"strings"
)

// Validator defines the interface for recipient address validation.
// The BasicValidator checks format rules offline; MockValidator is for tests.
type Validator interface {
	// Validate checks if an address can be put on a shipping label.
	// Even if IsValid is false, NormalizedAddress may contain corrections.
	Validate(ctx context.Context, addr Address) (*ValidationResult, error)
}

// Address is the recipient of a consignment as the carrier expects it.
// For NL and BE the street line is kept split into street, number and suffix.
type Address struct {
	Country      string `json:"cc" validate:"required,iso3166_1_alpha2"`
	Person       string `json:"person" validate:"required,max=50"`
	Company      string `json:"company,omitempty" validate:"max=50"`
	Street       string `json:"street" validate:"required"`
	Number       int    `json:"number,omitempty" validate:"gte=0"`
	NumberSuffix string `json:"number_suffix,omitempty" validate:"max=6"`
	PostalCode   string `json:"postal_code" validate:"required"`
	City         string `json:"city" validate:"required"`
	Email        string `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string `json:"phone,omitempty"`
}

// SetFullStreet stores a combined street line, decomposing it when the
// recipient country requires separate fields. The country must be set first.
func (a *Address) SetFullStreet(raw string) error {
	if strings.TrimSpace(a.Country) == "" {
		return ErrCountryRequired
	}
	if strings.TrimSpace(raw) == "" {
		return ErrEmptyStreet
	}

	parts := Split(raw, a.Country)
	a.Street = parts.Street
	a.Number = parts.Number
	a.NumberSuffix = parts.NumberSuffix
	return nil
}

// FullStreet returns the display form of the street line.
func (a Address) FullStreet() string {
	if !SplitsStreet(a.Country) {
		return a.Street
	}
	return JoinStreet(a.Street, a.Number, a.NumberSuffix)
}

// ValidationResult contains the outcome of address validation.
type ValidationResult struct {
	IsValid           bool
	NormalizedAddress *Address
	Errors            []ValidationError
	Warnings          []string
}

// ValidationError represents a specific validation error.
type ValidationError struct {
	Field   string
	Message string
}
