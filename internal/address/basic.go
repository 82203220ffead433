package address

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
)

const defaultPhoneRegion = "NL"

var (
	reDutchPostcode   = regexp.MustCompile(`^[1-9][0-9]{3}\s?[A-Za-z]{2}$`)
	reBelgianPostcode = regexp.MustCompile(`^[1-9][0-9]{3}$`)
)

// BasicValidator performs format validation without external API calls.
// Struct rules come from the validate tags on Address; postcode and house
// number rules are applied for NL and BE.
type BasicValidator struct {
	validate *validator.Validate
}

// NewBasicValidator creates a new basic address validator.
func NewBasicValidator() *BasicValidator {
	return &BasicValidator{validate: validator.New()}
}

// Validate performs format checks and returns a normalized copy of the address
// with an upper-cased country, compact postcode and E.164 phone number.
func (v *BasicValidator) Validate(ctx context.Context, addr Address) (*ValidationResult, error) {
	normalized := addr
	normalized.Country = strings.ToUpper(strings.TrimSpace(addr.Country))
	normalized.PostalCode = strings.ToUpper(strings.TrimSpace(addr.PostalCode))
	normalized.City = strings.TrimSpace(addr.City)
	normalized.Person = strings.TrimSpace(addr.Person)

	result := &ValidationResult{NormalizedAddress: &normalized}

	if err := v.validate.StructCtx(ctx, normalized); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("failed to validate address: %w", err)
		}
		for _, fe := range fieldErrs {
			result.Errors = append(result.Errors, ValidationError{
				Field:   fieldName(fe.Field()),
				Message: fieldMessage(fe),
			})
		}
	}

	switch normalized.Country {
	case "NL":
		if normalized.PostalCode != "" && !reDutchPostcode.MatchString(normalized.PostalCode) {
			result.Errors = append(result.Errors, ValidationError{Field: "postal_code", Message: "Dutch postal code must look like 1234 AB"})
		}
		normalized.PostalCode = strings.ReplaceAll(normalized.PostalCode, " ", "")
	case "BE":
		if normalized.PostalCode != "" && !reBelgianPostcode.MatchString(normalized.PostalCode) {
			result.Errors = append(result.Errors, ValidationError{Field: "postal_code", Message: "Belgian postal code must be four digits"})
		}
	}

	if SplitsStreet(normalized.Country) && normalized.Number <= 0 {
		result.Errors = append(result.Errors, ValidationError{Field: "number", Message: "House number is required"})
	}

	if addr.Phone != "" {
		region := normalized.Country
		if region == "" {
			region = defaultPhoneRegion
		}
		phone, ok := NormalizePhone(addr.Phone, region)
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("phone number %q could not be normalized", addr.Phone))
		}
		normalized.Phone = phone
	}

	result.IsValid = len(result.Errors) == 0
	return result, nil
}

// NormalizePhone formats a phone number to E.164 using region for numbers
// without a country prefix. If parsing fails it returns the trimmed input
// and false.
func NormalizePhone(input, region string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed, false
	}

	number, err := phonenumbers.Parse(trimmed, strings.ToUpper(region))
	if err != nil {
		return trimmed, false
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed, false
	}

	return phonenumbers.Format(number, phonenumbers.E164), true
}

var fieldNames = map[string]string{
	"Country":      "cc",
	"Person":       "person",
	"Company":      "company",
	"Street":       "street",
	"Number":       "number",
	"NumberSuffix": "number_suffix",
	"PostalCode":   "postal_code",
	"City":         "city",
	"Email":        "email",
}

func fieldName(structField string) string {
	if name, ok := fieldNames[structField]; ok {
		return name
	}
	return strings.ToLower(structField)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "iso3166_1_alpha2":
		return "must be an ISO 3166-1 alpha-2 country code"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}
