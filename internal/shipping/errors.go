package shipping

import (
	"fmt"
	"net/http"
	"strings"
)

// ============================================================================
// SHIPPING ERROR CODES
// ============================================================================
// These constants mirror domain error codes to avoid circular imports.
// The handler layer maps these to HTTP status codes.

const (
	codeConflict     = "conflict"
	codeInternal     = "internal"
	codeInvalid      = "invalid"
	codeNotFound     = "not_found"
	codeUnauthorized = "unauthorized"
	codeUnavailable  = "unavailable"
	codeRateLimit    = "rate_limit"
)

// ============================================================================
// SHIPPING ERROR TYPE
// ============================================================================

// ShippingError represents a shipping-specific error with a code and message.
type ShippingError struct {
	Code    string
	Message string
}

func (e *ShippingError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *ShippingError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the user-facing message.
func (e *ShippingError) ErrorMessage() string {
	return e.Message
}

func newShippingError(code, message string) *ShippingError {
	return &ShippingError{Code: code, Message: message}
}

// ============================================================================
// SHIPPING DOMAIN ERRORS
// ============================================================================

var (
	// ErrMissingAPIKey is returned when a consignment without API key is added to a collection.
	ErrMissingAPIKey = newShippingError(codeInvalid, "Set the API key on the consignment before adding it")

	// ErrMultipleConsignments is returned by Collection.One when more than one consignment is held.
	ErrMultipleConsignments = newShippingError(codeConflict, "Multiple consignments found")

	// ErrEmptyCollection is returned when an operation needs at least one consignment.
	ErrEmptyCollection = newShippingError(codeInvalid, "The collection holds no consignments")

	// ErrNoConcepts is returned when no consignment has been registered with MyParcel yet.
	ErrNoConcepts = newShippingError(codeInvalid, "No consignment has a MyParcel id")

	// ErrAgeCheckAbroad is returned when an age check is requested outside the Netherlands.
	ErrAgeCheckAbroad = newShippingError(codeInvalid, "The age check is not possible with an EU shipment or world shipment")

	// ErrUnknownCarrier is returned for carrier ids MyParcel does not offer.
	ErrUnknownCarrier = newShippingError(codeInvalid, "Unknown carrier")

	// ErrUnknownPackageType is returned for package types outside 1-4.
	ErrUnknownPackageType = newShippingError(codeInvalid, "Unknown package type")

	// ErrInvalidInsurance is returned when the insured amount is not one of the offered tiers.
	ErrInvalidInsurance = newShippingError(codeInvalid, "Insurance must be 0, 100, 250, 500 or a multiple of 500 up to 5000 euro")

	// ErrInvalidLabelPosition is returned for A4 positions outside 1-4.
	ErrInvalidLabelPosition = newShippingError(codeInvalid, "Label positions must be between 1 and 4")

	// ErrInvalidLabelFormat is returned for paper formats other than A4 and A6.
	ErrInvalidLabelFormat = newShippingError(codeInvalid, "Label format must be A4 or A6")

	// ErrEmptyLabel is returned when there is no PDF to send.
	ErrEmptyLabel = newShippingError(codeNotFound, "No label PDF available")

	// ErrReturnMailRejected is returned when MyParcel does not confirm a return shipment.
	ErrReturnMailRejected = newShippingError(codeUnavailable, "MyParcel did not accept the return label mail")

	// ErrUnreachable is returned when no response came back from MyParcel.
	ErrUnreachable = newShippingError(codeUnavailable, "MyParcel is unreachable")

	// ErrShipmentsNotFound is returned when MyParcel knows none of the requested shipments.
	ErrShipmentsNotFound = newShippingError(codeNotFound, "Shipments not found")

	// ErrInvalidShipmentID is returned for shipment ids that are not positive integers.
	ErrInvalidShipmentID = newShippingError(codeInvalid, "Shipment ids must be positive integers")

	// ErrUnexpectedResponse is returned when a response body cannot be understood.
	ErrUnexpectedResponse = newShippingError(codeUnavailable, "Unable to transport data to or from MyParcel")
)

// ErrUnknownReference creates an error for a returned id whose reference is not in the collection.
func ErrUnknownReference(reference string) error {
	return &ShippingError{
		Code:    codeInternal,
		Message: fmt.Sprintf("MyParcel returned unknown reference identifier %q", reference),
	}
}

// APIErrorDetail is one entry of the MyParcel error list.
type APIErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// APIError is a non-2xx response from the MyParcel API.
type APIError struct {
	StatusCode int
	Message    string
	Errors     []APIErrorDetail
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "myparcel: %d", e.StatusCode)
	if e.Message != "" {
		b.WriteString(" ")
		b.WriteString(e.Message)
	}
	for _, d := range e.Errors {
		fmt.Fprintf(&b, "; %d: %s", d.Code, d.Message)
	}
	return b.String()
}

// ErrorCode maps the HTTP status to a domain error code.
func (e *APIError) ErrorCode() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return codeUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return codeNotFound
	case e.StatusCode == http.StatusConflict:
		return codeConflict
	case e.StatusCode == http.StatusTooManyRequests:
		return codeRateLimit
	case e.StatusCode >= 500:
		return codeUnavailable
	case e.StatusCode >= 400:
		return codeInvalid
	}
	return codeInternal
}

// ErrorMessage returns the first MyParcel message, which is safe to show.
func (e *APIError) ErrorMessage() string {
	if len(e.Errors) > 0 && e.Errors[0].Message != "" {
		return e.Errors[0].Message
	}
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.StatusCode)
}

// Temporary reports whether repeating the request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
