package address

// ============================================================================
// ADDRESS ERROR CODES
// ============================================================================
// These constants mirror domain error codes to avoid circular imports.

const (
	codeInvalid = "invalid"
)

// AddressError represents an address-specific error with a code and message.
type AddressError struct {
	Code    string
	Message string
}

func (e *AddressError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *AddressError) ErrorCode() string {
	return e.Code
}

// ErrorMessage returns the user-facing message.
func (e *AddressError) ErrorMessage() string {
	return e.Message
}

func newAddressError(code, message string) *AddressError {
	return &AddressError{Code: code, Message: message}
}

var (
	// ErrCountryRequired is returned when a street line is set before the country.
	ErrCountryRequired = newAddressError(codeInvalid, "Country must be set before the street")

	// ErrEmptyStreet is returned when the street line is blank.
	ErrEmptyStreet = newAddressError(codeInvalid, "Street is required")
)
