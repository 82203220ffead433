package shipping

import (
	"strconv"
	"strings"

	"github.com/dukerupert/parcel/internal/address"
	"github.com/shopspring/decimal"
)

// ConsignmentRequest is the JSON shape accepted by the HTTP API and the
// CLI for a new consignment. The street is one line and gets decomposed
// for NL and BE recipients.
type ConsignmentRequest struct {
	Carrier     Carrier `json:"carrier,omitempty"`
	ReferenceID string  `json:"reference_identifier,omitempty"`

	Country    string `json:"cc"`
	Person     string `json:"person"`
	Company    string `json:"company,omitempty"`
	FullStreet string `json:"full_street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`

	PackageType      PackageType     `json:"package_type,omitempty"`
	OnlyRecipient    bool            `json:"only_recipient,omitempty"`
	Signature        bool            `json:"signature,omitempty"`
	Return           bool            `json:"return,omitempty"`
	LargeFormat      bool            `json:"large_format,omitempty"`
	AgeCheck         bool            `json:"age_check,omitempty"`
	Insurance        decimal.Decimal `json:"insurance,omitempty"`
	LabelDescription string          `json:"label_description,omitempty"`
}

// Consignment builds the consignment for apiKey. Carrier defaults to PostNL.
func (r ConsignmentRequest) Consignment(apiKey string) (*Consignment, error) {
	carrier := r.Carrier
	if carrier == 0 {
		carrier = CarrierPostNL
	}

	cons := NewConsignment(apiKey, carrier)
	if r.PackageType != 0 {
		cons.PackageType = r.PackageType
	}
	cons.ReferenceID = r.ReferenceID
	cons.Recipient = address.Address{
		Country:    strings.ToUpper(strings.TrimSpace(r.Country)),
		Person:     r.Person,
		Company:    r.Company,
		PostalCode: r.PostalCode,
		City:       r.City,
		Email:      r.Email,
		Phone:      r.Phone,
	}
	if err := cons.SetFullStreet(r.FullStreet); err != nil {
		return nil, err
	}

	cons.OnlyRecipient = r.OnlyRecipient
	cons.Signature = r.Signature
	cons.Return = r.Return
	cons.LargeFormat = r.LargeFormat
	cons.AgeCheck = r.AgeCheck
	cons.LabelDescription = r.LabelDescription
	if !r.Insurance.IsZero() {
		if err := cons.SetInsurance(r.Insurance); err != nil {
			return nil, err
		}
	}

	return cons, nil
}

// Shipment is the JSON view of a consignment returned by the HTTP API.
type Shipment struct {
	ID          int             `json:"id,omitempty"`
	ReferenceID string          `json:"reference_identifier,omitempty"`
	Carrier     string          `json:"carrier"`
	Barcode     string          `json:"barcode,omitempty"`
	Status      int             `json:"status,omitempty"`
	StatusText  string          `json:"status_text,omitempty"`
	Recipient   address.Address `json:"recipient"`
	FullStreet  string          `json:"full_street"`
	Options     Options         `json:"options"`
	Insurance   decimal.Decimal `json:"insurance"`
}

// NewShipment renders cons for API responses.
func NewShipment(cons *Consignment) Shipment {
	out := Shipment{
		ID:          cons.APIID,
		ReferenceID: cons.ReferenceID,
		Carrier:     cons.Carrier.String(),
		Barcode:     cons.Barcode,
		Status:      int(cons.Status),
		Recipient:   cons.Recipient,
		FullStreet:  cons.Recipient.FullStreet(),
		Options:     cons.Options(),
		Insurance:   cons.Insurance(),
	}
	if cons.Status != 0 {
		out.StatusText = cons.Status.String()
	}
	return out
}

// ParseIDs reads shipment ids separated by ';', ',' or spaces.
func ParseIDs(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ',' || r == ' '
	})
	if len(fields) == 0 {
		return nil, ErrInvalidShipmentID
	}

	ids := make([]int, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil || id < 1 {
			return nil, ErrInvalidShipmentID
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RegisteredCollection returns a collection of already registered
// consignments, one per id, owned by apiKey. Refresh fills in the rest.
func RegisteredCollection(apiKey string, ids []int) (*Collection, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	col := &Collection{}
	for _, id := range ids {
		cons := NewConsignment(apiKey, CarrierPostNL)
		cons.APIID = id
		if err := col.Add(cons); err != nil {
			return nil, err
		}
	}
	return col, nil
}
