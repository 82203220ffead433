package shipping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukerupert/parcel/internal/address"
)

// Request content types of the MyParcel API.
const (
	contentTypeShipment       = "application/vnd.shipment+json;charset=utf-8"
	contentTypeReturnShipment = "application/vnd.return_shipment+json; charset=utf-8"
	currencyEUR               = "EUR"
)

// flexInt decodes a JSON number or a numeric string. MyParcel returns
// ids and house numbers in both forms.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("decode number %s: %w", b, err)
	}
	*f = flexInt(n)
	return nil
}

// flexBool is sent as 0/1 and decodes from booleans, numbers or strings.
type flexBool bool

func (f flexBool) MarshalJSON() ([]byte, error) {
	if f {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.Trim(string(bytes.TrimSpace(b)), `"`) {
	case "1", "true":
		*f = true
	case "0", "false", "", "null":
		*f = false
	default:
		return fmt.Errorf("decode flag %s", b)
	}
	return nil
}

type apiRecipient struct {
	Country      string  `json:"cc"`
	Person       string  `json:"person"`
	Company      string  `json:"company,omitempty"`
	Street       string  `json:"street"`
	Number       flexInt `json:"number,omitempty"`
	NumberSuffix string  `json:"number_suffix,omitempty"`
	PostalCode   string  `json:"postal_code"`
	City         string  `json:"city"`
	Email        string  `json:"email,omitempty"`
	Phone        string  `json:"phone,omitempty"`
}

type apiAmount struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type apiOptions struct {
	PackageType      int        `json:"package_type"`
	OnlyRecipient    flexBool   `json:"only_recipient"`
	Signature        flexBool   `json:"signature"`
	Return           flexBool   `json:"return"`
	LargeFormat      flexBool   `json:"large_format"`
	AgeCheck         flexBool   `json:"age_check"`
	Insurance        *apiAmount `json:"insurance,omitempty"`
	LabelDescription string     `json:"label_description,omitempty"`
}

type apiShipment struct {
	ID                  flexInt      `json:"id,omitempty"`
	ReferenceIdentifier string       `json:"reference_identifier,omitempty"`
	Carrier             int          `json:"carrier"`
	Status              int          `json:"status,omitempty"`
	Barcode             string       `json:"barcode,omitempty"`
	Recipient           apiRecipient `json:"recipient"`
	Options             apiOptions   `json:"options"`
}

type shipmentsEnvelope struct {
	Data struct {
		Shipments []apiShipment `json:"shipments"`
	} `json:"data"`
}

type createdID struct {
	ID                  flexInt `json:"id"`
	ReferenceIdentifier string  `json:"reference_identifier"`
}

type idsEnvelope struct {
	Data struct {
		IDs []createdID `json:"ids"`
	} `json:"data"`
}

type labelLinkEnvelope struct {
	Data struct {
		PDFs struct {
			URL string `json:"url"`
		} `json:"pdfs"`
	} `json:"data"`
}

type apiReturnShipment struct {
	Parent  int    `json:"parent"`
	Carrier int    `json:"carrier"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

type returnEnvelope struct {
	Data struct {
		ReturnShipments []apiReturnShipment `json:"return_shipments"`
	} `json:"data"`
}

type errorEnvelope struct {
	Message string `json:"message"`
	Errors  []struct {
		Code    flexInt `json:"code"`
		Message string  `json:"message"`
	} `json:"errors"`
}

// encodeShipments builds the body of a create-concepts request.
func encodeShipments(consignments []*Consignment) ([]byte, error) {
	var env shipmentsEnvelope
	env.Data.Shipments = make([]apiShipment, 0, len(consignments))
	for _, cons := range consignments {
		env.Data.Shipments = append(env.Data.Shipments, toAPIShipment(cons))
	}
	return json.Marshal(env)
}

func toAPIShipment(cons *Consignment) apiShipment {
	r := cons.Recipient
	rec := apiRecipient{
		Country:    strings.ToUpper(strings.TrimSpace(r.Country)),
		Person:     r.Person,
		Company:    r.Company,
		Street:     r.Street,
		PostalCode: r.PostalCode,
		City:       r.City,
		Email:      r.Email,
		Phone:      r.Phone,
	}
	if address.SplitsStreet(r.Country) {
		rec.Number = flexInt(r.Number)
		rec.NumberSuffix = r.NumberSuffix
	} else {
		rec.Street = r.FullStreet()
	}

	opts := cons.Options()
	out := apiShipment{
		ReferenceIdentifier: cons.ReferenceID,
		Carrier:             int(cons.Carrier),
		Recipient:           rec,
		Options: apiOptions{
			PackageType:      int(opts.PackageType),
			OnlyRecipient:    flexBool(opts.OnlyRecipient),
			Signature:        flexBool(opts.Signature),
			Return:           flexBool(opts.Return),
			LargeFormat:      flexBool(opts.LargeFormat),
			AgeCheck:         flexBool(opts.AgeCheck),
			LabelDescription: opts.LabelDescription,
		},
	}
	if opts.InsuranceCents > 0 {
		out.Options.Insurance = &apiAmount{Amount: opts.InsuranceCents, Currency: currencyEUR}
	}
	return out
}

// fromAPIShipment maps a returned shipment back to a consignment owned by apiKey.
func fromAPIShipment(s apiShipment, apiKey string) *Consignment {
	cons := &Consignment{
		APIKey:      apiKey,
		Carrier:     Carrier(s.Carrier),
		ReferenceID: s.ReferenceIdentifier,
		APIID:       int(s.ID),
		Recipient: address.Address{
			Country:      s.Recipient.Country,
			Person:       s.Recipient.Person,
			Company:      s.Recipient.Company,
			Street:       s.Recipient.Street,
			Number:       int(s.Recipient.Number),
			NumberSuffix: s.Recipient.NumberSuffix,
			PostalCode:   s.Recipient.PostalCode,
			City:         s.Recipient.City,
			Email:        s.Recipient.Email,
			Phone:        s.Recipient.Phone,
		},
		PackageType:      PackageType(s.Options.PackageType),
		OnlyRecipient:    bool(s.Options.OnlyRecipient),
		Signature:        bool(s.Options.Signature),
		Return:           bool(s.Options.Return),
		LargeFormat:      bool(s.Options.LargeFormat),
		AgeCheck:         bool(s.Options.AgeCheck),
		LabelDescription: s.Options.LabelDescription,
		Barcode:          s.Barcode,
		Status:           Status(s.Status),
	}
	if s.Options.Insurance != nil {
		cons.InsuranceCents = s.Options.Insurance.Amount
	}
	return cons
}

func decodeShipments(body []byte) ([]apiShipment, error) {
	var env shipmentsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return env.Data.Shipments, nil
}

func decodeIDs(body []byte) ([]createdID, error) {
	var env idsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	return env.Data.IDs, nil
}

func decodeLabelLink(body []byte) (string, error) {
	var env labelLinkEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if env.Data.PDFs.URL == "" {
		return "", ErrUnexpectedResponse
	}
	return env.Data.PDFs.URL, nil
}

// encodeReturnShipment builds the return-label mail request for a registered consignment.
func encodeReturnShipment(cons *Consignment) ([]byte, error) {
	var env returnEnvelope
	env.Data.ReturnShipments = []apiReturnShipment{{
		Parent:  cons.APIID,
		Carrier: int(CarrierPostNL),
		Email:   cons.Recipient.Email,
		Name:    cons.Recipient.Person,
	}}
	return json.Marshal(env)
}

// decodeAPIError turns an error response into an APIError. Bodies that are
// not MyParcel JSON keep a trimmed excerpt as the message.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		apiErr.Message = msg
		return apiErr
	}

	apiErr.Message = env.Message
	for _, e := range env.Errors {
		apiErr.Errors = append(apiErr.Errors, APIErrorDetail{Code: int(e.Code), Message: e.Message})
	}
	return apiErr
}
