package shipping

import (
	"strings"

	"github.com/dukerupert/parcel/internal/address"
	"github.com/shopspring/decimal"
)

// Carrier identifies a carrier by its MyParcel id.
type Carrier int

const (
	CarrierPostNL Carrier = 1
	CarrierBpost  Carrier = 2
	CarrierDPD    Carrier = 4
)

func (c Carrier) String() string {
	switch c {
	case CarrierPostNL:
		return "postnl"
	case CarrierBpost:
		return "bpost"
	case CarrierDPD:
		return "dpd"
	}
	return "unknown"
}

// Valid reports whether MyParcel offers the carrier.
func (c Carrier) Valid() bool {
	return c.String() != "unknown"
}

// PackageType is the MyParcel package type.
type PackageType int

const (
	PackageTypePackage      PackageType = 1
	PackageTypeMailbox      PackageType = 2
	PackageTypeLetter       PackageType = 3
	PackageTypeDigitalStamp PackageType = 4
)

// Valid reports whether the package type is known.
func (p PackageType) Valid() bool {
	return p >= PackageTypePackage && p <= PackageTypeDigitalStamp
}

// Status is the MyParcel shipment status code.
type Status int

var statusText = map[Status]string{
	1:  "concept",
	2:  "registered",
	3:  "handed to carrier",
	4:  "sorting",
	5:  "distribution",
	6:  "customs",
	7:  "delivered",
	8:  "ready for pickup",
	9:  "package picked up",
	10: "return shipment ready for pickup",
	11: "return shipment package picked up",
	12: "letter",
	13: "inactive",
	14: "inactive - concept",
	15: "inactive - registered",
	16: "inactive - handed to carrier",
	17: "inactive - sorting",
	18: "inactive - distribution",
	19: "inactive - customs",
	30: "inactive - delivered",
	31: "inactive - ready for pickup",
	32: "inactive - package picked up",
	99: "inactive - unknown",
}

func (s Status) String() string {
	if text, ok := statusText[s]; ok {
		return text
	}
	return "unknown"
}

// insuranceTiers are the insured amounts in whole euros MyParcel accepts.
var insuranceTiers = map[int64]bool{0: true, 100: true, 250: true, 500: true}

func init() {
	for eur := int64(1000); eur <= 5000; eur += 500 {
		insuranceTiers[eur] = true
	}
}

// Consignment is one shipment as it is registered with MyParcel.
// A zero APIID means the consignment has not been created as a concept yet.
type Consignment struct {
	APIKey      string
	Carrier     Carrier
	ReferenceID string
	APIID       int

	Recipient address.Address

	PackageType      PackageType
	OnlyRecipient    bool
	Signature        bool
	Return           bool
	LargeFormat      bool
	AgeCheck         bool
	InsuranceCents   int64
	LabelDescription string

	// Set by MyParcel.
	Barcode string
	Status  Status
}

// NewConsignment creates a package consignment for the given API key and carrier.
func NewConsignment(apiKey string, carrier Carrier) *Consignment {
	return &Consignment{
		APIKey:      apiKey,
		Carrier:     carrier,
		PackageType: PackageTypePackage,
	}
}

// SetFullStreet stores the recipient street line. Recipient.Country must be set.
func (c *Consignment) SetFullStreet(raw string) error {
	return c.Recipient.SetFullStreet(raw)
}

// SetInsurance sets the insured amount in euros.
func (c *Consignment) SetInsurance(amount decimal.Decimal) error {
	if !amount.IsInteger() || !insuranceTiers[amount.IntPart()] {
		return ErrInvalidInsurance
	}
	c.InsuranceCents = amount.Mul(decimal.NewFromInt(100)).IntPart()
	return nil
}

// Insurance returns the insured amount in euros.
func (c *Consignment) Insurance() decimal.Decimal {
	return decimal.New(c.InsuranceCents, -2)
}

// Options returns the shipment options as MyParcel applies them: an age
// check implies only-recipient and signature, and only packages carry
// options besides the label description.
func (c *Consignment) Options() Options {
	opts := Options{
		PackageType:      c.packageType(),
		LabelDescription: c.LabelDescription,
	}
	if opts.PackageType != PackageTypePackage {
		return opts
	}

	opts.OnlyRecipient = c.OnlyRecipient || c.AgeCheck
	opts.Signature = c.Signature || c.AgeCheck
	opts.Return = c.Return
	opts.LargeFormat = c.LargeFormat
	opts.AgeCheck = c.AgeCheck
	opts.InsuranceCents = c.InsuranceCents
	return opts
}

// Validate checks the consignment rules that MyParcel would otherwise reject.
func (c *Consignment) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if !c.Carrier.Valid() {
		return ErrUnknownCarrier
	}
	if !c.packageType().Valid() {
		return ErrUnknownPackageType
	}
	if c.AgeCheck && c.packageType() == PackageTypePackage &&
		strings.ToUpper(strings.TrimSpace(c.Recipient.Country)) != "NL" {
		return ErrAgeCheckAbroad
	}
	if c.InsuranceCents%100 != 0 || !insuranceTiers[c.InsuranceCents/100] {
		return ErrInvalidInsurance
	}
	return nil
}

// Registered reports whether MyParcel has assigned an id.
func (c *Consignment) Registered() bool {
	return c.APIID > 0
}

func (c *Consignment) packageType() PackageType {
	if c.PackageType == 0 {
		return PackageTypePackage
	}
	return c.PackageType
}

// Options are the effective shipment options of a consignment.
type Options struct {
	PackageType      PackageType `json:"package_type"`
	OnlyRecipient    bool        `json:"only_recipient"`
	Signature        bool        `json:"signature"`
	Return           bool        `json:"return"`
	LargeFormat      bool        `json:"large_format"`
	AgeCheck         bool        `json:"age_check"`
	InsuranceCents   int64       `json:"insurance_cents,omitempty"`
	LabelDescription string      `json:"label_description,omitempty"`
}
