package shipping

import (
	"github.com/google/uuid"
)

// referencePrefix marks reference identifiers generated for consignments
// that had none.
const referencePrefix = "random_"

// Collection holds the consignments sent to MyParcel in one go.
// It is not safe for concurrent use.
type Collection struct {
	items []*Consignment
}

// NewCollection creates a collection holding the given consignments.
func NewCollection(consignments ...*Consignment) (*Collection, error) {
	c := &Collection{}
	for _, cons := range consignments {
		if err := c.Add(cons); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add appends a consignment. The consignment must carry an API key.
func (c *Collection) Add(cons *Consignment) error {
	if cons == nil || cons.APIKey == "" {
		return ErrMissingAPIKey
	}
	c.items = append(c.items, cons)
	return nil
}

// Consignments returns the consignments in insertion order.
func (c *Collection) Consignments() []*Consignment {
	out := make([]*Consignment, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of consignments.
func (c *Collection) Len() int {
	return len(c.items)
}

// One returns the only consignment. It fails when the collection is empty
// or holds more than one.
func (c *Collection) One() (*Consignment, error) {
	switch len(c.items) {
	case 0:
		return nil, ErrEmptyCollection
	case 1:
		return c.items[0], nil
	}
	return nil, ErrMultipleConsignments
}

// ByReferenceID returns every consignment with the reference identifier.
// References are not unique, so several may match.
func (c *Collection) ByReferenceID(ref string) []*Consignment {
	var out []*Consignment
	for _, cons := range c.items {
		if cons.ReferenceID == ref {
			out = append(out, cons)
		}
	}
	return out
}

// ByAPIID returns the consignment with the MyParcel id, or nil.
func (c *Collection) ByAPIID(id int) *Consignment {
	if id <= 0 {
		return nil
	}
	for _, cons := range c.items {
		if cons.APIID == id {
			return cons
		}
	}
	return nil
}

// IDs returns the MyParcel ids of the registered consignments and the API
// key of the last of them. Requests for these ids are made with that key.
func (c *Collection) IDs() ([]int, string) {
	var (
		ids    []int
		apiKey string
	)
	for _, cons := range c.items {
		if cons.Registered() {
			ids = append(ids, cons.APIID)
			apiKey = cons.APIKey
		}
	}
	return ids, apiKey
}

// Group is a set of consignments sharing an API key.
type Group struct {
	APIKey       string
	Consignments []*Consignment
}

// GroupByAPIKey groups the given consignments by API key, keeping the
// order in which keys first appear.
func GroupByAPIKey(consignments []*Consignment) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, cons := range consignments {
		i, ok := index[cons.APIKey]
		if !ok {
			i = len(groups)
			index[cons.APIKey] = i
			groups = append(groups, Group{APIKey: cons.APIKey})
		}
		groups[i].Consignments = append(groups[i].Consignments, cons)
	}
	return groups
}

// GroupByAPIKey groups all consignments of the collection by API key.
func (c *Collection) GroupByAPIKey() []Group {
	return GroupByAPIKey(c.items)
}

// Pending returns the consignments not yet registered with MyParcel.
func (c *Collection) Pending() []*Consignment {
	var out []*Consignment
	for _, cons := range c.items {
		if !cons.Registered() {
			out = append(out, cons)
		}
	}
	return out
}

// Registered returns the consignments that have a MyParcel id.
func (c *Collection) Registered() []*Consignment {
	var out []*Consignment
	for _, cons := range c.items {
		if cons.Registered() {
			out = append(out, cons)
		}
	}
	return out
}

// Clear removes all consignments.
func (c *Collection) Clear() {
	c.items = nil
}

// Replace swaps the held consignments for items.
func (c *Collection) Replace(items []*Consignment) {
	c.items = append([]*Consignment(nil), items...)
}

// EnsureReferenceIDs gives every consignment without a reference
// identifier a generated one, so response ids can be matched back.
func (c *Collection) EnsureReferenceIDs() {
	for _, cons := range c.items {
		if cons.ReferenceID == "" {
			cons.ReferenceID = referencePrefix + uuid.NewString()
		}
	}
}
