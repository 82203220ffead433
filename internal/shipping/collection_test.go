package shipping_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/dukerupert/parcel/internal/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_AddRequiresAPIKey(t *testing.T) {
	col := &shipping.Collection{}

	err := col.Add(shipping.NewConsignment("", shipping.CarrierPostNL))

	assert.True(t, errors.Is(err, shipping.ErrMissingAPIKey))
	assert.Equal(t, 0, col.Len())
	assert.True(t, errors.Is(col.Add(nil), shipping.ErrMissingAPIKey))
}

func TestCollection_One(t *testing.T) {
	col := &shipping.Collection{}

	_, err := col.One()
	assert.True(t, errors.Is(err, shipping.ErrEmptyCollection))

	first := dutchConsignment(t)
	require.NoError(t, col.Add(first))
	got, err := col.One()
	require.NoError(t, err)
	assert.Same(t, first, got)

	require.NoError(t, col.Add(dutchConsignment(t)))
	_, err = col.One()
	assert.True(t, errors.Is(err, shipping.ErrMultipleConsignments))
}

func TestCollection_Lookups(t *testing.T) {
	a := dutchConsignment(t)
	a.ReferenceID = "order-1"
	a.APIID = 11
	b := dutchConsignment(t)
	b.ReferenceID = "order-1"
	c := dutchConsignment(t)
	c.ReferenceID = "order-2"
	c.APIID = 13
	c.APIKey = "other-key"

	col, err := shipping.NewCollection(a, b, c)
	require.NoError(t, err)

	assert.Len(t, col.ByReferenceID("order-1"), 2)
	assert.Empty(t, col.ByReferenceID("missing"))
	assert.Same(t, c, col.ByAPIID(13))
	assert.Nil(t, col.ByAPIID(12))
	assert.Nil(t, col.ByAPIID(0))

	ids, key := col.IDs()
	assert.Equal(t, []int{11, 13}, ids)
	assert.Equal(t, "other-key", key)

	assert.Equal(t, []*shipping.Consignment{b}, col.Pending())
	assert.Equal(t, []*shipping.Consignment{a, c}, col.Registered())
}

func TestCollection_GroupByAPIKey(t *testing.T) {
	a := dutchConsignment(t)
	b := dutchConsignment(t)
	b.APIKey = "second"
	c := dutchConsignment(t)

	col, err := shipping.NewCollection(a, b, c)
	require.NoError(t, err)

	groups := col.GroupByAPIKey()

	require.Len(t, groups, 2)
	assert.Equal(t, testAPIKey, groups[0].APIKey)
	assert.Equal(t, []*shipping.Consignment{a, c}, groups[0].Consignments)
	assert.Equal(t, "second", groups[1].APIKey)
	assert.Equal(t, []*shipping.Consignment{b}, groups[1].Consignments)
}

func TestCollection_EnsureReferenceIDs(t *testing.T) {
	keep := dutchConsignment(t)
	keep.ReferenceID = "order-7"
	fill := dutchConsignment(t)
	fillToo := dutchConsignment(t)

	col, err := shipping.NewCollection(keep, fill, fillToo)
	require.NoError(t, err)

	col.EnsureReferenceIDs()

	assert.Equal(t, "order-7", keep.ReferenceID)
	assert.True(t, strings.HasPrefix(fill.ReferenceID, "random_"))
	assert.True(t, strings.HasPrefix(fillToo.ReferenceID, "random_"))
	assert.NotEqual(t, fill.ReferenceID, fillToo.ReferenceID)
}

func TestCollection_ReplaceAndClear(t *testing.T) {
	col, err := shipping.NewCollection(dutchConsignment(t))
	require.NoError(t, err)

	replacement := []*shipping.Consignment{dutchConsignment(t), dutchConsignment(t)}
	col.Replace(replacement)
	assert.Equal(t, 2, col.Len())

	// the collection keeps its own slice
	replacement[0] = nil
	assert.NotNil(t, col.Consignments()[0])

	col.Clear()
	assert.Equal(t, 0, col.Len())
	assert.Empty(t, col.Consignments())
}
