package service

import (
	"testing"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBySellerGroupsPerSeller(t *testing.T) {
	items := []models.PricedItem{
		{ProductID: 2, SellerID: 2, Quantity: 1, UnitPrice: 2500},
		{ProductID: 1, SellerID: 1, Quantity: 2, UnitPrice: 1000},
	}

	groups, err := SplitBySeller(items, 4500)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// ascending seller order regardless of input order
	assert.Equal(t, int64(1), groups[0].SellerID)
	assert.Equal(t, int64(2000), groups[0].Subtotal)
	require.Len(t, groups[0].Items, 1)
	assert.Equal(t, int64(1), groups[0].Items[0].ProductID)

	assert.Equal(t, int64(2), groups[1].SellerID)
	assert.Equal(t, int64(2500), groups[1].Subtotal)

	var sum int64
	for _, g := range groups {
		sum += g.Subtotal
	}
	assert.Equal(t, int64(4500), sum)
}

func TestSplitBySellerMergesLinesOfOneSeller(t *testing.T) {
	items := []models.PricedItem{
		{ProductID: 1, SellerID: 7, Quantity: 1, UnitPrice: 300},
		{ProductID: 2, SellerID: 7, Quantity: 3, UnitPrice: 100},
	}

	groups, err := SplitBySeller(items, 600)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(7), groups[0].SellerID)
	assert.Equal(t, int64(600), groups[0].Subtotal)
	assert.Len(t, groups[0].Items, 2)
}

func TestSplitBySellerSubtotalMismatch(t *testing.T) {
	items := []models.PricedItem{
		{ProductID: 1, SellerID: 1, Quantity: 1, UnitPrice: 1000},
	}

	_, err := SplitBySeller(items, 999)
	assert.ErrorIs(t, err, ErrSubtotalMismatch)
}

func TestSplitBySellerEmpty(t *testing.T) {
	_, err := SplitBySeller(nil, 0)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestApportionTaxSharesSumExactly(t *testing.T) {
	groups := []models.SellerGroup{
		{SellerID: 1, Subtotal: 2000},
		{SellerID: 2, Subtotal: 2500},
	}

	shares := ApportionTax(groups, 360)
	require.Len(t, shares, 2)
	assert.Equal(t, int64(160), shares[0])
	assert.Equal(t, int64(200), shares[1])
}

func TestApportionTaxRemainderGoesToLastGroup(t *testing.T) {
	groups := []models.SellerGroup{
		{SellerID: 1, Subtotal: 100},
		{SellerID: 2, Subtotal: 100},
		{SellerID: 3, Subtotal: 100},
	}

	shares := ApportionTax(groups, 10)
	require.Len(t, shares, 3)
	assert.Equal(t, int64(3), shares[0])
	assert.Equal(t, int64(3), shares[1])
	assert.Equal(t, int64(4), shares[2])
	assert.Equal(t, int64(10), shares[0]+shares[1]+shares[2])
}

func TestApportionTaxZeroTax(t *testing.T) {
	groups := []models.SellerGroup{
		{SellerID: 1, Subtotal: 500},
	}

	shares := ApportionTax(groups, 0)
	require.Len(t, shares, 1)
	assert.Equal(t, int64(0), shares[0])
}
