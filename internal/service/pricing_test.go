package service

import (
	"context"
	"testing"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *mockCatalog {
	return &mockCatalog{
		products: map[int64]models.Product{
			1: {ID: 1, SKU: "WIDGET-1", Name: "Widget", SellerID: 1, Price: 1000, Active: true, Stock: 10},
			2: {ID: 2, SKU: "GADGET-1", Name: "Gadget", SellerID: 2, Price: 2500, Active: true, Stock: 5},
			3: {ID: 3, SKU: "RETIRED-1", Name: "Retired", SellerID: 1, Price: 500, Active: false, Stock: 3},
			4: {ID: 4, SKU: "SCARCE-1", Name: "Scarce", SellerID: 2, Price: 750, Active: true, Stock: 1},
		},
	}
}

func mustFlatRate(t *testing.T, rate string) FlatRate {
	t.Helper()
	policy, err := NewFlatRate(rate)
	require.NoError(t, err)
	return policy
}

func TestQuoteRecomputesTotalsFromCatalog(t *testing.T) {
	pa := NewPriceAuthority(testCatalog(), mustFlatRate(t, "0.08"))

	total, priced, err := pa.Quote(context.Background(), []models.CartItemRef{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(4500), total.Subtotal)
	assert.Equal(t, int64(360), total.Tax)
	assert.Equal(t, int64(0), total.ShippingFee)
	assert.Equal(t, int64(4860), total.Total)

	require.Len(t, priced, 2)
	assert.Equal(t, int64(1), priced[0].SellerID)
	assert.Equal(t, int64(1000), priced[0].UnitPrice)
	assert.Equal(t, 2, priced[0].Quantity)
	assert.Equal(t, int64(2), priced[1].SellerID)
	assert.Equal(t, int64(2500), priced[1].UnitPrice)
}

func TestQuoteEmptyCart(t *testing.T) {
	pa := NewPriceAuthority(testCatalog(), mustFlatRate(t, "0.08"))

	_, _, err := pa.Quote(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestQuoteUnknownProduct(t *testing.T) {
	pa := NewPriceAuthority(testCatalog(), mustFlatRate(t, "0.08"))

	_, _, err := pa.Quote(context.Background(), []models.CartItemRef{
		{ProductID: 999, Quantity: 1},
	})

	var itemErr *InvalidItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, int64(999), itemErr.ProductID)
}

func TestQuoteInactiveProduct(t *testing.T) {
	pa := NewPriceAuthority(testCatalog(), mustFlatRate(t, "0.08"))

	_, _, err := pa.Quote(context.Background(), []models.CartItemRef{
		{ProductID: 3, Quantity: 1},
	})

	var itemErr *InvalidItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, int64(3), itemErr.ProductID)
	assert.Contains(t, itemErr.Error(), "no longer purchasable")
}

func TestQuoteInsufficientStock(t *testing.T) {
	pa := NewPriceAuthority(testCatalog(), mustFlatRate(t, "0.08"))

	_, _, err := pa.Quote(context.Background(), []models.CartItemRef{
		{ProductID: 4, Quantity: 2},
	})

	var itemErr *InvalidItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, int64(4), itemErr.ProductID)
	assert.Contains(t, itemErr.Error(), "insufficient stock")
}

func TestQuoteRejectsNonPositiveQuantity(t *testing.T) {
	pa := NewPriceAuthority(testCatalog(), mustFlatRate(t, "0.08"))

	_, _, err := pa.Quote(context.Background(), []models.CartItemRef{
		{ProductID: 1, Quantity: 0},
	})

	var itemErr *InvalidItemError
	require.ErrorAs(t, err, &itemErr)
	assert.Equal(t, int64(1), itemErr.ProductID)
}

func TestFlatRateRoundsHalfUp(t *testing.T) {
	policy := mustFlatRate(t, "0.08")

	assert.Equal(t, int64(360), policy.TaxOn(4500))
	assert.Equal(t, int64(1), policy.TaxOn(7))  // 0.56 rounds up
	assert.Equal(t, int64(0), policy.TaxOn(6))  // 0.48 rounds down
	assert.Equal(t, int64(0), policy.TaxOn(0))
}

func TestNewFlatRateValidation(t *testing.T) {
	_, err := NewFlatRate("not-a-number")
	assert.Error(t, err)

	_, err = NewFlatRate("-0.01")
	assert.Error(t, err)

	_, err = NewFlatRate("1.0")
	assert.Error(t, err)

	_, err = NewFlatRate("0")
	assert.NoError(t, err)
}
