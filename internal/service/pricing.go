package service

import (
	"context"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TaxPolicy computes tax on a subtotal in minor units. The shipped policy
// is a flat rate; a per-jurisdiction table satisfies the same interface.
type TaxPolicy interface {
	TaxOn(subtotal int64) int64
}

// FlatRate applies one configured rate to the whole subtotal.
type FlatRate struct {
	rate decimal.Decimal
}

// NewFlatRate parses a decimal rate string such as "0.08".
func NewFlatRate(rate string) (FlatRate, error) {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return FlatRate{}, fmt.Errorf("invalid tax rate %q: %w", rate, err)
	}
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return FlatRate{}, fmt.Errorf("tax rate %q out of range [0, 1)", rate)
	}
	return FlatRate{rate: d}, nil
}

// TaxOn rounds half-up to the minor unit.
func (f FlatRate) TaxOn(subtotal int64) int64 {
	return decimal.NewFromInt(subtotal).Mul(f.rate).Round(0).IntPart()
}

// PriceAuthority is the single source of truth for what a cart costs. It
// reads product rows fresh on every call; nothing a client believes about
// prices survives this step.
type PriceAuthority struct {
	catalog Catalog
	tax     TaxPolicy
	logger  *zap.Logger
}

// NewPriceAuthority creates a new price authority
func NewPriceAuthority(catalog Catalog, tax TaxPolicy) *PriceAuthority {
	return &PriceAuthority{
		catalog: catalog,
		tax:     tax,
		logger:  util.GetLogger(),
	}
}

// Quote resolves cart lines against the current catalog and returns the
// validated total together with the priced lines. It is a pure read: no
// caching, no writes, re-invoked on every checkout attempt because prices
// may change between cart population and purchase.
func (pa *PriceAuthority) Quote(ctx context.Context, items []models.CartItemRef) (models.ValidatedTotal, []models.PricedItem, error) {
	ctx, span := util.StartSpan(ctx, "PriceAuthority.Quote")
	defer span.End()

	if len(items) == 0 {
		return models.ValidatedTotal{}, nil, ErrEmptyCart
	}

	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return models.ValidatedTotal{}, nil, &InvalidItemError{
				ProductID: item.ProductID,
				Reason:    "quantity must be at least 1",
			}
		}
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := pa.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return models.ValidatedTotal{}, nil, fmt.Errorf("failed to load products: %w", err)
	}

	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	priced := make([]models.PricedItem, 0, len(items))
	var subtotal int64
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			return models.ValidatedTotal{}, nil, &InvalidItemError{
				ProductID: item.ProductID,
				Reason:    "product does not exist",
			}
		}
		if !product.Active {
			return models.ValidatedTotal{}, nil, &InvalidItemError{
				ProductID: item.ProductID,
				Reason:    "product is no longer purchasable",
			}
		}
		if product.Stock < item.Quantity {
			return models.ValidatedTotal{}, nil, &InvalidItemError{
				ProductID: item.ProductID,
				Reason:    fmt.Sprintf("insufficient stock: available=%d, requested=%d", product.Stock, item.Quantity),
			}
		}

		priced = append(priced, models.PricedItem{
			ProductID: item.ProductID,
			SellerID:  product.SellerID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
		subtotal += product.Price * int64(item.Quantity)
	}

	tax := pa.tax.TaxOn(subtotal)
	total := models.ValidatedTotal{
		Subtotal:    subtotal,
		Tax:         tax,
		ShippingFee: 0,
		Total:       subtotal + tax,
	}

	util.QuotesTotal.Inc()
	pa.logger.Debug("Cart priced",
		zap.Int("lines", len(items)),
		zap.Int64("subtotal", total.Subtotal),
		zap.Int64("tax", total.Tax),
		zap.Int64("total", total.Total))

	return total, priced, nil
}
