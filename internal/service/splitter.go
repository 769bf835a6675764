package service

import (
	"fmt"
	"sort"

	"checkout-service/internal/models"
)

// SplitBySeller partitions priced cart lines into one group per seller.
// Groups come back in ascending seller order so retries walk them in the
// same sequence. The per-seller subtotals must sum exactly to the
// whole-cart subtotal; a mismatch aborts the checkout outright.
func SplitBySeller(items []models.PricedItem, cartSubtotal int64) ([]models.SellerGroup, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	bySeller := make(map[int64]*models.SellerGroup)
	for _, item := range items {
		group, ok := bySeller[item.SellerID]
		if !ok {
			group = &models.SellerGroup{SellerID: item.SellerID}
			bySeller[item.SellerID] = group
		}
		group.Items = append(group.Items, item)
		group.Subtotal += item.UnitPrice * int64(item.Quantity)
	}

	groups := make([]models.SellerGroup, 0, len(bySeller))
	var sum int64
	for _, group := range bySeller {
		groups = append(groups, *group)
		sum += group.Subtotal
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].SellerID < groups[j].SellerID
	})

	if sum != cartSubtotal {
		return nil, fmt.Errorf("%w: groups=%d cart=%d", ErrSubtotalMismatch, sum, cartSubtotal)
	}

	return groups, nil
}

// ApportionTax splits the whole-checkout tax across seller groups in
// proportion to their subtotals, handing any rounding remainder to the
// last group so the shares always sum to the tax exactly.
func ApportionTax(groups []models.SellerGroup, tax int64) []int64 {
	shares := make([]int64, len(groups))
	if len(groups) == 0 || tax == 0 {
		return shares
	}

	var cartSubtotal int64
	for _, group := range groups {
		cartSubtotal += group.Subtotal
	}
	if cartSubtotal == 0 {
		shares[len(shares)-1] = tax
		return shares
	}

	var assigned int64
	for i, group := range groups {
		if i == len(groups)-1 {
			shares[i] = tax - assigned
			break
		}
		shares[i] = tax * group.Subtotal / cartSubtotal
		assigned += shares[i]
	}
	return shares
}
