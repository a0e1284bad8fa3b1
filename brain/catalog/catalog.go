// Package catalog is the read-only product lookup. The runtime catalog is a
// small in-memory seed set; real inventory integration stays outside the core.
package catalog

import (
	"context"
	"errors"
	"sort"

	contractx "github.com/aryanranjan/aria/brain/contract"
)

var ErrProductNotFound = errors.New("product not found")

type Memory struct {
	products map[string]contractx.Product
}

var _ contractx.Catalog = (*Memory)(nil)

// NewMemory returns a catalog seeded with the demo assortment.
func NewMemory() *Memory {
	seed := []contractx.Product{
		{ID: "lp-formal-shirt", Name: "Classic Formal Shirt", Brand: "Louis Philippe", Price: 2499},
		{ID: "vh-slim-blazer", Name: "Slim-Fit Blazer", Brand: "Van Heusen", Price: 5999},
		{ID: "as-casual-tee", Name: "Casual Tee", Brand: "Allen Solly", Price: 1299},
		{ID: "pe-trousers", Name: "Formal Trousers", Brand: "Peter England", Price: 1799},
		{ID: "pant-kurta-set", Name: "Kurta Set", Brand: "Pantaloons", Price: 2999},
	}

	products := make(map[string]contractx.Product, len(seed))
	for _, p := range seed {
		products[p.ID] = p
	}
	return &Memory{products: products}
}

func (m *Memory) Lookup(_ context.Context, productID string) (contractx.Product, error) {
	p, ok := m.products[productID]
	if !ok {
		return contractx.Product{}, ErrProductNotFound
	}
	return p, nil
}

// WithinBudget returns products priced at or under the budget, cheapest first.
func (m *Memory) WithinBudget(budget int) []contractx.Product {
	var out []contractx.Product
	for _, p := range m.products {
		if budget <= 0 || p.Price <= budget {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}
