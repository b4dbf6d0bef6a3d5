package money

import (
	"math"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/catalog"
)

// Round rounds to 2 decimal places, half up. Every displayed or aggregated
// monetary value goes through here; callers must not truncate or use
// banker's rounding.
func Round(x float64) float64 {
	return math.Round(x*100) / 100
}

// SplitTax returns (included, excluded) tax amounts for a sale amount.
// Exactly one of the pair is non-zero per tax type: inclusive prices have the
// tax extracted from the amount, exclusive prices have it added on top.
func SplitTax(saleAmount, taxPercentage float64, priceIncludesTax bool) (included, excluded float64) {
	if priceIncludesTax {
		return Round(saleAmount * taxPercentage / (100 + taxPercentage)), 0
	}
	return 0, Round(saleAmount * taxPercentage / 100)
}

// TaxEntry is the per-tax breakdown of one sale line.
type TaxEntry struct {
	ID             string  `json:"id,omitempty"`
	Name           string  `json:"name"`
	Percentage     float64 `json:"percentage"`
	SaleAmount     float64 `json:"saleAmount"`
	AmountIncluded float64 `json:"amountIncluded"`
	AmountExcluded float64 `json:"amountExcluded"`
	Amount         float64 `json:"amount"`
}

// Line is one sale line of the KDS payload.
type Line struct {
	ShortName         string     `json:"shortName"`
	SKUCode           string     `json:"skuCode"`
	Quantity          int        `json:"quantity"`
	UnitPrice         float64    `json:"unitPrice"`
	ItemAmount        float64    `json:"itemAmount"`
	ItemNature        string     `json:"itemNature"`
	ItemTotalAmount   float64    `json:"itemTotalAmount"`
	TaxAmountIncluded float64    `json:"taxAmountIncluded,omitempty"`
	TaxAmountExcluded float64    `json:"taxAmountExcluded,omitempty"`
	Taxes             []TaxEntry `json:"taxes,omitempty"`
}

// BuildLine computes a sale line for qty units of item, resolving each of the
// item's tax type ids in taxIndex. Tax ids missing from the index are skipped.
// Returns the line plus its aggregate included and excluded tax amounts.
func BuildLine(item catalog.Item, qty int, taxIndex map[string]catalog.TaxType) (Line, float64, float64) {
	itemAmount := item.Price * float64(qty)

	var taxes []TaxEntry
	var totalIncluded, totalExcluded float64

	for _, taxID := range item.TaxTypeIDs {
		meta, ok := taxIndex[taxID]
		if !ok {
			continue
		}

		included, excluded := SplitTax(itemAmount, meta.Percentage, item.PriceIncludesTax)
		totalIncluded += included
		totalExcluded += excluded

		taxes = append(taxes, TaxEntry{
			ID:             taxID,
			Name:           meta.Name,
			Percentage:     meta.Percentage,
			SaleAmount:     Round(itemAmount),
			AmountIncluded: included,
			AmountExcluded: excluded,
			Amount:         Round(included + excluded),
		})
	}

	itemTotal := Round(itemAmount)
	line := Line{
		ShortName:       item.Name,
		SKUCode:         item.SKUCode,
		Quantity:        qty,
		UnitPrice:       Round(item.Price),
		ItemAmount:      itemTotal,
		ItemNature:      "Service",
		ItemTotalAmount: itemTotal,
		Taxes:           taxes,
	}
	if totalIncluded != 0 {
		line.TaxAmountIncluded = Round(totalIncluded)
	}
	if totalExcluded != 0 {
		line.TaxAmountExcluded = Round(totalExcluded)
	}

	return line, totalIncluded, totalExcluded
}

// TaxSummary is one aggregate row of the payload's tax section.
type TaxSummary struct {
	Name              string  `json:"name"`
	Percentage        float64 `json:"percentage"`
	SaleAmount        float64 `json:"saleAmount"`
	ItemTaxIncluded   float64 `json:"itemTaxIncluded"`
	ItemTaxExcluded   float64 `json:"itemTaxExcluded"`
	ChargeTaxIncluded float64 `json:"chargeTaxIncluded"`
	ChargeTaxExcluded float64 `json:"chargeTaxExcluded"`
	AmountIncluded    float64 `json:"amountIncluded"`
	AmountExcluded    float64 `json:"amountExcluded"`
	Amount            float64 `json:"amount"`
}

// SummarizeTaxes groups the tax entries of all lines by (name, percentage)
// and sums their amounts. Entry order is unspecified.
func SummarizeTaxes(lines []Line) []TaxSummary {
	type key struct {
		name string
		pct  float64
	}

	agg := make(map[key]*TaxSummary)
	order := make([]key, 0)

	for _, line := range lines {
		for _, t := range line.Taxes {
			k := key{name: t.Name, pct: t.Percentage}
			entry, ok := agg[k]
			if !ok {
				entry = &TaxSummary{Name: t.Name, Percentage: t.Percentage}
				agg[k] = entry
				order = append(order, k)
			}
			entry.SaleAmount += t.SaleAmount
			entry.ItemTaxIncluded += t.AmountIncluded
			entry.ItemTaxExcluded += t.AmountExcluded
			entry.AmountIncluded += t.AmountIncluded
			entry.AmountExcluded += t.AmountExcluded
			entry.Amount += t.Amount
		}
	}

	out := make([]TaxSummary, 0, len(order))
	for _, k := range order {
		entry := agg[k]
		entry.SaleAmount = Round(entry.SaleAmount)
		entry.ItemTaxIncluded = Round(entry.ItemTaxIncluded)
		entry.ItemTaxExcluded = Round(entry.ItemTaxExcluded)
		entry.ChargeTaxIncluded = Round(entry.ChargeTaxIncluded)
		entry.ChargeTaxExcluded = Round(entry.ChargeTaxExcluded)
		entry.AmountIncluded = Round(entry.AmountIncluded)
		entry.AmountExcluded = Round(entry.AmountExcluded)
		entry.Amount = Round(entry.Amount)
		out = append(out, *entry)
	}
	return out
}
