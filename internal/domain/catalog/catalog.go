package catalog

import (
	"context"
	"errors"
)

var ErrUnavailable = errors.New("catalog unavailable")

// TaxType is a named tax rate attached to catalog items.
type TaxType struct {
	ID         string  `json:"taxTypeId"`
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// Item is a sellable catalog entry for one sales channel.
type Item struct {
	SKUCode          string   `json:"skuCode"`
	Name             string   `json:"itemName"`
	Price            float64  `json:"price"`
	TaxTypeIDs       []string `json:"taxTypeIds"`
	PriceIncludesTax bool     `json:"isPriceIncludesTax"`
	Active           bool     `json:"active"`
}

// Catalog is a read-only snapshot of one channel's menu.
type Catalog struct {
	Items    []Item    `json:"items"`
	TaxTypes []TaxType `json:"taxTypes"`
}

// FindItem returns the active item matching sku, or nil.
func (c Catalog) FindItem(sku string) *Item {
	for i := range c.Items {
		if !c.Items[i].Active {
			continue
		}
		if c.Items[i].SKUCode == sku {
			return &c.Items[i]
		}
	}
	return nil
}

// ItemIndex maps sku code to item, regardless of active flag.
func (c Catalog) ItemIndex() map[string]Item {
	index := make(map[string]Item, len(c.Items))
	for _, item := range c.Items {
		index[item.SKUCode] = item
	}
	return index
}

// TaxIndex maps tax type id to its definition.
func (c Catalog) TaxIndex() map[string]TaxType {
	index := make(map[string]TaxType, len(c.TaxTypes))
	for _, t := range c.TaxTypes {
		index[t.ID] = t
	}
	return index
}

// Provider fetches the current snapshot for a sales channel.
type Provider interface {
	GetCatalog(ctx context.Context, channel string) (Catalog, error)
}
