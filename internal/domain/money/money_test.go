package money

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/catalog"
)

func TestRound_HalfUp(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"rounds half up", 7.625, 7.63},
		{"rounds down below half", 7.624, 7.62},
		{"inclusive 18 percent of 50", 50 * 18.0 / 118.0, 7.63},
		{"whole number unchanged", 250, 250},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Round(tt.in), 1e-9)
		})
	}
}

func TestRound_Idempotent(t *testing.T) {
	inputs := []float64{0, 0.005, 1.994999, 7.627118, 99.999, 123.456}
	for _, x := range inputs {
		once := Round(x)
		assert.InDelta(t, once, Round(once), 1e-9)
	}
}

func TestSplitTax_ExactlyOneSideNonZero(t *testing.T) {
	included, excluded := SplitTax(50, 18, true)
	assert.InDelta(t, 7.63, included, 1e-9)
	assert.Zero(t, excluded)

	included, excluded = SplitTax(200, 5, false)
	assert.Zero(t, included)
	assert.InDelta(t, 10.0, excluded, 1e-9)
}

func TestSplitTax_ZeroPercentage(t *testing.T) {
	included, excluded := SplitTax(100, 0, true)
	assert.Zero(t, included)
	assert.Zero(t, excluded)
}

func TestBuildLine_ExclusiveTax(t *testing.T) {
	item := catalog.Item{
		SKUCode:    "DOSA-01",
		Name:       "Plain Dose",
		Price:      100,
		TaxTypeIDs: []string{"gst5"},
		Active:     true,
	}
	taxIndex := map[string]catalog.TaxType{
		"gst5": {ID: "gst5", Name: "GST", Percentage: 5},
	}

	line, included, excluded := BuildLine(item, 2, taxIndex)

	assert.Equal(t, 2, line.Quantity)
	assert.InDelta(t, 200.0, line.ItemTotalAmount, 1e-9)
	assert.Zero(t, included)
	assert.InDelta(t, 10.0, excluded, 1e-9)
	assert.InDelta(t, 10.0, line.TaxAmountExcluded, 1e-9)
	assert.Zero(t, line.TaxAmountIncluded)
	assert.Len(t, line.Taxes, 1)
	assert.InDelta(t, 10.0, line.Taxes[0].Amount, 1e-9)
}

func TestBuildLine_UnknownTaxIDSkipped(t *testing.T) {
	item := catalog.Item{
		SKUCode:    "IDLI-01",
		Name:       "Idli",
		Price:      60,
		TaxTypeIDs: []string{"gst5", "ghost"},
		Active:     true,
	}
	taxIndex := map[string]catalog.TaxType{
		"gst5": {ID: "gst5", Name: "GST", Percentage: 5},
	}

	line, _, _ := BuildLine(item, 1, taxIndex)

	assert.Len(t, line.Taxes, 1)
	assert.Equal(t, "gst5", line.Taxes[0].ID)
}

func TestBuildLine_ZeroRateStillListed(t *testing.T) {
	item := catalog.Item{
		SKUCode:    "WATER-01",
		Name:       "Bottled Water",
		Price:      20,
		TaxTypeIDs: []string{"exempt"},
		Active:     true,
	}
	taxIndex := map[string]catalog.TaxType{
		"exempt": {ID: "exempt", Name: "Exempt", Percentage: 0},
	}

	line, included, excluded := BuildLine(item, 1, taxIndex)

	// A zero-rate tax still produces a breakdown entry; the attached type
	// must appear even when both amounts are zero.
	assert.Len(t, line.Taxes, 1)
	assert.Zero(t, included)
	assert.Zero(t, excluded)
	assert.Zero(t, line.Taxes[0].Amount)
}

func TestSummarizeTaxes_GroupsByNameAndRate(t *testing.T) {
	taxIndex := map[string]catalog.TaxType{
		"gst5":  {ID: "gst5", Name: "GST", Percentage: 5},
		"gst18": {ID: "gst18", Name: "GST", Percentage: 18},
	}

	lineA, _, _ := BuildLine(catalog.Item{
		SKUCode: "A", Name: "A", Price: 100, TaxTypeIDs: []string{"gst5"}, Active: true,
	}, 2, taxIndex)
	lineB, _, _ := BuildLine(catalog.Item{
		SKUCode: "B", Name: "B", Price: 50, TaxTypeIDs: []string{"gst18"},
		PriceIncludesTax: true, Active: true,
	}, 1, taxIndex)
	lineC, _, _ := BuildLine(catalog.Item{
		SKUCode: "C", Name: "C", Price: 40, TaxTypeIDs: []string{"gst5"}, Active: true,
	}, 1, taxIndex)

	summary := SummarizeTaxes([]Line{lineA, lineB, lineC})

	assert.Len(t, summary, 2)

	byRate := make(map[float64]TaxSummary, len(summary))
	for _, s := range summary {
		byRate[s.Percentage] = s
	}

	gst5 := byRate[5.0]
	assert.InDelta(t, 240.0, gst5.SaleAmount, 1e-9)
	assert.InDelta(t, 12.0, gst5.AmountExcluded, 1e-9)
	assert.Zero(t, gst5.AmountIncluded)

	gst18 := byRate[18.0]
	assert.InDelta(t, 50.0, gst18.SaleAmount, 1e-9)
	assert.InDelta(t, 7.63, gst18.AmountIncluded, 1e-9)
	assert.Zero(t, gst18.AmountExcluded)
}
