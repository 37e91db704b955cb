// Package ledger implements the sale computation engine: per-line profit
// math, bundle price distribution, and the read-side grouped ordering used
// to keep bundle rows contiguous in sorted views.
package ledger

import (
	"github.com/google/uuid"

	"github.com/tabletally/bookkeeper-backend/pkg/money"
)

// LineInput is the entered portion of a sale line.
type LineInput struct {
	Units     int
	PriceUnit string
	CostUnit  string
	IsGift    bool
}

// LineTotals is the financial summary derived from one sale line. All
// values are two-decimal money strings; PriceUnit reflects gift forcing.
type LineTotals struct {
	PriceUnit       string
	CostUnit        string
	Revenue         string
	COGS            string
	GrossProfit     string
	GrossMarginUnit string
}

// ComputeLine derives revenue, COGS, gross profit and per-unit margin for a
// single line. Arithmetic runs at full float precision and is rounded once
// at the end, so repeated read-modify-write cycles do not compound rounding
// error. A gift line has its price forced to zero first: revenue drops to
// zero and gross profit goes negative by exactly the COGS.
func ComputeLine(in LineInput) LineTotals {
	units := float64(money.ClampUnits(in.Units))
	priceStr := money.Normalize(in.PriceUnit)
	if in.IsGift {
		priceStr = "0.00"
	}
	costStr := money.Normalize(in.CostUnit)

	price := money.Parse(priceStr)
	cost := money.Parse(costStr)

	revenue := units * price
	cogs := units * cost

	return LineTotals{
		PriceUnit:       priceStr,
		CostUnit:        costStr,
		Revenue:         money.Format(revenue),
		COGS:            money.Format(cogs),
		GrossProfit:     money.Format(revenue - cogs),
		GrossMarginUnit: money.Format(price - cost),
	}
}

// DistributeBundle splits a single entered bundle price across member lines
// proportionally to unit count. The two-stage rounding order is load-bearing:
// the per-unit price is rounded before the per-line multiply, so the
// reconstructed total may drift from the entered price by up to a cent per
// line. That drift is accepted; there is no remainder-redistribution pass.
func DistributeBundle(bundlePrice string, units []int) (perUnit string, linePrices []string) {
	totalUnits := 0
	for _, u := range units {
		totalUnits += money.ClampUnits(u)
	}
	per := money.Round2(money.Parse(bundlePrice) / float64(totalUnits))
	perUnit = money.Format(per)

	linePrices = make([]string, len(units))
	for i, u := range units {
		linePrices[i] = money.Format(per * float64(money.ClampUnits(u)))
	}
	return perUnit, linePrices
}

// BundleTotal reconstructs the revenue of a distributed bundle from its
// per-line prices and units.
func BundleTotal(linePrices []string, units []int) string {
	var total float64
	for i, p := range linePrices {
		total += money.Parse(p) * float64(money.ClampUnits(units[i]))
	}
	return money.Format(total)
}

// NewBundleID returns an identifier shared by every line of one bundle
// transaction. It is used only for grouping and display, never for price
// math. The BNDL prefix keeps ids recognizable in exports and filters.
func NewBundleID() string {
	return "BNDL-" + uuid.NewString()
}
