package client

import (
	"context"

	"github.com/tabletally/bookkeeper-backend/pkg/ledger"
	"github.com/tabletally/bookkeeper-backend/pkg/money"
)

// DraftLine is one member of a bundle being composed.
type DraftLine struct {
	SKUID        string
	Units        int
	PriceUnit    string // distributed share, managed by Recalculate
	CostUnit     string // defaults from the SKU, freely editable
	DefaultPrice string // used when a gift flag is toggled off
	IsGift       bool
	Notes        string
}

// BundleDraft is an in-progress bundle transaction. Prices are live only
// while composing: every change to the bundle price or a line's units
// re-runs the distribution. After Submit the lines are frozen as
// independent sale lines and never redistributed.
type BundleDraft struct {
	EventID     string
	SaleDate    string
	BundlePrice string
	Lines       []DraftLine
}

// AddLine appends a member line with the SKU's defaults.
func (d *BundleDraft) AddLine(sku SKU, units int) {
	d.Lines = append(d.Lines, DraftLine{
		SKUID:        sku.ID,
		Units:        money.ClampUnits(units),
		PriceUnit:    money.Normalize(sku.DefaultPrice),
		CostUnit:     money.Normalize(sku.DefaultCost),
		DefaultPrice: money.Normalize(sku.DefaultPrice),
	})
	d.Recalculate()
}

// RemoveLine drops a member line and redistributes.
func (d *BundleDraft) RemoveLine(i int) {
	if i < 0 || i >= len(d.Lines) {
		return
	}
	d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
	d.Recalculate()
}

// SetBundlePrice records the entered total and redistributes.
func (d *BundleDraft) SetBundlePrice(price string) {
	d.BundlePrice = money.Normalize(price)
	d.Recalculate()
}

// SetUnits changes a line's unit count and redistributes.
func (d *BundleDraft) SetUnits(i, units int) {
	if i < 0 || i >= len(d.Lines) {
		return
	}
	d.Lines[i].Units = money.ClampUnits(units)
	d.Recalculate()
}

// ToggleGift flips a line's gift flag. Flagging forces the price to zero;
// unflagging reverts to the SKU default price without re-entering the
// distribution.
func (d *BundleDraft) ToggleGift(i int) {
	if i < 0 || i >= len(d.Lines) {
		return
	}
	line := &d.Lines[i]
	line.IsGift = !line.IsGift
	if line.IsGift {
		line.PriceUnit = "0.00"
	} else {
		line.PriceUnit = line.DefaultPrice
	}
}

// TotalUnits sums member units.
func (d *BundleDraft) TotalUnits() int {
	total := 0
	for _, l := range d.Lines {
		total += money.ClampUnits(l.Units)
	}
	return total
}

// Recalculate reapplies the proportional distribution while the bundle is
// still being composed. Gift lines keep their forced zero price.
func (d *BundleDraft) Recalculate() {
	if len(d.Lines) == 0 || money.Parse(d.BundlePrice) == 0 {
		return
	}
	units := make([]int, len(d.Lines))
	for i, l := range d.Lines {
		units[i] = l.Units
	}
	_, prices := ledger.DistributeBundle(d.BundlePrice, units)
	for i := range d.Lines {
		if d.Lines[i].IsGift {
			continue
		}
		d.Lines[i].PriceUnit = prices[i]
	}
}

// PreviewRevenue totals the distributed line prices, which may drift from
// the entered bundle price by the accepted rounding amount.
func (d *BundleDraft) PreviewRevenue() string {
	var total float64
	for _, l := range d.Lines {
		total += money.Parse(l.PriceUnit) * float64(money.ClampUnits(l.Units))
	}
	return money.Format(total)
}

// Submit posts one sale line per member, all sharing a freshly generated
// bundle id. The bundle total and size are recorded on each line for
// provenance; they are never recomputed afterwards.
func (d *BundleDraft) Submit(ctx context.Context, c *Client) ([]SaleLine, error) {
	bundlePrice := d.BundlePrice
	if money.Parse(bundlePrice) == 0 {
		bundlePrice = d.PreviewRevenue()
	}
	bundleID := ledger.NewBundleID()
	totalUnits := d.TotalUnits()

	created := make([]SaleLine, 0, len(d.Lines))
	for _, l := range d.Lines {
		line := NewSaleLine{
			EventID:     d.EventID,
			SKUID:       l.SKUID,
			SaleDate:    d.SaleDate,
			Units:       money.ClampUnits(l.Units),
			PriceUnit:   l.PriceUnit,
			CostUnit:    l.CostUnit,
			IsBundle:    true,
			BundleID:    bundleID,
			BundleSize:  totalUnits,
			BundlePrice: bundlePrice,
			IsGift:      l.IsGift,
			Notes:       l.Notes,
		}
		out, err := c.CreateSale(ctx, line)
		if err != nil {
			return created, err
		}
		created = append(created, out)
	}
	return created, nil
}
