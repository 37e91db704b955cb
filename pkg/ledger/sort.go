package ledger

import (
	"sort"
	"strings"
)

// SaleRow is the presentation shape of a sale line: server fields plus the
// derived money values, flattened for table rendering. It is produced from
// API responses by a mapping function and never mutated in place.
type SaleRow struct {
	ID          string
	SaleDate    string
	EventName   string
	SKUName     string
	ItemType    string
	Units       int
	PriceUnit   string
	CostUnit    string
	Revenue     string
	COGS        string
	GrossProfit string
	// GrossProfitNum mirrors GrossProfit for numeric sorting.
	GrossProfitNum float64
	IsBundle       bool
	BundleID       string
	IsGift         bool
	Notes          string
}

// Sort keys accepted by SortGrouped. Unknown keys fall back to
// lexicographic comparison of the named string field.
const (
	KeySaleDate    = "sale_date"
	KeyUnits       = "units"
	KeyGrossProfit = "gross_profit"
	KeyEvent       = "event"
	KeySKU         = "sku"
	KeyItemType    = "item_type"
)

func compare(a, b SaleRow, key string) int {
	switch key {
	case KeyUnits:
		return a.Units - b.Units
	case KeyGrossProfit:
		switch {
		case a.GrossProfitNum < b.GrossProfitNum:
			return -1
		case a.GrossProfitNum > b.GrossProfitNum:
			return 1
		}
		return 0
	case KeyEvent:
		return strings.Compare(a.EventName, b.EventName)
	case KeySKU:
		return strings.Compare(a.SKUName, b.SKUName)
	case KeyItemType:
		return strings.Compare(a.ItemType, b.ItemType)
	default:
		return strings.Compare(a.SaleDate, b.SaleDate)
	}
}

// SortGrouped orders rows by the chosen key and direction, then regroups so
// every bundle's lines stay contiguous: bundle groups appear in the order
// their first member surfaced in the sort, each preserving its internal
// sorted sub-order, followed by all non-bundle rows in sorted order. The
// transform is deterministic and idempotent; the input slice is not
// modified.
func SortGrouped(rows []SaleRow, key string, descending bool) []SaleRow {
	sorted := make([]SaleRow, len(rows))
	copy(sorted, rows)

	mul := 1
	if descending {
		mul = -1
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return mul*compare(sorted[i], sorted[j], key) < 0
	})

	bundleOrder := make([]string, 0)
	bundles := make(map[string][]SaleRow)
	nonBundles := make([]SaleRow, 0, len(sorted))
	for _, row := range sorted {
		if row.BundleID != "" {
			if _, seen := bundles[row.BundleID]; !seen {
				bundleOrder = append(bundleOrder, row.BundleID)
			}
			bundles[row.BundleID] = append(bundles[row.BundleID], row)
		} else {
			nonBundles = append(nonBundles, row)
		}
	}

	out := make([]SaleRow, 0, len(sorted))
	for _, id := range bundleOrder {
		out = append(out, bundles[id]...)
	}
	return append(out, nonBundles...)
}

// BandBundles assigns an alternating highlight band (0, 1, 0, ...) to each
// distinct bundle in the order it appears in rows. Non-bundle rows get no
// entry. Used for display banding only.
func BandBundles(rows []SaleRow) map[string]int {
	bands := make(map[string]int)
	next := 0
	for _, row := range rows {
		if row.BundleID == "" {
			continue
		}
		if _, ok := bands[row.BundleID]; !ok {
			bands[row.BundleID] = next % 2
			next++
		}
	}
	return bands
}
