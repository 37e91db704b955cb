package analytics

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tabletally/bookkeeper-backend/pkg/database"
	"github.com/tabletally/bookkeeper-backend/pkg/money"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// rollup accumulates units and money across a set of sale lines
type rollup struct {
	Units       int     `json:"units"`
	Revenue     float64 `json:"revenue"`
	COGS        float64 `json:"cogs"`
	GrossProfit float64 `json:"gross_profit"`
}

func (r *rollup) add(sl database.SaleLine) {
	units := float64(sl.Units)
	price := money.Parse(sl.PriceUnit)
	cost := money.Parse(sl.CostUnit)
	revenue := units * price
	cogs := units * cost

	r.Units += sl.Units
	r.Revenue += revenue
	r.COGS += cogs
	r.GrossProfit += revenue - cogs
}

func (h *Handler) loadLines(c *gin.Context, withYear bool) ([]database.SaleLine, bool) {
	userID := c.GetString("user_id")

	q := h.db.Where("user_id = ?", userID).Preload("Event").Preload("SKU")
	if e := c.Query("event"); e != "" {
		if _, err := uuid.Parse(e); err != nil {
			return nil, true // unparsable filter yields an empty result, not an error
		}
		q = q.Where("event_id = ?", e)
	}
	if withYear {
		if y := c.Query("year"); y != "" {
			yr, err := strconv.Atoi(y)
			if err != nil {
				return nil, true
			}
			q = q.Where("sale_date BETWEEN ? AND ?", strconv.Itoa(yr)+"-01-01", strconv.Itoa(yr)+"-12-31")
		}
	}

	var lines []database.SaleLine
	if err := q.Find(&lines).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch sales"})
		return nil, false
	}
	return lines, true
}

type skuBucket struct {
	SKUID    string `json:"sku_id"`
	SKUName  string `json:"sku_name"`
	ItemType string `json:"item_type"`
	rollup
}

// TopBottom ranks SKUs by a metric and returns the best and worst
// performers. GET /api/analytics/top-bottom?event=<id>&k=gross_profit&limit=5
func (h *Handler) TopBottom(c *gin.Context) {
	key := c.DefaultQuery("k", "gross_profit")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "5"))
	if err != nil || limit < 1 {
		limit = 5
	}

	lines, ok := h.loadLines(c, false)
	if !ok {
		return
	}

	buckets := make(map[string]*skuBucket)
	for _, sl := range lines {
		id := sl.SKUID.String()
		b, found := buckets[id]
		if !found {
			b = &skuBucket{SKUID: id, SKUName: sl.SKU.Name, ItemType: sl.SKU.ItemType}
			buckets[id] = b
		}
		b.add(sl)
	}

	ranked := make([]*skuBucket, 0, len(buckets))
	for _, b := range buckets {
		ranked = append(ranked, b)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return metric(ranked[i], key) > metric(ranked[j], key)
	})

	top := ranked
	if len(top) > limit {
		top = top[:limit]
	}
	bottom := make([]*skuBucket, 0, limit)
	for i := len(ranked) - 1; i >= 0 && len(bottom) < limit; i-- {
		bottom = append(bottom, ranked[i])
	}

	c.JSON(http.StatusOK, gin.H{"top": top, "bottom": bottom})
}

func metric(b *skuBucket, key string) float64 {
	switch key {
	case "units":
		return float64(b.Units)
	case "revenue":
		return b.Revenue
	case "cogs":
		return b.COGS
	default:
		return b.GrossProfit
	}
}

type summaryBucket struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	rollup
}

// Summary aggregates sales by sku, item_type, event, or year-month.
// GET /api/analytics/summary?group=item_type&event=<id>&year=2025
func (h *Handler) Summary(c *gin.Context) {
	group := c.DefaultQuery("group", "item_type")

	lines, ok := h.loadLines(c, true)
	if !ok {
		return
	}

	buckets := make(map[string]*summaryBucket)
	for _, sl := range lines {
		var key, label string
		switch group {
		case "sku":
			key, label = sl.SKUID.String(), sl.SKU.Name
		case "event":
			key, label = sl.EventID.String(), sl.Event.Name
		case "ym":
			if len(sl.SaleDate) >= 7 {
				key = sl.SaleDate[:7]
			} else {
				key = sl.SaleDate
			}
			label = key
		default:
			key, label = sl.SKU.ItemType, sl.SKU.ItemType
		}

		b, found := buckets[key]
		if !found {
			b = &summaryBucket{Key: key, Label: label}
			buckets[key] = b
		}
		b.add(sl)
	}

	out := make([]*summaryBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Label < out[j].Label })

	c.JSON(http.StatusOK, out)
}

// HypoRule rewrites the price of matching lines in a what-if scenario.
// Later rules win when several match, mirroring last-assignment semantics.
type HypoRule struct {
	Match struct {
		IsBundle *bool    `json:"is_bundle"`
		ItemType string   `json:"item_type"`
		SKUs     []string `json:"skus"`
	} `json:"match"`
	PriceUnit string `json:"price_unit"`
}

type HypoRequest struct {
	Event string     `json:"event"`
	Rules []HypoRule `json:"rules"`
}

// Hypo recomputes totals under hypothetical pricing rules without touching
// stored data. POST /api/analytics/hypo
func (h *Handler) Hypo(c *gin.Context) {
	var req HypoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	userID := c.GetString("user_id")
	q := h.db.Where("user_id = ?", userID).Preload("SKU")
	if req.Event != "" {
		if _, err := uuid.Parse(req.Event); err == nil {
			q = q.Where("event_id = ?", req.Event)
		}
	}

	var lines []database.SaleLine
	if err := q.Find(&lines).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch sales"})
		return
	}

	total := rollup{}
	bySKU := make(map[string]*skuBucket)
	for _, sl := range lines {
		newPrice := money.Parse(sl.PriceUnit)
		for _, r := range req.Rules {
			if r.Match.IsBundle != nil && *r.Match.IsBundle != sl.IsBundle {
				continue
			}
			if r.Match.ItemType != "" && r.Match.ItemType != sl.SKU.ItemType {
				continue
			}
			if len(r.Match.SKUs) > 0 && !containsID(r.Match.SKUs, sl.SKUID.String()) {
				continue
			}
			if r.PriceUnit != "" {
				newPrice = money.Parse(r.PriceUnit)
			}
		}

		units := float64(sl.Units)
		cost := money.Parse(sl.CostUnit)
		revenue := units * newPrice
		cogs := units * cost

		total.Units += sl.Units
		total.Revenue += revenue
		total.COGS += cogs
		total.GrossProfit += revenue - cogs

		id := sl.SKUID.String()
		b, found := bySKU[id]
		if !found {
			b = &skuBucket{SKUID: id, SKUName: sl.SKU.Name, ItemType: sl.SKU.ItemType}
			bySKU[id] = b
		}
		b.Units += sl.Units
		b.Revenue += revenue
		b.COGS += cogs
		b.GrossProfit += revenue - cogs
	}

	out := make([]*skuBucket, 0, len(bySKU))
	for _, b := range bySKU {
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].SKUName) < strings.ToLower(out[j].SKUName)
	})

	c.JSON(http.StatusOK, gin.H{"total": total, "by_sku": out})
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
