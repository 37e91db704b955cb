package sale

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tabletally/bookkeeper-backend/pkg/activitylog"
	"github.com/tabletally/bookkeeper-backend/pkg/database"
	"github.com/tabletally/bookkeeper-backend/pkg/ledger"
	"github.com/tabletally/bookkeeper-backend/pkg/money"
)

type Handler struct {
	db     *gorm.DB
	logger *activitylog.Logger
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{
		db:     db,
		logger: activitylog.NewLogger(db),
	}
}

type SaleLineRequest struct {
	EventID     string `json:"event_id" binding:"required"`
	SKUID       string `json:"sku_id" binding:"required"`
	SaleDate    string `json:"sale_date" binding:"required"`
	Units       int    `json:"units" binding:"required,min=1"`
	PriceUnit   string `json:"price_unit"`
	CostUnit    string `json:"cost_unit"`
	IsBundle    bool   `json:"is_bundle"`
	BundleID    string `json:"bundle_id"`
	BundleSize  int    `json:"bundle_size"`
	BundlePrice string `json:"bundle_price"`
	IsGift      bool   `json:"is_gift"`
	Notes       string `json:"notes"`
}

type EventRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SKURef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ItemType string `json:"item_type"`
}

// SaleLineResponse is the transfer shape for a sale line: stored fields plus
// nested event/sku references and the server-computed money summary.
type SaleLineResponse struct {
	ID              string   `json:"id"`
	Event           EventRef `json:"event"`
	SKU             SKURef   `json:"sku"`
	SaleDate        string   `json:"sale_date"`
	Units           int      `json:"units"`
	PriceUnit       string   `json:"price_unit"`
	CostUnit        string   `json:"cost_unit"`
	IsBundle        bool     `json:"is_bundle"`
	BundleID        string   `json:"bundle_id,omitempty"`
	BundleSize      int      `json:"bundle_size,omitempty"`
	BundlePrice     string   `json:"bundle_price,omitempty"`
	IsGift          bool     `json:"is_gift"`
	Notes           string   `json:"notes"`
	Revenue         string   `json:"revenue"`
	COGS            string   `json:"cogs"`
	GrossMarginUnit string   `json:"gross_margin_unit"`
	GrossProfit     string   `json:"gross_profit"`
}

func toResponse(sl database.SaleLine) SaleLineResponse {
	totals := ledger.ComputeLine(ledger.LineInput{
		Units:     sl.Units,
		PriceUnit: sl.PriceUnit,
		CostUnit:  sl.CostUnit,
		IsGift:    sl.IsGift,
	})

	return SaleLineResponse{
		ID:              sl.ID.String(),
		Event:           EventRef{ID: sl.Event.ID.String(), Name: sl.Event.Name},
		SKU:             SKURef{ID: sl.SKU.ID.String(), Name: sl.SKU.Name, ItemType: sl.SKU.ItemType},
		SaleDate:        sl.SaleDate,
		Units:           sl.Units,
		PriceUnit:       totals.PriceUnit,
		CostUnit:        totals.CostUnit,
		IsBundle:        sl.IsBundle,
		BundleID:        sl.BundleID,
		BundleSize:      sl.BundleSize,
		BundlePrice:     sl.BundlePrice,
		IsGift:          sl.IsGift,
		Notes:           sl.Notes,
		Revenue:         totals.Revenue,
		COGS:            totals.COGS,
		GrossMarginUnit: totals.GrossMarginUnit,
		GrossProfit:     totals.GrossProfit,
	}
}

// List returns the user's sale lines, newest sale date first. Optional
// filters: event, year, month, sku, type, bundle. Filter values that do not
// parse produce an empty list rather than an error, matching what a live
// filter UI expects while the user is still typing.
func (h *Handler) List(c *gin.Context) {
	userID := c.GetString("user_id")

	q := h.db.Model(&database.SaleLine{}).Where("sale_lines.user_id = ?", userID)

	if e := c.Query("event"); e != "" {
		if _, err := uuid.Parse(e); err != nil {
			c.JSON(http.StatusOK, []SaleLineResponse{})
			return
		}
		q = q.Where("sale_lines.event_id = ?", e)
	}

	year := c.Query("year")
	month := c.Query("month")
	if year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			c.JSON(http.StatusOK, []SaleLineResponse{})
			return
		}
		if month != "" {
			m, err := strconv.Atoi(month)
			if err != nil || m < 1 || m > 12 {
				c.JSON(http.StatusOK, []SaleLineResponse{})
				return
			}
			first := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
			last := first.AddDate(0, 1, -1)
			q = q.Where("sale_lines.sale_date BETWEEN ? AND ?", first.Format("2006-01-02"), last.Format("2006-01-02"))
		} else {
			q = q.Where("sale_lines.sale_date BETWEEN ? AND ?",
				strconv.Itoa(y)+"-01-01", strconv.Itoa(y)+"-12-31")
		}
	}

	if s := c.Query("sku"); s != "" {
		if _, err := uuid.Parse(s); err != nil {
			c.JSON(http.StatusOK, []SaleLineResponse{})
			return
		}
		q = q.Where("sale_lines.sku_id = ?", s)
	}

	if t := c.Query("type"); t != "" {
		q = q.Joins("JOIN skus ON skus.id = sale_lines.sku_id").Where("skus.item_type = ?", t)
	}

	if b := c.Query("bundle"); b != "" {
		switch b {
		case "1", "true", "yes", "y":
			q = q.Where("sale_lines.is_bundle = ?", true)
		default:
			q = q.Where("sale_lines.is_bundle = ?", false)
		}
	}

	var lines []database.SaleLine
	if err := q.Preload("Event").Preload("SKU").Order("sale_lines.sale_date DESC").Find(&lines).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch sales"})
		return
	}

	out := make([]SaleLineResponse, 0, len(lines))
	for _, sl := range lines {
		out = append(out, toResponse(sl))
	}
	c.JSON(http.StatusOK, out)
}

// Create records one sale line. A bundle arrives as several independent
// calls sharing a bundle_id; the server stores each line's already
// distributed price and never redistributes.
func (h *Handler) Create(c *gin.Context) {
	var req SaleLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	if _, err := time.Parse("2006-01-02", req.SaleDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "sale_date must be YYYY-MM-DD"})
		return
	}

	userID, _ := uuid.Parse(c.GetString("user_id"))

	var ev database.Event
	if err := h.db.Where("id = ? AND user_id = ?", req.EventID, userID).First(&ev).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Unknown event"})
		return
	}
	var sk database.SKU
	if err := h.db.Where("id = ? AND user_id = ?", req.SKUID, userID).First(&sk).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Unknown SKU"})
		return
	}

	priceUnit := money.Normalize(req.PriceUnit)
	if req.IsGift {
		priceUnit = "0.00"
	}

	sl := database.SaleLine{
		UserID:      userID,
		EventID:     ev.ID,
		SKUID:       sk.ID,
		SaleDate:    req.SaleDate,
		Units:       req.Units,
		PriceUnit:   priceUnit,
		CostUnit:    money.Normalize(req.CostUnit),
		IsBundle:    req.IsBundle,
		BundleID:    req.BundleID,
		BundleSize:  req.BundleSize,
		BundlePrice: req.BundlePrice,
		IsGift:      req.IsGift,
		Notes:       req.Notes,
	}
	if sl.BundlePrice != "" {
		sl.BundlePrice = money.Normalize(sl.BundlePrice)
	}

	if err := h.db.Create(&sl).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create sale"})
		return
	}

	h.logger.LogCreate(c, "sale", sl.ID, map[string]interface{}{
		"sku": sk.Name, "units": sl.Units, "price_unit": sl.PriceUnit, "bundle_id": sl.BundleID,
	})

	sl.Event = ev
	sl.SKU = sk
	c.JSON(http.StatusCreated, toResponse(sl))
}

func (h *Handler) load(c *gin.Context) (database.SaleLine, bool) {
	userID := c.GetString("user_id")

	var sl database.SaleLine
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Preload("Event").Preload("SKU").First(&sl).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
		return sl, false
	}
	return sl, true
}

// Get returns a single sale line
func (h *Handler) Get(c *gin.Context) {
	sl, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toResponse(sl))
}

// Patch partially updates a sale line. Bundle prices are frozen at creation:
// editing a line never triggers redistribution across its bundle.
func (h *Handler) Patch(c *gin.Context) {
	sl, ok := h.load(c)
	if !ok {
		return
	}

	var req struct {
		EventID   *string `json:"event_id"`
		SKUID     *string `json:"sku_id"`
		SaleDate  *string `json:"sale_date"`
		Units     *int    `json:"units"`
		PriceUnit *string `json:"price_unit"`
		CostUnit  *string `json:"cost_unit"`
		IsBundle  *bool   `json:"is_bundle"`
		IsGift    *bool   `json:"is_gift"`
		Notes     *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	userID := sl.UserID

	oldValues := map[string]interface{}{
		"sale_date": sl.SaleDate, "units": sl.Units,
		"price_unit": sl.PriceUnit, "cost_unit": sl.CostUnit,
	}

	if req.EventID != nil {
		var ev database.Event
		if err := h.db.Where("id = ? AND user_id = ?", *req.EventID, userID).First(&ev).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Unknown event"})
			return
		}
		sl.EventID = ev.ID
		sl.Event = ev
	}
	if req.SKUID != nil {
		var sk database.SKU
		if err := h.db.Where("id = ? AND user_id = ?", *req.SKUID, userID).First(&sk).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Unknown SKU"})
			return
		}
		sl.SKUID = sk.ID
		sl.SKU = sk
	}
	if req.SaleDate != nil {
		if _, err := time.Parse("2006-01-02", *req.SaleDate); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "sale_date must be YYYY-MM-DD"})
			return
		}
		sl.SaleDate = *req.SaleDate
	}
	if req.Units != nil {
		if *req.Units < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "units must be at least 1"})
			return
		}
		sl.Units = *req.Units
	}
	if req.PriceUnit != nil {
		sl.PriceUnit = money.Normalize(*req.PriceUnit)
	}
	if req.CostUnit != nil {
		sl.CostUnit = money.Normalize(*req.CostUnit)
	}
	if req.IsBundle != nil {
		sl.IsBundle = *req.IsBundle
	}
	if req.IsGift != nil {
		sl.IsGift = *req.IsGift
	}
	if sl.IsGift {
		sl.PriceUnit = "0.00"
	}
	if req.Notes != nil {
		sl.Notes = *req.Notes
	}

	if err := h.db.Save(&sl).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update sale"})
		return
	}

	h.logger.LogUpdate(c, "sale", sl.ID, oldValues, map[string]interface{}{
		"sale_date": sl.SaleDate, "units": sl.Units,
		"price_unit": sl.PriceUnit, "cost_unit": sl.CostUnit,
	})

	c.JSON(http.StatusOK, toResponse(sl))
}

// Delete removes a sale line
func (h *Handler) Delete(c *gin.Context) {
	sl, ok := h.load(c)
	if !ok {
		return
	}

	if err := h.db.Delete(&sl).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete sale"})
		return
	}

	h.logger.LogDelete(c, "sale", sl.ID, map[string]interface{}{
		"sku": sl.SKU.Name, "units": sl.Units, "sale_date": sl.SaleDate,
	})

	c.Status(http.StatusNoContent)
}
