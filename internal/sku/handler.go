package sku

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tabletally/bookkeeper-backend/pkg/activitylog"
	"github.com/tabletally/bookkeeper-backend/pkg/database"
	"github.com/tabletally/bookkeeper-backend/pkg/money"
)

// Reserved item types. Users may coin new types at creation time as long as
// they do not collide case-insensitively with these.
var reservedTypes = map[string]bool{
	"print":    true,
	"keychain": true,
	"sticker":  true,
	"other":    true,
}

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

type SKURequest struct {
	Name         string `json:"name" binding:"required"`
	ItemType     string `json:"item_type" binding:"required"`
	DefaultPrice string `json:"default_price"`
	DefaultCost  string `json:"default_cost"`
}

func validateItemType(t string) (string, bool) {
	t = strings.TrimSpace(t)
	if t == "" {
		return "", false
	}
	lower := strings.ToLower(t)
	if reservedTypes[lower] && t != lower {
		// "Print" would shadow the reserved "print"
		return "", false
	}
	return t, true
}

// List returns all SKUs for the user
func (h *Handler) List(c *gin.Context) {
	userID := c.GetString("user_id")

	var skus []database.SKU
	if err := h.db.Where("user_id = ?", userID).Order("item_type ASC, name ASC").Find(&skus).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch SKUs"})
		return
	}

	c.JSON(http.StatusOK, skus)
}

// Create adds a new SKU
func (h *Handler) Create(c *gin.Context) {
	var req SKURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	itemType, ok := validateItemType(req.ItemType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid item type: conflicts with a reserved type name."})
		return
	}

	userID, _ := uuid.Parse(c.GetString("user_id"))

	// (name, item_type) must be unique per user
	var existing database.SKU
	if err := h.db.Where("user_id = ? AND name = ? AND item_type = ?", userID, req.Name, itemType).
		First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "A SKU with this name and type already exists."})
		return
	}

	s := database.SKU{
		UserID:       userID,
		Name:         req.Name,
		ItemType:     itemType,
		DefaultPrice: money.Normalize(req.DefaultPrice),
		DefaultCost:  money.Normalize(req.DefaultCost),
	}
	if err := h.db.Create(&s).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create SKU"})
		return
	}

	h.logger.LogCreate(c, "sku", s.ID, map[string]interface{}{"name": s.Name, "item_type": s.ItemType})

	c.JSON(http.StatusCreated, s)
}

// Get returns a single SKU
func (h *Handler) Get(c *gin.Context) {
	userID := c.GetString("user_id")

	var s database.SKU
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&s).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
		return
	}

	c.JSON(http.StatusOK, s)
}

// Patch partially updates a SKU
func (h *Handler) Patch(c *gin.Context) {
	userID := c.GetString("user_id")

	var s database.SKU
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&s).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
		return
	}

	var req struct {
		Name         *string `json:"name"`
		ItemType     *string `json:"item_type"`
		DefaultPrice *string `json:"default_price"`
		DefaultCost  *string `json:"default_cost"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	oldValues := map[string]interface{}{
		"name": s.Name, "item_type": s.ItemType,
		"default_price": s.DefaultPrice, "default_cost": s.DefaultCost,
	}

	if req.Name != nil {
		s.Name = *req.Name
	}
	if req.ItemType != nil {
		itemType, ok := validateItemType(*req.ItemType)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid item type: conflicts with a reserved type name."})
			return
		}
		s.ItemType = itemType
	}
	if req.DefaultPrice != nil {
		s.DefaultPrice = money.Normalize(*req.DefaultPrice)
	}
	if req.DefaultCost != nil {
		s.DefaultCost = money.Normalize(*req.DefaultCost)
	}

	var dup database.SKU
	if err := h.db.Where("user_id = ? AND name = ? AND item_type = ? AND id <> ?", userID, s.Name, s.ItemType, s.ID).
		First(&dup).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "A SKU with this name and type already exists."})
		return
	}

	if err := h.db.Save(&s).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update SKU"})
		return
	}

	h.logger.LogUpdate(c, "sku", s.ID, oldValues, map[string]interface{}{
		"name": s.Name, "item_type": s.ItemType,
		"default_price": s.DefaultPrice, "default_cost": s.DefaultCost,
	})

	c.JSON(http.StatusOK, s)
}

// Delete removes a SKU unless sale lines still reference it
func (h *Handler) Delete(c *gin.Context) {
	userID := c.GetString("user_id")

	var s database.SKU
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&s).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
		return
	}

	var lineCount int64
	h.db.Model(&database.SaleLine{}).Where("sku_id = ?", s.ID).Count(&lineCount)
	if lineCount > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Cannot delete SKU with sales."})
		return
	}

	if err := h.db.Delete(&s).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete SKU"})
		return
	}

	h.logger.LogDelete(c, "sku", s.ID, map[string]interface{}{"name": s.Name, "item_type": s.ItemType})

	c.Status(http.StatusNoContent)
}
