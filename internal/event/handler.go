package event

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tabletally/bookkeeper-backend/pkg/activitylog"
	"github.com/tabletally/bookkeeper-backend/pkg/database"
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

type EventRequest struct {
	Name      string  `json:"name" binding:"required"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// List returns all events for the user
func (h *Handler) List(c *gin.Context) {
	userID := c.GetString("user_id")

	var events []database.Event
	if err := h.db.Where("user_id = ?", userID).Order("start_date DESC, name ASC").Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, events)
}

// Create adds a new event
func (h *Handler) Create(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	userID, _ := uuid.Parse(c.GetString("user_id"))

	ev := database.Event{
		UserID:    userID,
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := h.db.Create(&ev).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to create event"})
		return
	}

	h.logger.LogCreate(c, "event", ev.ID, map[string]interface{}{"name": ev.Name})

	c.JSON(http.StatusCreated, ev)
}

// Get returns a single event
func (h *Handler) Get(c *gin.Context) {
	userID := c.GetString("user_id")

	var ev database.Event
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&ev).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
		return
	}

	c.JSON(http.StatusOK, ev)
}

// Patch partially updates an event; omitted fields keep their values
func (h *Handler) Patch(c *gin.Context) {
	userID := c.GetString("user_id")

	var ev database.Event
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&ev).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found"})
		return
	}

	var req struct {
		Name      *string `json:"name"`
		StartDate *string `json:"start_date"`
		EndDate   *string `json:"end_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	oldValues := map[string]interface{}{"name": ev.Name, "start_date": ev.StartDate, "end_date": ev.EndDate}

	if req.Name != nil {
		ev.Name = *req.Name
	}
	if req.StartDate != nil {
		ev.StartDate = req.StartDate
	}
	if req.EndDate != nil {
		ev.EndDate = req.EndDate
	}

	if err := h.db.Save(&ev).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to update event"})
		return
	}

	h.logger.LogUpdate(c, "event", ev.ID, oldValues, map[string]interface{}{
		"name": ev.Name, "start_date": ev.StartDate, "end_date": ev.EndDate,
	})

	c.JSON(http.StatusOK, ev)
}

// Delete removes an event. If sales exist the delete is rejected unless
// ?force=1 is passed, in which case the sales are cascaded away.
func (h *Handler) Delete(c *gin.Context) {
	userID := c.GetString("user_id")

	var ev database.Event
	if err := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&ev).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}

	var saleCount int64
	h.db.Model(&database.SaleLine{}).Where("event_id = ?", ev.ID).Count(&saleCount)

	force := c.Query("force")
	forced := force == "1" || force == "true" || force == "yes"

	if saleCount > 0 && !forced {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Cannot delete: sales exist for this event. Add ?force=1 to cascade."})
		return
	}

	if saleCount > 0 {
		if err := h.db.Where("event_id = ?", ev.ID).Delete(&database.SaleLine{}).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete sales"})
			return
		}
	}

	if err := h.db.Delete(&ev).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to delete event"})
		return
	}

	h.logger.LogDelete(c, "event", ev.ID, map[string]interface{}{"name": ev.Name, "cascaded_sales": saleCount})

	c.Status(http.StatusNoContent)
}
