package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tabletally/bookkeeper-backend/pkg/database"
)

// Handler serves the per-user UI color settings. The colors used to live in
// browser local storage as ambient global state; storing them per account
// gives an explicit load/persist lifecycle and lets the theme follow the
// user across devices.
type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type ColorsRequest struct {
	TextColor        string `json:"text_color"`
	InputBorderColor string `json:"input_border_color"`
	ButtonColor      string `json:"button_color"`
	ButtonTextColor  string `json:"button_text_color"`
}

func (h *Handler) loadOrCreate(userID uuid.UUID) (database.UserSettings, error) {
	var s database.UserSettings
	err := h.db.Where("user_id = ?", userID).First(&s).Error
	if err == gorm.ErrRecordNotFound {
		s = database.UserSettings{
			UserID:           userID,
			TextColor:        "#222222",
			InputBorderColor: "#cccccc",
			ButtonColor:      "#007bff",
			ButtonTextColor:  "#fff",
		}
		err = h.db.Create(&s).Error
	}
	return s, err
}

// GetColors returns the user's colors, creating defaults on first access
func (h *Handler) GetColors(c *gin.Context) {
	userID, _ := uuid.Parse(c.GetString("user_id"))

	s, err := h.loadOrCreate(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, s)
}

// PutColors replaces the user's colors
func (h *Handler) PutColors(c *gin.Context) {
	var req ColorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	userID, _ := uuid.Parse(c.GetString("user_id"))

	s, err := h.loadOrCreate(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load settings"})
		return
	}

	if req.TextColor != "" {
		s.TextColor = req.TextColor
	}
	if req.InputBorderColor != "" {
		s.InputBorderColor = req.InputBorderColor
	}
	if req.ButtonColor != "" {
		s.ButtonColor = req.ButtonColor
	}
	if req.ButtonTextColor != "" {
		s.ButtonTextColor = req.ButtonTextColor
	}

	if err := h.db.Save(&s).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, s)
}
