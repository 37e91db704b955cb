package settings

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tabletally/bookkeeper-backend/internal/testutil"
	"github.com/tabletally/bookkeeper-backend/pkg/database"
	"github.com/tabletally/bookkeeper-backend/pkg/middleware"
)

func setup(t *testing.T) (*gin.Engine, *gorm.DB, database.User, string) {
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	h := NewHandler(db)
	api := router.Group("/api", middleware.AuthRequired())
	api.GET("/settings/colors/", h.GetColors)
	api.PUT("/settings/colors/", h.PutColors)

	user := testutil.SeedUser(t, db, "mika")
	return router, db, user, testutil.TokenFor(user)
}

func TestGetColorsCreatesDefaults(t *testing.T) {
	router, db, user, token := setup(t)

	w := testutil.DoRequest(router, http.MethodGet, "/api/settings/colors/", nil, token)
	testutil.RequireStatus(t, w, http.StatusOK)

	body := testutil.ParseResponse(t, w)
	if body["text_color"] != "#222222" || body["button_color"] != "#007bff" {
		t.Errorf("defaults = %v", body)
	}

	var count int64
	db.Model(&database.UserSettings{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Errorf("settings rows = %d, want 1 created on first access", count)
	}
}

func TestPutColorsPartialUpdate(t *testing.T) {
	router, _, _, token := setup(t)

	w := testutil.DoRequest(router, http.MethodPut, "/api/settings/colors/", map[string]string{
		"button_color": "#ff6600",
	}, token)
	testutil.RequireStatus(t, w, http.StatusOK)

	body := testutil.ParseResponse(t, w)
	if body["button_color"] != "#ff6600" {
		t.Errorf("button_color = %v", body["button_color"])
	}
	// Empty fields keep their defaults
	if body["text_color"] != "#222222" {
		t.Errorf("text_color = %v", body["text_color"])
	}

	// The change persists across reads
	w = testutil.DoRequest(router, http.MethodGet, "/api/settings/colors/", nil, token)
	testutil.RequireStatus(t, w, http.StatusOK)
	if body := testutil.ParseResponse(t, w); body["button_color"] != "#ff6600" {
		t.Errorf("persisted button_color = %v", body["button_color"])
	}
}
