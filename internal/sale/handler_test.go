package sale

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tabletally/bookkeeper-backend/internal/testutil"
	"github.com/tabletally/bookkeeper-backend/pkg/database"
	"github.com/tabletally/bookkeeper-backend/pkg/middleware"
)

type fixture struct {
	router *gin.Engine
	db     *gorm.DB
	user   database.User
	token  string
	event  database.Event
	sku    database.SKU
}

func setup(t *testing.T) fixture {
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	h := NewHandler(db)
	api := router.Group("/api", middleware.AuthRequired())
	api.GET("/sales/", h.List)
	api.POST("/sales/", h.Create)
	api.GET("/sales/:id/", h.Get)
	api.PATCH("/sales/:id/", h.Patch)
	api.DELETE("/sales/:id/", h.Delete)

	user := testutil.SeedUser(t, db, "mika")

	ev := database.Event{UserID: user.ID, Name: "Summer Fest"}
	if err := db.Create(&ev).Error; err != nil {
		t.Fatalf("Failed to seed event: %v", err)
	}
	sku := database.SKU{UserID: user.ID, Name: "Fox Print A4", ItemType: "print", DefaultPrice: "15.00", DefaultCost: "4.00"}
	if err := db.Create(&sku).Error; err != nil {
		t.Fatalf("Failed to seed SKU: %v", err)
	}

	return fixture{router: router, db: db, user: user, token: testutil.TokenFor(user), event: ev, sku: sku}
}

func (f fixture) seedLine(t *testing.T, date string, units int, price, cost string) database.SaleLine {
	t.Helper()

	line := database.SaleLine{
		UserID: f.user.ID, EventID: f.event.ID, SKUID: f.sku.ID,
		SaleDate: date, Units: units, PriceUnit: price, CostUnit: cost,
	}
	if err := f.db.Create(&line).Error; err != nil {
		t.Fatalf("Failed to seed sale line: %v", err)
	}
	return line
}

func TestCreateSaleDerivesTotals(t *testing.T) {
	f := setup(t)

	w := testutil.DoRequest(f.router, http.MethodPost, "/api/sales/", map[string]interface{}{
		"event_id":   f.event.ID.String(),
		"sku_id":     f.sku.ID.String(),
		"sale_date":  "2026-06-06",
		"units":      3,
		"price_unit": "5.00",
		"cost_unit":  "2.00",
	}, f.token)
	testutil.RequireStatus(t, w, http.StatusCreated)

	body := testutil.ParseResponse(t, w)
	if body["revenue"] != "15.00" || body["cogs"] != "6.00" || body["gross_profit"] != "9.00" {
		t.Errorf("totals = revenue %v cogs %v gp %v", body["revenue"], body["cogs"], body["gross_profit"])
	}
	if body["gross_margin_unit"] != "3.00" {
		t.Errorf("gross_margin_unit = %v", body["gross_margin_unit"])
	}
	event := body["event"].(map[string]interface{})
	if event["name"] != "Summer Fest" {
		t.Errorf("event ref = %v", event)
	}
}

func TestCreateSaleGiftForcesZeroPrice(t *testing.T) {
	f := setup(t)

	w := testutil.DoRequest(f.router, http.MethodPost, "/api/sales/", map[string]interface{}{
		"event_id":   f.event.ID.String(),
		"sku_id":     f.sku.ID.String(),
		"sale_date":  "2026-06-06",
		"units":      2,
		"price_unit": "15.00",
		"cost_unit":  "4.00",
		"is_gift":    true,
	}, f.token)
	testutil.RequireStatus(t, w, http.StatusCreated)

	body := testutil.ParseResponse(t, w)
	if body["price_unit"] != "0.00" || body["revenue"] != "0.00" {
		t.Errorf("gift line = price %v revenue %v", body["price_unit"], body["revenue"])
	}
	if body["gross_profit"] != "-8.00" {
		t.Errorf("gross_profit = %v, want -8.00", body["gross_profit"])
	}
}

func TestCreateSaleValidation(t *testing.T) {
	f := setup(t)

	// units below one fail binding
	w := testutil.DoRequest(f.router, http.MethodPost, "/api/sales/", map[string]interface{}{
		"event_id": f.event.ID.String(), "sku_id": f.sku.ID.String(),
		"sale_date": "2026-06-06", "units": 0,
	}, f.token)
	testutil.RequireStatus(t, w, http.StatusBadRequest)

	// malformed date
	w = testutil.DoRequest(f.router, http.MethodPost, "/api/sales/", map[string]interface{}{
		"event_id": f.event.ID.String(), "sku_id": f.sku.ID.String(),
		"sale_date": "06/06/2026", "units": 1,
	}, f.token)
	testutil.RequireStatus(t, w, http.StatusBadRequest)

	// event belonging to another user
	other := testutil.SeedUser(t, f.db, "rin")
	foreign := database.Event{UserID: other.ID, Name: "Private Con"}
	f.db.Create(&foreign)
	w = testutil.DoRequest(f.router, http.MethodPost, "/api/sales/", map[string]interface{}{
		"event_id": foreign.ID.String(), "sku_id": f.sku.ID.String(),
		"sale_date": "2026-06-06", "units": 1,
	}, f.token)
	testutil.RequireStatus(t, w, http.StatusBadRequest)
	if body := testutil.ParseResponse(t, w); body["detail"] != "Unknown event" {
		t.Errorf("detail = %v", body["detail"])
	}
}

func TestListSalesNewestFirst(t *testing.T) {
	f := setup(t)

	f.seedLine(t, "2026-06-01", 1, "15.00", "4.00")
	f.seedLine(t, "2026-06-03", 1, "15.00", "4.00")
	f.seedLine(t, "2026-06-02", 1, "15.00", "4.00")

	w := testutil.DoRequest(f.router, http.MethodGet, "/api/sales/", nil, f.token)
	testutil.RequireStatus(t, w, http.StatusOK)

	list := testutil.ParseListResponse(t, w)
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	dates := []string{
		list[0]["sale_date"].(string),
		list[1]["sale_date"].(string),
		list[2]["sale_date"].(string),
	}
	if dates[0] != "2026-06-03" || dates[1] != "2026-06-02" || dates[2] != "2026-06-01" {
		t.Errorf("order = %v", dates)
	}
}

func TestListSalesFilters(t *testing.T) {
	f := setup(t)

	sticker := database.SKU{UserID: f.user.ID, Name: "Cat Sticker", ItemType: "sticker"}
	f.db.Create(&sticker)
	f.seedLine(t, "2026-06-01", 1, "15.00", "4.00")
	f.seedLine(t, "2025-11-20", 2, "15.00", "4.00")
	bundled := database.SaleLine{
		UserID: f.user.ID, EventID: f.event.ID, SKUID: sticker.ID,
		SaleDate: "2026-06-01", Units: 1, PriceUnit: "3.00", CostUnit: "0.50",
		IsBundle: true, BundleID: "BNDL-test",
	}
	f.db.Create(&bundled)

	cases := []struct {
		name  string
		query string
		want  int
	}{
		{"by year", "?year=2026", 2},
		{"by year and month", "?year=2025&month=11", 1},
		{"by sku", "?sku=" + f.sku.ID.String(), 2},
		{"by type", "?type=sticker", 1},
		{"bundles only", "?bundle=1", 1},
		{"non-bundles only", "?bundle=0", 2},
		{"by event", "?event=" + f.event.ID.String(), 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.DoRequest(f.router, http.MethodGet, "/api/sales/"+tc.query, nil, f.token)
			testutil.RequireStatus(t, w, http.StatusOK)
			if list := testutil.ParseListResponse(t, w); len(list) != tc.want {
				t.Errorf("len = %d, want %d", len(list), tc.want)
			}
		})
	}
}

func TestListSalesBadFilterIsEmptyNotError(t *testing.T) {
	f := setup(t)
	f.seedLine(t, "2026-06-01", 1, "15.00", "4.00")

	for _, query := range []string{"?event=not-a-uuid", "?year=twenty", "?year=2026&month=13", "?sku=nope"} {
		w := testutil.DoRequest(f.router, http.MethodGet, "/api/sales/"+query, nil, f.token)
		testutil.RequireStatus(t, w, http.StatusOK)
		if list := testutil.ParseListResponse(t, w); len(list) != 0 {
			t.Errorf("%s: len = %d, want 0", query, len(list))
		}
	}
}

func TestPatchSale(t *testing.T) {
	f := setup(t)
	line := f.seedLine(t, "2026-06-01", 1, "15.00", "4.00")

	w := testutil.DoRequest(f.router, http.MethodPatch, "/api/sales/"+line.ID.String()+"/", map[string]interface{}{
		"units":      2,
		"price_unit": "12.5",
	}, f.token)
	testutil.RequireStatus(t, w, http.StatusOK)

	body := testutil.ParseResponse(t, w)
	if body["price_unit"] != "12.50" || body["revenue"] != "25.00" {
		t.Errorf("patched = price %v revenue %v", body["price_unit"], body["revenue"])
	}
}

func TestPatchSaleGiftForcesPrice(t *testing.T) {
	f := setup(t)
	line := f.seedLine(t, "2026-06-01", 1, "15.00", "4.00")

	w := testutil.DoRequest(f.router, http.MethodPatch, "/api/sales/"+line.ID.String()+"/", map[string]interface{}{
		"is_gift": true,
	}, f.token)
	testutil.RequireStatus(t, w, http.StatusOK)

	body := testutil.ParseResponse(t, w)
	if body["price_unit"] != "0.00" || body["gross_profit"] != "-4.00" {
		t.Errorf("gift patch = price %v gp %v", body["price_unit"], body["gross_profit"])
	}
}

func TestDeleteSale(t *testing.T) {
	f := setup(t)
	line := f.seedLine(t, "2026-06-01", 1, "15.00", "4.00")

	w := testutil.DoRequest(f.router, http.MethodDelete, "/api/sales/"+line.ID.String()+"/", nil, f.token)
	testutil.RequireStatus(t, w, http.StatusNoContent)

	w = testutil.DoRequest(f.router, http.MethodGet, "/api/sales/"+line.ID.String()+"/", nil, f.token)
	testutil.RequireStatus(t, w, http.StatusNotFound)
}

func TestSaleScopedToUser(t *testing.T) {
	f := setup(t)
	line := f.seedLine(t, "2026-06-01", 1, "15.00", "4.00")

	other := testutil.SeedUser(t, f.db, "rin")
	otherToken := testutil.TokenFor(other)

	w := testutil.DoRequest(f.router, http.MethodGet, "/api/sales/"+line.ID.String()+"/", nil, otherToken)
	testutil.RequireStatus(t, w, http.StatusNotFound)

	w = testutil.DoRequest(f.router, http.MethodGet, "/api/sales/", nil, otherToken)
	testutil.RequireStatus(t, w, http.StatusOK)
	if list := testutil.ParseListResponse(t, w); len(list) != 0 {
		t.Errorf("foreign user sees %d lines", len(list))
	}
}
