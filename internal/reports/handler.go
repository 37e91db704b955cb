package reports

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/tabletally/bookkeeper-backend/pkg/database"
	"github.com/tabletally/bookkeeper-backend/pkg/ledger"
	"github.com/tabletally/bookkeeper-backend/pkg/money"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

var exportHeader = []string{
	"Date", "Event", "Type", "SKU", "Units", "Price/Unit", "Cost/Unit",
	"Revenue", "COGS", "Gross Profit", "Bundle", "Bundle ID", "Gift", "Notes",
}

// ExportSales streams the user's sale lines as an xlsx workbook, one row
// per line plus a totals row. GET /api/reports/sales/export?event=&year=
func (h *Handler) ExportSales(c *gin.Context) {
	userID := c.GetString("user_id")

	q := h.db.Where("user_id = ?", userID).Preload("Event").Preload("SKU")
	if e := c.Query("event"); e != "" {
		if _, err := uuid.Parse(e); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid event id"})
			return
		}
		q = q.Where("event_id = ?", e)
	}
	if y := c.Query("year"); y != "" {
		yr, err := strconv.Atoi(y)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid year"})
			return
		}
		q = q.Where("sale_date BETWEEN ? AND ?", strconv.Itoa(yr)+"-01-01", strconv.Itoa(yr)+"-12-31")
	}

	var lines []database.SaleLine
	if err := q.Order("sale_date ASC").Find(&lines).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to fetch sales"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sales"
	f.SetSheetName(f.GetSheetName(0), sheet)

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, title)
	}

	var totalRevenue, totalCOGS, totalProfit float64
	var totalUnits int
	for i, sl := range lines {
		totals := ledger.ComputeLine(ledger.LineInput{
			Units:     sl.Units,
			PriceUnit: sl.PriceUnit,
			CostUnit:  sl.CostUnit,
			IsGift:    sl.IsGift,
		})

		bundleFlag := "N"
		if sl.IsBundle {
			bundleFlag = "Y"
		}
		giftFlag := "N"
		if sl.IsGift {
			giftFlag = "Y"
		}

		row := []interface{}{
			sl.SaleDate, sl.Event.Name, sl.SKU.ItemType, sl.SKU.Name, sl.Units,
			totals.PriceUnit, totals.CostUnit,
			totals.Revenue, totals.COGS, totals.GrossProfit,
			bundleFlag, sl.BundleID, giftFlag, sl.Notes,
		}
		for col, val := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, val)
		}

		totalUnits += sl.Units
		totalRevenue += money.Parse(totals.Revenue)
		totalCOGS += money.Parse(totals.COGS)
		totalProfit += money.Parse(totals.GrossProfit)
	}

	totalRow := len(lines) + 2
	totals := map[int]interface{}{
		1:  "Total",
		5:  totalUnits,
		8:  money.Format(totalRevenue),
		9:  money.Format(totalCOGS),
		10: money.Format(totalProfit),
	}
	for col, val := range totals {
		cell, _ := excelize.CoordinatesToCellName(col, totalRow)
		f.SetCellValue(sheet, cell, val)
	}

	filename := fmt.Sprintf("sales-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to write workbook"})
		return
	}
}
