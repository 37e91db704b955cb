package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tabletally/bookkeeper-backend/pkg/ledger"
	"github.com/tabletally/bookkeeper-backend/pkg/money"
)

// SKU mirrors the server's SKU record.
type SKU struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ItemType     string `json:"item_type"`
	DefaultPrice string `json:"default_price"`
	DefaultCost  string `json:"default_cost"`
}

// Event mirrors the server's event record.
type Event struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// SaleLine mirrors the server's enriched sale line: stored fields, nested
// event/sku references, and the server-computed money summary.
type SaleLine struct {
	ID    string `json:"id"`
	Event struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"event"`
	SKU struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		ItemType string `json:"item_type"`
	} `json:"sku"`
	SaleDate        string `json:"sale_date"`
	Units           int    `json:"units"`
	PriceUnit       string `json:"price_unit"`
	CostUnit        string `json:"cost_unit"`
	IsBundle        bool   `json:"is_bundle"`
	BundleID        string `json:"bundle_id"`
	BundleSize      int    `json:"bundle_size"`
	BundlePrice     string `json:"bundle_price"`
	IsGift          bool   `json:"is_gift"`
	Notes           string `json:"notes"`
	Revenue         string `json:"revenue"`
	COGS            string `json:"cogs"`
	GrossMarginUnit string `json:"gross_margin_unit"`
	GrossProfit     string `json:"gross_profit"`
}

// Row maps the transfer shape to the presentation row used for sorting and
// display. Derived numeric fields are computed here, not patched onto the
// transfer struct.
func (l SaleLine) Row() ledger.SaleRow {
	return ledger.SaleRow{
		ID:             l.ID,
		SaleDate:       l.SaleDate,
		EventName:      l.Event.Name,
		SKUName:        l.SKU.Name,
		ItemType:       l.SKU.ItemType,
		Units:          l.Units,
		PriceUnit:      l.PriceUnit,
		CostUnit:       l.CostUnit,
		Revenue:        l.Revenue,
		COGS:           l.COGS,
		GrossProfit:    l.GrossProfit,
		GrossProfitNum: money.Parse(l.GrossProfit),
		IsBundle:       l.IsBundle,
		BundleID:       l.BundleID,
		IsGift:         l.IsGift,
		Notes:          l.Notes,
	}
}

// Rows converts a fetched list into presentation rows.
func Rows(lines []SaleLine) []ledger.SaleRow {
	rows := make([]ledger.SaleRow, len(lines))
	for i, l := range lines {
		rows[i] = l.Row()
	}
	return rows
}

// Login exchanges credentials for a token pair. No bearer token is attached
// and no retry applies.
func (c *Client) Login(ctx context.Context, username, password string) (TokenPair, error) {
	payload := map[string]string{"username": username, "password": password}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/token/", mustJSON(payload), "")
	if err != nil {
		return TokenPair{}, err
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return TokenPair{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return TokenPair{}, apiError(res)
	}
	var pair TokenPair
	if err := decodeJSON(res, &pair); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}

// ListSKUs fetches all SKUs.
func (c *Client) ListSKUs(ctx context.Context) ([]SKU, error) {
	var skus []SKU
	err := c.getList(ctx, "/api/skus/", &skus)
	return skus, err
}

// CreateSKU creates a SKU.
func (c *Client) CreateSKU(ctx context.Context, name, itemType, defaultPrice, defaultCost string) (SKU, error) {
	body := map[string]string{
		"name":          name,
		"item_type":     itemType,
		"default_price": money.Normalize(defaultPrice),
		"default_cost":  money.Normalize(defaultCost),
	}
	var sku SKU
	err := c.doJSON(ctx, http.MethodPost, "/api/skus/", body, &sku)
	return sku, err
}

// UpdateSKU patches the given fields of a SKU.
func (c *Client) UpdateSKU(ctx context.Context, id string, fields map[string]string) (SKU, error) {
	var sku SKU
	err := c.doJSON(ctx, http.MethodPatch, "/api/skus/"+id+"/", fields, &sku)
	return sku, err
}

// DeleteSKU deletes a SKU. Fails while sale lines still reference it.
func (c *Client) DeleteSKU(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/skus/"+id+"/", nil, nil)
}

// ListEvents fetches all events.
func (c *Client) ListEvents(ctx context.Context) ([]Event, error) {
	var events []Event
	err := c.getList(ctx, "/api/events/", &events)
	return events, err
}

// CreateEvent creates an event.
func (c *Client) CreateEvent(ctx context.Context, name string, startDate, endDate *string) (Event, error) {
	body := map[string]interface{}{"name": name, "start_date": startDate, "end_date": endDate}
	var ev Event
	err := c.doJSON(ctx, http.MethodPost, "/api/events/", body, &ev)
	return ev, err
}

// DeleteEvent deletes an event; force cascades its sales.
func (c *Client) DeleteEvent(ctx context.Context, id string, force bool) error {
	path := "/api/events/" + id + "/"
	if force {
		path += "?force=1"
	}
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// SaleFilter narrows ListSales. Zero values mean no filter.
type SaleFilter struct {
	Event  string
	Year   string
	Month  string
	SKU    string
	Type   string
	Bundle string
}

func (f SaleFilter) query() string {
	q := url.Values{}
	if f.Event != "" {
		q.Set("event", f.Event)
	}
	if f.Year != "" {
		q.Set("year", f.Year)
	}
	if f.Month != "" {
		q.Set("month", f.Month)
	}
	if f.SKU != "" {
		q.Set("sku", f.SKU)
	}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if f.Bundle != "" {
		q.Set("bundle", f.Bundle)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// ListSales fetches sale lines matching the filter.
func (c *Client) ListSales(ctx context.Context, filter SaleFilter) ([]SaleLine, error) {
	var lines []SaleLine
	err := c.getList(ctx, "/api/sales/"+filter.query(), &lines)
	return lines, err
}

// NewSaleLine is the creation payload for one sale line.
type NewSaleLine struct {
	EventID     string `json:"event_id"`
	SKUID       string `json:"sku_id"`
	SaleDate    string `json:"sale_date"`
	Units       int    `json:"units"`
	PriceUnit   string `json:"price_unit"`
	CostUnit    string `json:"cost_unit"`
	IsBundle    bool   `json:"is_bundle"`
	BundleID    string `json:"bundle_id,omitempty"`
	BundleSize  int    `json:"bundle_size,omitempty"`
	BundlePrice string `json:"bundle_price,omitempty"`
	IsGift      bool   `json:"is_gift"`
	Notes       string `json:"notes,omitempty"`
}

// CreateSale records a single (non-bundle) sale line.
func (c *Client) CreateSale(ctx context.Context, line NewSaleLine) (SaleLine, error) {
	line.Units = money.ClampUnits(line.Units)
	line.PriceUnit = money.Normalize(line.PriceUnit)
	line.CostUnit = money.Normalize(line.CostUnit)
	var out SaleLine
	err := c.doJSON(ctx, http.MethodPost, "/api/sales/", line, &out)
	return out, err
}

// DeleteSale removes a sale line.
func (c *Client) DeleteSale(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/sales/"+id+"/", nil, nil)
}
