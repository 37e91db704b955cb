package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func draftWith(skus ...SKU) *BundleDraft {
	d := &BundleDraft{EventID: "e1", SaleDate: "2026-06-01"}
	for _, s := range skus {
		d.AddLine(s, 1)
	}
	return d
}

func TestBundleDraftDistribution(t *testing.T) {
	d := draftWith(
		SKU{ID: "s1", DefaultPrice: "8.00", DefaultCost: "3.00"},
		SKU{ID: "s2", DefaultPrice: "6.00", DefaultCost: "2.00"},
	)
	d.SetBundlePrice("10.00")

	if d.Lines[0].PriceUnit != "5.00" || d.Lines[1].PriceUnit != "5.00" {
		t.Errorf("prices = %q, %q, want 5.00 each", d.Lines[0].PriceUnit, d.Lines[1].PriceUnit)
	}
	if rev := d.PreviewRevenue(); rev != "10.00" {
		t.Errorf("preview revenue = %q, want 10.00", rev)
	}
}

func TestBundleDraftRedistributesOnUnitChange(t *testing.T) {
	d := draftWith(
		SKU{ID: "s1", DefaultPrice: "8.00"},
		SKU{ID: "s2", DefaultPrice: "6.00"},
	)
	d.SetBundlePrice("12.00")
	d.SetUnits(0, 2)

	// 12.00 over 3 units: 4.00 per unit, scaled by each line's unit count.
	if d.Lines[0].PriceUnit != "8.00" || d.Lines[1].PriceUnit != "4.00" {
		t.Errorf("prices = %q, %q, want 8.00 and 4.00", d.Lines[0].PriceUnit, d.Lines[1].PriceUnit)
	}
}

func TestBundleDraftGiftToggle(t *testing.T) {
	d := draftWith(
		SKU{ID: "s1", DefaultPrice: "8.00"},
		SKU{ID: "s2", DefaultPrice: "6.00"},
	)
	d.SetBundlePrice("10.00")

	d.ToggleGift(0)
	if d.Lines[0].PriceUnit != "0.00" {
		t.Errorf("gift price = %q, want 0.00", d.Lines[0].PriceUnit)
	}
	// The partner keeps its distributed share; gifting does not redistribute.
	if d.Lines[1].PriceUnit != "5.00" {
		t.Errorf("partner price = %q, want untouched 5.00", d.Lines[1].PriceUnit)
	}

	d.ToggleGift(0)
	if d.Lines[0].PriceUnit != "8.00" {
		t.Errorf("untoggled price = %q, want SKU default 8.00", d.Lines[0].PriceUnit)
	}
}

func TestBundleDraftGiftSurvivesRecalculate(t *testing.T) {
	d := draftWith(
		SKU{ID: "s1", DefaultPrice: "8.00"},
		SKU{ID: "s2", DefaultPrice: "6.00"},
	)
	d.SetBundlePrice("10.00")
	d.ToggleGift(0)
	d.SetBundlePrice("12.00")

	if d.Lines[0].PriceUnit != "0.00" {
		t.Errorf("gift price = %q, want 0.00 preserved across redistribution", d.Lines[0].PriceUnit)
	}
	if d.Lines[1].PriceUnit != "6.00" {
		t.Errorf("partner price = %q, want redistributed 6.00", d.Lines[1].PriceUnit)
	}
}

func TestBundleDraftSubmit(t *testing.T) {
	var posted []NewSaleLine
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/sales/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var line NewSaleLine
		_ = json.NewDecoder(r.Body).Decode(&line)
		posted = append(posted, line)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "created"})
	}))
	defer srv.Close()

	store := &tokenStore{pair: TokenPair{Access: "tok"}}
	c := New(srv.URL, store.get, store.setAccess)

	d := draftWith(
		SKU{ID: "s1", DefaultPrice: "8.00", DefaultCost: "3.00"},
		SKU{ID: "s2", DefaultPrice: "6.00", DefaultCost: "2.00"},
	)
	d.SetBundlePrice("10.00")

	created, err := d.Submit(context.Background(), c)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(created) != 2 || len(posted) != 2 {
		t.Fatalf("created %d lines, posted %d, want 2 each", len(created), len(posted))
	}

	first := posted[0]
	if !first.IsBundle || !strings.HasPrefix(first.BundleID, "BNDL-") {
		t.Errorf("line not marked as bundle: %+v", first)
	}
	if posted[1].BundleID != first.BundleID {
		t.Errorf("bundle ids differ: %q vs %q", first.BundleID, posted[1].BundleID)
	}
	for i, p := range posted {
		if p.BundleSize != 2 || p.BundlePrice != "10.00" {
			t.Errorf("line %d provenance = size %d price %q", i, p.BundleSize, p.BundlePrice)
		}
		if p.PriceUnit != "5.00" {
			t.Errorf("line %d price = %q, want distributed 5.00", i, p.PriceUnit)
		}
	}
}
