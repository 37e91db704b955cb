package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// tokenStore is a test stand-in for whatever persists the session.
type tokenStore struct {
	mu   sync.Mutex
	pair TokenPair
}

func (s *tokenStore) get() TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

func (s *tokenStore) setAccess(access string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair.Access = access
}

func TestDoRefreshesOnceAndRetries(t *testing.T) {
	var fetches, refreshes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/token/refresh/":
			refreshes++
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["refresh"] != "refresh-tok" {
				t.Errorf("refresh payload = %v", body)
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"access": "fresh"})
		case "/api/events/":
			fetches++
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`[{"id":"e1","name":"Summer Fest"}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	store := &tokenStore{pair: TokenPair{Access: "stale", Refresh: "refresh-tok"}}
	c := New(srv.URL, store.get, store.setAccess)

	events, err := c.ListEvents(context.Background())
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].Name != "Summer Fest" {
		t.Errorf("events = %+v", events)
	}
	if fetches != 2 {
		t.Errorf("data fetches = %d, want 2 (original + retry)", fetches)
	}
	if refreshes != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", refreshes)
	}
	if store.get().Access != "fresh" {
		t.Errorf("access not persisted, store holds %q", store.get().Access)
	}
}

func TestDoFailedRefreshIsSessionExpired(t *testing.T) {
	var refreshes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/token/refresh/" {
			refreshes++
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": "Invalid refresh token"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := &tokenStore{pair: TokenPair{Access: "stale", Refresh: "dead"}}
	c := New(srv.URL, store.get, store.setAccess)

	_, err := c.ListEvents(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if refreshes != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", refreshes)
	}
}

func TestDoNoRefreshTokenPassesThrough(t *testing.T) {
	var refreshes int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/token/refresh/" {
			refreshes++
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "Authorization header required"}`))
	}))
	defer srv.Close()

	store := &tokenStore{}
	c := New(srv.URL, store.get, store.setAccess)

	_, err := c.ListEvents(context.Background())
	if err == nil || !strings.Contains(err.Error(), "Authorization header required") {
		t.Fatalf("err = %v, want surfaced 401 body", err)
	}
	if refreshes != 0 {
		t.Errorf("refresh calls = %d, want none without a refresh token", refreshes)
	}
}

func TestDecodeListShapes(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"bare array", `[{"id":"a"},{"id":"b"}]`},
		{"results wrapper", `{"count": 2, "results": [{"id":"a"},{"id":"b"}]}`},
		{"data wrapper", `{"data": [{"id":"a"},{"id":"b"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out []SKU
			if err := decodeList(strings.NewReader(tc.payload), &out); err != nil {
				t.Fatalf("decodeList: %v", err)
			}
			if len(out) != 2 || out[0].ID != "a" || out[1].ID != "b" {
				t.Errorf("decoded = %+v", out)
			}
		})
	}

	var out []SKU
	if err := decodeList(strings.NewReader(`{"items": []}`), &out); err == nil {
		t.Error("unknown wrapper key should fail, got nil error")
	}
}

func TestAPIErrorPrefersDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail": "Cannot delete SKU with sales."}`))
	}))
	defer srv.Close()

	store := &tokenStore{pair: TokenPair{Access: "tok"}}
	c := New(srv.URL, store.get, store.setAccess)

	err := c.DeleteSKU(context.Background(), "s1")
	if err == nil || !strings.Contains(err.Error(), "Cannot delete SKU with sales.") {
		t.Fatalf("err = %v, want detail message surfaced", err)
	}
}
