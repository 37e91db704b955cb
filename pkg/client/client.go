// Package client is a Go client for the bookkeeper API. Requests carry a
// bearer access token; a rejected token triggers exactly one refresh and one
// retry before the call is given up as an expired session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrSessionExpired is returned when the access token is rejected and the
// refresh attempt fails; the caller should send the user back to login.
var ErrSessionExpired = errors.New("session expired, please log in again")

// TokenPair holds the current access and refresh tokens.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Client talks to the bookkeeper API. Tokens is consulted per request so a
// refreshed access token persisted by SetAccess is picked up immediately.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// Tokens returns the current token pair.
	Tokens func() TokenPair
	// SetAccess persists a refreshed access token.
	SetAccess func(access string)
}

// New builds a client for the given base URL.
func New(baseURL string, tokens func() TokenPair, setAccess func(string)) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
		Tokens:     tokens,
		SetAccess:  setAccess,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte, access string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	return req, nil
}

// Do issues an authenticated request. On a 401, and only when a refresh
// token is available, it performs a single refresh call, persists the new
// access token, and retries the original request once. Any failure of the
// retried request is surfaced unchanged.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	tokens := c.Tokens()
	req, err := c.newRequest(ctx, method, path, payload, tokens.Access)
	if err != nil {
		return nil, err
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusUnauthorized || tokens.Refresh == "" {
		return res, nil
	}
	res.Body.Close()

	access, err := c.refresh(ctx, tokens.Refresh)
	if err != nil {
		return nil, err
	}
	c.SetAccess(access)

	retry, err := c.newRequest(ctx, method, path, payload, access)
	if err != nil {
		return nil, err
	}
	return c.HTTPClient.Do(retry)
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	payload, _ := json.Marshal(map[string]string{"refresh": refreshToken})
	req, err := c.newRequest(ctx, http.MethodPost, "/api/token/refresh/", payload, "")
	if err != nil {
		return "", err
	}
	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", ErrSessionExpired
	}

	var out struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil || out.Access == "" {
		return "", ErrSessionExpired
	}
	return out.Access, nil
}

// doJSON runs Do and decodes a 2xx JSON body into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	res, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return apiError(res)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func apiError(res *http.Response) error {
	raw, _ := io.ReadAll(res.Body)
	var body struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)
	msg := body.Detail
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return fmt.Errorf("api: %s: %s", res.Status, msg)
}

func mustJSON(v interface{}) []byte {
	raw, _ := json.Marshal(v)
	return raw
}

func decodeJSON(res *http.Response, out interface{}) error {
	return json.NewDecoder(res.Body).Decode(out)
}

// decodeList reads a list payload that may arrive as a bare JSON array or
// wrapped as {"results": [...]} / {"data": [...]}. The shape ambiguity stops
// here; callers always see a plain slice.
func decodeList(r io.Reader, out interface{}) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return err
	}
	if results, ok := wrapper["results"]; ok {
		return json.Unmarshal(results, out)
	}
	if data, ok := wrapper["data"]; ok {
		return json.Unmarshal(data, out)
	}
	return fmt.Errorf("api: unrecognized list payload")
}

func (c *Client) getList(ctx context.Context, path string, out interface{}) error {
	res, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return apiError(res)
	}
	return decodeList(res.Body, out)
}
