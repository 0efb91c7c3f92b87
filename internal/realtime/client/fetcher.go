package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/axondapurkita/order-notify/internal/core/domain"
)

// Fetcher loads the recent-orders snapshot used while polling.
type Fetcher interface {
	FetchRecent(ctx context.Context) ([]domain.OrderSummary, error)
}

// HTTPFetcher polls a recent-orders endpoint with the session cookie.
type HTTPFetcher struct {
	URL        string
	CookieName string
	Cookie     string
	Limit      int

	client *http.Client
}

// NewHTTPFetcher creates a fetcher for url. A zero limit leaves the server
// default in place.
func NewHTTPFetcher(url, cookieName, cookie string, limit int) *HTTPFetcher {
	return &HTTPFetcher{
		URL:        url,
		CookieName: cookieName,
		Cookie:     cookie,
		Limit:      limit,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

var _ Fetcher = (*HTTPFetcher)(nil)

type recentResponse struct {
	Data []domain.OrderPayload `json:"data"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FetchRecent performs one GET. A 401 maps to ErrSessionInvalid.
func (f *HTTPFetcher) FetchRecent(ctx context.Context) ([]domain.OrderSummary, error) {
	target, err := url.Parse(f.URL)
	if err != nil {
		return nil, fmt.Errorf("parse orders url: %w", err)
	}
	if f.Limit > 0 {
		q := target.Query()
		q.Set("limit", strconv.Itoa(f.Limit))
		target.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if f.Cookie != "" {
		req.AddCookie(&http.Cookie{Name: f.CookieName, Value: f.Cookie})
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch recent orders: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrSessionInvalid
	case resp.StatusCode != http.StatusOK:
		var e errorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&e)
		return nil, fmt.Errorf("fetch recent orders: status %d %s", resp.StatusCode, e.Code)
	}

	var body recentResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode recent orders: %w", err)
	}

	out := make([]domain.OrderSummary, 0, len(body.Data))
	for _, p := range body.Data {
		out = append(out, p.Summary())
	}
	return out, nil
}
