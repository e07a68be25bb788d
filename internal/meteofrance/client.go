// Package meteofrance talks to the Meteo-France DPClim API. Extracts are
// produced in two phases: an order is submitted for a station and time
// window, then the generated file is fetched by order id.
package meteofrance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hppeng/hpp-platform/internal/domain"
)

// Client implements the order-then-fetch protocol for 6-minute rainfall
// extracts. File generation happens server-side, so the fetch phase gets
// a longer timeout than the order phase.
type Client struct {
	apiKey   string
	orderURL string
	fileURL  string

	orderClient *http.Client
	fileClient  *http.Client
}

// Options overrides endpoints and timeouts; zero values take defaults.
type Options struct {
	OrderURL     string
	FileURL      string
	OrderTimeout time.Duration
	FileTimeout  time.Duration
}

func NewClient(apiKey string, opts Options) *Client {
	if opts.OrderTimeout <= 0 {
		opts.OrderTimeout = 60 * time.Second
	}
	if opts.FileTimeout <= 0 {
		opts.FileTimeout = 120 * time.Second
	}
	return &Client{
		apiKey:      apiKey,
		orderURL:    opts.OrderURL,
		fileURL:     opts.FileURL,
		orderClient: &http.Client{Timeout: opts.OrderTimeout},
		fileClient:  &http.Client{Timeout: opts.FileTimeout},
	}
}

// RequestExtract orders and downloads the raw CSV payload for stationCode
// over the half-open UTC window [start, end).
func (c *Client) RequestExtract(ctx context.Context, stationCode string, start, end time.Time) ([]byte, error) {
	orderID, err := c.submitOrder(ctx, stationCode, start, end)
	if err != nil {
		return nil, err
	}
	return c.fetchFile(ctx, orderID)
}

func (c *Client) submitOrder(ctx context.Context, stationCode string, start, end time.Time) (string, error) {
	params := url.Values{
		"id-station":       {stationCode},
		"date-deb-periode": {start.UTC().Format("2006-01-02T15:04:05Z")},
		"date-fin-periode": {end.UTC().Format("2006-01-02T15:04:05Z")},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.orderURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create order request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.orderClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("order request for station %q: %w", stationCode, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read order response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", &domain.ProtocolError{
			StationCode: stationCode,
			WindowStart: start,
			WindowEnd:   end,
			Status:      resp.StatusCode,
			Body:        snippet(body),
		}
	}

	orderID, ok := extractOrderID(body)
	if !ok {
		return "", &domain.ProtocolError{
			StationCode: stationCode,
			WindowStart: start,
			WindowEnd:   end,
			Body:        snippet(body),
		}
	}
	return orderID, nil
}

func (c *Client) fetchFile(ctx context.Context, orderID string) ([]byte, error) {
	params := url.Values{"id-cmde": {orderID}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create file request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.fileClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("file request for order %q: %w", orderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("file fetch for order %q: status %d: %s", orderID, resp.StatusCode, snippet(body))
	}

	return io.ReadAll(resp.Body)
}

func snippet(body []byte) string {
	const max = 400
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
