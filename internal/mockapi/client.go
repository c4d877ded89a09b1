// internal/mockapi/client.go
package mockapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
)

const (
	EndpointCustomers = "customers"
	EndpointProducts  = "products"
	EndpointOrders    = "orders"
)

// StatusError - API odpowiedziało kodem spoza 2xx
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("mockapi %s: http %d", e.Endpoint, e.StatusCode)
}

// Client pobiera pełne kolekcje z MockAPI: jedno GET na kolekcję, bez stronicowania i ponowień.
type Client struct {
	log     zerolog.Logger
	baseURL string
	http    *http.Client
}

func NewClient(log zerolog.Logger, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient podmienia klienta HTTP (testy, proxy).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

func (c *Client) Customers(ctx context.Context) ([]Customer, error) {
	var out []Customer
	if err := c.fetch(ctx, EndpointCustomers, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.fetch(ctx, EndpointProducts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.fetch(ctx, EndpointOrders, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string, dst any) error {
	u, err := url.JoinPath(c.baseURL, endpoint)
	if err != nil {
		return fmt.Errorf("mockapi %s: zły adres %q: %w", endpoint, c.baseURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mockapi2db/1.0")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mockapi %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := decodeBody(resp)
	if err != nil {
		return fmt.Errorf("mockapi %s: %w", endpoint, err)
	}
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}

	c.log.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("mockapi fetch OK")
	return nil
}

// decodeBody przekodowuje odpowiedź do UTF-8, jeśli Content-Type deklaruje inny charset.
func decodeBody(resp *http.Response) (io.Reader, error) {
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return resp.Body, nil
	}
	cs := normalizeCharset(params["charset"])
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return resp.Body, nil
	}
	r, err := charset.NewReaderLabel(cs, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", cs, err)
	}
	return r, nil
}

// normalizeCharset mapuje nietypowe etykiety na standardowe nazwy rozpoznawane przez charset.NewReaderLabel
func normalizeCharset(cs string) string {
	c := strings.TrimSpace(strings.ToLower(cs))
	switch c {
	case "latin ii", "latin-2", "latin2", "iso8859-2", "iso_8859-2":
		return "iso-8859-2"
	case "cp1250", "windows1250", "win-1250":
		return "windows-1250"
	default:
		return c
	}
}
