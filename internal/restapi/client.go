// Package restapi talks to the budgetwise REST backend.
package restapi

import (
	"budgetwise/internal/core"
	"budgetwise/internal/ports"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Unwrap maps 404 onto ports.ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ports.ErrNotFound
	}
	return nil
}

// Client implements ports.Backend over HTTP. Requests are paced client side
// and never retried.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRateLimit caps outbound requests per second. Zero disables pacing.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, dest any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "Backend request completed",
		"method", method,
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

// ListBills fetches GET /bills. Malformed records are skipped and reported.
func (c *Client) ListBills(ctx context.Context) ([]core.Bill, []core.IntegrityIssue, error) {
	var records []core.BillRecord
	if err := c.do(ctx, http.MethodGet, "/bills", nil, &records); err != nil {
		return nil, nil, err
	}
	bills, issues := core.DecodeBills(records)
	logIssues(ctx, issues)
	return bills, issues, nil
}

// PayBill posts POST /bills/{id}/pay and returns the updated bill.
func (c *Client) PayBill(ctx context.Context, id int64) (core.Bill, error) {
	var rec core.BillRecord
	if err := c.do(ctx, http.MethodPost, "/bills/"+strconv.FormatInt(id, 10)+"/pay", nil, &rec); err != nil {
		return core.Bill{}, err
	}
	return rec.Bill()
}

func (c *Client) ListInvestments(ctx context.Context) ([]core.Investment, []core.IntegrityIssue, error) {
	var records []core.InvestmentRecord
	if err := c.do(ctx, http.MethodGet, "/investments", nil, &records); err != nil {
		return nil, nil, err
	}
	investments, issues := core.DecodeInvestments(records)
	logIssues(ctx, issues)
	return investments, issues, nil
}

func (c *Client) GetSummary(ctx context.Context) (core.PortfolioSummary, error) {
	var s core.PortfolioSummary
	if err := c.do(ctx, http.MethodGet, "/investments/summary", nil, &s); err != nil {
		return core.PortfolioSummary{}, err
	}
	if s.AssetAllocation == nil {
		s.AssetAllocation = map[core.InvestmentType]float64{}
	}
	return s, nil
}

// UpdatePrice sends PUT /investments/{id}/price?currentPrice=.
func (c *Client) UpdatePrice(ctx context.Context, id int64, price float64) (core.Investment, error) {
	q := url.Values{"currentPrice": {strconv.FormatFloat(price, 'f', -1, 64)}}
	var rec core.InvestmentRecord
	if err := c.do(ctx, http.MethodPut, "/investments/"+strconv.FormatInt(id, 10)+"/price", q, &rec); err != nil {
		return core.Investment{}, err
	}
	return rec.Investment()
}

// Ping checks the backend by listing bills.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/bills", nil, nil)
}

func logIssues(ctx context.Context, issues []core.IntegrityIssue) {
	for _, issue := range issues {
		slog.WarnContext(ctx, "Skipping malformed record from backend",
			"kind", issue.Kind,
			"id", issue.ID,
			"field", issue.Field,
			"reason", issue.Reason)
	}
}
