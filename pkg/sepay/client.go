package sepay

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultBaseURL   = "https://my.sepay.vn/userapi"
	defaultTimeout   = 30 * time.Second
	defaultListLimit = 20
)

// Client talks to the SePay transaction ledger API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = base }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListTransactions fetches the most recent incoming transactions for an
// account. Callers scan the batch for a content/amount match.
func (c *Client) ListTransactions(ctx context.Context, accountNumber string, limit int) (*TransactionListResponse, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	endpoint := c.baseURL + "/transactions/list"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build ledger request: %w", err)
	}
	q := req.URL.Query()
	q.Set("account_number", accountNumber)
	q.Set("limit", strconv.Itoa(limit))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ledger request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ledger returned status %d", resp.StatusCode)
	}

	var out TransactionListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode ledger response: %w", err)
	}
	return &out, nil
}

// Reachability answers whether the ledger host can be reached at all. The
// polling loop probes it before each cycle and aborts early when the network
// is down.
type Reachability interface {
	Reachable(ctx context.Context) bool
}

type hostProbe struct {
	host   string
	dialer net.Dialer
}

// NewReachabilityProbe builds a probe that dials the ledger host.
func NewReachabilityProbe(baseURL string) Reachability {
	host := "my.sepay.vn:443"
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Host
		if u.Port() == "" {
			host = net.JoinHostPort(u.Hostname(), "443")
		}
	}
	return &hostProbe{
		host:   host,
		dialer: net.Dialer{Timeout: 3 * time.Second},
	}
}

func (p *hostProbe) Reachable(ctx context.Context) bool {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.host)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
