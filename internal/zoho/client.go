package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	pathChartOfAccounts = "books/v3/chartofaccounts"
	pathContacts        = "books/v3/contacts"
	pathItems           = "inventory/v1/items"
	pathPriceBooks      = "inventory/v1/pricebooks"
	pathCurrencies      = "inventory/v1/settings/currencies"
	pathLocations       = "inventory/v1/locations"
)

// Syncer creates approved records on the platform. None of the calls is
// idempotent: repeating one creates a second record.
type Syncer interface {
	CreateAccount(ctx context.Context, p AccountPayload) (ExternalRef, error)
	CreateCustomer(ctx context.Context, p ContactPayload) (ExternalRef, error)
	CreateInventoryItem(ctx context.Context, p ItemPayload) (ExternalRef, error)
	CreatePriceBook(ctx context.Context, p PriceBookPayload) (ExternalRef, error)
}

// Lookup reads reference data used by the submission forms.
type Lookup interface {
	ListChartOfAccounts(ctx context.Context) ([]ChartAccount, error)
	ListItems(ctx context.Context) ([]Item, error)
	ListCurrencies(ctx context.Context) ([]Currency, error)
	ListLocations(ctx context.Context) ([]Location, error)
}

// Client talks to the Books and Inventory REST APIs of one organization.
type Client struct {
	cfg        Config
	tokens     TokenSource
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg Config, tokens TokenSource, log *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, errors.New("zoho: token source is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:        cfg,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.Named("zoho"),
	}, nil
}

func (c *Client) CreateAccount(ctx context.Context, p AccountPayload) (ExternalRef, error) {
	var out struct {
		ChartOfAccount struct {
			AccountID string `json:"account_id"`
		} `json:"chart_of_account"`
	}
	if err := c.do(ctx, "create account", http.MethodPost, pathChartOfAccounts, p, &out); err != nil {
		return ExternalRef{}, err
	}
	return c.ref("create account", out.ChartOfAccount.AccountID)
}

func (c *Client) CreateCustomer(ctx context.Context, p ContactPayload) (ExternalRef, error) {
	var out struct {
		Contact struct {
			ContactID string `json:"contact_id"`
		} `json:"contact"`
	}
	if err := c.do(ctx, "create contact", http.MethodPost, pathContacts, p, &out); err != nil {
		return ExternalRef{}, err
	}
	return c.ref("create contact", out.Contact.ContactID)
}

func (c *Client) CreateInventoryItem(ctx context.Context, p ItemPayload) (ExternalRef, error) {
	var out struct {
		Item struct {
			ItemID string `json:"item_id"`
		} `json:"item"`
	}
	if err := c.do(ctx, "create item", http.MethodPost, pathItems, p, &out); err != nil {
		return ExternalRef{}, err
	}
	return c.ref("create item", out.Item.ItemID)
}

func (c *Client) CreatePriceBook(ctx context.Context, p PriceBookPayload) (ExternalRef, error) {
	var out struct {
		PriceBook struct {
			PricebookID string `json:"pricebook_id"`
		} `json:"pricebook"`
	}
	if err := c.do(ctx, "create pricebook", http.MethodPost, pathPriceBooks, p, &out); err != nil {
		return ExternalRef{}, err
	}
	return c.ref("create pricebook", out.PriceBook.PricebookID)
}

func (c *Client) ListChartOfAccounts(ctx context.Context) ([]ChartAccount, error) {
	var out struct {
		ChartOfAccounts []ChartAccount `json:"chartofaccounts"`
	}
	if err := c.do(ctx, "list accounts", http.MethodGet, pathChartOfAccounts, nil, &out); err != nil {
		return nil, err
	}
	return out.ChartOfAccounts, nil
}

func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	var out struct {
		Items []Item `json:"items"`
	}
	if err := c.do(ctx, "list items", http.MethodGet, pathItems, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) ListCurrencies(ctx context.Context) ([]Currency, error) {
	var out struct {
		Currencies []Currency `json:"currencies"`
	}
	if err := c.do(ctx, "list currencies", http.MethodGet, pathCurrencies, nil, &out); err != nil {
		return nil, err
	}
	return out.Currencies, nil
}

func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var out struct {
		Locations []Location `json:"locations"`
	}
	if err := c.do(ctx, "list locations", http.MethodGet, pathLocations, nil, &out); err != nil {
		return nil, err
	}
	return out.Locations, nil
}

func (c *Client) ref(op, id string) (ExternalRef, error) {
	if id == "" {
		return ExternalRef{}, &SyncError{Operation: op, StatusCode: http.StatusOK, Message: "response carried no record id"}
	}
	return ExternalRef{ID: id}, nil
}

// do issues one API call. A 401 means the cached token went stale and nothing
// was created, so the call is sent once more with a fresh token.
func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return &SyncError{Operation: op, Message: "encode request", Err: err}
		}
	}

	for attempt := 0; ; attempt++ {
		status, body, err := c.send(ctx, op, method, path, payload)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized && attempt == 0 {
			c.log.Warn("access token rejected, refreshing", zap.String("op", op))
			c.tokens.Invalidate()
			continue
		}
		return decode(op, status, body, out)
	}
}

func (c *Client) send(ctx context.Context, op, method, path string, payload []byte) (int, []byte, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return 0, nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	q := url.Values{}
	q.Set("organization_id", c.cfg.OrganizationID)
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIBaseURL+"/"+path+"?"+q.Encode(), reqBody)
	if err != nil {
		return 0, nil, &SyncError{Operation: op, Err: err}
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &SyncError{Operation: op, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return 0, nil, &SyncError{Operation: op, StatusCode: resp.StatusCode, Message: "read response", Err: err}
	}

	c.log.Debug("api call",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp.StatusCode, body, nil
}

func decode(op string, status int, body []byte, out interface{}) error {
	var env envelope
	envErr := json.Unmarshal(body, &env)

	if status < 200 || status >= 300 {
		msg := env.Message
		if envErr != nil || msg == "" {
			msg = truncate(string(body), 512)
		}
		return &SyncError{Operation: op, StatusCode: status, Code: env.Code, Message: msg}
	}
	if envErr != nil {
		return &SyncError{Operation: op, StatusCode: status, Message: "malformed response", Err: envErr}
	}
	if env.Code != 0 {
		return &SyncError{Operation: op, StatusCode: status, Code: env.Code, Message: env.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &SyncError{Operation: op, StatusCode: status, Message: "malformed response", Err: err}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}

var (
	_ Syncer = (*Client)(nil)
	_ Lookup = (*Client)(nil)
)
