package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/matside-backend/internal/platform/ctxutil"
	"github.com/yungbote/matside-backend/internal/platform/envutil"
	"github.com/yungbote/matside-backend/internal/platform/httpx"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

type Client interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

type Config struct {
	StoreDomain string
	AccessToken string
	APIVersion  string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
}

func ConfigFromEnv() Config {
	return Config{
		StoreDomain: envutil.String("SHOPIFY_STORE_DOMAIN", ""),
		AccessToken: envutil.String("SHOPIFY_ACCESS_TOKEN", ""),
		APIVersion:  envutil.String("SHOPIFY_API_VERSION", "2024-01"),
		BaseURL:     envutil.String("SHOPIFY_BASE_URL", ""),
		Timeout:     envutil.Duration("SHOPIFY_TIMEOUT_SECONDS", 20*time.Second),
		MaxRetries:  envutil.Int("SHOPIFY_MAX_RETRIES", 3),
	}
}

func (c Config) Configured() bool {
	return strings.TrimSpace(c.AccessToken) != "" &&
		(strings.TrimSpace(c.StoreDomain) != "" || strings.TrimSpace(c.BaseURL) != "")
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, fmt.Errorf("missing SHOPIFY_ACCESS_TOKEN")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		domain := strings.TrimSpace(cfg.StoreDomain)
		if domain == "" {
			return nil, fmt.Errorf("missing SHOPIFY_STORE_DOMAIN")
		}
		domain = strings.TrimPrefix(strings.TrimPrefix(domain, "https://"), "http://")
		cfg.BaseURL = "https://" + strings.TrimRight(domain, "/")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = "2024-01"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "ShopifyClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      httpx.RetryPolicy{MaxRetries: cfg.MaxRetries, Base: time.Second, Max: 10 * time.Second},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
	retry      httpx.RetryPolicy
}

type LineItem struct {
	Title      string
	PriceCents int64
	Quantity   int
	SKU        string
	Properties map[string]string
}

type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

type OrderRequest struct {
	Email          string
	Currency       string
	Customer       Customer
	LineItems      []LineItem
	NoteAttributes map[string]string
	Tags           []string
	Note           string
	// TransactionRef ties the order to the processor charge.
	TransactionRef string
	Gateway        string
}

type Order struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// wire types

type wireProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type wireLineItem struct {
	Title            string         `json:"title"`
	Price            string         `json:"price"`
	Quantity         int            `json:"quantity"`
	SKU              string         `json:"sku,omitempty"`
	RequiresShipping bool           `json:"requires_shipping"`
	Taxable          bool           `json:"taxable"`
	Properties       []wireProperty `json:"properties,omitempty"`
}

type wireCustomer struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type wireTransaction struct {
	Kind          string `json:"kind"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Gateway       string `json:"gateway,omitempty"`
	Authorization string `json:"authorization,omitempty"`
}

type wireOrder struct {
	Email           string            `json:"email,omitempty"`
	Currency        string            `json:"currency,omitempty"`
	FinancialStatus string            `json:"financial_status"`
	SendReceipt     bool              `json:"send_receipt"`
	LineItems       []wireLineItem    `json:"line_items"`
	Customer        *wireCustomer     `json:"customer,omitempty"`
	NoteAttributes  []wireProperty    `json:"note_attributes,omitempty"`
	Tags            string            `json:"tags,omitempty"`
	Note            string            `json:"note,omitempty"`
	Transactions    []wireTransaction `json:"transactions,omitempty"`
}

type createOrderRequest struct {
	Order wireOrder `json:"order"`
}

type createOrderResponse struct {
	Order struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"created_at"`
	} `json:"order"`
}

// FormatPrice renders cents as the decimal string the Admin API expects.
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func (c *client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if len(req.LineItems) == 0 {
		return nil, fmt.Errorf("shopify: at least one line item required")
	}
	var total int64
	items := make([]wireLineItem, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		qty := li.Quantity
		if qty <= 0 {
			qty = 1
		}
		total += li.PriceCents * int64(qty)
		items = append(items, wireLineItem{
			Title:      strings.TrimSpace(li.Title),
			Price:      FormatPrice(li.PriceCents),
			Quantity:   qty,
			SKU:        li.SKU,
			Properties: sortedProps(li.Properties),
		})
	}

	wire := wireOrder{
		Email:           strings.TrimSpace(req.Email),
		Currency:        strings.ToUpper(strings.TrimSpace(req.Currency)),
		FinancialStatus: "paid",
		LineItems:       items,
		NoteAttributes:  sortedProps(req.NoteAttributes),
		Tags:            strings.Join(req.Tags, ", "),
		Note:            req.Note,
	}
	if cust := req.Customer; cust.Email != "" || cust.FirstName != "" || cust.LastName != "" {
		wire.Customer = &wireCustomer{
			FirstName: cust.FirstName,
			LastName:  cust.LastName,
			Email:     cust.Email,
			Phone:     cust.Phone,
		}
	}
	if req.TransactionRef != "" {
		gw := req.Gateway
		if gw == "" {
			gw = "stripe"
		}
		wire.Transactions = []wireTransaction{{
			Kind:          "sale",
			Status:        "success",
			Amount:        FormatPrice(total),
			Gateway:       gw,
			Authorization: req.TransactionRef,
		}}
	}

	path := fmt.Sprintf("/admin/api/%s/orders.json", c.cfg.APIVersion)
	_, raw, err := c.do(ctx, http.MethodPost, path, createOrderRequest{Order: wire})
	if err != nil {
		return nil, err
	}
	var out createOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("shopify: decode order response: %w", err)
	}
	if out.Order.ID == 0 {
		return nil, fmt.Errorf("shopify: order response missing id")
	}
	return &Order{
		ID:        fmt.Sprintf("%d", out.Order.ID),
		Name:      out.Order.Name,
		CreatedAt: out.Order.CreatedAt,
	}, nil
}

func sortedProps(m map[string]string) []wireProperty {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]wireProperty, 0, len(keys))
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			out = append(out, wireProperty{Name: k, Value: v})
		}
	}
	return out
}

// ---------- HTTP / retry helpers ----------

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "shopify: <nil error>"
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 2000 {
		msg = msg[:2000] + "..."
	}
	return fmt.Sprintf("shopify http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) do(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var (
		resp *http.Response
		raw  []byte
	)
	_, err := httpx.Retry(ctxutil.Default(ctx), c.log, c.retry, method+" "+path, func(ctx context.Context) (*http.Response, error) {
		var err error
		resp, raw, err = c.doOnce(ctx, method, path, body)
		return resp, err
	})
	if err != nil {
		return nil, nil, err
	}
	return resp, raw, nil
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("X-Shopify-Access-Token", c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
