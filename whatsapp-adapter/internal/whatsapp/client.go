package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/commerce-adapters/internal/httpclient"
	"github.com/Checker-Finance/commerce-adapters/internal/rate"
	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

// Rate limiter keys, one bucket per Graph endpoint family.
const (
	rateKeyCatalogRead  = "graph:catalog:read"
	rateKeyCatalogWrite = "graph:catalog:write"
	rateKeyMessages     = "graph:messages"
)

// ClientConfig holds Graph API connection settings.
type ClientConfig struct {
	BaseURL     string
	APIVersion  string
	Timeout     time.Duration
	ReadRetries int
	MaxPages    int
}

// Client wraps low-level HTTP communication with the Graph API: catalog
// products and the messages endpoint. Reads retry on 5xx; writes and sends
// are attempted once so nothing is created or delivered twice.
type Client struct {
	logger   *zap.Logger
	creds    CredentialSource
	mapper   *Mapper
	base     *url.URL
	version  string
	maxPages int
	read     *httpclient.Executor
	write    *httpclient.Executor
}

// NewClient constructs a Graph API client.
func NewClient(logger *zap.Logger, cfg ClientConfig, creds CredentialSource, mapper *Mapper, rateMgr *rate.Manager) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid graph base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if mapper == nil {
		mapper = NewMapper(nil, "")
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &Client{
		logger:   logger,
		creds:    creds,
		mapper:   mapper,
		base:     base,
		version:  strings.Trim(cfg.APIVersion, "/"),
		maxPages: cfg.MaxPages,
		read:     httpclient.New(logger, rateMgr, httpClient, cfg.ReadRetries, "whatsapp.graph", nil),
		write:    httpclient.New(logger, rateMgr, httpClient, 0, "whatsapp.graph", nil),
	}, nil
}

// ListProducts returns the catalog products, following paging.next up to
// the configured page limit. A listing cut short by the limit is logged
// and returned as is.
// GET /{catalog_id}/products
func (c *Client) ListProducts(ctx context.Context, catalogID string) ([]RawProduct, error) {
	products, truncated, err := c.listProducts(ctx, catalogID)
	if truncated {
		c.logger.Warn("whatsapp.catalog.listing_truncated",
			zap.String("catalog_id", catalogID),
			zap.Int("max_pages", c.maxPages),
			zap.Int("products", len(products)))
	}
	return products, err
}

// ListAllProducts is ListProducts for callers that must see the whole
// catalog. It fails with ErrCatalogTruncated rather than return a partial
// listing.
func (c *Client) ListAllProducts(ctx context.Context, catalogID string) ([]RawProduct, error) {
	products, truncated, err := c.listProducts(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	if truncated {
		return nil, &UpstreamError{
			Kind: ErrUpstreamUnavailable,
			Op:   "list products",
			Err:  fmt.Errorf("%w after %d pages", ErrCatalogTruncated, c.maxPages),
		}
	}
	return products, nil
}

// listProducts reports truncated when a next page exists but was not read,
// either because of the page limit or because it points at another host.
func (c *Client) listProducts(ctx context.Context, catalogID string) ([]RawProduct, bool, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, false, err
	}
	if catalogID == "" {
		return nil, false, &ConfigError{Field: "WHATSAPP_CATALOG_ID"}
	}

	next := c.productsURL(catalogID)
	var products []RawProduct
	for page := 0; next != ""; page++ {
		if page == c.maxPages {
			return products, true, nil
		}
		var resp ProductPage
		if err := c.do(ctx, c.read, http.MethodGet, next, creds, nil, rateKeyCatalogRead, &resp); err != nil {
			return nil, false, c.upstreamError(ErrUpstreamUnavailable, "list products", err)
		}
		products = append(products, resp.Data...)
		next = c.followable(resp.Paging.Next)
		if next == "" && resp.Paging.Next != "" {
			return products, true, nil
		}
	}
	return products, false, nil
}

// GetCatalog returns the first page of catalog products exactly as the Graph API sent it.
// GET /{catalog_id}/products
func (c *Client) GetCatalog(ctx context.Context, catalogID string) (json.RawMessage, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if catalogID == "" {
		return nil, &ConfigError{Field: "WHATSAPP_CATALOG_ID"}
	}

	var raw json.RawMessage
	if err := c.do(ctx, c.read, http.MethodGet, c.productsURL(catalogID), creds, nil, rateKeyCatalogRead, &raw); err != nil {
		return nil, c.upstreamError(ErrUpstreamUnavailable, "get catalog", err)
	}
	return raw, nil
}

// CreateProduct adds a product to the catalog and returns the Graph product id.
// POST /{catalog_id}/products
func (c *Client) CreateProduct(ctx context.Context, catalogID string, p model.Product) (string, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return "", err
	}
	if catalogID == "" {
		return "", &ConfigError{Field: "WHATSAPP_CATALOG_ID"}
	}

	var resp idResponse
	u := c.endpoint(catalogID, "products")
	if err := c.do(ctx, c.write, http.MethodPost, u, creds, c.mapper.ToCreateRequest(p), rateKeyCatalogWrite, &resp); err != nil {
		return "", c.upstreamError(ErrUpstreamRejected, "create product", err)
	}
	return resp.ID, nil
}

// UpdateProduct applies a sparse patch to an existing product item. Only the
// fields set in patch are sent.
// POST /{product_id}
func (c *Client) UpdateProduct(ctx context.Context, catalogID, productID string, patch model.ProductPatch) error {
	creds, err := c.credentials(ctx)
	if err != nil {
		return err
	}
	if catalogID == "" {
		return &ConfigError{Field: "WHATSAPP_CATALOG_ID"}
	}
	if productID == "" {
		return &InvalidProductError{Reason: "product id is required"}
	}
	if patch.Empty() {
		return nil
	}

	var resp idResponse
	u := c.endpoint(productID)
	if err := c.do(ctx, c.write, http.MethodPost, u, creds, c.mapper.ToUpdateRequest(patch), rateKeyCatalogWrite, &resp); err != nil {
		return c.upstreamError(ErrUpstreamRejected, "update product", err)
	}
	return nil
}

// SendMessage posts one message payload.
// POST /{phone_number_id}/messages
func (c *Client) SendMessage(ctx context.Context, msg *outboundMessage) (*SendResult, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if creds.PhoneNumberID == "" {
		return nil, &ConfigError{Field: "WHATSAPP_PHONE_NUMBER_ID"}
	}

	var raw json.RawMessage
	u := c.endpoint(creds.PhoneNumberID, "messages")
	if err := c.do(ctx, c.write, http.MethodPost, u, creds, msg, rateKeyMessages, &raw); err != nil {
		return nil, c.upstreamError(ErrDeliveryFailed, "send "+msg.Type+" message", err)
	}

	var resp sendMessageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, c.upstreamError(ErrDeliveryFailed, "send "+msg.Type+" message", err)
	}
	out := &SendResult{Raw: raw}
	if len(resp.Messages) > 0 {
		out.MessageID = resp.Messages[0].ID
	}
	if len(resp.Contacts) > 0 {
		out.WaID = resp.Contacts[0].WaID
	}
	return out, nil
}

// DefaultCatalogID returns the catalog configured with the credentials.
func (c *Client) DefaultCatalogID(ctx context.Context) (string, error) {
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return "", fmt.Errorf("load graph credentials: %w", err)
	}
	return creds.CatalogID, nil
}

func (c *Client) credentials(ctx context.Context) (Credentials, error) {
	if c.creds == nil {
		return Credentials{}, &ConfigError{Field: "WHATSAPP_ACCESS_TOKEN"}
	}
	creds, err := c.creds.Credentials(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("load graph credentials: %w", err)
	}
	if strings.TrimSpace(creds.AccessToken) == "" {
		return Credentials{}, &ConfigError{Field: "WHATSAPP_ACCESS_TOKEN"}
	}
	return creds, nil
}

// do performs an authenticated request and decodes the JSON response.
func (c *Client) do(ctx context.Context, exec *httpclient.Executor, method, u string, creds Credentials, body any, rateKey string, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	setHeaders(req, creds.AccessToken)

	return exec.DoJSON(ctx, req, rateKey, out)
}

// upstreamError translates an executor failure into the error taxonomy.
func (c *Client) upstreamError(kind error, op string, err error) error {
	var se *httpclient.StatusError
	if !errors.As(err, &se) {
		return &UpstreamError{Kind: kind, Op: op, Err: err}
	}

	ue := &UpstreamError{Kind: kind, Op: op, Status: se.Status, Body: string(se.Body)}
	var ge graphErrorBody
	if json.Unmarshal(se.Body, &ge) == nil && ge.Error != nil {
		ue.Graph = ge.Error
	}
	if se.Status == http.StatusUnauthorized {
		if inv, ok := c.creds.(interface{ Invalidate() }); ok {
			inv.Invalidate()
		}
	}
	return ue
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, 0, len(parts)+1)
	if c.version != "" {
		escaped = append(escaped, c.version)
	}
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return c.base.String() + "/" + strings.Join(escaped, "/")
}

func (c *Client) productsURL(catalogID string) string {
	q := url.Values{}
	q.Set("fields", ProductFields)
	q.Set("limit", "100")
	return c.endpoint(catalogID, "products") + "?" + q.Encode()
}

// followable returns next only when it points at the configured Graph host.
func (c *Client) followable(next string) string {
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != c.base.Scheme || u.Host != c.base.Host {
		c.logger.Warn("whatsapp.catalog.paging_ignored", zap.String("next_host", safeHost(u)))
		return ""
	}
	return next
}

func safeHost(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.Host
}

// setHeaders sets the required headers for Graph API requests.
func setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
