package rista

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/kds"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/config"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/catalog"
)

// Client talks to the Rista KDS / ERP API. Every request carries a short-lived
// HS256 token minted from the account secret; sale posts additionally carry
// the caller's idempotency key as the token's jti claim.
type Client struct {
	httpClient *http.Client
	cfg        config.RistaConfig
	now        func() time.Time
}

func NewClient(cfg config.RistaConfig) *Client {
	return &Client{
		cfg: cfg,
		now: time.Now,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

func (c *Client) token(requestID string) (string, error) {
	now := c.now().Unix()
	claims := jwt.MapClaims{
		"iss": c.cfg.APIKey,
		"iat": now,
	}
	if requestID != "" {
		claims["jti"] = fmt.Sprintf("%s_%d", requestID, now)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.cfg.SecretKey))
}

func (c *Client) setHeaders(req *http.Request, requestID string) error {
	token, err := c.token(requestID)
	if err != nil {
		return fmt.Errorf("sign api token: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("x-api-token", token)
	req.Header.Set("Content-Type", "application/json")
	return nil
}

// wire shapes: items arrive with a status string, the domain keeps a bool.
type wireItem struct {
	SKUCode          string   `json:"skuCode"`
	Name             string   `json:"itemName"`
	Price            float64  `json:"price"`
	TaxTypeIDs       []string `json:"taxTypeIds"`
	PriceIncludesTax bool     `json:"isPriceIncludesTax"`
	Status           string   `json:"status"`
}

type wireCatalog struct {
	Items    []wireItem        `json:"items"`
	TaxTypes []catalog.TaxType `json:"taxTypes"`
}

// GetCatalog fetches the channel's menu snapshot. Failures wrap
// catalog.ErrUnavailable so callers can degrade uniformly.
func (c *Client) GetCatalog(ctx context.Context, channel string) (catalog.Catalog, error) {
	u := fmt.Sprintf("%s/catalog?%s", c.cfg.BaseURL, url.Values{
		"branch":  {c.cfg.BranchCode},
		"channel": {channel},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("%w: build request: %v", catalog.ErrUnavailable, err)
	}
	if err := c.setHeaders(req, ""); err != nil {
		return catalog.Catalog{}, fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return catalog.Catalog{}, fmt.Errorf("%w: %v", catalog.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return catalog.Catalog{}, fmt.Errorf("%w: status %d", catalog.ErrUnavailable, resp.StatusCode)
	}

	var wire wireCatalog
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return catalog.Catalog{}, fmt.Errorf("%w: decode: %v", catalog.ErrUnavailable, err)
	}

	snapshot := catalog.Catalog{
		Items:    make([]catalog.Item, 0, len(wire.Items)),
		TaxTypes: wire.TaxTypes,
	}
	for _, item := range wire.Items {
		snapshot.Items = append(snapshot.Items, catalog.Item{
			SKUCode:          item.SKUCode,
			Name:             item.Name,
			Price:            item.Price,
			TaxTypeIDs:       item.TaxTypeIDs,
			PriceIncludesTax: item.PriceIncludesTax,
			Active:           item.Status == "Active",
		})
	}
	return snapshot, nil
}

// PostSale submits the sale payload. A 409 means the provider already holds
// a sale under this order transaction id and maps to kds.ErrConflict.
func (c *Client) PostSale(ctx context.Context, sale kds.Sale, requestID string) (string, error) {
	body, err := json.Marshal(sale)
	if err != nil {
		return "", fmt.Errorf("marshal sale: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/sale", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build sale request: %w", err)
	}
	if err := c.setHeaders(req, requestID); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post sale: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return "", kds.ErrConflict
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return "", fmt.Errorf("post sale: status %d: %s", resp.StatusCode, buf.String())
	}

	var parsed struct {
		InvoiceNumber string `json:"invoiceNumber"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode sale response: %w", err)
	}
	return parsed.InvoiceNumber, nil
}

// GetSaleStatus looks up the invoice recorded for an order transaction id.
// Best-effort: any failure reads as "no sale found".
func (c *Client) GetSaleStatus(ctx context.Context, orderTransactionID string) (string, error) {
	u := fmt.Sprintf("%s/sale?%s", c.cfg.BaseURL, url.Values{
		"orderTransactionId": {orderTransactionID},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", nil
	}
	if err := c.setHeaders(req, ""); err != nil {
		return "", nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}

	var sales []struct {
		InvoiceNumber string `json:"invoiceNumber"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sales); err != nil {
		return "", nil
	}
	if len(sales) == 0 {
		return "", nil
	}
	return sales[0].InvoiceNumber, nil
}
