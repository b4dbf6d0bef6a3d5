package pinelabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/payment"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/config"
)

// Client talks to the cloud EDC (card terminal) gateway. The terminal polls
// for uploaded transactions, so the status endpoint can block; it gets its
// own long timeout.
type Client struct {
	httpClient       *http.Client
	statusHTTPClient *http.Client
	cfg              config.PineLabsConfig
}

func NewClient(cfg config.PineLabsConfig) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		statusHTTPClient: &http.Client{
			Timeout:   50 * time.Second,
			Transport: transport,
		},
	}
}

// merchantID is numeric on most accounts but the gateway also accepts it as
// a string; preserve whichever form the config carries.
func (c *Client) merchantID() any {
	if n, err := strconv.Atoi(c.cfg.MerchantID); err == nil {
		return n
	}
	return c.cfg.MerchantID
}

func (c *Client) baseURL() string {
	return strings.TrimRight(c.cfg.BaseURL, "/")
}

// CreateCharge uploads a billed transaction so the terminal can pick it up.
// The clientID selects the physical device; when empty the configured
// default applies.
func (c *Client) CreateCharge(ctx context.Context, orderID string, amountMinor int64, clientID string) (*payment.ChargeResult, error) {
	if clientID == "" {
		clientID = c.cfg.ClientID
	}

	reqPayload := map[string]any{
		"TransactionNumber":           orderID,
		"SequenceNumber":              1,
		"AllowedPaymentMode":          "1",
		"ClientID":                    clientID,
		"Amount":                      strconv.FormatInt(amountMinor, 10),
		"UserID":                      c.cfg.UserID,
		"MerchantID":                  c.merchantID(),
		"StoreID":                     c.cfg.StoreID,
		"SecurityToken":               c.cfg.SecurityToken,
		"AutoCancelDurationInMinutes": 5,
	}

	respBody, err := c.post(ctx, c.httpClient, "/api/CloudBasedIntegration/V1/UploadBilledTransaction", reqPayload)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ResponseCode                 json.Number `json:"ResponseCode"`
		ResponseMessage              string      `json:"ResponseMessage"`
		PlutusTransactionReferenceID json.Number `json:"PlutusTransactionReferenceID"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}

	return &payment.ChargeResult{
		ReferenceID: parsed.PlutusTransactionReferenceID.String(),
		Raw:         respBody,
	}, nil
}

// GetChargeStatus polls the terminal for the transaction outcome.
func (c *Client) GetChargeStatus(ctx context.Context, referenceID string) (*payment.ChargeStatusResult, error) {
	refID := 0
	if n, err := strconv.Atoi(referenceID); err == nil {
		refID = n
	}

	reqPayload := map[string]any{
		"MerchantID":                   c.merchantID(),
		"SecurityToken":                c.cfg.SecurityToken,
		"StoreID":                      c.cfg.StoreID,
		"ClientID":                     c.cfg.ClientID,
		"PlutusTransactionReferenceID": refID,
	}

	respBody, err := c.post(ctx, c.statusHTTPClient, "/api/CloudBasedIntegration/V1/GetCloudBasedTxnStatus", reqPayload)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ResponseCode json.Number `json:"ResponseCode"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}

	return &payment.ChargeStatusResult{
		ResponseCode: parsed.ResponseCode.String(),
		Raw:          respBody,
	}, nil
}

func (c *Client) post(ctx context.Context, httpClient *http.Client, path string, reqPayload map[string]any) ([]byte, error) {
	body, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrGateway, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: read body: %v", payment.ErrGateway, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", payment.ErrGateway, resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}
