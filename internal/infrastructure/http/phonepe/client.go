package phonepe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/payment"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/config"
)

// Client talks to the dynamic-QR wallet gateway. Request bodies travel as a
// base64 envelope signed with an X-VERIFY header; see sign().
type Client struct {
	httpClient *http.Client
	cfg        config.PhonePeConfig
}

func NewClient(cfg config.PhonePeConfig) *Client {
	return &Client{
		cfg: cfg,
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

type gatewayResponse struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

type qrData struct {
	QRCode             string `json:"qrCode"`
	QRString           string `json:"qrString"`
	ExpiresIn          int    `json:"expiresIn"`
	InstrumentResponse struct {
		QRData string `json:"qrData"`
	} `json:"instrumentResponse"`
}

// CreateQR requests a payment QR for the order. The gateway returns the QR
// string under one of several keys depending on API version; all three are
// checked.
func (c *Client) CreateQR(ctx context.Context, orderID string, amountMinor int64, storeID string) (*payment.QRCreateResult, error) {
	if storeID == "" {
		storeID = c.cfg.StoreID
	}

	reqPayload := map[string]any{
		"amount":          amountMinor,
		"expiresIn":       180,
		"merchantId":      c.cfg.MerchantID,
		"merchantOrderId": orderID,
		"transactionId":   orderID,
		"message":         fmt.Sprintf("Payment for order %s", orderID),
	}
	if storeID != "" {
		reqPayload["storeId"] = storeID
	}
	if c.cfg.TerminalID != "" {
		reqPayload["terminalId"] = c.cfg.TerminalID
	}

	raw, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal qr request: %w", err)
	}
	b64 := base64.StdEncoding.EncodeToString(raw)

	body, err := json.Marshal(map[string]string{"request": b64})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	url := c.cfg.BaseURL + c.cfg.QRInitEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build qr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", sign(b64+c.cfg.QRInitEndpoint, c.cfg.SaltKey, c.cfg.SaltKeyIndex))
	req.Header.Set("X-PROVIDER-ID", c.cfg.ProviderID)
	req.Header.Set("X-CALLBACK-URL", c.cfg.CallbackURL)
	req.Header.Set("X-CALL-MODE", "POST")

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode qr response: %w", err)
	}

	var data qrData
	if len(parsed.Data) > 0 {
		if err := json.Unmarshal(parsed.Data, &data); err != nil {
			return nil, fmt.Errorf("decode qr data: %w", err)
		}
	}

	qrString := data.QRCode
	if qrString == "" {
		qrString = data.QRString
	}
	if qrString == "" {
		qrString = data.InstrumentResponse.QRData
	}

	return &payment.QRCreateResult{
		Code:             parsed.Code,
		QRString:         qrString,
		ProviderTxnID:    orderID,
		ExpiresInSeconds: data.ExpiresIn,
		Raw:              respBody,
	}, nil
}

// GetStatus polls the transaction status endpoint.
func (c *Client) GetStatus(ctx context.Context, orderID string) (*payment.QRStatusResult, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/status", c.cfg.TransactionEndpoint, c.cfg.MerchantID, orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", sign(endpoint, c.cfg.SaltKey, c.cfg.SaltKeyIndex))
	req.Header.Set("X-PROVIDER-ID", c.cfg.ProviderID)

	respBody, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}

	return &payment.QRStatusResult{
		Code: parsed.Code,
		Raw:  respBody,
	}, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
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
