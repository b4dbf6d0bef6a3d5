package phonepe

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/payment"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/config"
)

func testConfig(baseURL string) config.PhonePeConfig {
	return config.PhonePeConfig{
		BaseURL:             baseURL,
		QRInitEndpoint:      "/v3/qr/init",
		TransactionEndpoint: "/v3/transaction",
		CallbackURL:         "https://kiosk.example.com/api/payments/webhook/phonepe",
		MerchantID:          "MERCHANT1",
		SaltKey:             "salt-key",
		SaltKeyIndex:        "1",
		StoreID:             "store-1",
		TerminalID:          "term-1",
		ProviderID:          "PROVIDER1",
	}
}

func TestCreateQR(t *testing.T) {
	var gotVerify, gotCallback string
	var gotEnvelope struct {
		Request string `json:"request"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v3/qr/init", r.URL.Path)
		gotVerify = r.Header.Get("X-VERIFY")
		gotCallback = r.Header.Get("X-CALLBACK-URL")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotEnvelope))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"code":"SUCCESS","data":{"qrString":"upi://pay?x=1","expiresIn":240}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	result, err := client.CreateQR(context.Background(), "KTR-AAAA000011", 26000, "")
	require.NoError(t, err)
	assert.Equal(t, "SUCCESS", result.Code)
	assert.Equal(t, "upi://pay?x=1", result.QRString)
	assert.Equal(t, "KTR-AAAA000011", result.ProviderTxnID)
	assert.Equal(t, 240, result.ExpiresInSeconds)

	// The envelope carries the base64 of the real payload; the signature
	// covers envelope + endpoint + salt key.
	decoded, err := base64.StdEncoding.DecodeString(gotEnvelope.Request)
	require.NoError(t, err)
	var reqPayload map[string]any
	require.NoError(t, json.Unmarshal(decoded, &reqPayload))
	assert.Equal(t, "KTR-AAAA000011", reqPayload["merchantOrderId"])
	assert.Equal(t, float64(26000), reqPayload["amount"])
	assert.Equal(t, "store-1", reqPayload["storeId"])

	sum := sha256.Sum256([]byte(gotEnvelope.Request + "/v3/qr/init" + "salt-key"))
	assert.Equal(t, hex.EncodeToString(sum[:])+"###1", gotVerify)
	assert.Equal(t, "https://kiosk.example.com/api/payments/webhook/phonepe", gotCallback)
}

func TestCreateQR_QRCodeFieldFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"code":"SUCCESS","data":{"instrumentResponse":{"qrData":"upi://pay?y=2"}}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	result, err := client.CreateQR(context.Background(), "KTR-AAAA000022", 100, "")
	require.NoError(t, err)
	assert.Equal(t, "upi://pay?y=2", result.QRString)
	// No expiresIn in the response; the caller applies its default.
	assert.Zero(t, result.ExpiresInSeconds)
}

func TestCreateQR_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	_, err := client.CreateQR(context.Background(), "KTR-AAAA000033", 100, "")
	assert.ErrorIs(t, err, payment.ErrGateway)
}

func TestGetStatus(t *testing.T) {
	var gotVerify string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v3/transaction/MERCHANT1/KTR-BBBB000011/status", r.URL.Path)
		gotVerify = r.Header.Get("X-VERIFY")
		_, _ = w.Write([]byte(`{"success":true,"code":"PAYMENT_SUCCESS","data":{}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	result, err := client.GetStatus(context.Background(), "KTR-BBBB000011")
	require.NoError(t, err)
	assert.Equal(t, "PAYMENT_SUCCESS", result.Code)

	sum := sha256.Sum256([]byte("/v3/transaction/MERCHANT1/KTR-BBBB000011/status" + "salt-key"))
	assert.Equal(t, hex.EncodeToString(sum[:])+"###1", gotVerify)
}

func TestVerifyCallback(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte(`{"code":"PAYMENT_SUCCESS"}`))
	sum := sha256.Sum256([]byte(payload + "salt-key"))
	valid := hex.EncodeToString(sum[:]) + "###1"

	assert.True(t, VerifyCallback(payload, valid, "salt-key", "1"))
	assert.False(t, VerifyCallback(payload, valid, "other-salt", "1"))
	assert.False(t, VerifyCallback(payload, "garbage###1", "salt-key", "1"))
	assert.False(t, VerifyCallback(payload, valid+"x", "salt-key", "1"))
}
