package handler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	app "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/payment"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/config"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

type capturingPublisher struct {
	commands []app.ReconcileCommand
	err      error
}

func (p *capturingPublisher) Publish(ctx context.Context, cmd app.ReconcileCommand) error {
	if p.err != nil {
		return p.err
	}
	p.commands = append(p.commands, cmd)
	return nil
}

func newWebhookRouter(publisher *capturingPublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWebhookHandler(publisher, config.PhonePeConfig{
		SaltKey:      "salt-key",
		SaltKeyIndex: "1",
	}, logger.NewNop())
	r.POST("/api/payments/webhook/phonepe", h.HandlePhonePe)
	return r
}

func signPayload(b64 string) string {
	sum := sha256.Sum256([]byte(b64 + "salt-key"))
	return hex.EncodeToString(sum[:]) + "###1"
}

func postCallback(r *gin.Engine, body []byte, xVerify string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook/phonepe", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if xVerify != "" {
		req.Header.Set("X-VERIFY", xVerify)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook_ValidSignatureQueuesCommand(t *testing.T) {
	publisher := &capturingPublisher{}
	r := newWebhookRouter(publisher)

	inner := `{"code":"PAYMENT_SUCCESS","data":{"merchantOrderId":"KTR-AAAA000011","amount":26000}}`
	b64 := base64.StdEncoding.EncodeToString([]byte(inner))
	body, _ := json.Marshal(map[string]string{"response": b64})

	w := postCallback(r, body, signPayload(b64))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	require.Len(t, publisher.commands, 1)
	assert.Equal(t, "KTR-AAAA000011", publisher.commands[0].OrderID)
	assert.Equal(t, "PAYMENT_SUCCESS", publisher.commands[0].Code)
	assert.JSONEq(t, inner, string(publisher.commands[0].Raw))
}

func TestWebhook_BadSignature(t *testing.T) {
	publisher := &capturingPublisher{}
	r := newWebhookRouter(publisher)

	b64 := base64.StdEncoding.EncodeToString([]byte(`{"code":"PAYMENT_SUCCESS","data":{"merchantOrderId":"KTR-X"}}`))
	body, _ := json.Marshal(map[string]string{"response": b64})

	w := postCallback(r, body, "forged###1")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, publisher.commands)
}

func TestWebhook_MissingSignatureHeader(t *testing.T) {
	publisher := &capturingPublisher{}
	r := newWebhookRouter(publisher)

	b64 := base64.StdEncoding.EncodeToString([]byte(`{"code":"PAYMENT_SUCCESS","data":{"merchantOrderId":"KTR-X"}}`))
	body, _ := json.Marshal(map[string]string{"response": b64})

	w := postCallback(r, body, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhook_MalformedBody(t *testing.T) {
	publisher := &capturingPublisher{}
	r := newWebhookRouter(publisher)

	w := postCallback(r, []byte(`not-json`), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postCallback(r, []byte(`{}`), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhook_UndecodablePayload(t *testing.T) {
	publisher := &capturingPublisher{}
	r := newWebhookRouter(publisher)

	// Valid signature over a payload that is not base64 JSON.
	b64 := base64.StdEncoding.EncodeToString([]byte(`garbage{{`))
	body, _ := json.Marshal(map[string]string{"response": b64})

	w := postCallback(r, body, signPayload(b64))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, publisher.commands)
}

func TestWebhook_MissingMerchantOrderIDStillAcks(t *testing.T) {
	publisher := &capturingPublisher{}
	r := newWebhookRouter(publisher)

	b64 := base64.StdEncoding.EncodeToString([]byte(`{"code":"PAYMENT_SUCCESS","data":{}}`))
	body, _ := json.Marshal(map[string]string{"response": b64})

	w := postCallback(r, body, signPayload(b64))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, publisher.commands)
}

func TestWebhook_PublishFailure(t *testing.T) {
	publisher := &capturingPublisher{err: errors.New("broker down")}
	r := newWebhookRouter(publisher)

	b64 := base64.StdEncoding.EncodeToString([]byte(`{"code":"PAYMENT_SUCCESS","data":{"merchantOrderId":"KTR-X"}}`))
	body, _ := json.Marshal(map[string]string{"response": b64})

	w := postCallback(r, body, signPayload(b64))

	// Non-200 so the provider retries the notification.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
