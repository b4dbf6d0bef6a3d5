package avro

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/payment"
)

func TestReconcileCommandRoundtrip(t *testing.T) {
	codec, err := NewCodec(ReconcileCommandSchema)
	require.NoError(t, err)

	cmd := payment.ReconcileCommand{
		OrderID: "KTR-AAAA000011",
		Code:    "PAYMENT_SUCCESS",
		Raw:     json.RawMessage(`{"code":"PAYMENT_SUCCESS","data":{"merchantOrderId":"KTR-AAAA000011"}}`),
	}

	binary, err := codec.Encode(ReconcileToNative(cmd))
	require.NoError(t, err)

	native, err := codec.Decode(binary)
	require.NoError(t, err)

	got, err := ReconcileFromNative(native)
	require.NoError(t, err)
	assert.Equal(t, cmd.OrderID, got.OrderID)
	assert.Equal(t, cmd.Code, got.Code)
	assert.JSONEq(t, string(cmd.Raw), string(got.Raw))
}

func TestReconcileCommandOptionalFields(t *testing.T) {
	codec, err := NewCodec(ReconcileCommandSchema)
	require.NoError(t, err)

	cmd := payment.ReconcileCommand{OrderID: "KTR-BBBB000011"}

	binary, err := codec.Encode(ReconcileToNative(cmd))
	require.NoError(t, err)

	native, err := codec.Decode(binary)
	require.NoError(t, err)

	got, err := ReconcileFromNative(native)
	require.NoError(t, err)
	assert.Equal(t, "KTR-BBBB000011", got.OrderID)
	assert.Empty(t, got.Code)
	assert.Empty(t, got.Raw)
}

func TestReconcileFromNative_MissingOrderID(t *testing.T) {
	_, err := ReconcileFromNative(map[string]any{"code": nil, "raw": nil})
	assert.Error(t, err)
}
