package avro

import (
	"encoding/json"
	"fmt"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/payment"
)

// ReconcileToNative maps a reconcile command onto the schema's native form.
func ReconcileToNative(cmd payment.ReconcileCommand) map[string]any {
	native := map[string]any{
		"order_id": cmd.OrderID,
		"code":     nil,
		"raw":      nil,
	}
	if cmd.Code != "" {
		native["code"] = map[string]any{"string": cmd.Code}
	}
	if len(cmd.Raw) > 0 {
		native["raw"] = map[string]any{"string": string(cmd.Raw)}
	}
	return native
}

// ReconcileFromNative rebuilds a reconcile command from decoded Avro.
func ReconcileFromNative(native any) (payment.ReconcileCommand, error) {
	record, ok := native.(map[string]any)
	if !ok {
		return payment.ReconcileCommand{}, fmt.Errorf("unexpected avro native type %T", native)
	}

	cmd := payment.ReconcileCommand{}
	orderID, ok := record["order_id"].(string)
	if !ok || orderID == "" {
		return payment.ReconcileCommand{}, fmt.Errorf("reconcile command missing order_id")
	}
	cmd.OrderID = orderID

	if s, ok := unionString(record["code"]); ok {
		cmd.Code = s
	}
	if s, ok := unionString(record["raw"]); ok {
		cmd.Raw = json.RawMessage(s)
	}
	return cmd, nil
}

// unionString unwraps goavro's ["null","string"] union representation.
func unionString(v any) (string, bool) {
	union, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := union["string"].(string)
	return s, ok
}
