package avro

// ReconcileCommandSchema describes the payment reconcile command queued by
// the webhook endpoint. The raw provider payload travels as a JSON string so
// provider schema drift never breaks the topic.
const ReconcileCommandSchema = `{
	"type": "record",
	"name": "ReconcileCommand",
	"namespace": "com.ktr.kiosk.payment",
	"fields": [
		{"name": "order_id", "type": "string"},
		{"name": "code", "type": ["null", "string"], "default": null},
		{"name": "raw", "type": ["null", "string"], "default": null}
	]
}`
