package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/domain/order"
)

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const orderColumns = `
	order_id, channel, order_type, items,
	total_exclude_tax, total_include_tax,
	ticket_date, ticket_number, ticket_code,
	payment_method, payment_status,
	store_id, provider_code, provider_txn_id, provider_ref_id, provider_resp,
	qr_string, qr_expires_at,
	kds_status, kds_invoice_id, kds_last_attempt_at, kds_last_error,
	created_at, updated_at`

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	const stmt = `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	now := time.Now().UTC()
	o.UpdatedAt = now

	_, err = r.exec(ctx, stmt,
		o.OrderID, o.Channel, string(o.Type), items,
		o.TotalExcludeTax, o.TotalIncludeTax,
		o.TicketDate, o.TicketNumber, o.TicketCode,
		string(o.PaymentMethod), string(o.PaymentStatus),
		o.StoreID, o.ProviderCode, o.ProviderTxnID, o.ProviderRefID, nullableJSON(o.ProviderResp),
		o.QRString, o.QRExpiresAt,
		string(o.KdsStatus), o.KdsInvoiceID, o.KdsLastAttemptAt, o.KdsLastError,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order %s: duplicate key: %w", o.OrderID, err)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	o, err := scanOrder(r.queryRow(ctx, query, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	const stmt = `
		UPDATE orders SET
			items = $2,
			total_exclude_tax = $3,
			total_include_tax = $4,
			payment_method = $5,
			payment_status = $6,
			store_id = $7,
			provider_code = $8,
			provider_txn_id = $9,
			provider_ref_id = $10,
			provider_resp = $11,
			qr_string = $12,
			qr_expires_at = $13,
			kds_status = $14,
			kds_invoice_id = $15,
			kds_last_attempt_at = $16,
			kds_last_error = $17,
			updated_at = $18
		WHERE order_id = $1`

	o.UpdatedAt = time.Now().UTC()

	tag, err := r.exec(ctx, stmt,
		o.OrderID, items,
		o.TotalExcludeTax, o.TotalIncludeTax,
		string(o.PaymentMethod), string(o.PaymentStatus),
		o.StoreID, o.ProviderCode, o.ProviderTxnID, o.ProviderRefID, nullableJSON(o.ProviderResp),
		o.QRString, o.QRExpiresAt,
		string(o.KdsStatus), o.KdsInvoiceID, o.KdsLastAttemptAt, o.KdsLastError,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) FindCompletedByKdsStatus(ctx context.Context, status domain.KdsStatus, limit int) ([]*domain.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE payment_status = $1 AND kds_status = $2
		ORDER BY created_at
		LIMIT $3`

	rows, err := r.query(ctx, query, string(domain.PaymentCompleted), string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list orders by kds status: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o            domain.Order
		items        []byte
		orderType    string
		method       string
		payStatus    string
		kdsStatus    string
		providerResp []byte
	)

	err := row.Scan(
		&o.OrderID, &o.Channel, &orderType, &items,
		&o.TotalExcludeTax, &o.TotalIncludeTax,
		&o.TicketDate, &o.TicketNumber, &o.TicketCode,
		&method, &payStatus,
		&o.StoreID, &o.ProviderCode, &o.ProviderTxnID, &o.ProviderRefID, &providerResp,
		&o.QRString, &o.QRExpiresAt,
		&kdsStatus, &o.KdsInvoiceID, &o.KdsLastAttemptAt, &o.KdsLastError,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	o.Type = domain.OrderType(orderType)
	o.PaymentMethod = domain.PaymentMethod(method)
	o.PaymentStatus = domain.PaymentStatus(payStatus)
	o.KdsStatus = domain.KdsStatus(kdsStatus)
	if len(providerResp) > 0 {
		o.ProviderResp = json.RawMessage(providerResp)
	}
	return &o, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func (r *OrderRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *OrderRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *OrderRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
