package postgres

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/jackc/pgx/v5"
)

const orderCols = `id, COALESCE(external_id, ''), user_id, guest_name, guest_phone, guest_email, guest_address,
	guest_city, total_amount, payment_method, status, created_at, updated_at`

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var status string
	err := row.Scan(&o.ID, &o.ExternalID, &o.UserID, &o.GuestName, &o.GuestPhone, &o.GuestEmail,
		&o.GuestAddress, &o.GuestCity, &o.TotalAmount, &o.PaymentMethod, &status, &o.CreatedAt, &o.UpdatedAt)
	o.Status = domain.OrderStatus(status)
	return o, err
}

func (t *Tx) InsertOrder(ctx context.Context, o *domain.Order) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders(id, external_id, user_id, guest_name, guest_phone, guest_email, guest_address,
			guest_city, total_amount, payment_method, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		o.ID, nullable(o.ExternalID), o.UserID, o.GuestName, o.GuestPhone, o.GuestEmail, o.GuestAddress,
		o.GuestCity, o.TotalAmount, o.PaymentMethod, string(o.Status),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return mapErr(err, "order")
	}

	for i, it := range o.Items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, position, product_id, variant_id, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			it.ID, o.ID, i, it.ProductID, nullable(it.VariantID), it.Quantity, it.UnitPrice,
		); err != nil {
			return mapErr(err, "order item")
		}
	}
	return nil
}

func (t *Tx) loadItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, product_id, COALESCE(variant_id, ''), quantity, unit_price
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (t *Tx) getOrder(ctx context.Context, query string, arg string) (domain.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, query, arg))
	if err != nil {
		return o, err
	}
	items, err := t.loadItems(ctx, []string{o.ID})
	if err != nil {
		return o, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []domain.OrderItem{}
	}
	return o, nil
}

func (t *Tx) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	o, err := t.getOrder(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id)
	return o, notFound(err, "order %s not found", id)
}

func (t *Tx) GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error) {
	o, err := t.getOrder(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, id)
	return o, notFound(err, "order %s not found", id)
}

func (t *Tx) FindOrderByExternalID(ctx context.Context, externalID string) (domain.Order, error) {
	o, err := t.getOrder(ctx, `SELECT `+orderCols+` FROM orders WHERE external_id=$1`, externalID)
	return o, notFound(err, "order with external id %s not found", externalID)
}

func (t *Tx) ListOrders(ctx context.Context, f store.OrderFilter) ([]domain.Order, error) {
	limit, offset := pageArgs(f.Page)
	rows, err := t.tx.Query(ctx, `
		SELECT `+orderCols+` FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, string(f.Status), limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0)
	ids := make([]string, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return out, nil
	}

	items, err := t.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
		if out[i].Items == nil {
			out[i].Items = []domain.OrderItem{}
		}
	}
	return out, nil
}

func (t *Tx) SetOrderStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return domain.NotFound("order %s not found", id)
	}
	return nil
}

// DeleteOrder relies on ON DELETE CASCADE for items and return requests.
func (t *Tx) DeleteOrder(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM orders WHERE id=$1`, id)
	if err != nil {
		return mapErr(err, "order")
	}
	if ct.RowsAffected() != 1 {
		return domain.NotFound("order %s not found", id)
	}
	return nil
}
