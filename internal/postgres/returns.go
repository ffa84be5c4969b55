package postgres

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/jackc/pgx/v5"
)

const returnCols = `id, order_id, product_id, COALESCE(variant_id, ''), quantity, type, status, notes, created_at, updated_at`

func scanReturn(row pgx.Row) (domain.ReturnRequest, error) {
	var r domain.ReturnRequest
	var typ, status string
	err := row.Scan(&r.ID, &r.OrderID, &r.ProductID, &r.VariantID, &r.Quantity, &typ, &status,
		&r.Notes, &r.CreatedAt, &r.UpdatedAt)
	r.Type = domain.ReturnType(typ)
	r.Status = domain.ReturnStatus(status)
	return r, err
}

func (t *Tx) InsertReturn(ctx context.Context, r *domain.ReturnRequest) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO return_requests(id, order_id, product_id, variant_id, quantity, type, status, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		r.ID, r.OrderID, r.ProductID, nullable(r.VariantID), r.Quantity, string(r.Type), string(r.Status), r.Notes,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	return mapErr(err, "return request")
}

func (t *Tx) GetReturn(ctx context.Context, id string) (domain.ReturnRequest, error) {
	r, err := scanReturn(t.tx.QueryRow(ctx, `SELECT `+returnCols+` FROM return_requests WHERE id=$1`, id))
	return r, notFound(err, "return %s not found", id)
}

func (t *Tx) GetReturnForUpdate(ctx context.Context, id string) (domain.ReturnRequest, error) {
	r, err := scanReturn(t.tx.QueryRow(ctx, `SELECT `+returnCols+` FROM return_requests WHERE id=$1 FOR UPDATE`, id))
	return r, notFound(err, "return %s not found", id)
}

func (t *Tx) ListReturns(ctx context.Context, f store.ReturnFilter) ([]domain.ReturnRequest, error) {
	limit, offset := pageArgs(f.Page)
	rows, err := t.tx.Query(ctx, `
		SELECT `+returnCols+` FROM return_requests
		WHERE ($1 = '' OR order_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`, f.OrderID, string(f.Status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ReturnRequest, 0)
	for rows.Next() {
		r, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *Tx) UpdateReturn(ctx context.Context, r *domain.ReturnRequest) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE return_requests SET variant_id=$2, status=$3, notes=$4, updated_at=now()
		WHERE id=$1
		RETURNING created_at, updated_at`,
		r.ID, nullable(r.VariantID), string(r.Status), r.Notes,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	return notFound(mapErr(err, "return request"), "return %s not found", r.ID)
}
