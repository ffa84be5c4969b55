package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/jackc/pgx/v5"
)

const productCols = `id, name, price, discount_percent, category, active, reorder_threshold, created_at, updated_at`

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.DiscountPercent, &p.Category, &p.Active,
		&p.ReorderThreshold, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (t *Tx) InsertProduct(ctx context.Context, p *domain.Product) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO products(id, name, price, discount_percent, category, active, reorder_threshold)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Price, p.DiscountPercent, p.Category, p.Active, p.ReorderThreshold,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err, "product")
}

func (t *Tx) UpdateProduct(ctx context.Context, p *domain.Product) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE products
		SET name=$2, price=$3, discount_percent=$4, category=$5, active=$6, reorder_threshold=$7, updated_at=now()
		WHERE id=$1
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Price, p.DiscountPercent, p.Category, p.Active, p.ReorderThreshold,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return notFound(mapErr(err, "product"), "product %s not found", p.ID)
}

func (t *Tx) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := scanProduct(t.tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	return p, notFound(err, "product %s not found", id)
}

func (t *Tx) FindProductByName(ctx context.Context, name string) (domain.Product, error) {
	p, err := scanProduct(t.tx.QueryRow(ctx,
		`SELECT `+productCols+` FROM products WHERE name=$1 ORDER BY created_at LIMIT 1`, name))
	return p, notFound(err, "product %q not found", name)
}

func (t *Tx) ListProducts(ctx context.Context, activeOnly bool, page store.Page) ([]domain.Product, error) {
	limit, offset := pageArgs(page)
	rows, err := t.tx.Query(ctx, `
		SELECT `+productCols+` FROM products
		WHERE ($1 = false OR active)
		ORDER BY lower(name), id
		LIMIT $2 OFFSET $3`, activeOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const variantCols = `id, product_id, color, size, stock, damaged_stock, wash_stock, repackage_stock, created_at, updated_at`

func scanVariant(row pgx.Row) (domain.Variant, error) {
	var v domain.Variant
	err := row.Scan(&v.ID, &v.ProductID, &v.Color, &v.Size, &v.Stock, &v.DamagedStock,
		&v.WashStock, &v.RepackageStock, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// InsertVariant always starts every counter at zero; opening stock is booked
// through the ledger so it shows up in the movement history.
func (t *Tx) InsertVariant(ctx context.Context, v *domain.Variant) error {
	v.Stock, v.DamagedStock, v.WashStock, v.RepackageStock = 0, 0, 0, 0
	err := t.tx.QueryRow(ctx, `
		INSERT INTO product_variants(id, product_id, color, size)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		v.ID, v.ProductID, v.Color, v.Size,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	return mapErr(err, fmt.Sprintf("variant %s/%s", v.Color, v.Size))
}

func (t *Tx) GetVariant(ctx context.Context, id string) (domain.Variant, error) {
	v, err := scanVariant(t.tx.QueryRow(ctx, `SELECT `+variantCols+` FROM product_variants WHERE id=$1`, id))
	return v, notFound(err, "variant %s not found", id)
}

func (t *Tx) FindVariant(ctx context.Context, productID, size string) (domain.Variant, error) {
	v, err := scanVariant(t.tx.QueryRow(ctx, `
		SELECT `+variantCols+` FROM product_variants
		WHERE product_id=$1 AND size=$2
		ORDER BY created_at LIMIT 1`, productID, size))
	return v, notFound(err, "no variant of size %q for product %s", size, productID)
}

func (t *Tx) ListVariants(ctx context.Context, productID string) ([]domain.Variant, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+variantCols+` FROM product_variants
		WHERE product_id=$1 ORDER BY created_at, id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Variant, 0)
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// AdjustStock is a single guarded UPDATE: the row lock it takes serializes
// concurrent writers and the WHERE clause is re-checked after the wait, so two
// decrements can never both pass on the last unit.
func (t *Tx) AdjustStock(ctx context.Context, variantID string, bucket domain.Bucket, delta int) (int, error) {
	if !bucket.Valid() {
		return 0, domain.Invalid("unknown stock bucket %q", bucket)
	}
	col := string(bucket)

	var after int
	err := t.tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE product_variants SET %[1]s = %[1]s + $2, updated_at = now()
		WHERE id = $1 AND %[1]s + $2 >= 0
		RETURNING %[1]s`, col), variantID, delta).Scan(&after)
	if err == nil {
		return after, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	var cur int
	err = t.tx.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM product_variants WHERE id=$1`, col), variantID).Scan(&cur)
	if err != nil {
		return 0, notFound(err, "variant %s not found", variantID)
	}
	return cur, &domain.ShortageError{VariantID: variantID, Bucket: bucket, Required: -delta, Available: cur}
}

func (t *Tx) InsertMovement(ctx context.Context, m *domain.StockMovement) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO stock_movements(id, variant_id, bucket, delta, before, after, reason, ref_type, ref_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		m.ID, m.VariantID, string(m.Bucket), m.Delta, m.Before, m.After, m.Reason, m.RefType, m.RefID,
	).Scan(&m.CreatedAt)
}

func (t *Tx) ListMovements(ctx context.Context, variantID string, page store.Page) ([]domain.StockMovement, error) {
	limit, offset := pageArgs(page)
	rows, err := t.tx.Query(ctx, `
		SELECT id, variant_id, bucket, delta, before, after, reason, ref_type, ref_id, created_at
		FROM stock_movements WHERE variant_id=$1
		ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, variantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.StockMovement, 0)
	for rows.Next() {
		var m domain.StockMovement
		var bucket string
		if err := rows.Scan(&m.ID, &m.VariantID, &bucket, &m.Delta, &m.Before, &m.After,
			&m.Reason, &m.RefType, &m.RefID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Bucket = domain.Bucket(bucket)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *Tx) LowStock(ctx context.Context) ([]store.LowStockRow, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT p.id, p.name, v.id, v.color, v.size, v.stock, p.reorder_threshold
		FROM product_variants v JOIN products p ON p.id = v.product_id
		WHERE p.active AND v.stock <= p.reorder_threshold
		ORDER BY v.stock, v.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]store.LowStockRow, 0)
	for rows.Next() {
		var r store.LowStockRow
		if err := rows.Scan(&r.ProductID, &r.ProductName, &r.VariantID, &r.Color, &r.Size, &r.Stock, &r.Threshold); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
