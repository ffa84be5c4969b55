package postgres

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/jackc/pgx/v5"
)

const bookingCols = `id, name, phone, city, product_model, product_size, variant_id, shipping_amount, notes,
	status, type, created_at, updated_at`

func scanBooking(row pgx.Row) (domain.Booking, error) {
	var b domain.Booking
	var status string
	err := row.Scan(&b.ID, &b.Name, &b.Phone, &b.City, &b.ProductModel, &b.ProductSize, &b.VariantID,
		&b.ShippingAmount, &b.Notes, &status, &b.Type, &b.CreatedAt, &b.UpdatedAt)
	b.Status = domain.BookingStatus(status)
	return b, err
}

func (t *Tx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO bookings(id, name, phone, city, product_model, product_size, variant_id,
			shipping_amount, notes, status, type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		b.ID, b.Name, b.Phone, b.City, b.ProductModel, b.ProductSize, b.VariantID,
		b.ShippingAmount, b.Notes, string(b.Status), b.Type,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	return mapErr(err, "booking")
}

func (t *Tx) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id=$1`, id))
	return b, notFound(err, "booking %s not found", id)
}

func (t *Tx) GetBookingForUpdate(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id=$1 FOR UPDATE`, id))
	return b, notFound(err, "booking %s not found", id)
}

func (t *Tx) ListBookings(ctx context.Context, f store.BookingFilter) ([]domain.Booking, error) {
	limit, offset := pageArgs(f.Page)
	rows, err := t.tx.Query(ctx, `
		SELECT `+bookingCols+` FROM bookings
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, string(f.Status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *Tx) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE bookings SET notes=$2, status=$3, updated_at=now()
		WHERE id=$1
		RETURNING created_at, updated_at`,
		b.ID, b.Notes, string(b.Status),
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	return notFound(err, "booking %s not found", b.ID)
}

func (t *Tx) DeleteBooking(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return domain.NotFound("booking %s not found", id)
	}
	return nil
}
