package postgres

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/store"
)

func (t *Tx) InsertNotification(ctx context.Context, n *domain.Notification) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO notifications(id, title, description, type, read)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		n.ID, n.Title, n.Description, string(n.Type), n.Read,
	).Scan(&n.CreatedAt)
}

func (t *Tx) ListNotifications(ctx context.Context, unreadOnly bool, page store.Page) ([]domain.Notification, error) {
	limit, offset := pageArgs(page)
	rows, err := t.tx.Query(ctx, `
		SELECT id, title, description, type, read, created_at FROM notifications
		WHERE ($1 = false OR NOT read)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		var typ string
		if err := rows.Scan(&n.ID, &n.Title, &n.Description, &typ, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Type = domain.NotificationType(typ)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (t *Tx) MarkNotificationRead(ctx context.Context, id string) error {
	ct, err := t.tx.Exec(ctx, `UPDATE notifications SET read=true WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return domain.NotFound("notification %s not found", id)
	}
	return nil
}

func (t *Tx) MarkAllNotificationsRead(ctx context.Context) (int, error) {
	ct, err := t.tx.Exec(ctx, `UPDATE notifications SET read=true WHERE NOT read`)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}
