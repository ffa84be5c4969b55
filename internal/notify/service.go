package notify

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/store"
)

// Service is the admin inbox over stored notifications.
type Service struct {
	Store store.Store
}

func (s *Service) List(ctx context.Context, unreadOnly bool, page store.Page) ([]domain.Notification, error) {
	var out []domain.Notification
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		out, err = tx.ListNotifications(ctx, unreadOnly, page)
		return err
	})
	return out, err
}

func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.Store.InTx(ctx, func(tx store.Tx) error {
		return tx.MarkNotificationRead(ctx, id)
	})
}

func (s *Service) MarkAllRead(ctx context.Context) (int, error) {
	var n int
	err := s.Store.InTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.MarkAllNotificationsRead(ctx)
		return err
	})
	return n, err
}
