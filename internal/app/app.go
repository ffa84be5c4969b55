// Package app wires the services and the HTTP router over a chosen store.
package app

import (
	"time"

	"github.com/ariefcatur/go-storefront/internal/bookings"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/events"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/returns"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Deps struct {
	Store store.Store
	// Publisher is the event transport. When nil, events go straight to the
	// in-process notification handler.
	Publisher   events.Publisher
	Cache       *redisx.Cache // nil disables caching
	Mailer      notify.Mailer
	ServiceName string
	AdminEmail  string
	Timeout     time.Duration
	Log         *zap.Logger
}

type App struct {
	Orders        *orders.Service
	Bookings      *bookings.Service
	Returns       *returns.Service
	Catalog       *catalog.Service
	Inventory     *inventory.Service
	Notifications *notify.Service
	Notifier      *notify.Handler
	Router        *chi.Mux
}

func New(d Deps) *App {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Timeout <= 0 {
		d.Timeout = 15 * time.Second
	}
	if d.Mailer == nil {
		d.Mailer = notify.LogMailer{Log: d.Log}
	}

	notifier := &notify.Handler{
		Store:      d.Store,
		Mailer:     d.Mailer,
		Dedup:      d.Cache,
		Consumer:   d.ServiceName + "-notify",
		AdminEmail: d.AdminEmail,
		Log:        d.Log.Named("notify"),
	}
	pub := d.Publisher
	if pub == nil {
		pub = events.Inline{Handle: notifier.Handle}
	}
	ledger := &inventory.Ledger{Log: d.Log.Named("inventory")}

	a := &App{
		Notifier:      notifier,
		Notifications: &notify.Service{Store: d.Store},
		Orders: &orders.Service{
			Store: d.Store, Ledger: ledger, Publisher: pub, Cache: d.Cache,
			ServiceName: d.ServiceName, Log: d.Log.Named("orders"),
		},
		Bookings: &bookings.Service{
			Store: d.Store, Ledger: ledger, Publisher: pub, Cache: d.Cache,
			ServiceName: d.ServiceName, Log: d.Log.Named("bookings"),
		},
		Returns: &returns.Service{
			Store: d.Store, Ledger: ledger, Publisher: pub, Cache: d.Cache,
			ServiceName: d.ServiceName, Log: d.Log.Named("returns"),
		},
		Catalog: &catalog.Service{
			Store: d.Store, Ledger: ledger, Publisher: pub, Cache: d.Cache,
			ServiceName: d.ServiceName, Log: d.Log.Named("catalog"),
		},
		Inventory: &inventory.Service{
			Store: d.Store, Ledger: ledger, Publisher: pub, Cache: d.Cache,
			ServiceName: d.ServiceName, Log: d.Log.Named("inventory"),
		},
	}

	a.Router = httpx.NewRouter(d.Log.Named("http"), d.Timeout,
		&httpx.OrdersHandler{Svc: a.Orders, Log: d.Log},
		&httpx.BookingsHandler{Svc: a.Bookings, Log: d.Log},
		&httpx.ReturnsHandler{Svc: a.Returns, Log: d.Log},
		&httpx.CatalogHandler{Catalog: a.Catalog, Inventory: a.Inventory, Log: d.Log},
		&httpx.NotificationsHandler{Svc: a.Notifications, Log: d.Log},
	)
	return a
}
