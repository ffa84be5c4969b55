package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type NotificationsHandler struct {
	Svc *notify.Service
	Log *zap.Logger
}

func (h *NotificationsHandler) Register(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.list)
		r.Patch("/{id}/read", h.markRead)
		r.Post("/read-all", h.markAllRead)
	})
}

func (h *NotificationsHandler) list(w http.ResponseWriter, r *http.Request) {
	unread := r.URL.Query().Get("unread") == "true"
	out, err := h.Svc.List(r.Context(), unread, pageFrom(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *NotificationsHandler) markRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationsHandler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.Svc.MarkAllRead(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
