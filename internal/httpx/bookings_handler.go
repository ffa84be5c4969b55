package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/bookings"
	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingsHandler struct {
	Svc *bookings.Service
	Log *zap.Logger
}

func (h *BookingsHandler) Register(r chi.Router) {
	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

func (h *BookingsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req bookings.CreateInput
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	b, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *BookingsHandler) list(w http.ResponseWriter, r *http.Request) {
	f := store.BookingFilter{Page: pageFrom(r)}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, err := domain.ParseBookingStatus(raw)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		f.Status = st
	}
	out, err := h.Svc.List(r.Context(), f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *BookingsHandler) get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BookingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req bookings.UpdateInput
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	b, err := h.Svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BookingsHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
