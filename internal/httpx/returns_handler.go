package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/returns"
	"github.com/ariefcatur/go-storefront/internal/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReturnsHandler struct {
	Svc *returns.Service
	Log *zap.Logger
}

func (h *ReturnsHandler) Register(r chi.Router) {
	r.Route("/returns", func(r chi.Router) {
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Patch("/{id}", h.review)
	})
}

func (h *ReturnsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req returns.CreateInput
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	rr, err := h.Svc.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rr)
}

func (h *ReturnsHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ReturnFilter{OrderID: q.Get("orderId"), Page: pageFrom(r)}
	if raw := q.Get("status"); raw != "" {
		st, err := domain.ParseReturnStatus(raw)
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

func (h *ReturnsHandler) get(w http.ResponseWriter, r *http.Request) {
	rr, err := h.Svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, rr)
}

func (h *ReturnsHandler) review(w http.ResponseWriter, r *http.Request) {
	var req returns.ReviewInput
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	rr, err := h.Svc.Review(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, rr)
}
