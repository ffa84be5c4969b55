package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/domain"
	"github.com/ariefcatur/go-storefront/internal/inventory"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CatalogHandler serves products, variants and the stock back office.
type CatalogHandler struct {
	Catalog   *catalog.Service
	Inventory *inventory.Service
	Log       *zap.Logger
}

type adjustmentReq struct {
	Bucket string `json:"bucket"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
	Note   string `json:"note"`
	// Target turns the request into a move of Delta units from Bucket to Target.
	Target string `json:"target"`
}

type adjustmentResp struct {
	Variant  domain.Variant        `json:"variant"`
	Movement *domain.StockMovement `json:"movement,omitempty"`
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.createProduct)
		r.Get("/", h.listProducts)
		r.Get("/{id}", h.getProduct)
		r.Patch("/{id}", h.updateProduct)
		r.Post("/{id}/variants", h.addVariant)
	})
	r.Post("/variants/{id}/adjustments", h.adjust)
	r.Get("/variants/{id}/movements", h.movements)
	r.Get("/inventory/low-stock", h.lowStock)
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.ProductInput
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	p, err := h.Catalog.CreateProduct(r.Context(), req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	out, err := h.Catalog.ListProducts(r.Context(), activeOnly, pageFrom(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.ProductPatch
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	p, err := h.Catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) addVariant(w http.ResponseWriter, r *http.Request) {
	var req catalog.VariantInput
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	v, err := h.Catalog.AddVariant(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

func (h *CatalogHandler) adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustmentReq
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	bucket, err := domain.ParseBucket(req.Bucket)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	id := chi.URLParam(r, "id")

	if req.Target != "" {
		target, err := domain.ParseBucket(req.Target)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		v, err := h.Inventory.Reclassify(r.Context(), id, bucket, target, req.Delta)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, adjustmentResp{Variant: v})
		return
	}

	v, m, err := h.Inventory.Adjust(r.Context(), id, inventory.ManualAdjustment{
		Bucket: bucket,
		Delta:  req.Delta,
		Reason: req.Reason,
		Note:   req.Note,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, adjustmentResp{Variant: v, Movement: &m})
}

func (h *CatalogHandler) movements(w http.ResponseWriter, r *http.Request) {
	out, err := h.Inventory.Movements(r.Context(), chi.URLParam(r, "id"), pageFrom(r))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	out, err := h.Inventory.LowStock(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
