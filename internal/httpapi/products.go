package httpapi

import (
	"net/http"
	"strings"
	"time"

	"storefront-api/internal/store"
)

// productPayload is the wire shape of a product. ID and CreatedAt are
// server-assigned and ignored on input.
type productPayload struct {
	ID          int64     `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UnitPrice   float64   `json:"unit_price"`
	StockQty    int64     `json:"stock_qty"`
	CreatedAt   time.Time `json:"created_at"`
}

func productToPayload(p store.Product) productPayload {
	return productPayload{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		UnitPrice:   p.UnitPrice,
		StockQty:    p.StockQty,
		CreatedAt:   p.CreatedAt,
	}
}

func (p productPayload) validate() string {
	switch {
	case strings.TrimSpace(p.SKU) == "":
		return "sku is required"
	case strings.TrimSpace(p.Name) == "":
		return "name is required"
	case p.UnitPrice < 0:
		return "unit_price cannot be negative"
	case p.StockQty < 0:
		return "stock_qty cannot be negative"
	default:
		return ""
	}
}

func (a *API) listProducts(w http.ResponseWriter, r *http.Request) {
	if sku := r.URL.Query().Get("sku"); sku != "" {
		p, err := a.cfg.Products.GetBySKU(r.Context(), sku)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, []productPayload{productToPayload(*p)})
		return
	}

	limit, err := a.queryLimit(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	products, err := a.cfg.Products.List(r.Context(), limit)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	payload := make([]productPayload, 0, len(products))
	for _, p := range products {
		payload = append(payload, productToPayload(p))
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *API) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	p, err := a.cfg.Products.Get(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, productToPayload(*p))
}

func (a *API) createProduct(w http.ResponseWriter, r *http.Request) {
	var payload productPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if msg := payload.validate(); msg != "" {
		writeBadRequest(w, "%s", msg)
		return
	}

	created, err := a.cfg.Products.Create(r.Context(), store.Product{
		SKU:         payload.SKU,
		Name:        payload.Name,
		Description: payload.Description,
		UnitPrice:   payload.UnitPrice,
		StockQty:    payload.StockQty,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, productToPayload(*created))
}

func (a *API) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	var payload productPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if msg := payload.validate(); msg != "" {
		writeBadRequest(w, "%s", msg)
		return
	}

	err = a.cfg.Products.Update(r.Context(), store.Product{
		ID:          id,
		SKU:         payload.SKU,
		Name:        payload.Name,
		Description: payload.Description,
		UnitPrice:   payload.UnitPrice,
		StockQty:    payload.StockQty,
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	if err := a.cfg.Products.Delete(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// adjustProductStock applies a relative stock delta, e.g. {"delta": -3}.
func (a *API) adjustProductStock(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeBadRequest(w, "%v", err)
		return
	}

	var payload struct {
		Delta int64 `json:"delta"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeBadRequest(w, "invalid request body: %v", err)
		return
	}
	if payload.Delta == 0 {
		writeBadRequest(w, "delta cannot be zero")
		return
	}

	if err := a.cfg.Products.AdjustStock(r.Context(), id, payload.Delta); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
