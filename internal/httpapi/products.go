package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goliatone/go-inventory-cache/cache"
	"github.com/goliatone/go-inventory-cache/inventory"
)

const maxBodyBytes = 1 << 20

// readContext honours Cache-Control: no-cache by skipping the cache lookup.
func readContext(r *http.Request) context.Context {
	ctx := r.Context()
	for _, directive := range strings.Split(r.Header.Get("Cache-Control"), ",") {
		if strings.EqualFold(strings.TrimSpace(directive), "no-cache") {
			return cache.WithBypass(ctx)
		}
	}
	return ctx
}

func productID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, inventory.InvalidField("id", "must be a positive integer")
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return inventory.InvalidField("body", "could not be read")
	}
	if len(body) > maxBodyBytes {
		return inventory.InvalidField("body", "is too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return inventory.InvalidField("body", "is required")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return inventory.InvalidField("body", "must be valid JSON: "+err.Error())
	}
	return nil
}

// decodeQuantity accepts either a bare integer or {"quantity": n}.
func decodeQuantity(r *http.Request) (int, error) {
	var raw json.RawMessage
	if err := decodeJSON(r, &raw); err != nil {
		return 0, err
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := json.Unmarshal(raw, &req); err == nil && req.Quantity != nil {
		return *req.Quantity, nil
	}
	return 0, inventory.InvalidField("quantity", "must be an integer or an object with an integer quantity")
}

func (rt *Router) listProducts(w http.ResponseWriter, r *http.Request) {
	products, hit, err := rt.svc.GetAll(readContext(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeRead(w, r, products, hit)
}

func (rt *Router) listActiveProducts(w http.ResponseWriter, r *http.Request) {
	products, hit, err := rt.svc.GetActive(readContext(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeRead(w, r, products, hit)
}

func (rt *Router) listByCategory(w http.ResponseWriter, r *http.Request) {
	products, hit, err := rt.svc.GetByCategory(readContext(r), chi.URLParam(r, "category"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeRead(w, r, products, hit)
}

func (rt *Router) productStats(w http.ResponseWriter, r *http.Request) {
	stats, hit, err := rt.svc.GetStats(readContext(r))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeRead(w, r, stats, hit)
}

func (rt *Router) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	product, hit, err := rt.svc.GetByID(readContext(r), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeRead(w, r, product, hit)
}

func (rt *Router) getStock(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	stock, hit, err := rt.svc.GetStock(readContext(r), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeRead(w, r, stock, hit)
}

func (rt *Router) createProduct(w http.ResponseWriter, r *http.Request) {
	var in inventory.CreateProductInput
	if err := decodeJSON(r, &in); err != nil {
		rt.writeError(w, r, err)
		return
	}
	product, err := rt.svc.Create(r.Context(), in)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/products/"+strconv.FormatInt(product.ID, 10))
	rt.writeJSON(w, r, http.StatusCreated, product)
}

func (rt *Router) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	var patch inventory.ProductPatch
	if err := decodeJSON(r, &patch); err != nil {
		rt.writeError(w, r, err)
		return
	}
	product, err := rt.svc.Update(r.Context(), id, patch)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, product)
}

func (rt *Router) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if err := rt.svc.Delete(r.Context(), id); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) adjustStock(w http.ResponseWriter, r *http.Request) {
	rt.changeStock(w, r, rt.svc.AdjustStock)
}

func (rt *Router) decrementStock(w http.ResponseWriter, r *http.Request) {
	rt.changeStock(w, r, rt.svc.DecrementStock)
}

func (rt *Router) changeStock(w http.ResponseWriter, r *http.Request, apply func(context.Context, int64, int) (inventory.Product, error)) {
	id, err := productID(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	qty, err := decodeQuantity(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	product, err := apply(r.Context(), id, qty)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, inventory.Stock{ProductID: product.ID, Quantity: product.StockQuantity})
}

func (rt *Router) clearCache(w http.ResponseWriter, r *http.Request) {
	var id *int64
	if raw := r.URL.Query().Get("productId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			rt.writeError(w, r, inventory.InvalidField("productId", "must be a positive integer"))
			return
		}
		id = &parsed
	}

	rt.svc.ClearCache(r.Context(), id)

	resp := map[string]any{"cleared": true}
	if id != nil {
		resp["productId"] = *id
	}
	rt.writeJSON(w, r, http.StatusOK, resp)
}
