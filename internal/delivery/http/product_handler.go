package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

type productRequest struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
}

// parseFilter reads the listing query parameters. Range checks happen in
// the service.
func parseFilter(q url.Values) (entity.ProductFilter, error) {
	filter := entity.ProductFilter{
		Category: q.Get("category"),
		SortBy:   entity.ProductSort(q.Get("sort_by")),
	}

	var err error
	if filter.MinPrice, err = queryDecimal(q, "min_price"); err != nil {
		return filter, err
	}
	if filter.MaxPrice, err = queryDecimal(q, "max_price"); err != nil {
		return filter, err
	}
	if filter.Page, err = queryInt(q, "page"); err != nil {
		return filter, err
	}
	if filter.PageSize, err = queryInt(q, "page_size"); err != nil {
		return filter, err
	}
	return filter, nil
}

func queryDecimal(q url.Values, name string) (*decimal.Decimal, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", entity.ErrInvalidFilter, name)
	}
	return &d, nil
}

func queryInt(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", entity.ErrInvalidFilter, name)
	}
	return n, nil
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}
	products, err := h.svc.Products.ListProducts(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products.SearchProducts(r.Context(), r.URL.Query().Get("keyword"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.Products.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) handleAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products.GetProducts(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	product, err := h.svc.Products.CreateProduct(r.Context(), entity.Product(req))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch entity.ProductPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, r, err)
		return
	}
	product, err := h.svc.Products.UpdateProduct(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.Products.DeleteProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: product.Name + " deleted from all carts."})
}
