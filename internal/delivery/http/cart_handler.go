package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateCartRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.Carts.GetCart(r.Context(), currentUser(r).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	line, err := h.svc.Carts.AddItem(r.Context(), currentUser(r).ID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	line, err := h.svc.Carts.UpdateItem(r.Context(), currentUser(r).ID, mux.Vars(r)["product_id"], req.Quantity)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Carts.RemoveItem(r.Context(), currentUser(r).ID, mux.Vars(r)["product_id"]); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Item removed from cart"})
}
