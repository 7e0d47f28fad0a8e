package http

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// handleCheckout places an order from the caller's cart. A repeated
// Idempotency-Key returns the order placed by the first request.
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	order, err := h.svc.Checkout.CheckoutOnce(r.Context(), currentUser(r).ID, req.PaymentMethod, key)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListOrders(r.Context(), currentUser(r).ID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Orders.GetOrder(r.Context(), currentUser(r).ID, mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
