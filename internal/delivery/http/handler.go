package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/metrics"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Services groups the application services the handlers call.
type Services struct {
	Auth     *service.AuthService
	Products *service.ProductService
	Carts    *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
}

// Handler handles HTTP requests for the application.
type Handler struct {
	svc     Services
	metrics *metrics.ServerMetrics
	health  func(r *http.Request) error
}

// NewHandler builds a Handler. health may be nil.
func NewHandler(svc Services, m *metrics.ServerMetrics, health func(r *http.Request) error) *Handler {
	return &Handler{svc: svc, metrics: m, health: health}
}

// Router returns the application routes wrapped in CORS, access logging and
// request metrics.
func (h *Handler) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(h.accessLog, h.instrument)

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/signup", h.handleSignup).Methods(http.MethodPost)
	auth.HandleFunc("/signin", h.handleSignin).Methods(http.MethodPost)
	auth.HandleFunc("/forgot-password", h.handleForgotPassword).Methods(http.MethodPost)
	auth.HandleFunc("/reset-password", h.handleResetPassword).Methods(http.MethodPost)
	auth.Handle("/me", h.requireUser(http.HandlerFunc(h.handleMe))).Methods(http.MethodGet)

	r.HandleFunc("/products", h.handleListProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/search", h.handleSearchProducts).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", h.handleGetProduct).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(h.requireUser, requireAdmin)
	admin.HandleFunc("/products", h.handleCreateProduct).Methods(http.MethodPost)
	admin.HandleFunc("/products", h.handleAllProducts).Methods(http.MethodGet)
	admin.HandleFunc("/products/{id}", h.handleGetProduct).Methods(http.MethodGet)
	admin.HandleFunc("/products/{id}", h.handleUpdateProduct).Methods(http.MethodPut)
	admin.HandleFunc("/products/{id}", h.handleDeleteProduct).Methods(http.MethodDelete)

	user := r.NewRoute().Subrouter()
	user.Use(h.requireUser)
	user.HandleFunc("/cart", h.handleGetCart).Methods(http.MethodGet)
	user.HandleFunc("/cart", h.handleAddToCart).Methods(http.MethodPost)
	user.HandleFunc("/cart/{product_id}", h.handleUpdateCartItem).Methods(http.MethodPut)
	user.HandleFunc("/cart/{product_id}", h.handleRemoveCartItem).Methods(http.MethodDelete)
	user.HandleFunc("/checkout", h.handleCheckout).Methods(http.MethodPost)
	user.HandleFunc("/orders", h.handleListOrders).Methods(http.MethodGet)
	user.HandleFunc("/orders/{id}", h.handleGetOrder).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	return EnableCORS(r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r); err != nil {
			slog.Error("Health check failed", "err", err)
			writeError(w, http.StatusServiceUnavailable, "store unavailable", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	writeJSON(w, status, errorResponse{Error: true, Message: message, Code: status, Details: details})
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", service.ErrInvalidInput)
		}
		return fmt.Errorf("%w: invalid request body: %v", service.ErrInvalidInput, err)
	}
	return nil
}
