package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/service"
)

type stockDetails struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Available   int    `json:"available"`
	Requested   int    `json:"requested"`
	InCart      int    `json:"in_cart,omitempty"`
}

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrEmptyCart, http.StatusBadRequest},
	{service.ErrInsufficientStock, http.StatusBadRequest},
	{service.ErrInvalidPaymentMethod, http.StatusBadRequest},
	{service.ErrInvalidQuantity, http.StatusBadRequest},
	{service.ErrInvalidInput, http.StatusBadRequest},
	{service.ErrInvalidTransition, http.StatusBadRequest},
	{service.ErrEmailTaken, http.StatusBadRequest},
	{service.ErrEmailDomain, http.StatusBadRequest},
	{service.ErrInvalidToken, http.StatusBadRequest},
	{entity.ErrInvalidProduct, http.StatusBadRequest},
	{entity.ErrInvalidFilter, http.StatusBadRequest},
	{service.ErrProductUnavailable, http.StatusNotFound},
	{service.ErrProductNotFound, http.StatusNotFound},
	{service.ErrCartItemNotFound, http.StatusNotFound},
	{service.ErrOrderNotFound, http.StatusNotFound},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrCheckoutInProgress, http.StatusConflict},
	{service.ErrRetryable, http.StatusConflict},
}

// respondError maps service errors onto the JSON error envelope. Anything
// unrecognized is logged and answered with a bare 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errorStatus {
		if !errors.Is(err, e.err) {
			continue
		}
		message := err.Error()
		if e.err == service.ErrRetryable {
			// The wrapped storage error stays in the log.
			slog.Warn("Transient conflict", "path", r.URL.Path, "err", err)
			message = service.ErrRetryable.Error()
		}
		var details any
		var stockErr *service.StockError
		if errors.As(err, &stockErr) {
			details = stockDetails{
				ProductID:   stockErr.ProductID,
				ProductName: stockErr.Name,
				Available:   stockErr.Available,
				Requested:   stockErr.Requested,
				InCart:      stockErr.InCart,
			}
		}
		writeError(w, e.status, message, details)
		return
	}

	slog.Error("Unhandled error", "method", r.Method, "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, "Internal server error", nil)
}
