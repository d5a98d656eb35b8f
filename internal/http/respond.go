package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Faraj-M/E-Commerce-Platform/internal/cart"
	"github.com/Faraj-M/E-Commerce-Platform/internal/checkout"
	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/payment"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// respondServiceError maps service errors onto status codes. Anything
// unrecognised is logged and reported as a 500 without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *domain.ValidationError
		stockErr      *domain.InsufficientStockError
		existsErr     *payment.ExistsError
	)

	switch {
	case errors.As(err, &validationErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   validationErr.Message,
			Code:    "validation_error",
			Details: strings.Join(validationErr.Fields, ","),
		})
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:   stockErr.Error(),
			Code:    "insufficient_stock",
			Details: strconv.FormatInt(stockErr.ProductID, 10),
		})
	case errors.As(err, &existsErr):
		respondJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "payment already exists for this order",
			Code:    "payment_exists",
			Details: strconv.FormatInt(existsErr.Payment.ID, 10),
		})
	case errors.Is(err, payment.ErrPaymentExists):
		respondError(w, http.StatusConflict, "payment_exists", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusUnprocessableEntity, "empty_cart", err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, cart.ErrInvalidSession):
		respondError(w, http.StatusBadRequest, "missing_session", err.Error())
	case errors.Is(err, checkout.ErrMissingUser):
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
	case errors.Is(err, repository.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, repository.ErrPaymentNotFound):
		respondError(w, http.StatusNotFound, "payment_not_found", "payment not found")
	case errors.Is(err, payment.ErrGatewayMisconfigured):
		respondError(w, http.StatusServiceUnavailable, "gateway_misconfigured",
			"payment processing is not configured, please contact the shop operator")
	case errors.Is(err, payment.ErrSignatureInvalid):
		respondError(w, http.StatusBadRequest, "invalid_signature", "invalid signature")
	case errors.Is(err, payment.ErrMalformedPayload):
		respondError(w, http.StatusBadRequest, "invalid_payload", "invalid payload")
	case errors.Is(err, payment.ErrGatewayUnavailable):
		logEntry(r).WithError(err).Error("payment gateway call failed")
		respondError(w, http.StatusBadGateway, "gateway_error", "payment gateway error, please try again")
	default:
		logEntry(r).WithError(err).Error("request failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// wantsJSON reports whether the caller is programmatic. Interactive
// callers get redirects instead of bodies.
func wantsJSON(r *http.Request) bool {
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return isJSONBody(r)
}

func redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func parseIDParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func isJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// formInt reads an optional integer form value, falling back to def when
// the field is absent.
func formInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
