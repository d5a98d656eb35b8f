package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/payment"
)

const headerStripeSignature = "Stripe-Signature"

type PaymentService interface {
	CreatePayment(ctx context.Context, who domain.Identity, orderID int64) (*payment.CreatePaymentResult, error)
	Confirm(ctx context.Context, who domain.Identity, paymentID int64) (*domain.Payment, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (payment.WebhookOutcome, error)
	ListPayments(ctx context.Context, who domain.Identity) ([]domain.Payment, error)
	GetPayment(ctx context.Context, who domain.Identity, id int64) (*domain.Payment, error)
}

type PaymentHandler struct {
	payments    PaymentService
	timeout     time.Duration
	maxBodySize int64
}

func NewPaymentHandler(payments PaymentService, timeout time.Duration, maxBodySize int64) *PaymentHandler {
	return &PaymentHandler{
		payments:    payments,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

type ConfirmResponseDTO struct {
	Payment *domain.Payment `json:"payment,omitempty"`
	Warning string          `json:"warning,omitempty"`
}

// POST /api/v1/orders/{order_id}/payment
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseIDParam(r, "order_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	res, err := h.payments.CreatePayment(ctx, domain.IdentityFromContext(r.Context()), orderID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, res)
}

// GET /api/v1/orders/{order_id}/payment opens the payment for an order the
// first time it is visited and shows the existing one afterwards.
func (h *PaymentHandler) PaymentPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := parseIDParam(r, "order_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	res, err := h.payments.CreatePayment(ctx, domain.IdentityFromContext(r.Context()), orderID)
	var exists *payment.ExistsError
	if errors.As(err, &exists) {
		respondJSON(w, http.StatusOK, payment.CreatePaymentResult{Payment: exists.Payment})
		return
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, res)
}

// POST /api/v1/payments/{payment_id}/confirm
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	paymentID, ok := parseIDParam(r, "payment_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_payment_id", "payment_id must be a positive integer")
		return
	}

	p, err := h.payments.Confirm(ctx, domain.IdentityFromContext(r.Context()), paymentID)
	if errors.Is(err, payment.ErrVerificationIssue) {
		logEntry(r).WithError(err).Warn("payment verification deferred")
		respondJSON(w, http.StatusAccepted, ConfirmResponseDTO{
			Warning: "Payment verification issue. Please contact support.",
		})
		return
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ConfirmResponseDTO{Payment: p})
}

// GET /api/v1/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	payments, err := h.payments.ListPayments(ctx, domain.IdentityFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, payments)
}

// GET /api/v1/payments/{payment_id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	paymentID, ok := parseIDParam(r, "payment_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_payment_id", "payment_id must be a positive integer")
		return
	}

	p, err := h.payments.GetPayment(ctx, domain.IdentityFromContext(r.Context()), paymentID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// POST /api/v1/payments/webhook is called by the gateway, not by users.
// Any 2xx tells the sender to stop retrying.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "invalid payload")
		return
	}

	outcome, err := h.payments.HandleWebhook(ctx, body, r.Header.Get(headerStripeSignature))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}
