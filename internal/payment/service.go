// Package payment opens gateway payment intents for orders and reconciles
// local payment and order status from client confirmations and webhooks.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/metrics"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Store interface {
	repository.Transactor
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	GetPayment(ctx context.Context, id int64) (*domain.Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID int64) (*domain.Payment, error)
	ListPayments(ctx context.Context, filter repository.PaymentFilter) ([]domain.Payment, error)
}

type Options struct {
	PublishableKey string
	// Configured is false when gateway credentials are absent or placeholders.
	Configured bool
}

type Service struct {
	store    Store
	gateway  Gateway
	verifier *Verifier
	opts     Options
	log      logrus.FieldLogger
}

func NewService(store Store, gateway Gateway, verifier *Verifier, opts Options, log logrus.FieldLogger) *Service {
	return &Service{
		store:    store,
		gateway:  gateway,
		verifier: verifier,
		opts:     opts,
		log:      log,
	}
}

type CreatePaymentResult struct {
	Payment        *domain.Payment `json:"payment"`
	ClientSecret   string          `json:"client_secret"`
	PublishableKey string          `json:"publishable_key"`
}

// CreatePayment opens a gateway intent for the order total and records a
// pending payment. An order gets at most one payment.
func (s *Service) CreatePayment(ctx context.Context, who domain.Identity, orderID int64) (*CreatePaymentResult, error) {
	order, err := s.ownedOrder(ctx, who, orderID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetPaymentByOrderID(ctx, orderID)
	if err == nil {
		return nil, &ExistsError{Payment: existing}
	}
	if !errors.Is(err, ErrPaymentNotFound) {
		return nil, err
	}

	log := s.log.WithField("order_id", orderID)
	if !s.opts.Configured {
		log.Error("payment gateway credentials missing or placeholder")
		return nil, ErrGatewayMisconfigured
	}

	intent, err := s.gateway.CreateIntent(ctx, IntentRequest{
		OrderID:        order.ID,
		Amount:         domain.MinorUnits(order.TotalAmount),
		Currency:       order.Currency,
		IdempotencyKey: "order-" + strconv.FormatInt(order.ID, 10),
	})
	if err != nil {
		log.WithError(err).Error("failed to create payment intent")
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	payment := &domain.Payment{
		OrderID:               order.ID,
		StripePaymentIntentID: intent.ID,
		Amount:                order.TotalAmount,
		Currency:              order.Currency,
		Status:                domain.PaymentStatusPending,
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreatePayment(ctx, payment)
	})
	if errors.Is(err, repository.ErrDuplicatePayment) {
		existing, getErr := s.store.GetPaymentByOrderID(ctx, orderID)
		if getErr != nil {
			return nil, ErrPaymentExists
		}
		return nil, &ExistsError{Payment: existing}
	}
	if err != nil {
		return nil, err
	}

	metrics.PaymentsTotal.WithLabelValues(string(domain.PaymentStatusPending)).Inc()
	metrics.PaymentAmount.Observe(order.TotalAmount.InexactFloat64())
	log.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"intent_id":  intent.ID,
	}).Info("payment intent created")

	return &CreatePaymentResult{
		Payment:        payment,
		ClientSecret:   intent.ClientSecret,
		PublishableKey: s.opts.PublishableKey,
	}, nil
}

// Confirm asks the gateway for the intent status of a pending payment and
// applies it. A payment that is no longer pending is returned as is.
func (s *Service) Confirm(ctx context.Context, who domain.Identity, paymentID int64) (*domain.Payment, error) {
	p, err := s.ownedPayment(ctx, who, paymentID)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.PaymentStatusPending {
		return p, nil
	}

	intent, err := s.gateway.GetIntent(ctx, p.StripePaymentIntentID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"payment_id": p.ID,
			"intent_id":  p.StripePaymentIntentID,
		}).Warn("could not verify payment intent")
		return nil, &VerificationError{PaymentID: p.ID, Err: err}
	}

	target, ok := statusForIntent(intent.Status)
	if !ok {
		return p, nil
	}

	var (
		updated *domain.Payment
		changed bool
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.GetPaymentForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		if changed, err = s.transition(ctx, tx, locked, target); err != nil {
			return err
		}
		updated = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.recordChange(updated)
	}
	return updated, nil
}

type WebhookOutcome string

const (
	WebhookApplied   WebhookOutcome = "applied"
	WebhookIgnored   WebhookOutcome = "ignored"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookRejected  WebhookOutcome = "rejected"
)

// HandleWebhook verifies and applies a gateway event. Unknown intents,
// unhandled event types and re-delivered events are acknowledged without
// changing state. Only signature and payload problems are rejected.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) (WebhookOutcome, error) {
	outcome, err := s.handleWebhook(ctx, body, signature)
	if err != nil && (errors.Is(err, ErrSignatureInvalid) || errors.Is(err, ErrMalformedPayload)) {
		outcome = WebhookRejected
		s.log.WithError(err).Warn("webhook rejected")
	}
	if outcome != "" {
		metrics.WebhookEvents.WithLabelValues(string(outcome)).Inc()
	}
	return outcome, err
}

func (s *Service) handleWebhook(ctx context.Context, body []byte, signature string) (WebhookOutcome, error) {
	if err := s.verifier.Verify(body, signature); err != nil {
		return "", err
	}
	event, err := ParseEvent(body)
	if err != nil {
		return "", err
	}

	var target domain.PaymentStatus
	switch event.Type {
	case EventIntentSucceeded:
		target = domain.PaymentStatusSucceeded
	case EventIntentFailed:
		target = domain.PaymentStatusFailed
	default:
		return WebhookIgnored, nil
	}

	intentID := event.Data.Object.ID
	if intentID == "" {
		return "", fmt.Errorf("%w: event %s has no payment intent id", ErrMalformedPayload, event.ID)
	}

	log := s.log.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"intent_id":  intentID,
	})

	var (
		outcome = WebhookIgnored
		applied *domain.Payment
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		fresh, err := tx.RecordWebhookEvent(ctx, event.ID, event.Type)
		if err != nil {
			return err
		}
		if !fresh {
			outcome = WebhookDuplicate
			return nil
		}

		p, err := tx.GetPaymentByIntentForUpdate(ctx, intentID)
		if errors.Is(err, ErrPaymentNotFound) {
			log.Info("webhook for unknown payment intent ignored")
			return nil
		}
		if err != nil {
			return err
		}

		changed, err := s.transition(ctx, tx, p, target)
		if err != nil {
			return err
		}
		if changed {
			outcome = WebhookApplied
			applied = p
		}
		return nil
	})
	if err != nil {
		log.WithError(err).Error("failed to apply webhook event")
		return "", err
	}
	if applied != nil {
		s.recordChange(applied)
	}
	return outcome, nil
}

type paymentEventPayload struct {
	PaymentID int64           `json:"payment_id"`
	OrderID   int64           `json:"order_id"`
	IntentID  string          `json:"intent_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
}

// transition moves p to target when the status table allows it. Success
// cascades a pending order to processing. It reports whether anything
// was written.
func (s *Service) transition(ctx context.Context, tx repository.Tx, p *domain.Payment, target domain.PaymentStatus) (bool, error) {
	if !p.Status.CanTransitionTo(target) {
		return false, nil
	}
	if err := tx.UpdatePaymentStatus(ctx, p.ID, target); err != nil {
		return false, err
	}
	from := p.Status
	p.Status = target

	eventType := domain.EventPaymentFailed
	if target == domain.PaymentStatusSucceeded {
		eventType = domain.EventPaymentSucceeded

		order, err := tx.GetOrderForUpdate(ctx, p.OrderID)
		if err != nil {
			return false, err
		}
		if order.Status == domain.OrderStatusPending {
			if err := tx.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusProcessing); err != nil {
				return false, err
			}
		}
	}

	event, err := domain.NewOutboxEvent(strconv.FormatInt(p.OrderID, 10), eventType, paymentEventPayload{
		PaymentID: p.ID,
		OrderID:   p.OrderID,
		IntentID:  p.StripePaymentIntentID,
		Amount:    p.Amount,
		Currency:  p.Currency,
		Status:    string(target),
	})
	if err != nil {
		return false, fmt.Errorf("marshal payment event: %w", err)
	}
	if err := tx.AddOutboxEvent(ctx, event); err != nil {
		return false, err
	}

	s.log.WithFields(logrus.Fields{
		"payment_id": p.ID,
		"order_id":   p.OrderID,
		"from":       from,
		"to":         target,
	}).Debug("payment status updated in transaction")
	return true, nil
}

func (s *Service) recordChange(p *domain.Payment) {
	metrics.PaymentsTotal.WithLabelValues(string(p.Status)).Inc()
	s.log.WithFields(logrus.Fields{
		"payment_id": p.ID,
		"order_id":   p.OrderID,
		"status":     p.Status,
	}).Info("payment status changed")
}

func statusForIntent(status string) (domain.PaymentStatus, bool) {
	switch status {
	case IntentSucceeded:
		return domain.PaymentStatusSucceeded, true
	case IntentRequiresPaymentMethod, IntentRequiresAction, IntentCanceled:
		return domain.PaymentStatusFailed, true
	default:
		return "", false
	}
}

// ListPayments returns the caller's payments, or every payment for staff.
func (s *Service) ListPayments(ctx context.Context, who domain.Identity) ([]domain.Payment, error) {
	var filter repository.PaymentFilter
	switch {
	case who.Staff:
	case who.Authenticated():
		filter.UserID = who.UserID
	default:
		return []domain.Payment{}, nil
	}
	return s.store.ListPayments(ctx, filter)
}

func (s *Service) GetPayment(ctx context.Context, who domain.Identity, id int64) (*domain.Payment, error) {
	return s.ownedPayment(ctx, who, id)
}

func (s *Service) ownedOrder(ctx context.Context, who domain.Identity, orderID int64) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !who.CanAccess(order.UserID) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ownedPayment hides payments of other users behind ErrPaymentNotFound.
func (s *Service) ownedPayment(ctx context.Context, who domain.Identity, id int64) (*domain.Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedOrder(ctx, who, p.OrderID); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}
