package payment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository"
	"github.com/Faraj-M/E-Commerce-Platform/internal/repository/repotest"
	"github.com/Faraj-M/E-Commerce-Platform/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookSecret = "whsec_test"

var (
	owner    = domain.Identity{UserID: 7}
	stranger = domain.Identity{UserID: 8}
	staff    = domain.Identity{UserID: 1, Staff: true}
)

type fixture struct {
	repo    *repository.Repository
	gateway *mockGateway
	svc     *Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	repo := repotest.NewSQLite(t)
	gw := newMockGateway()
	svc := NewService(repo, gw, NewVerifier(webhookSecret, 5*time.Minute),
		Options{PublishableKey: "pk_test_abc", Configured: true}, logger.Discard())
	return &fixture{repo: repo, gateway: gw, svc: svc}
}

func (f *fixture) placeOrder(t *testing.T, userID int64, total string) *domain.Order {
	t.Helper()
	order := &domain.Order{
		UserID:      userID,
		Status:      domain.OrderStatusPending,
		TotalAmount: decimal.RequireFromString(total),
		Currency:    "usd",
	}
	order.SetShipping(domain.ShippingInfo{Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"})
	err := f.repo.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateOrder(ctx, order)
	})
	require.NoError(t, err)
	return order
}

func (f *fixture) orderStatus(t *testing.T, id int64) domain.OrderStatus {
	t.Helper()
	o, err := f.repo.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}

func (f *fixture) paymentStatus(t *testing.T, id int64) domain.PaymentStatus {
	t.Helper()
	p, err := f.repo.GetPayment(context.Background(), id)
	require.NoError(t, err)
	return p.Status
}

func webhookBody(t *testing.T, eventID, eventType, intentID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": eventType,
		"data": map[string]any{
			"object": map[string]any{"id": intentID, "object": "payment_intent"},
		},
	})
	require.NoError(t, err)
	return body
}

func (f *fixture) deliver(t *testing.T, body []byte) WebhookOutcome {
	t.Helper()
	outcome, err := f.svc.HandleWebhook(context.Background(), body, SignatureHeader(webhookSecret, body, time.Now()))
	require.NoError(t, err)
	return outcome
}

func TestCreatePayment(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, owner.UserID, "30.00")

	res, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	require.NoError(t, err)

	assert.Equal(t, "pi_1_secret", res.ClientSecret)
	assert.Equal(t, "pk_test_abc", res.PublishableKey)
	assert.Equal(t, domain.PaymentStatusPending, res.Payment.Status)
	assert.Equal(t, "pi_1", res.Payment.StripePaymentIntentID)
	assert.True(t, decimal.RequireFromString("30.00").Equal(res.Payment.Amount))

	assert.Equal(t, int64(3000), f.gateway.lastReq.Amount)
	assert.Equal(t, "usd", f.gateway.lastReq.Currency)
	assert.Equal(t, "order-1", f.gateway.lastReq.IdempotencyKey)
}

func TestCreatePayment_SecondCallRejected(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, owner.UserID, "30.00")

	first, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	require.NoError(t, err)

	_, err = f.svc.CreatePayment(context.Background(), owner, order.ID)
	require.ErrorIs(t, err, ErrPaymentExists)

	var exists *ExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, first.Payment.ID, exists.Payment.ID)
	assert.Equal(t, 1, f.gateway.creates)

	payments, err := f.repo.ListPayments(context.Background(), repository.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestCreatePayment_Misconfigured(t *testing.T) {
	f := setup(t)
	f.svc.opts.Configured = false
	order := f.placeOrder(t, owner.UserID, "30.00")

	_, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	assert.ErrorIs(t, err, ErrGatewayMisconfigured)
	assert.Equal(t, 0, f.gateway.creates)
}

func TestCreatePayment_GatewayFailure(t *testing.T) {
	f := setup(t)
	f.gateway.createErr = &GatewayError{Op: "create_intent", StatusCode: 503, Message: "unavailable"}
	order := f.placeOrder(t, owner.UserID, "30.00")

	_, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)

	_, err = f.repo.GetPaymentByOrderID(context.Background(), order.ID)
	assert.ErrorIs(t, err, repository.ErrPaymentNotFound)
}

func TestCreatePayment_ForeignOrder(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, owner.UserID, "30.00")

	_, err := f.svc.CreatePayment(context.Background(), stranger, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.CreatePayment(context.Background(), staff, order.ID)
	assert.NoError(t, err)
}

func TestConfirm_Succeeded(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, owner.UserID, "30.00")
	res, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	require.NoError(t, err)
	f.gateway.setStatus(res.Payment.StripePaymentIntentID, IntentSucceeded)

	p, err := f.svc.Confirm(context.Background(), owner, res.Payment.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusSucceeded, p.Status)
	assert.Equal(t, domain.OrderStatusProcessing, f.orderStatus(t, order.ID))

	events, err := f.repo.GetUnprocessedEvents(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventPaymentSucceeded, events[0].EventType)
}

func TestConfirm_IntentStatusMapping(t *testing.T) {
	tests := []struct {
		intentStatus string
		want         domain.PaymentStatus
	}{
		{IntentSucceeded, domain.PaymentStatusSucceeded},
		{IntentRequiresPaymentMethod, domain.PaymentStatusFailed},
		{IntentRequiresAction, domain.PaymentStatusFailed},
		{IntentCanceled, domain.PaymentStatusFailed},
		{IntentProcessing, domain.PaymentStatusPending},
		{IntentRequiresConfirmation, domain.PaymentStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.intentStatus, func(t *testing.T) {
			f := setup(t)
			order := f.placeOrder(t, owner.UserID, "12.50")
			res, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
			require.NoError(t, err)
			f.gateway.setStatus(res.Payment.StripePaymentIntentID, tt.intentStatus)

			p, err := f.svc.Confirm(context.Background(), owner, res.Payment.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Status)
			assert.Equal(t, tt.want, f.paymentStatus(t, res.Payment.ID))

			wantOrder := domain.OrderStatusPending
			if tt.want == domain.PaymentStatusSucceeded {
				wantOrder = domain.OrderStatusProcessing
			}
			assert.Equal(t, wantOrder, f.orderStatus(t, order.ID))
		})
	}
}

func TestConfirm_GatewayErrorLeavesPaymentUntouched(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, owner.UserID, "30.00")
	res, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	require.NoError(t, err)
	f.gateway.getErr = &GatewayError{Op: "get_intent", Err: errors.New("timeout")}

	_, err = f.svc.Confirm(context.Background(), owner, res.Payment.ID)
	require.ErrorIs(t, err, ErrVerificationIssue)
	assert.Equal(t, domain.PaymentStatusPending, f.paymentStatus(t, res.Payment.ID))

	f.gateway.getErr = nil
	f.gateway.setStatus(res.Payment.StripePaymentIntentID, IntentSucceeded)
	p, err := f.svc.Confirm(context.Background(), owner, res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, p.Status)
}

func TestConfirm_NonPendingIsNoop(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, owner.UserID, "30.00")
	res, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	require.NoError(t, err)
	f.gateway.setStatus(res.Payment.StripePaymentIntentID, IntentSucceeded)
	_, err = f.svc.Confirm(context.Background(), owner, res.Payment.ID)
	require.NoError(t, err)
	gets := f.gateway.gets

	p, err := f.svc.Confirm(context.Background(), owner, res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, p.Status)
	assert.Equal(t, gets, f.gateway.gets)
}

func TestConfirm_ForeignPayment(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, owner.UserID, "30.00")
	res, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), stranger, res.Payment.ID)
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestHandleWebhook_SucceededIsIdempotent(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, owner.UserID, "30.00")
	res, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	require.NoError(t, err)

	body := webhookBody(t, "evt_1", EventIntentSucceeded, res.Payment.StripePaymentIntentID)
	assert.Equal(t, WebhookApplied, f.deliver(t, body))
	assert.Equal(t, WebhookDuplicate, f.deliver(t, body))

	// same state reported under a new event id
	again := webhookBody(t, "evt_2", EventIntentSucceeded, res.Payment.StripePaymentIntentID)
	assert.Equal(t, WebhookIgnored, f.deliver(t, again))

	assert.Equal(t, domain.PaymentStatusSucceeded, f.paymentStatus(t, res.Payment.ID))
	assert.Equal(t, domain.OrderStatusProcessing, f.orderStatus(t, order.ID))

	events, err := f.repo.GetUnprocessedEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestConvergence_ConfirmThenWebhook(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, owner.UserID, "30.00")
	res, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	require.NoError(t, err)
	f.gateway.setStatus(res.Payment.StripePaymentIntentID, IntentSucceeded)

	_, err = f.svc.Confirm(context.Background(), owner, res.Payment.ID)
	require.NoError(t, err)
	f.deliver(t, webhookBody(t, "evt_1", EventIntentSucceeded, res.Payment.StripePaymentIntentID))

	assert.Equal(t, domain.PaymentStatusSucceeded, f.paymentStatus(t, res.Payment.ID))
	assert.Equal(t, domain.OrderStatusProcessing, f.orderStatus(t, order.ID))
}

func TestConvergence_WebhookThenConfirm(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, owner.UserID, "30.00")
	res, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	require.NoError(t, err)
	f.gateway.setStatus(res.Payment.StripePaymentIntentID, IntentSucceeded)

	f.deliver(t, webhookBody(t, "evt_1", EventIntentSucceeded, res.Payment.StripePaymentIntentID))
	p, err := f.svc.Confirm(context.Background(), owner, res.Payment.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusSucceeded, p.Status)
	assert.Equal(t, domain.OrderStatusProcessing, f.orderStatus(t, order.ID))
}

func TestHandleWebhook_FailedThenLateSuccess(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, owner.UserID, "30.00")
	res, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	require.NoError(t, err)
	intentID := res.Payment.StripePaymentIntentID

	assert.Equal(t, WebhookApplied, f.deliver(t, webhookBody(t, "evt_1", EventIntentFailed, intentID)))
	assert.Equal(t, domain.PaymentStatusFailed, f.paymentStatus(t, res.Payment.ID))
	assert.Equal(t, domain.OrderStatusPending, f.orderStatus(t, order.ID))

	assert.Equal(t, WebhookApplied, f.deliver(t, webhookBody(t, "evt_2", EventIntentSucceeded, intentID)))
	assert.Equal(t, domain.PaymentStatusSucceeded, f.paymentStatus(t, res.Payment.ID))

	// a stale failure never undoes a success
	assert.Equal(t, WebhookIgnored, f.deliver(t, webhookBody(t, "evt_3", EventIntentFailed, intentID)))
	assert.Equal(t, domain.PaymentStatusSucceeded, f.paymentStatus(t, res.Payment.ID))
}

func TestHandleWebhook_UnknownIntentAcknowledged(t *testing.T) {
	f := setup(t)
	assert.Equal(t, WebhookIgnored, f.deliver(t, webhookBody(t, "evt_1", EventIntentSucceeded, "pi_missing")))
}

func TestHandleWebhook_UnhandledType(t *testing.T) {
	f := setup(t)
	assert.Equal(t, WebhookIgnored, f.deliver(t, webhookBody(t, "evt_1", "charge.refunded", "pi_1")))
}

func TestHandleWebhook_Rejections(t *testing.T) {
	f := setup(t)
	order := f.placeOrder(t, owner.UserID, "30.00")
	res, err := f.svc.CreatePayment(context.Background(), owner, order.ID)
	require.NoError(t, err)
	body := webhookBody(t, "evt_1", EventIntentSucceeded, res.Payment.StripePaymentIntentID)

	tests := []struct {
		name      string
		body      []byte
		signature string
		wantErr   error
	}{
		{"missing signature", body, "", ErrSignatureInvalid},
		{"wrong secret", body, SignatureHeader("whsec_other", body, time.Now()), ErrSignatureInvalid},
		{"stale timestamp", body, SignatureHeader(webhookSecret, body, time.Now().Add(-time.Hour)), ErrSignatureInvalid},
		{"tampered body", append([]byte(nil), body[:len(body)-1]...), SignatureHeader(webhookSecret, body, time.Now()), ErrSignatureInvalid},
		{"not json", []byte("nope"), SignatureHeader(webhookSecret, []byte("nope"), time.Now()), ErrMalformedPayload},
		{"no event id", []byte(`{"type":"payment_intent.succeeded"}`), SignatureHeader(webhookSecret, []byte(`{"type":"payment_intent.succeeded"}`), time.Now()), ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := f.svc.HandleWebhook(context.Background(), tt.body, tt.signature)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, WebhookRejected, outcome)
		})
	}

	assert.Equal(t, domain.PaymentStatusPending, f.paymentStatus(t, res.Payment.ID))
}

func TestListPayments_Scoped(t *testing.T) {
	f := setup(t)
	mine := f.placeOrder(t, owner.UserID, "10.00")
	theirs := f.placeOrder(t, stranger.UserID, "20.00")
	_, err := f.svc.CreatePayment(context.Background(), owner, mine.ID)
	require.NoError(t, err)
	_, err = f.svc.CreatePayment(context.Background(), stranger, theirs.ID)
	require.NoError(t, err)

	list, err := f.svc.ListPayments(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].OrderID)

	all, err := f.svc.ListPayments(context.Background(), staff)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	anon, err := f.svc.ListPayments(context.Background(), domain.Identity{})
	require.NoError(t, err)
	assert.Empty(t, anon)
}
