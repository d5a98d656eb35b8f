package payment

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const DefaultStripeURL = "https://api.stripe.com"

// StripeGateway talks to the Stripe REST API. Calls are never retried.
type StripeGateway struct {
	client  *resty.Client
	breaker *CircuitBreaker
}

func NewStripeGateway(baseURL, secretKey string, timeout time.Duration, log logrus.FieldLogger) *StripeGateway {
	if baseURL == "" {
		baseURL = DefaultStripeURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetAuthToken(secretKey).
		SetHeader("Accept", "application/json")

	return &StripeGateway{
		client:  client,
		breaker: NewCircuitBreaker("stripe", log),
	}
}

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	form := map[string]string{
		"amount":                             strconv.FormatInt(req.Amount, 10),
		"currency":                           req.Currency,
		"metadata[order_id]":                 strconv.FormatInt(req.OrderID, 10),
		"automatic_payment_methods[enabled]": "true",
	}

	r := g.client.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&Intent{}).
		SetError(&stripeErrorResponse{})
	if req.IdempotencyKey != "" {
		r.SetHeader("Idempotency-Key", req.IdempotencyKey)
	}

	return g.do("create_intent", func() (*resty.Response, error) {
		return r.Post("/v1/payment_intents")
	})
}

func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	r := g.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&Intent{}).
		SetError(&stripeErrorResponse{})

	return g.do("get_intent", func() (*resty.Response, error) {
		return r.Get("/v1/payment_intents/{id}")
	})
}

// do trips the breaker on transport errors and 5xx answers only; a 4xx is
// the caller's problem, not the gateway's.
func (g *StripeGateway) do(op string, call func() (*resty.Response, error)) (*Intent, error) {
	result, err := g.breaker.Execute(op, func() (interface{}, error) {
		resp, err := call()
		if err != nil {
			return nil, &GatewayError{Op: op, Err: err}
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, responseError(op, resp)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	resp := result.(*resty.Response)
	if resp.IsError() {
		return nil, responseError(op, resp)
	}
	intent, ok := resp.Result().(*Intent)
	if !ok || intent.ID == "" {
		return nil, &GatewayError{Op: op, StatusCode: resp.StatusCode(), Message: "response carries no payment intent"}
	}
	return intent, nil
}

func responseError(op string, resp *resty.Response) *GatewayError {
	msg := resp.Status()
	if body, ok := resp.Error().(*stripeErrorResponse); ok && body.Error.Message != "" {
		msg = body.Error.Message
	}
	return &GatewayError{Op: op, StatusCode: resp.StatusCode(), Message: msg}
}
