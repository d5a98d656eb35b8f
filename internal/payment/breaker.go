package payment

import (
	"fmt"
	"time"

	"github.com/Faraj-M/E-Commerce-Platform/internal/metrics"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// CircuitBreaker wraps gobreaker with metrics.
type CircuitBreaker struct {
	*gobreaker.CircuitBreaker
	name string
}

func NewCircuitBreaker(name string, log logrus.FieldLogger) *CircuitBreaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(cbName string, from gobreaker.State, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(cbName).Set(stateValue(to))

			log.WithFields(logrus.Fields{
				"circuit": cbName,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return &CircuitBreaker{CircuitBreaker: cb, name: name}
}

// Execute runs fn through the breaker. Open and half-open rejections come
// back as a GatewayError.
func (cb *CircuitBreaker) Execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := cb.CircuitBreaker.Execute(fn)
	if err != nil {
		metrics.CircuitBreakerFailures.WithLabelValues(cb.name).Inc()
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, &GatewayError{Op: op, Err: fmt.Errorf("circuit breaker %s: %w", cb.name, err)}
	}
	return result, err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
