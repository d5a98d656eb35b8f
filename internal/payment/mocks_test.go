package payment

import (
	"context"
	"fmt"
	"sync"
)

type mockGateway struct {
	mu        sync.Mutex
	intents   map[string]*Intent
	createErr error
	getErr    error
	creates   int
	gets      int
	lastReq   IntentRequest
}

func newMockGateway() *mockGateway {
	return &mockGateway{intents: map[string]*Intent{}}
}

func (m *mockGateway) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	m.lastReq = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	id := fmt.Sprintf("pi_%d", req.OrderID)
	intent := &Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       IntentRequiresPaymentMethod,
		Amount:       req.Amount,
		Currency:     req.Currency,
	}
	m.intents[id] = intent
	cp := *intent
	return &cp, nil
}

func (m *mockGateway) GetIntent(_ context.Context, id string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	intent, ok := m.intents[id]
	if !ok {
		return nil, &GatewayError{Op: "get_intent", StatusCode: 404, Message: "No such payment_intent"}
	}
	cp := *intent
	return &cp, nil
}

func (m *mockGateway) setStatus(id, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[id].Status = status
}
