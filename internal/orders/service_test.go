package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/Faraj-M/E-Commerce-Platform/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock() *MockRepository {
	return &MockRepository{
		orders: []domain.Order{
			{ID: 1, UserID: 7, Status: domain.OrderStatusPending, TotalAmount: decimal.RequireFromString("30.00")},
			{ID: 2, UserID: 8, Status: domain.OrderStatusProcessing, TotalAmount: decimal.RequireFromString("5.00")},
		},
		items: map[int64][]domain.OrderItem{
			1: {{ID: 1, OrderID: 1, ProductID: 3, Quantity: 3, Price: decimal.RequireFromString("10.00")}},
		},
	}
}

func TestList_Scoping(t *testing.T) {
	tests := []struct {
		name    string
		who     domain.Identity
		wantIDs []int64
	}{
		{"owner sees own", domain.Identity{UserID: 7}, []int64{1}},
		{"staff sees all", domain.Identity{UserID: 1, Staff: true}, []int64{1, 2}},
		{"anonymous sees nothing", domain.Identity{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(newMock())
			got, err := svc.List(context.Background(), tt.who)
			require.NoError(t, err)

			var ids []int64
			for _, o := range got {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestGet(t *testing.T) {
	svc := NewService(newMock())

	order, err := svc.Get(context.Background(), domain.Identity{UserID: 7}, 1)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, order.TotalAmount.Equal(order.ItemsTotal()))

	_, err = svc.Get(context.Background(), domain.Identity{UserID: 7}, 2)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.Get(context.Background(), domain.Identity{UserID: 7}, 99)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.Get(context.Background(), domain.Identity{UserID: 1, Staff: true}, 2)
	assert.NoError(t, err)
}

func TestItems(t *testing.T) {
	svc := NewService(newMock())

	items, err := svc.Items(context.Background(), domain.Identity{UserID: 7}, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = svc.Items(context.Background(), domain.Identity{UserID: 8}, 1)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRepositoryError(t *testing.T) {
	repo := newMock()
	repo.err = errors.New("db down")
	svc := NewService(repo)

	_, err := svc.List(context.Background(), domain.Identity{UserID: 7})
	assert.Error(t, err)
	_, err = svc.Get(context.Background(), domain.Identity{UserID: 7}, 1)
	assert.Error(t, err)
}
