package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luestilo/commerce-system/internal/model"
	"github.com/luestilo/commerce-system/internal/repository"
)

type stubNotifier struct {
	err  error
	sent chan string
}

func (n *stubNotifier) Send(ctx context.Context, phone, message string) error {
	if n.sent != nil {
		n.sent <- message
	}
	return n.err
}

func TestCreateOrder_RejectsEmptyItems(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, nil)

	_, err := svc.CreateOrder(context.Background(), 1, nil)
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
	if repo.createOrderGot != nil {
		t.Fatal("repository must not be called for an empty order")
	}
}

func TestCreateOrder_RejectsNonPositiveQuantity(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, nil)

	items := []model.NewOrderItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 0},
	}
	_, err := svc.CreateOrder(context.Background(), 1, items)
	if !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder, got %v", err)
	}
	if repo.createOrderGot != nil {
		t.Fatal("repository must not be called for invalid quantities")
	}
}

func TestCreateOrder_PropagatesInsufficientStock(t *testing.T) {
	repo := &stubRepo{
		createOrderErr: repository.ErrInsufficientStock,
	}
	svc := NewService(repo, nil, nil)

	items := []model.NewOrderItem{{ProductID: 1, Quantity: 3}}
	_, err := svc.CreateOrder(context.Background(), 1, items)
	if !errors.Is(err, repository.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestCreateOrder_SendsConfirmation(t *testing.T) {
	phone := "+5511999990000"
	repo := &stubRepo{
		createOrderResp: &model.Order{
			ID:         42,
			ClientID:   1,
			Status:     model.OrderStatusPending,
			TotalValue: decimal.RequireFromString("47.50"),
			Client:     &model.Client{ID: 1, Phone: &phone},
		},
	}
	notifier := &stubNotifier{sent: make(chan string, 1)}
	svc := NewService(repo, notifier, nil)

	order, err := svc.CreateOrder(context.Background(), 1, []model.NewOrderItem{{ProductID: 1, Quantity: 2}})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if order.ID != 42 {
		t.Fatalf("unexpected order ID %d", order.ID)
	}

	select {
	case msg := <-notifier.sent:
		if msg == "" {
			t.Fatal("confirmation message is empty")
		}
	case <-time.After(time.Second):
		t.Fatal("confirmation was not sent")
	}
}

func TestCreateOrder_NotifierFailureDoesNotFailOrder(t *testing.T) {
	phone := "+5511999990000"
	repo := &stubRepo{
		createOrderResp: &model.Order{
			ID:     42,
			Status: model.OrderStatusPending,
			Client: &model.Client{ID: 1, Phone: &phone},
		},
	}
	notifier := &stubNotifier{
		err:  errors.New("gateway unavailable"),
		sent: make(chan string, 1),
	}
	svc := NewService(repo, notifier, nil)

	order, err := svc.CreateOrder(context.Background(), 1, []model.NewOrderItem{{ProductID: 1, Quantity: 1}})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if order == nil {
		t.Fatal("expected order despite notifier failure")
	}

	select {
	case <-notifier.sent:
	case <-time.After(time.Second):
		t.Fatal("notification was not attempted")
	}
}

func TestCreateOrder_NoNotificationWithoutPhone(t *testing.T) {
	repo := &stubRepo{
		createOrderResp: &model.Order{
			ID:     42,
			Status: model.OrderStatusPending,
			Client: &model.Client{ID: 1},
		},
	}
	notifier := &stubNotifier{sent: make(chan string, 1)}
	svc := NewService(repo, notifier, nil)

	if _, err := svc.CreateOrder(context.Background(), 1, []model.NewOrderItem{{ProductID: 1, Quantity: 1}}); err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	select {
	case msg := <-notifier.sent:
		t.Fatalf("unexpected notification %q for client without phone", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUpdateOrderStatus_RejectsUnknownToken(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, nil, nil)

	_, err := svc.UpdateOrderStatus(context.Background(), 1, "teleported")
	if !errors.Is(err, model.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if repo.updateStatusGot != "" {
		t.Fatal("repository must not be called for an unknown status")
	}
}

func TestUpdateOrderStatus_CanonicalizesToken(t *testing.T) {
	repo := &stubRepo{
		updateStatusResp: &model.Order{ID: 5, Status: model.OrderStatusShipped},
	}
	svc := NewService(repo, nil, nil)

	order, err := svc.UpdateOrderStatus(context.Background(), 5, "shipped")
	if err != nil {
		t.Fatalf("UpdateOrderStatus error: %v", err)
	}
	if repo.updateStatusGot != model.OrderStatusShipped {
		t.Fatalf("expected canonical status SHIPPED, got %q", repo.updateStatusGot)
	}
	if order.Status != model.OrderStatusShipped {
		t.Fatalf("unexpected status %q", order.Status)
	}
}

func TestUpdateOrderStatus_PropagatesNotFound(t *testing.T) {
	repo := &stubRepo{
		updateStatusErr: repository.ErrOrderNotFound,
	}
	svc := NewService(repo, nil, nil)

	_, err := svc.UpdateOrderStatus(context.Background(), 99, "DELIVERED")
	if !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
