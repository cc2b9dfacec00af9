package service

import (
	"context"
	"fmt"

	"github.com/luestilo/commerce-system/internal/model"
	"github.com/luestilo/commerce-system/internal/repository"
	"github.com/luestilo/commerce-system/internal/whatsapp"
)

// CreateOrder оформляет заказ и после успешного создания отправляет клиенту
// подтверждение, не дожидаясь доставки уведомления.
func (s *Service) CreateOrder(ctx context.Context, clientID int64, items []model.NewOrderItem) (*model.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrInvalidOrder)
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive for product %d", ErrInvalidOrder, item.ProductID)
		}
	}

	order, err := s.repo.CreateOrder(ctx, clientID, items)
	if err != nil {
		return nil, err
	}

	if order.Client != nil {
		s.notify(order.ID, order.Client.Phone, whatsapp.OrderConfirmation(order.ID))
	}

	return order, nil
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders возвращает список заказов по фильтру.
func (s *Service) ListOrders(ctx context.Context, f repository.OrderFilter) ([]model.Order, error) {
	return s.repo.ListOrders(ctx, f)
}

// UpdateOrderStatus переводит внешний токен статуса в канонический, записывает
// его и уведомляет клиента о смене статуса.
func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, statusToken string) (*model.Order, error) {
	status, err := model.ParseOrderStatus(statusToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, statusToken)
	}

	order, err := s.repo.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	if order.Client != nil {
		s.notify(order.ID, order.Client.Phone, whatsapp.StatusUpdate(order.ID, string(order.Status)))
	}

	return order, nil
}

// DeleteOrder удаляет заказ и возвращает его снимок до удаления.
// Списанные при оформлении остатки на склад не возвращаются.
func (s *Service) DeleteOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.repo.DeleteOrder(ctx, id)
}
