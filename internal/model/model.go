// Package model содержит доменные сущности коммерческого сервиса.
package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidStatus возвращается при попытке использовать нераспознанный статус заказа.
var ErrInvalidStatus = errors.New("invalid order status")

// User представляет учётную запись сотрудника, работающего с API.
type User struct {
	ID           int64
	Email        string
	PasswordHash []byte
	IsActive     bool
	IsAdmin      bool
	CreatedAt    time.Time
}

// Client представляет покупателя, на которого оформляются заказы.
type Client struct {
	ID        int64
	Name      string
	Email     string
	CPF       string
	Phone     *string
	Address   *string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// ClientUpdate описывает частичное обновление клиента: nil-поля не затрагиваются.
type ClientUpdate struct {
	Name    *string
	Email   *string
	CPF     *string
	Phone   *string
	Address *string
}

// Product представляет товар и его складские остатки.
type Product struct {
	ID           int64
	Description  string
	SaleValue    decimal.Decimal
	Barcode      *string
	Section      *string
	InitialStock int64
	CurrentStock int64
	ValidityDate *time.Time
	ImageURLs    *string
}

// ProductUpdate описывает частичное обновление товара: nil-поля не затрагиваются.
// Начальный остаток после создания товара не меняется.
type ProductUpdate struct {
	Description  *string
	SaleValue    *decimal.Decimal
	Barcode      *string
	Section      *string
	CurrentStock *int64
	ValidityDate *time.Time
	ImageURLs    *string
}

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// ParseOrderStatus переводит внешнее строковое представление статуса в каноническое.
// Нераспознанное значение отклоняется с ErrInvalidStatus, без молчаливого приведения.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case OrderStatusPending:
		return OrderStatusPending, nil
	case OrderStatusProcessing:
		return OrderStatusProcessing, nil
	case OrderStatusShipped:
		return OrderStatusShipped, nil
	case OrderStatusDelivered:
		return OrderStatusDelivered, nil
	case OrderStatusCancelled:
		return OrderStatusCancelled, nil
	default:
		return "", ErrInvalidStatus
	}
}

// Order представляет заказ клиента вместе с позициями.
// TotalValue фиксируется в момент создания и далее не пересчитывается.
type Order struct {
	ID         int64
	ClientID   int64
	Status     OrderStatus
	TotalValue decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	Client     *Client
	Items      []OrderItem
}

// OrderItem представляет одну позицию заказа. UnitPrice — снимок цены товара
// на момент оформления, не зависящий от последующих изменений цены.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
	Product   *Product
}

// NewOrderItem описывает позицию создаваемого заказа.
type NewOrderItem struct {
	ProductID int64
	Quantity  int64
}
