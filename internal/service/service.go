// Package service реализует бизнес-логику коммерческого сервиса.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/luestilo/commerce-system/internal/model"
	"github.com/luestilo/commerce-system/internal/repository"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveUser возвращается при попытке входа деактивированного пользователя.
	ErrInactiveUser = errors.New("user is inactive")
	// ErrInvalidOrder возвращается, если запрос на оформление заказа некорректен.
	ErrInvalidOrder = errors.New("invalid order")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error

	CreateUser(ctx context.Context, email string, passwordHash []byte, isAdmin bool) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	CreateClient(ctx context.Context, c model.Client) (*model.Client, error)
	GetClient(ctx context.Context, id int64) (*model.Client, error)
	GetClientByEmail(ctx context.Context, email string) (*model.Client, error)
	GetClientByCPF(ctx context.Context, cpf string) (*model.Client, error)
	ListClients(ctx context.Context, f repository.ClientFilter) ([]model.Client, error)
	UpdateClient(ctx context.Context, id int64, upd model.ClientUpdate) (*model.Client, error)
	DeleteClient(ctx context.Context, id int64) (*model.Client, error)

	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, error)
	UpdateProduct(ctx context.Context, id int64, upd model.ProductUpdate) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) (*model.Product, error)
	AdjustProductStock(ctx context.Context, id int64, delta int64) (*model.Product, error)

	CreateOrder(ctx context.Context, clientID int64, items []model.NewOrderItem) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrders(ctx context.Context, f repository.OrderFilter) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) (*model.Order, error)
}

// Notifier описывает контракт отправки исходящих уведомлений.
type Notifier interface {
	Send(ctx context.Context, phone, message string) error
}

// Service содержит бизнес-логику коммерческого сервиса.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewService создаёт новый сервис с указанным репозиторием и отправителем уведомлений.
func NewService(repo Repository, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// RegisterUser регистрирует нового пользователя с хешированием пароля.
func (s *Service) RegisterUser(ctx context.Context, email, password string, isAdmin bool) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.CreateUser(ctx, email, hash, isAdmin)
}

// AuthenticateUser проверяет email и пароль пользователя и возвращает его учётную запись.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	return u, nil
}

// notify отправляет уведомление в отдельной горутине. Ошибки доставки
// логируются и не влияют на результат вызвавшей операции.
func (s *Service) notify(orderID int64, phone *string, message string) {
	if s.notifier == nil || phone == nil || *phone == "" {
		return
	}

	p := *phone
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.notifier.Send(ctx, p, message); err != nil {
			s.logger.Warn("send notification failed",
				zap.Int64("orderID", orderID),
				zap.Error(err),
			)
		}
	}()
}
