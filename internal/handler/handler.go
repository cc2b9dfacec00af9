// Package handler содержит HTTP-обработчики API коммерческого сервиса.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/luestilo/commerce-system/internal/middleware"
	"github.com/luestilo/commerce-system/internal/model"
	"github.com/luestilo/commerce-system/internal/repository"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterUser(ctx context.Context, email, password string, isAdmin bool) (*model.User, error)
	AuthenticateUser(ctx context.Context, email, password string) (*model.User, error)

	CreateClient(ctx context.Context, c model.Client) (*model.Client, error)
	GetClient(ctx context.Context, id int64) (*model.Client, error)
	ListClients(ctx context.Context, f repository.ClientFilter) ([]model.Client, error)
	UpdateClient(ctx context.Context, id int64, upd model.ClientUpdate) (*model.Client, error)
	DeleteClient(ctx context.Context, id int64) (*model.Client, error)

	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, error)
	UpdateProduct(ctx context.Context, id int64, upd model.ProductUpdate) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) (*model.Product, error)

	CreateOrder(ctx context.Context, clientID int64, items []model.NewOrderItem) (*model.Order, error)
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrders(ctx context.Context, f repository.OrderFilter) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, statusToken string) (*model.Order, error)
	DeleteOrder(ctx context.Context, id int64) (*model.Order, error)
}

// Handler реализует HTTP-обработчики API коммерческого сервиса.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
