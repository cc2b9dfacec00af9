package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/luestilo/commerce-system/internal/middleware"
	"github.com/luestilo/commerce-system/internal/model"
	"github.com/luestilo/commerce-system/internal/repository"
	"github.com/luestilo/commerce-system/internal/service"
)

type stubService struct {
	registerResp *model.User
	registerErr  error

	authResp *model.User
	authErr  error

	createClientResp *model.Client
	createClientErr  error

	getClientResp *model.Client
	getClientErr  error

	listClientsResp []model.Client
	listClientsErr  error

	updateClientResp *model.Client
	updateClientErr  error

	deleteClientResp *model.Client
	deleteClientErr  error

	createProductResp *model.Product
	createProductErr  error

	getProductResp *model.Product
	getProductErr  error

	listProductsResp []model.Product
	listProductsErr  error

	updateProductResp *model.Product
	updateProductErr  error

	deleteProductResp *model.Product
	deleteProductErr  error

	createOrderResp     *model.Order
	createOrderErr      error
	createOrderClientID int64
	createOrderItems    []model.NewOrderItem

	getOrderResp *model.Order
	getOrderErr  error

	listOrdersResp   []model.Order
	listOrdersErr    error
	listOrdersFilter repository.OrderFilter

	updateStatusResp  *model.Order
	updateStatusErr   error
	updateStatusToken string

	deleteOrderResp *model.Order
	deleteOrderErr  error
}

func (s *stubService) RegisterUser(ctx context.Context, email, password string, isAdmin bool) (*model.User, error) {
	return s.registerResp, s.registerErr
}

func (s *stubService) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	return s.authResp, s.authErr
}

func (s *stubService) CreateClient(ctx context.Context, c model.Client) (*model.Client, error) {
	return s.createClientResp, s.createClientErr
}

func (s *stubService) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	return s.getClientResp, s.getClientErr
}

func (s *stubService) ListClients(ctx context.Context, f repository.ClientFilter) ([]model.Client, error) {
	return s.listClientsResp, s.listClientsErr
}

func (s *stubService) UpdateClient(ctx context.Context, id int64, upd model.ClientUpdate) (*model.Client, error) {
	return s.updateClientResp, s.updateClientErr
}

func (s *stubService) DeleteClient(ctx context.Context, id int64) (*model.Client, error) {
	return s.deleteClientResp, s.deleteClientErr
}

func (s *stubService) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	return s.createProductResp, s.createProductErr
}

func (s *stubService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.getProductResp, s.getProductErr
}

func (s *stubService) ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, error) {
	return s.listProductsResp, s.listProductsErr
}

func (s *stubService) UpdateProduct(ctx context.Context, id int64, upd model.ProductUpdate) (*model.Product, error) {
	return s.updateProductResp, s.updateProductErr
}

func (s *stubService) DeleteProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.deleteProductResp, s.deleteProductErr
}

func (s *stubService) CreateOrder(ctx context.Context, clientID int64, items []model.NewOrderItem) (*model.Order, error) {
	s.createOrderClientID = clientID
	s.createOrderItems = items
	return s.createOrderResp, s.createOrderErr
}

func (s *stubService) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.getOrderResp, s.getOrderErr
}

func (s *stubService) ListOrders(ctx context.Context, f repository.OrderFilter) ([]model.Order, error) {
	s.listOrdersFilter = f
	return s.listOrdersResp, s.listOrdersErr
}

func (s *stubService) UpdateOrderStatus(ctx context.Context, id int64, statusToken string) (*model.Order, error) {
	s.updateStatusToken = statusToken
	return s.updateStatusResp, s.updateStatusErr
}

func (s *stubService) DeleteOrder(ctx context.Context, id int64) (*model.Order, error) {
	return s.deleteOrderResp, s.deleteOrderErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	auth := middleware.NewAuthMiddleware("test-secret", time.Minute)

	return NewHandler(svc, logger, auth)
}

func bearerToken(t *testing.T, h *Handler, isAdmin bool) string {
	t.Helper()

	token, err := h.authMiddleware.IssueToken(1, isAdmin)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{
		registerResp: &model.User{
			ID:       42,
			Email:    "user@example.com",
			IsActive: true,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Email:    "user@example.com",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var resp userResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 42 || resp.Email != "user@example.com" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRegister_Conflict(t *testing.T) {
	svc := &stubService{
		registerErr: repository.ErrUserExists,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Email:    "user@example.com",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusConflict)
	}
}

func TestRegister_BadRequestOnEmptyCredentials(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	body, _ := json.Marshal(credentialsRequest{Email: "user@example.com"})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Register(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestLogin_Success(t *testing.T) {
	svc := &stubService{
		authResp: &model.User{
			ID:       1,
			Email:    "user@example.com",
			IsActive: true,
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Email:    "user@example.com",
		Password: "pass",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("access token is empty")
	}
	if resp.TokenType != "bearer" {
		t.Fatalf("token type = %q, want bearer", resp.TokenType)
	}
}

func TestLogin_UnauthorizedOnInvalidCredentials(t *testing.T) {
	svc := &stubService{
		authErr: service.ErrInvalidCredentials,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(credentialsRequest{
		Email:    "user@example.com",
		Password: "wrong",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusUnauthorized)
	}
}

func TestRouter_ProductReadsArePublic(t *testing.T) {
	svc := &stubService{
		listProductsResp: []model.Product{},
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
}
