package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luestilo/commerce-system/internal/model"
	"github.com/luestilo/commerce-system/internal/repository"
	"github.com/luestilo/commerce-system/internal/service"
)

func TestCreateOrder_Created(t *testing.T) {
	phone := "+5511999990000"
	svc := &stubService{
		createOrderResp: &model.Order{
			ID:         42,
			ClientID:   7,
			Status:     model.OrderStatusPending,
			TotalValue: decimal.RequireFromString("47.50"),
			CreatedAt:  time.Now().UTC(),
			Client:     &model.Client{ID: 7, Name: "Maria", Email: "maria@example.com", CPF: "52998224725", Phone: &phone},
			Items: []model.OrderItem{
				{ID: 1, OrderID: 42, ProductID: 3, Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
				{ID: 2, OrderID: 42, ProductID: 5, Quantity: 5, UnitPrice: decimal.RequireFromString("5.50")},
			},
		},
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(createOrderRequest{
		ClientID: 7,
		Items: []createOrderItemRequest{
			{ProductID: 3, Quantity: 2},
			{ProductID: 5, Quantity: 5},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var resp orderResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 42 || resp.Status != "PENDING" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !resp.TotalValue.Equal(decimal.RequireFromString("47.50")) {
		t.Fatalf("total = %s, want 47.50", resp.TotalValue)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(resp.Items))
	}

	if svc.createOrderClientID != 7 {
		t.Fatalf("client ID passed to service = %d, want 7", svc.createOrderClientID)
	}
	if len(svc.createOrderItems) != 2 || svc.createOrderItems[1].Quantity != 5 {
		t.Fatalf("unexpected items passed to service: %+v", svc.createOrderItems)
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	svc := &stubService{
		createOrderErr: fmt.Errorf("%w: product 3: available 1, requested 2", repository.ErrInsufficientStock),
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(createOrderRequest{
		ClientID: 7,
		Items:    []createOrderItemRequest{{ProductID: 3, Quantity: 2}},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(raw), "insufficient stock") {
		t.Fatalf("body %q does not name the stock problem", raw)
	}
}

func TestCreateOrder_ClientNotFound(t *testing.T) {
	svc := &stubService{
		createOrderErr: repository.ErrClientNotFound,
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(createOrderRequest{
		ClientID: 999,
		Items:    []createOrderItemRequest{{ProductID: 3, Quantity: 1}},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestCreateOrder_InvalidOrder(t *testing.T) {
	svc := &stubService{
		createOrderErr: fmt.Errorf("%w: order must contain at least one item", service.ErrInvalidOrder),
	}
	h := newTestHandler(t, svc)

	body, _ := json.Marshal(createOrderRequest{ClientID: 7})

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateOrder(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	svc := &stubService{
		getOrderErr: repository.ErrOrderNotFound,
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/orders/99", nil)
	req.Header.Set("Authorization", bearerToken(t, h, false))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestListOrders_StatusFilter(t *testing.T) {
	svc := &stubService{
		listOrdersResp: []model.Order{},
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/orders?status=shipped&client_id=3", nil)
	req.Header.Set("Authorization", bearerToken(t, h, false))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	f := svc.listOrdersFilter
	if f.Status == nil || *f.Status != model.OrderStatusShipped {
		t.Fatalf("status filter = %v, want SHIPPED", f.Status)
	}
	if f.ClientID == nil || *f.ClientID != 3 {
		t.Fatalf("client filter = %v, want 3", f.ClientID)
	}
}

func TestListOrders_RejectsUnknownStatus(t *testing.T) {
	h := newTestHandler(t, &stubService{})
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/orders?status=bogus", nil)
	req.Header.Set("Authorization", bearerToken(t, h, false))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestUpdateOrderStatus_ForbiddenForNonAdmin(t *testing.T) {
	svc := &stubService{}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	body, _ := json.Marshal(updateOrderRequest{Status: "SHIPPED"})

	req := httptest.NewRequest(http.MethodPut, "/api/orders/5", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, h, false))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusForbidden)
	}
	if svc.updateStatusToken != "" {
		t.Fatal("service must not be called for a non-admin user")
	}
}

func TestUpdateOrderStatus_Success(t *testing.T) {
	svc := &stubService{
		updateStatusResp: &model.Order{
			ID:        5,
			Status:    model.OrderStatusShipped,
			CreatedAt: time.Now().UTC(),
		},
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	body, _ := json.Marshal(updateOrderRequest{Status: "shipped"})

	req := httptest.NewRequest(http.MethodPut, "/api/orders/5", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, h, true))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if svc.updateStatusToken != "shipped" {
		t.Fatalf("status token passed to service = %q, want shipped", svc.updateStatusToken)
	}

	var resp orderResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "SHIPPED" {
		t.Fatalf("status = %q, want SHIPPED", resp.Status)
	}
}

func TestUpdateOrderStatus_RejectsUnknownToken(t *testing.T) {
	svc := &stubService{
		updateStatusErr: fmt.Errorf("%w: %q", model.ErrInvalidStatus, "teleported"),
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	body, _ := json.Marshal(updateOrderRequest{Status: "teleported"})

	req := httptest.NewRequest(http.MethodPut, "/api/orders/5", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, h, true))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestDeleteOrder_ReturnsSnapshot(t *testing.T) {
	svc := &stubService{
		deleteOrderResp: &model.Order{
			ID:         5,
			ClientID:   7,
			Status:     model.OrderStatusPending,
			TotalValue: decimal.RequireFromString("12.00"),
			CreatedAt:  time.Now().UTC(),
		},
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	req := httptest.NewRequest(http.MethodDelete, "/api/orders/5", nil)
	req.Header.Set("Authorization", bearerToken(t, h, true))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	res := rec.Result()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var resp orderResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != 5 || !resp.TotalValue.Equal(decimal.RequireFromString("12.00")) {
		t.Fatalf("unexpected snapshot: %+v", resp)
	}
}
