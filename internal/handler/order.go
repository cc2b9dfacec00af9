package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/luestilo/commerce-system/internal/model"
	"github.com/luestilo/commerce-system/internal/repository"
	"github.com/luestilo/commerce-system/internal/service"
)

type createOrderItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type createOrderRequest struct {
	ClientID int64                    `json:"client_id"`
	Items    []createOrderItemRequest `json:"items"`
}

type updateOrderRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ID        int64            `json:"id"`
	ProductID int64            `json:"product_id"`
	Quantity  int64            `json:"quantity"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	Product   *productResponse `json:"product,omitempty"`
}

type orderResponse struct {
	ID         int64               `json:"id"`
	ClientID   int64               `json:"client_id"`
	Status     string              `json:"status"`
	TotalValue decimal.Decimal     `json:"total_value"`
	CreatedAt  string              `json:"created_at"`
	UpdatedAt  *string             `json:"updated_at,omitempty"`
	Client     *clientResponse     `json:"client,omitempty"`
	Items      []orderItemResponse `json:"items"`
}

func toOrderResponse(o *model.Order) orderResponse {
	resp := orderResponse{
		ID:         o.ID,
		ClientID:   o.ClientID,
		Status:     string(o.Status),
		TotalValue: o.TotalValue,
		CreatedAt:  formatTime(o.CreatedAt),
		UpdatedAt:  formatTimePtr(o.UpdatedAt),
		Items:      make([]orderItemResponse, 0, len(o.Items)),
	}

	if o.Client != nil {
		c := toClientResponse(o.Client)
		resp.Client = &c
	}

	for i := range o.Items {
		item := orderItemResponse{
			ID:        o.Items[i].ID,
			ProductID: o.Items[i].ProductID,
			Quantity:  o.Items[i].Quantity,
			UnitPrice: o.Items[i].UnitPrice,
		}
		if o.Items[i].Product != nil {
			p := toProductResponse(o.Items[i].Product)
			item.Product = &p
		}
		resp.Items = append(resp.Items, item)
	}

	return resp
}

// CreateOrder оформляет новый заказ.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	items := make([]model.NewOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, model.NewOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.service.CreateOrder(r.Context(), req.ClientID, items)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrClientNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, repository.ErrProductNotFound),
			errors.Is(err, repository.ErrInsufficientStock),
			errors.Is(err, service.ErrInvalidOrder):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Error("create order error", zap.Error(err), zap.Int64("clientID", req.ClientID))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func parseDateParam(raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	return nil, false
}

// ListOrders возвращает список заказов с фильтрацией и пагинацией, новые первыми.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := repository.OrderFilter{
		SectionContains: q.Get("section"),
		Skip:            queryInt(r, "skip", 0),
		Limit:           queryInt(r, "limit", 100),
	}

	if raw := q.Get("order_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid order_id", http.StatusBadRequest)
			return
		}
		f.OrderID = &id
	}
	if raw := q.Get("client_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid client_id", http.StatusBadRequest)
			return
		}
		f.ClientID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status, err := model.ParseOrderStatus(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.Status = &status
	}

	startDate, ok := parseDateParam(q.Get("start_date"))
	if !ok {
		http.Error(w, "invalid start_date", http.StatusBadRequest)
		return
	}
	f.StartDate = startDate

	endDate, ok := parseDateParam(q.Get("end_date"))
	if !ok {
		http.Error(w, "invalid end_date", http.StatusBadRequest)
		return
	}
	f.EndDate = endDate

	orders, err := h.service.ListOrders(r.Context(), f)
	if err != nil {
		h.logger.Error("list orders error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get order error", zap.Error(err), zap.Int64("orderID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// UpdateOrderStatus записывает новый статус заказа.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrInvalidStatus):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, repository.ErrOrderNotFound):
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		default:
			h.logger.Error("update order status error", zap.Error(err), zap.Int64("orderID", id))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// DeleteOrder удаляет заказ и возвращает его снимок до удаления.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	order, err := h.service.DeleteOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete order error", zap.Error(err), zap.Int64("orderID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toOrderResponse(order))
}
