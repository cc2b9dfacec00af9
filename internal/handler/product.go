package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/luestilo/commerce-system/internal/model"
	"github.com/luestilo/commerce-system/internal/repository"
)

type createProductRequest struct {
	Description  string          `json:"description"`
	SaleValue    decimal.Decimal `json:"sale_value"`
	Barcode      *string         `json:"barcode"`
	Section      *string         `json:"section"`
	InitialStock int64           `json:"initial_stock"`
	ValidityDate *string         `json:"validity_date"`
	ImageURLs    *string         `json:"image_urls"`
}

type updateProductRequest struct {
	Description  *string          `json:"description"`
	SaleValue    *decimal.Decimal `json:"sale_value"`
	Barcode      *string          `json:"barcode"`
	Section      *string          `json:"section"`
	CurrentStock *int64           `json:"current_stock"`
	ValidityDate *string          `json:"validity_date"`
	ImageURLs    *string          `json:"image_urls"`
}

type productResponse struct {
	ID           int64           `json:"id"`
	Description  string          `json:"description"`
	SaleValue    decimal.Decimal `json:"sale_value"`
	Barcode      *string         `json:"barcode,omitempty"`
	Section      *string         `json:"section,omitempty"`
	InitialStock int64           `json:"initial_stock"`
	CurrentStock int64           `json:"current_stock"`
	ValidityDate *string         `json:"validity_date,omitempty"`
	ImageURLs    *string         `json:"image_urls,omitempty"`
}

func toProductResponse(p *model.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		Description:  p.Description,
		SaleValue:    p.SaleValue,
		Barcode:      p.Barcode,
		Section:      p.Section,
		InitialStock: p.InitialStock,
		CurrentStock: p.CurrentStock,
		ValidityDate: formatDatePtr(p.ValidityDate),
		ImageURLs:    p.ImageURLs,
	}
}

func parseDate(s *string) (*time.Time, bool) {
	if s == nil {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// CreateProduct создаёт новый товар. Текущий остаток устанавливается равным начальному.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Description == "" || !req.SaleValue.IsPositive() || req.InitialStock < 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	validityDate, ok := parseDate(req.ValidityDate)
	if !ok {
		http.Error(w, "invalid validity_date", http.StatusBadRequest)
		return
	}

	product, err := h.service.CreateProduct(r.Context(), model.Product{
		Description:  req.Description,
		SaleValue:    req.SaleValue,
		Barcode:      req.Barcode,
		Section:      req.Section,
		InitialStock: req.InitialStock,
		ValidityDate: validityDate,
		ImageURLs:    req.ImageURLs,
	})
	if err != nil {
		if errors.Is(err, repository.ErrProductExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("create product error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// ListProducts возвращает список товаров с фильтрацией и пагинацией.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	f := repository.ProductFilter{
		SectionContains: r.URL.Query().Get("category"),
		Skip:            queryInt(r, "skip", 0),
		Limit:           queryInt(r, "limit", 100),
	}

	if raw := r.URL.Query().Get("min_price"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			http.Error(w, "invalid min_price", http.StatusBadRequest)
			return
		}
		f.MinPrice = &v
	}
	if raw := r.URL.Query().Get("max_price"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			http.Error(w, "invalid max_price", http.StatusBadRequest)
			return
		}
		f.MaxPrice = &v
	}

	products, err := h.service.ListProducts(r.Context(), f)
	if err != nil {
		h.logger.Error("list products error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for i := range products {
		resp = append(resp, toProductResponse(&products[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetProduct возвращает товар по идентификатору.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get product error", zap.Error(err), zap.Int64("productID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toProductResponse(product))
}

// UpdateProduct выполняет частичное обновление товара.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.SaleValue != nil && !req.SaleValue.IsPositive() {
		http.Error(w, "sale_value must be positive", http.StatusBadRequest)
		return
	}
	if req.CurrentStock != nil && *req.CurrentStock < 0 {
		http.Error(w, "current_stock must be non-negative", http.StatusBadRequest)
		return
	}

	validityDate, ok := parseDate(req.ValidityDate)
	if !ok {
		http.Error(w, "invalid validity_date", http.StatusBadRequest)
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), id, model.ProductUpdate{
		Description:  req.Description,
		SaleValue:    req.SaleValue,
		Barcode:      req.Barcode,
		Section:      req.Section,
		CurrentStock: req.CurrentStock,
		ValidityDate: validityDate,
		ImageURLs:    req.ImageURLs,
	})
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		if errors.Is(err, repository.ErrProductExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("update product error", zap.Error(err), zap.Int64("productID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toProductResponse(product))
}

// DeleteProduct удаляет товар и возвращает его снимок до удаления.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	product, err := h.service.DeleteProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		if errors.Is(err, repository.ErrProductInUse) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("delete product error", zap.Error(err), zap.Int64("productID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toProductResponse(product))
}
