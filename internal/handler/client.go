package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/luestilo/commerce-system/internal/model"
	"github.com/luestilo/commerce-system/internal/repository"
	"github.com/luestilo/commerce-system/internal/validation"
)

type createClientRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	CPF     string  `json:"cpf"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type updateClientRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	CPF     *string `json:"cpf"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type clientResponse struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	CPF       string  `json:"cpf"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at,omitempty"`
}

func toClientResponse(c *model.Client) clientResponse {
	return clientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		CPF:       c.CPF,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: formatTime(c.CreatedAt),
		UpdatedAt: formatTimePtr(c.UpdatedAt),
	}
}

// CreateClient создаёт нового клиента.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.Name == "" || req.Email == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if !validation.IsValidCPF(req.CPF) {
		http.Error(w, "invalid CPF", http.StatusUnprocessableEntity)
		return
	}

	client, err := h.service.CreateClient(r.Context(), model.Client{
		Name:    req.Name,
		Email:   req.Email,
		CPF:     req.CPF,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		if errors.Is(err, repository.ErrClientExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("create client error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusCreated, toClientResponse(client))
}

// ListClients возвращает список клиентов с фильтрацией и пагинацией.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	f := repository.ClientFilter{
		NameContains:  r.URL.Query().Get("name"),
		EmailContains: r.URL.Query().Get("email"),
		Skip:          queryInt(r, "skip", 0),
		Limit:         queryInt(r, "limit", 100),
	}

	clients, err := h.service.ListClients(r.Context(), f)
	if err != nil {
		h.logger.Error("list clients error", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resp := make([]clientResponse, 0, len(clients))
	for i := range clients {
		resp = append(resp, toClientResponse(&clients[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetClient возвращает клиента по идентификатору.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	client, err := h.service.GetClient(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("get client error", zap.Error(err), zap.Int64("clientID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toClientResponse(client))
}

// UpdateClient выполняет частичное обновление клиента: затрагиваются только
// переданные в теле поля.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req updateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if req.CPF != nil && !validation.IsValidCPF(*req.CPF) {
		http.Error(w, "invalid CPF", http.StatusUnprocessableEntity)
		return
	}

	client, err := h.service.UpdateClient(r.Context(), id, model.ClientUpdate{
		Name:    req.Name,
		Email:   req.Email,
		CPF:     req.CPF,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		if errors.Is(err, repository.ErrClientExists) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("update client error", zap.Error(err), zap.Int64("clientID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toClientResponse(client))
}

// DeleteClient удаляет клиента и возвращает его снимок до удаления.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	client, err := h.service.DeleteClient(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		h.logger.Error("delete client error", zap.Error(err), zap.Int64("clientID", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toClientResponse(client))
}
