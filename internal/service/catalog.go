package service

import (
	"context"

	"github.com/luestilo/commerce-system/internal/model"
	"github.com/luestilo/commerce-system/internal/repository"
)

// CreateClient создаёт нового клиента.
func (s *Service) CreateClient(ctx context.Context, c model.Client) (*model.Client, error) {
	return s.repo.CreateClient(ctx, c)
}

// GetClient возвращает клиента по идентификатору.
func (s *Service) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	return s.repo.GetClient(ctx, id)
}

// ListClients возвращает список клиентов по фильтру.
func (s *Service) ListClients(ctx context.Context, f repository.ClientFilter) ([]model.Client, error) {
	return s.repo.ListClients(ctx, f)
}

// UpdateClient выполняет частичное обновление клиента.
func (s *Service) UpdateClient(ctx context.Context, id int64, upd model.ClientUpdate) (*model.Client, error) {
	return s.repo.UpdateClient(ctx, id, upd)
}

// DeleteClient удаляет клиента и возвращает его снимок до удаления.
func (s *Service) DeleteClient(ctx context.Context, id int64) (*model.Client, error) {
	return s.repo.DeleteClient(ctx, id)
}

// CreateProduct создаёт новый товар.
func (s *Service) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	return s.repo.CreateProduct(ctx, p)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts возвращает список товаров по фильтру.
func (s *Service) ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, error) {
	return s.repo.ListProducts(ctx, f)
}

// UpdateProduct выполняет частичное обновление товара.
func (s *Service) UpdateProduct(ctx context.Context, id int64, upd model.ProductUpdate) (*model.Product, error) {
	return s.repo.UpdateProduct(ctx, id, upd)
}

// DeleteProduct удаляет товар и возвращает его снимок до удаления.
func (s *Service) DeleteProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.DeleteProduct(ctx, id)
}
