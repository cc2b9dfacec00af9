package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/luestilo/commerce-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware коммерческого сервиса.
// Проверки привилегий выполняются на границе, до вызова бизнес-логики.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		// Чтение каталога товаров доступно без аутентификации.
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Route("/clients", func(r chi.Router) {
				r.Post("/", h.CreateClient)
				r.Get("/", h.ListClients)
				r.Get("/{id}", h.GetClient)
				r.Put("/{id}", h.UpdateClient)
				r.Delete("/{id}", h.DeleteClient)
			})

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireAdmin)

				r.Post("/products", h.CreateProduct)
				r.Put("/products/{id}", h.UpdateProduct)
				r.Delete("/products/{id}", h.DeleteProduct)

				r.Put("/orders/{id}", h.UpdateOrderStatus)
				r.Delete("/orders/{id}", h.DeleteOrder)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
