package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/luestilo/commerce-system/internal/model"
)

const orderColumns = `id, client_id, status, total_value, created_at, updated_at`

// querier покрывает pgxpool.Pool и pgx.Tx, чтобы выборки заказов работали
// и вне, и внутри транзакции.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.ClientID, &o.Status, &o.TotalValue, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder оформляет заказ: проверяет клиента, валидирует остатки всех
// позиций в порядке их следования, фиксирует цены и атомарно создаёт заказ,
// позиции и списания остатков. Любая ошибка откатывает операцию целиком.
func (r *PostgresRepository) CreateOrder(ctx context.Context, clientID int64, items []model.NewOrderItem) (*model.Order, error) {
	var order *model.Order

	err := r.withRetry(ctx, func() error {
		o, err := r.createOrderTx(ctx, clientID, items)
		if err != nil {
			return err
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return order, nil
}

func (r *PostgresRepository) createOrderTx(ctx context.Context, clientID int64, items []model.NewOrderItem) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	client, err := scanClient(tx.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`,
		clientID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrClientNotFound, clientID)
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	// Валидация идёт в порядке следования позиций. Строки товаров блокируются
	// FOR UPDATE, чтобы параллельные заказы не увели остаток между проверкой
	// и списанием. remaining учитывает повторы одного товара в заказе.
	products := make(map[int64]*model.Product)
	remaining := make(map[int64]int64)
	deltas := make(map[int64]int64)
	var productOrder []int64

	totalValue := decimal.Zero
	orderItems := make([]model.OrderItem, 0, len(items))

	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			p, err = scanProduct(tx.QueryRow(ctx,
				`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`,
				item.ProductID,
			))
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, item.ProductID)
				}
				return nil, fmt.Errorf("lock product for update: %w", err)
			}
			products[item.ProductID] = p
			remaining[item.ProductID] = p.CurrentStock
			productOrder = append(productOrder, item.ProductID)
		}

		if remaining[item.ProductID] < item.Quantity {
			return nil, fmt.Errorf("%w: product %d: available %d, requested %d",
				ErrInsufficientStock, item.ProductID, remaining[item.ProductID], item.Quantity)
		}

		remaining[item.ProductID] -= item.Quantity
		deltas[item.ProductID] += item.Quantity

		totalValue = totalValue.Add(p.SaleValue.Mul(decimal.NewFromInt(item.Quantity)))

		orderItems = append(orderItems, model.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: p.SaleValue,
		})
	}

	order, err := scanOrder(tx.QueryRow(ctx,
		`INSERT INTO orders (client_id, status, total_value)
		 VALUES ($1, $2, $3)
		 RETURNING `+orderColumns,
		clientID, string(model.OrderStatusPending), totalValue,
	))
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for i := range orderItems {
		orderItems[i].OrderID = order.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id`,
			order.ID, orderItems[i].ProductID, orderItems[i].Quantity, orderItems[i].UnitPrice,
		).Scan(&orderItems[i].ID)
		if err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	// Одно списание на каждый товар заказа, через тот же примитив, что и
	// одиночные корректировки остатков.
	for _, productID := range productOrder {
		updated, err := adjustStockTx(ctx, tx, productID, -deltas[productID])
		if err != nil {
			return nil, err
		}
		products[productID] = updated
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	for i := range orderItems {
		orderItems[i].Product = products[orderItems[i].ProductID]
	}
	order.Client = client
	order.Items = orderItems

	return order, nil
}

// GetOrder возвращает заказ с вложенным клиентом и позициями с товарами.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	return getOrder(ctx, r.pool, id)
}

func getOrder(ctx context.Context, q querier, id int64) (*model.Order, error) {
	order, err := scanOrder(q.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	// Клиент мог быть удалён после оформления заказа — тогда вложенный
	// клиент отсутствует, сам заказ остаётся читаемым.
	client, err := scanClient(q.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`,
		order.ClientID,
	))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get order client: %w", err)
	}
	order.Client = client

	items, err := getOrderItems(ctx, q, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}

func getOrderItems(ctx context.Context, q querier, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	rows, err := q.Query(ctx,
		`SELECT i.id, i.order_id, i.product_id, i.quantity, i.unit_price, `+
			`p.id, p.description, p.sale_value, p.barcode, p.section, p.initial_stock, p.current_stock, p.validity_date, p.image_urls `+
			`FROM order_items i
			 JOIN products p ON p.id = i.product_id
			 WHERE i.order_id = ANY($1)
			 ORDER BY i.id`,
		orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	res := make(map[int64][]model.OrderItem)
	for rows.Next() {
		var item model.OrderItem
		var p model.Product
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice,
			&p.ID, &p.Description, &p.SaleValue, &p.Barcode, &p.Section,
			&p.InitialStock, &p.CurrentStock, &p.ValidityDate, &p.ImageURLs)
		if err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		item.Product = &p
		res[item.OrderID] = append(res[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// OrderFilter описывает условия выборки заказов. Незаданные поля не участвуют
// в фильтрации, заданные объединяются по AND.
type OrderFilter struct {
	OrderID         *int64
	ClientID        *int64
	Status          *model.OrderStatus
	StartDate       *time.Time
	EndDate         *time.Time
	SectionContains string
	Skip            int
	Limit           int
}

// ListOrders возвращает заказы с фильтрацией и пагинацией, новые первыми.
// Фильтр по секции выбирает заказы, содержащие хотя бы одну позицию с товаром
// подходящей секции, без дублей.
func (r *PostgresRepository) ListOrders(ctx context.Context, f OrderFilter) ([]model.Order, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT DISTINCT o.id, o.client_id, o.status, o.total_value, o.created_at, o.updated_at FROM orders o`)

	if f.SectionContains != "" {
		sb.WriteString(` JOIN order_items i ON i.order_id = o.id JOIN products p ON p.id = i.product_id`)
	}

	var conds []string
	var args []any

	if f.OrderID != nil {
		args = append(args, *f.OrderID)
		conds = append(conds, `o.id = $`+strconv.Itoa(len(args)))
	}
	if f.ClientID != nil {
		args = append(args, *f.ClientID)
		conds = append(conds, `o.client_id = $`+strconv.Itoa(len(args)))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		conds = append(conds, `o.status = $`+strconv.Itoa(len(args)))
	}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		conds = append(conds, `o.created_at::date >= $`+strconv.Itoa(len(args))+`::date`)
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		conds = append(conds, `o.created_at::date <= $`+strconv.Itoa(len(args))+`::date`)
	}
	if f.SectionContains != "" {
		args = append(args, "%"+f.SectionContains+"%")
		conds = append(conds, `p.section ILIKE $`+strconv.Itoa(len(args)))
	}

	if len(conds) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(conds, ` AND `))
	}

	sb.WriteString(` ORDER BY o.created_at DESC, o.id DESC`)

	args = append(args, f.Limit)
	sb.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	args = append(args, f.Skip)
	sb.WriteString(` OFFSET $` + strconv.Itoa(len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	if err := r.attachOrderDetails(ctx, orders); err != nil {
		return nil, err
	}

	return orders, nil
}

// attachOrderDetails подгружает позиции и клиентов для выбранных заказов
// пакетно, без отдельного запроса на каждый заказ.
func (r *PostgresRepository) attachOrderDetails(ctx context.Context, orders []model.Order) error {
	orderIDs := make([]int64, 0, len(orders))
	clientIDSet := make(map[int64]struct{})
	clientIDs := make([]int64, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
		if _, ok := clientIDSet[o.ClientID]; !ok {
			clientIDSet[o.ClientID] = struct{}{}
			clientIDs = append(clientIDs, o.ClientID)
		}
	}

	items, err := getOrderItems(ctx, r.pool, orderIDs)
	if err != nil {
		return err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = ANY($1)`,
		clientIDs,
	)
	if err != nil {
		return fmt.Errorf("select order clients: %w", err)
	}
	defer rows.Close()

	clients := make(map[int64]*model.Client)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return fmt.Errorf("scan client: %w", err)
		}
		clients[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		orders[i].Client = clients[orders[i].ClientID]
	}

	return nil
}

// UpdateOrderStatus записывает новый статус заказа как есть: граф переходов
// не контролируется, допустим любой корректный статус.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrOrderNotFound
	}

	return r.GetOrder(ctx, id)
}

// DeleteOrder удаляет заказ вместе с позициями и возвращает его снимок до
// удаления. Остатки товаров при этом намеренно не восстанавливаются; если
// политика изменится, возврат остатков добавляется здесь, в этой же транзакции.
func (r *PostgresRepository) DeleteOrder(ctx context.Context, id int64) (*model.Order, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := getOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return order, nil
}
