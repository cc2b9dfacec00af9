package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/luestilo/commerce-system/internal/model"
)

const productColumns = `id, description, sale_value, barcode, section, initial_stock, current_stock, validity_date, image_urls`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.Description, &p.SaleValue, &p.Barcode, &p.Section,
		&p.InitialStock, &p.CurrentStock, &p.ValidityDate, &p.ImageURLs)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct создаёт новый товар. Текущий остаток устанавливается равным начальному.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO products (description, sale_value, barcode, section, initial_stock, current_stock, validity_date, image_urls)
		 VALUES ($1, $2, $3, $4, $5, $5, $6, $7)
		 RETURNING `+productColumns,
		p.Description, p.SaleValue, p.Barcode, p.Section, p.InitialStock, p.ValidityDate, p.ImageURLs,
	)

	created, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: duplicate barcode", ErrProductExists)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`,
		id,
	)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ProductFilter описывает условия выборки товаров. Незаданные поля не участвуют в фильтрации.
type ProductFilter struct {
	SectionContains string
	MinPrice        *decimal.Decimal
	MaxPrice        *decimal.Decimal
	Skip            int
	Limit           int
}

// ListProducts возвращает список товаров с фильтрацией и пагинацией.
func (r *PostgresRepository) ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + productColumns + ` FROM products`)

	var conds []string
	var args []any

	if f.SectionContains != "" {
		args = append(args, "%"+f.SectionContains+"%")
		conds = append(conds, `section ILIKE $`+strconv.Itoa(len(args)))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		conds = append(conds, `sale_value >= $`+strconv.Itoa(len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		conds = append(conds, `sale_value <= $`+strconv.Itoa(len(args)))
	}

	if len(conds) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(conds, ` AND `))
	}

	sb.WriteString(` ORDER BY id`)

	args = append(args, f.Limit)
	sb.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	args = append(args, f.Skip)
	sb.WriteString(` OFFSET $` + strconv.Itoa(len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// UpdateProduct выполняет частичное обновление товара: перезаписываются только
// явно переданные поля. Начальный остаток неизменяем.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, id int64, upd model.ProductUpdate) (*model.Product, error) {
	var sets []string
	var args []any

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+` = $`+strconv.Itoa(len(args)))
	}

	if upd.Description != nil {
		addSet("description", *upd.Description)
	}
	if upd.SaleValue != nil {
		addSet("sale_value", *upd.SaleValue)
	}
	if upd.Barcode != nil {
		addSet("barcode", *upd.Barcode)
	}
	if upd.Section != nil {
		addSet("section", *upd.Section)
	}
	if upd.CurrentStock != nil {
		addSet("current_stock", *upd.CurrentStock)
	}
	if upd.ValidityDate != nil {
		addSet("validity_date", *upd.ValidityDate)
	}
	if upd.ImageURLs != nil {
		addSet("image_urls", *upd.ImageURLs)
	}

	if len(sets) == 0 {
		return r.GetProduct(ctx, id)
	}

	args = append(args, id)
	query := `UPDATE products SET ` + strings.Join(sets, `, `) +
		` WHERE id = $` + strconv.Itoa(len(args)) +
		` RETURNING ` + productColumns

	p, err := scanProduct(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: duplicate barcode", ErrProductExists)
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

// DeleteProduct удаляет товар и возвращает его снимок до удаления.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`DELETE FROM products WHERE id = $1 RETURNING `+productColumns,
		id,
	)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: id %d", ErrProductInUse, id)
		}
		return nil, fmt.Errorf("delete product: %w", err)
	}
	return p, nil
}

// AdjustProductStock атомарно изменяет текущий остаток товара на signed-дельту
// в собственной транзакции. Для участия в чужой транзакции используется adjustStockTx.
func (r *PostgresRepository) AdjustProductStock(ctx context.Context, id int64, delta int64) (*model.Product, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := adjustStockTx(ctx, tx, id, delta)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return p, nil
}

// adjustStockTx изменяет остаток товара внутри транзакции вызывающей стороны.
// Строка товара блокируется FOR UPDATE, проверка достаточности и списание
// выполняются под одной блокировкой.
func adjustStockTx(ctx context.Context, tx pgx.Tx, id int64, delta int64) (*model.Product, error) {
	p, err := scanProduct(tx.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
		}
		return nil, fmt.Errorf("lock product for update: %w", err)
	}

	if p.CurrentStock+delta < 0 {
		return nil, fmt.Errorf("%w: product %d: available %d, requested %d",
			ErrInsufficientStock, id, p.CurrentStock, -delta)
	}

	// Условие current_stock + delta >= 0 дублирует проверку под блокировкой
	// и страхует инвариант неотрицательности вместе с CHECK-ограничением.
	row := tx.QueryRow(ctx,
		`UPDATE products
		 SET current_stock = current_stock + $2
		 WHERE id = $1 AND current_stock + $2 >= 0
		 RETURNING `+productColumns,
		id, delta,
	)

	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d: available %d, requested %d",
				ErrInsufficientStock, id, p.CurrentStock, -delta)
		}
		return nil, fmt.Errorf("update stock: %w", err)
	}

	return updated, nil
}
