package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/luestilo/commerce-system/internal/model"
)

const clientColumns = `id, name, email, cpf, phone, address, created_at, updated_at`

func scanClient(row pgx.Row) (*model.Client, error) {
	var c model.Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.CPF, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateClient создаёт нового клиента. Уникальность email и CPF обеспечивается
// ограничениями БД, конфликт возвращается как ErrClientExists.
func (r *PostgresRepository) CreateClient(ctx context.Context, c model.Client) (*model.Client, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO clients (name, email, cpf, phone, address)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+clientColumns,
		c.Name, c.Email, c.CPF, c.Phone, c.Address,
	)

	created, err := scanClient(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email %s or cpf %s", ErrClientExists, c.Email, c.CPF)
		}
		return nil, fmt.Errorf("create client: %w", err)
	}
	return created, nil
}

// GetClient возвращает клиента по идентификатору.
func (r *PostgresRepository) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id = $1`,
		id,
	)

	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

// GetClientByEmail возвращает клиента по email.
func (r *PostgresRepository) GetClientByEmail(ctx context.Context, email string) (*model.Client, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE email = $1`,
		email,
	)

	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client by email: %w", err)
	}
	return c, nil
}

// GetClientByCPF возвращает клиента по CPF.
func (r *PostgresRepository) GetClientByCPF(ctx context.Context, cpf string) (*model.Client, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE cpf = $1`,
		cpf,
	)

	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("get client by cpf: %w", err)
	}
	return c, nil
}

// ClientFilter описывает условия выборки клиентов. Незаданные поля не участвуют в фильтрации.
type ClientFilter struct {
	NameContains  string
	EmailContains string
	Skip          int
	Limit         int
}

// ListClients возвращает список клиентов с фильтрацией и пагинацией.
func (r *PostgresRepository) ListClients(ctx context.Context, f ClientFilter) ([]model.Client, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + clientColumns + ` FROM clients`)

	var conds []string
	var args []any

	if f.NameContains != "" {
		args = append(args, "%"+f.NameContains+"%")
		conds = append(conds, `name ILIKE $`+strconv.Itoa(len(args)))
	}
	if f.EmailContains != "" {
		args = append(args, "%"+f.EmailContains+"%")
		conds = append(conds, `email ILIKE $`+strconv.Itoa(len(args)))
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
		return nil, fmt.Errorf("select clients: %w", err)
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return clients, nil
}

// UpdateClient выполняет частичное обновление клиента: перезаписываются только
// явно переданные поля.
func (r *PostgresRepository) UpdateClient(ctx context.Context, id int64, upd model.ClientUpdate) (*model.Client, error) {
	var sets []string
	var args []any

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+` = $`+strconv.Itoa(len(args)))
	}

	if upd.Name != nil {
		addSet("name", *upd.Name)
	}
	if upd.Email != nil {
		addSet("email", *upd.Email)
	}
	if upd.CPF != nil {
		addSet("cpf", *upd.CPF)
	}
	if upd.Phone != nil {
		addSet("phone", *upd.Phone)
	}
	if upd.Address != nil {
		addSet("address", *upd.Address)
	}

	if len(sets) == 0 {
		return r.GetClient(ctx, id)
	}

	sets = append(sets, `updated_at = now()`)

	args = append(args, id)
	query := `UPDATE clients SET ` + strings.Join(sets, `, `) +
		` WHERE id = $` + strconv.Itoa(len(args)) +
		` RETURNING ` + clientColumns

	c, err := scanClient(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: duplicate email or cpf", ErrClientExists)
		}
		return nil, fmt.Errorf("update client: %w", err)
	}
	return c, nil
}

// DeleteClient удаляет клиента и возвращает его снимок до удаления.
// Исторические заказы клиента при этом не затрагиваются.
func (r *PostgresRepository) DeleteClient(ctx context.Context, id int64) (*model.Client, error) {
	row := r.pool.QueryRow(ctx,
		`DELETE FROM clients WHERE id = $1 RETURNING `+clientColumns,
		id,
	)

	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("delete client: %w", err)
	}
	return c, nil
}
