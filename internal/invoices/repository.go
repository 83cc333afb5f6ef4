package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the invoice row does not exist.
var ErrNotFound = errors.New("invoice not found")

// Repository defines persistence operations for invoices. Every write is a
// single statement against the invoices table.
type Repository interface {
	Create(ctx context.Context, inv Invoice) error
	Update(ctx context.Context, id, customerID string, amountCents int64, status Status) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Invoice, error)
	List(ctx context.Context, req ListRequest) ([]InvoiceWithCustomer, int, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Create(ctx context.Context, inv Invoice) error {
	const query = `
		INSERT INTO invoices (id, customer_id, amount, status, date)
		VALUES ($1, $2, $3, $4, $5)
	`
	date := pgtype.Date{Time: inv.Date, Valid: true}
	_, err := r.db.Exec(ctx, query, inv.ID, inv.CustomerID, inv.AmountCents, string(inv.Status), date)
	return err
}

func (r *repository) Update(ctx context.Context, id, customerID string, amountCents int64, status Status) error {
	// id and date are immutable here.
	const query = `
		UPDATE invoices
		SET customer_id = $1, amount = $2, status = $3
		WHERE id = $4
	`
	_, err := r.db.Exec(ctx, query, customerID, amountCents, string(status), id)
	return err
}

func (r *repository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	return err
}

func (r *repository) Get(ctx context.Context, id string) (*Invoice, error) {
	const query = `
		SELECT id, customer_id, amount, status, date
		FROM invoices
		WHERE id = $1
	`
	var inv Invoice
	var status string
	var date pgtype.Date
	err := r.db.QueryRow(ctx, query, id).Scan(&inv.ID, &inv.CustomerID, &inv.AmountCents, &status, &date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	inv.Status = Status(status)
	if date.Valid {
		inv.Date = date.Time
	}
	return &inv, nil
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]InvoiceWithCustomer, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Search != "" {
		pattern := "%" + req.Search + "%"
		conditions = append(conditions, fmt.Sprintf("(c.name ILIKE $%d OR c.email ILIKE $%d)", argPos, argPos))
		args = append(args, pattern)
		argPos++
	}
	if req.Status != "" {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", argPos))
		args = append(args, string(req.Status))
		argPos++
	}

	whereClause := ""
	for i, cond := range conditions {
		if i == 0 {
			whereClause = "WHERE " + cond
		} else {
			whereClause += " AND " + cond
		}
	}

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		%s
	`, whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT i.id, i.customer_id, i.amount, i.status, i.date, c.name, c.email
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		%s
		ORDER BY i.date DESC, i.id
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []InvoiceWithCustomer
	for rows.Next() {
		var row InvoiceWithCustomer
		var status string
		var date pgtype.Date
		if err := rows.Scan(&row.ID, &row.CustomerID, &row.AmountCents, &status, &date, &row.CustomerName, &row.CustomerEmail); err != nil {
			return nil, 0, err
		}
		row.Status = Status(status)
		if date.Valid {
			row.Date = date.Time
		}
		result = append(result, row)
	}

	return result, total, rows.Err()
}
