package customers

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines read operations for customers.
type Repository interface {
	All(ctx context.Context) ([]Customer, error)
	List(ctx context.Context, req ListRequest) ([]Summary, int, error)
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

// All returns every customer ordered by name, for form dropdowns.
func (r *repository) All(ctx context.Context) ([]Customer, error) {
	const query = `
		SELECT id, name, email, COALESCE(image_url, '')
		FROM customers
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.ImageURL); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// List returns a page of customers with their invoice aggregates.
func (r *repository) List(ctx context.Context, req ListRequest) ([]Summary, int, error) {
	var args []interface{}
	argPos := 1
	whereClause := ""
	if req.Search != "" {
		whereClause = fmt.Sprintf("WHERE c.name ILIKE $%d OR c.email ILIKE $%d", argPos, argPos)
		args = append(args, "%"+req.Search+"%")
		argPos++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM customers c %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.name, c.email, COALESCE(c.image_url, ''),
		       COUNT(i.id),
		       COALESCE(SUM(i.amount) FILTER (WHERE i.status = 'pending'), 0),
		       COALESCE(SUM(i.amount) FILTER (WHERE i.status = 'paid'), 0)
		FROM customers c
		LEFT JOIN invoices i ON i.customer_id = c.id
		%s
		GROUP BY c.id, c.name, c.email, c.image_url
		ORDER BY c.name
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Summary
	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.ImageURL, &s.TotalInvoices, &s.TotalPendingCents, &s.TotalPaidCents); err != nil {
			return nil, 0, err
		}
		result = append(result, s)
	}
	return result, total, rows.Err()
}
