package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"credit-engine/internal/domain/customer"
	"credit-engine/internal/infrastructure/monitoring"
	"credit-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

type CustomerRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	return &CustomerRepository{db: db, logger: logger.With("component", "CustomerRepository")}
}

const customerColumns = `id, first_name, last_name, age, phone_number, monthly_salary, approved_limit, current_debt, created_at, updated_at`

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(
		&c.CustomerID, &c.FirstName, &c.LastName, &c.Age, &c.PhoneNumber,
		&c.MonthlySalary, &c.ApprovedLimit, &c.CurrentDebt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	start := time.Now()
	saveSQL := `
        INSERT INTO customers (first_name, last_name, age, phone_number, monthly_salary, approved_limit, current_debt, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, saveSQL,
		cust.FirstName, cust.LastName, cust.Age, cust.PhoneNumber,
		cust.MonthlySalary, cust.ApprovedLimit, cust.CurrentDebt,
	).Scan(&cust.CustomerID, &cust.CreatedAt, &cust.UpdatedAt)
	if err != nil {
		monitoring.RecordDBQuery("customer_save", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to insert customer", "error", err)
		return fmt.Errorf("%w: failed to insert customer: %w", apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("customer_save", "success", time.Since(start))
	r.logger.InfoContext(ctx, "Customer created in DB", "customer_id", cust.CustomerID)
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	start := time.Now()
	findSQL := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	cust, err := scanCustomer(r.db.QueryRow(ctx, findSQL, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			monitoring.RecordDBQuery("customer_find_by_id", "not_found", time.Since(start))
			return nil, customer.ErrNotFound
		}
		monitoring.RecordDBQuery("customer_find_by_id", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to query customer by ID", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("customer_find_by_id", "success", time.Since(start))
	return cust, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context) ([]*customer.Customer, error) {
	start := time.Now()
	listSQL := `SELECT ` + customerColumns + ` FROM customers ORDER BY id`

	rows, err := r.db.Query(ctx, listSQL)
	if err != nil {
		monitoring.RecordDBQuery("customer_find_all", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to query customers", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	var customers []*customer.Customer
	for rows.Next() {
		cust, err := scanCustomer(rows)
		if err != nil {
			monitoring.RecordDBQuery("customer_find_all", "error", time.Since(start))
			return nil, fmt.Errorf("%w: failed to scan customer row: %w", apperrors.ErrDatabase, err)
		}
		customers = append(customers, cust)
	}
	if err := rows.Err(); err != nil {
		monitoring.RecordDBQuery("customer_find_all", "error", time.Since(start))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("customer_find_all", "success", time.Since(start))
	return customers, nil
}

func (r *CustomerRepository) Upsert(ctx context.Context, cust *customer.Customer) (bool, error) {
	start := time.Now()
	upsertSQL := `
        INSERT INTO customers (id, first_name, last_name, age, phone_number, monthly_salary, approved_limit, current_debt, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        ON CONFLICT (id) DO UPDATE SET
            first_name = EXCLUDED.first_name,
            last_name = EXCLUDED.last_name,
            age = EXCLUDED.age,
            phone_number = EXCLUDED.phone_number,
            monthly_salary = EXCLUDED.monthly_salary,
            approved_limit = EXCLUDED.approved_limit,
            current_debt = EXCLUDED.current_debt,
            updated_at = NOW()
        RETURNING (xmax = 0) AS inserted`

	var inserted bool
	err := r.db.QueryRow(ctx, upsertSQL,
		cust.CustomerID, cust.FirstName, cust.LastName, cust.Age, cust.PhoneNumber,
		cust.MonthlySalary, cust.ApprovedLimit, cust.CurrentDebt,
	).Scan(&inserted)
	if err != nil {
		monitoring.RecordDBQuery("customer_upsert", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to upsert customer", "customer_id", cust.CustomerID, "error", err)
		return false, fmt.Errorf("%w: failed to upsert customer %d: %w", apperrors.ErrDatabase, cust.CustomerID, err)
	}

	monitoring.RecordDBQuery("customer_upsert", "success", time.Since(start))
	return inserted, nil
}

func (r *CustomerRepository) SetCurrentDebt(ctx context.Context, customerID int64, currentDebt float64) error {
	start := time.Now()
	updateSQL := `UPDATE customers SET current_debt = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, updateSQL, customerID, currentDebt)
	if err != nil {
		monitoring.RecordDBQuery("customer_set_current_debt", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to update current debt", "customer_id", customerID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		monitoring.RecordDBQuery("customer_set_current_debt", "not_found", time.Since(start))
		return customer.ErrNotFound
	}

	monitoring.RecordDBQuery("customer_set_current_debt", "success", time.Since(start))
	return nil
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)
