package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"credit-engine/internal/domain/loan"
	"credit-engine/internal/infrastructure/monitoring"
	"credit-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

const loanColumns = `id, customer_id, loan_amount, tenure, interest_rate, monthly_repayment, emis_paid_on_time, start_date, end_date, created_at, updated_at`

func scanLoan(row pgx.Row) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.LoanID, &l.CustomerID, &l.Amount, &l.Tenure, &l.InterestRate,
		&l.MonthlyRepayment, &l.EMIsPaidOnTime, &l.StartDate, &l.EndDate,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, newLoan *loan.Loan) (*loan.Loan, error) {
	start := time.Now()
	createSQL := `
        INSERT INTO loans (customer_id, loan_amount, tenure, interest_rate, monthly_repayment, emis_paid_on_time, start_date, end_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        RETURNING ` + loanColumns

	createdLoan, err := scanLoan(r.db.QueryRow(ctx, createSQL,
		newLoan.CustomerID, newLoan.Amount, newLoan.Tenure, newLoan.InterestRate,
		newLoan.MonthlyRepayment, newLoan.EMIsPaidOnTime, newLoan.StartDate, newLoan.EndDate,
	))
	if err != nil {
		monitoring.RecordDBQuery("loan_create", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, fmt.Errorf("%w: failed to insert loan: %w", apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("loan_create", "success", time.Since(start))
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", createdLoan.LoanID)
	return createdLoan, nil
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	start := time.Now()
	getSQL := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	found, err := scanLoan(r.db.QueryRow(ctx, getSQL, loanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			monitoring.RecordDBQuery("loan_get_by_id", "not_found", time.Since(start))
			return nil, loan.ErrNotFound
		}
		monitoring.RecordDBQuery("loan_get_by_id", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to query loan by ID", "loan_id", loanID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("loan_get_by_id", "success", time.Since(start))
	return found, nil
}

func (r *LoanRepository) ListByCustomerID(ctx context.Context, customerID int64) ([]loan.Loan, error) {
	start := time.Now()
	listSQL := `SELECT ` + loanColumns + ` FROM loans WHERE customer_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, listSQL, customerID)
	if err != nil {
		monitoring.RecordDBQuery("loan_list_by_customer", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to query loans for customer", "customer_id", customerID, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	var loans []loan.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			monitoring.RecordDBQuery("loan_list_by_customer", "error", time.Since(start))
			return nil, fmt.Errorf("%w: failed to scan loan row: %w", apperrors.ErrDatabase, err)
		}
		loans = append(loans, *l)
	}
	if err := rows.Err(); err != nil {
		monitoring.RecordDBQuery("loan_list_by_customer", "error", time.Since(start))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("loan_list_by_customer", "success", time.Since(start))
	return loans, nil
}

func (r *LoanRepository) Upsert(ctx context.Context, newLoan *loan.Loan) (bool, error) {
	start := time.Now()
	upsertSQL := `
        INSERT INTO loans (id, customer_id, loan_amount, tenure, interest_rate, monthly_repayment, emis_paid_on_time, start_date, end_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
        ON CONFLICT (id) DO UPDATE SET
            customer_id = EXCLUDED.customer_id,
            loan_amount = EXCLUDED.loan_amount,
            tenure = EXCLUDED.tenure,
            interest_rate = EXCLUDED.interest_rate,
            monthly_repayment = EXCLUDED.monthly_repayment,
            emis_paid_on_time = EXCLUDED.emis_paid_on_time,
            start_date = EXCLUDED.start_date,
            end_date = EXCLUDED.end_date,
            updated_at = NOW()
        RETURNING (xmax = 0) AS inserted`

	var inserted bool
	err := r.db.QueryRow(ctx, upsertSQL,
		newLoan.LoanID, newLoan.CustomerID, newLoan.Amount, newLoan.Tenure, newLoan.InterestRate,
		newLoan.MonthlyRepayment, newLoan.EMIsPaidOnTime, newLoan.StartDate, newLoan.EndDate,
	).Scan(&inserted)
	if err != nil {
		monitoring.RecordDBQuery("loan_upsert", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to upsert loan", "loan_id", newLoan.LoanID, "error", err)
		return false, fmt.Errorf("%w: failed to upsert loan %d: %w", apperrors.ErrDatabase, newLoan.LoanID, err)
	}

	monitoring.RecordDBQuery("loan_upsert", "success", time.Since(start))
	return inserted, nil
}

func (r *LoanRepository) ListCustomerIDsWithLoans(ctx context.Context) ([]int64, error) {
	start := time.Now()
	idsSQL := `SELECT DISTINCT customer_id FROM loans`

	rows, err := r.db.Query(ctx, idsSQL)
	if err != nil {
		monitoring.RecordDBQuery("loan_customer_ids", "error", time.Since(start))
		r.logger.ErrorContext(ctx, "Failed to query customer IDs with loans", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			monitoring.RecordDBQuery("loan_customer_ids", "error", time.Since(start))
			return nil, fmt.Errorf("%w: failed to scan customer ID: %w", apperrors.ErrDatabase, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		monitoring.RecordDBQuery("loan_customer_ids", "error", time.Since(start))
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}

	monitoring.RecordDBQuery("loan_customer_ids", "success", time.Since(start))
	return ids, nil
}

var _ loan.Repository = (*LoanRepository)(nil)
