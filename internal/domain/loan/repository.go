package loan

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("loan not found")

type Repository interface {
	CreateLoan(ctx context.Context, newLoan *Loan) (*Loan, error)

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	ListByCustomerID(ctx context.Context, customerID int64) ([]Loan, error)

	// Upsert inserts or updates a loan under an externally assigned ID;
	// ingestion idempotency, same contract as the customer repository.
	Upsert(ctx context.Context, newLoan *Loan) (created bool, err error)

	// ListCustomerIDsWithLoans feeds the nightly debt refresh.
	ListCustomerIDsWithLoans(ctx context.Context) ([]int64, error)
}
