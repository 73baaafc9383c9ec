package customer

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("customer not found")

	ErrDuplicatePhoneNumber = errors.New("phone number already registered")
)

type CustomerRepository interface {
	Save(ctx context.Context, customer *Customer) error

	FindByID(ctx context.Context, customerID int64) (*Customer, error)

	FindAll(ctx context.Context) ([]*Customer, error)

	// Upsert inserts or updates a customer under an externally assigned ID.
	// Ingestion uses it to stay idempotent on the source row identifier.
	Upsert(ctx context.Context, customer *Customer) (created bool, err error)

	SetCurrentDebt(ctx context.Context, customerID int64, currentDebt float64) error
}
