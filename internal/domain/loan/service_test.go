package loan

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"credit-engine/internal/domain/customer"
	"credit-engine/internal/event"
	"credit-engine/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateLoan(ctx context.Context, newLoan *Loan) (*Loan, error) {
	args := m.Called(ctx, newLoan)
	if created, ok := args.Get(0).(*Loan); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) GetLoanByID(ctx context.Context, loanID int64) (*Loan, error) {
	args := m.Called(ctx, loanID)
	if found, ok := args.Get(0).(*Loan); ok {
		return found, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) ListByCustomerID(ctx context.Context, customerID int64) ([]Loan, error) {
	args := m.Called(ctx, customerID)
	if loans, ok := args.Get(0).([]Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) Upsert(ctx context.Context, newLoan *Loan) (bool, error) {
	args := m.Called(ctx, newLoan)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ListCustomerIDsWithLoans(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]int64); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) RegisterCustomer(ctx context.Context, firstName, lastName string, age int, monthlyIncome float64, phoneNumber int64) (*customer.Customer, error) {
	args := m.Called(ctx, firstName, lastName, age, monthlyIncome, phoneNumber)
	if cust, ok := args.Get(0).(*customer.Customer); ok {
		return cust, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	args := m.Called(ctx, customerID)
	if cust, ok := args.Get(0).(*customer.Customer); ok {
		return cust, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) ListCustomers(ctx context.Context) ([]*customer.Customer, error) {
	args := m.Called(ctx)
	if customers, ok := args.Get(0).([]*customer.Customer); ok {
		return customers, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishCustomerRegistered(ctx context.Context, evt event.CustomerRegisteredEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishLoanApproved(ctx context.Context, evt event.LoanApprovedEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func newCustomerFixture() *customer.Customer {
	return &customer.Customer{
		CustomerID:    7,
		FirstName:     "Asha",
		LastName:      "Rao",
		MonthlySalary: 100_000,
		ApprovedLimit: 3_600_000,
	}
}

func TestCheckEligibility(t *testing.T) {
	ctx := context.Background()

	t.Run("New customer approved in middle tier with rate floor", func(t *testing.T) {
		repo := new(MockRepository)
		cs := new(MockCustomerService)
		svc := NewLoanService(repo, cs, nil, logger)

		cs.On("GetCustomer", ctx, int64(7)).Return(newCustomerFixture(), nil)
		repo.On("ListByCustomerID", ctx, int64(7)).Return([]Loan{}, nil)

		result, err := svc.CheckEligibility(ctx, 7, 200_000, 5, 24)
		assert.NoError(t, err)
		assert.True(t, result.Decision.Approved)
		assert.Equal(t, 50, result.Decision.CreditScore)
		assert.Equal(t, 12.0, result.Decision.CorrectedRate)
		assert.Equal(t, 24, result.Tenure)
	})

	t.Run("Unknown customer maps to not-found", func(t *testing.T) {
		repo := new(MockRepository)
		cs := new(MockCustomerService)
		svc := NewLoanService(repo, cs, nil, logger)

		cs.On("GetCustomer", ctx, int64(99)).Return(nil, customer.ErrNotFound)

		_, err := svc.CheckEligibility(ctx, 99, 200_000, 5, 24)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		repo.AssertNotCalled(t, "ListByCustomerID")
	})

	t.Run("High EMI burden denies at requested rate", func(t *testing.T) {
		repo := new(MockRepository)
		cs := new(MockCustomerService)
		svc := NewLoanService(repo, cs, nil, logger)

		cs.On("GetCustomer", ctx, int64(7)).Return(newCustomerFixture(), nil)
		repo.On("ListByCustomerID", ctx, int64(7)).Return([]Loan{
			{Amount: 900_000, Tenure: 36, MonthlyRepayment: 60_000, StartDate: time.Now().AddDate(-1, 0, 0)},
		}, nil)

		result, err := svc.CheckEligibility(ctx, 7, 200_000, 9, 24)
		assert.NoError(t, err)
		assert.False(t, result.Decision.Approved)
		assert.Equal(t, 9.0, result.Decision.CorrectedRate)
		assert.Greater(t, result.Decision.MonthlyInstallment, 0.0)
	})

	t.Run("Zero tenure is a validation error", func(t *testing.T) {
		repo := new(MockRepository)
		cs := new(MockCustomerService)
		svc := NewLoanService(repo, cs, nil, logger)

		cs.On("GetCustomer", ctx, int64(7)).Return(newCustomerFixture(), nil)
		repo.On("ListByCustomerID", ctx, int64(7)).Return([]Loan{}, nil)

		_, err := svc.CheckEligibility(ctx, 7, 200_000, 9, 0)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTenure)
	})
}

func TestCreateLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("Approved loan is persisted with corrected rate", func(t *testing.T) {
		repo := new(MockRepository)
		cs := new(MockCustomerService)
		pub := new(MockEventPublisher)
		svc := NewLoanService(repo, cs, pub, logger)

		cs.On("GetCustomer", ctx, int64(7)).Return(newCustomerFixture(), nil)
		repo.On("ListByCustomerID", ctx, int64(7)).Return([]Loan{}, nil)
		repo.On("CreateLoan", ctx, mock.AnythingOfType("*loan.Loan")).Return(&Loan{
			LoanID:           101,
			CustomerID:       7,
			Amount:           200_000,
			Tenure:           24,
			InterestRate:     15,
			MonthlyRepayment: 9_700.0,
			StartDate:        time.Now(),
		}, nil)
		pub.On("PublishLoanApproved", ctx, mock.AnythingOfType("event.LoanApprovedEvent")).Return(nil)

		createdLoan, result, err := svc.CreateLoan(ctx, 7, 200_000, 15, 24)
		assert.NoError(t, err)
		assert.NotNil(t, createdLoan)
		assert.Equal(t, int64(101), createdLoan.LoanID)
		assert.True(t, result.Decision.Approved)

		// New customer, requested 15% > the 12% tier floor: rate kept.
		saved := repo.Calls[1].Arguments.Get(1).(*Loan)
		assert.Equal(t, 15.0, saved.InterestRate)
		assert.Zero(t, saved.EMIsPaidOnTime)
		assert.Nil(t, saved.EndDate)

		pub.AssertExpectations(t)
	})

	t.Run("Denied loan persists nothing", func(t *testing.T) {
		repo := new(MockRepository)
		cs := new(MockCustomerService)
		pub := new(MockEventPublisher)
		svc := NewLoanService(repo, cs, pub, logger)

		cust := newCustomerFixture()
		cust.MonthlySalary = 10_000
		cs.On("GetCustomer", ctx, int64(7)).Return(cust, nil)
		repo.On("ListByCustomerID", ctx, int64(7)).Return([]Loan{
			{Amount: 500_000, Tenure: 36, MonthlyRepayment: 9_000, StartDate: time.Now().AddDate(-1, 0, 0)},
		}, nil)

		createdLoan, result, err := svc.CreateLoan(ctx, 7, 100_000, 10, 12)
		assert.NoError(t, err)
		assert.Nil(t, createdLoan)
		assert.False(t, result.Decision.Approved)
		repo.AssertNotCalled(t, "CreateLoan")
		pub.AssertNotCalled(t, "PublishLoanApproved")
	})

	t.Run("Publish failure does not fail loan creation", func(t *testing.T) {
		repo := new(MockRepository)
		cs := new(MockCustomerService)
		pub := new(MockEventPublisher)
		svc := NewLoanService(repo, cs, pub, logger)

		cs.On("GetCustomer", ctx, int64(7)).Return(newCustomerFixture(), nil)
		repo.On("ListByCustomerID", ctx, int64(7)).Return([]Loan{}, nil)
		repo.On("CreateLoan", ctx, mock.Anything).Return(&Loan{LoanID: 102, CustomerID: 7}, nil)
		pub.On("PublishLoanApproved", ctx, mock.Anything).Return(errors.New("broker down"))

		createdLoan, _, err := svc.CreateLoan(ctx, 7, 200_000, 15, 24)
		assert.NoError(t, err)
		assert.NotNil(t, createdLoan)
	})
}

func TestGetLoan(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns loan", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewLoanService(repo, new(MockCustomerService), nil, logger)

		repo.On("GetLoanByID", ctx, int64(101)).Return(&Loan{LoanID: 101}, nil)

		found, err := svc.GetLoan(ctx, 101)
		assert.NoError(t, err)
		assert.Equal(t, int64(101), found.LoanID)
	})

	t.Run("Maps not-found", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewLoanService(repo, new(MockCustomerService), nil, logger)

		repo.On("GetLoanByID", ctx, int64(404)).Return(nil, ErrNotFound)

		_, err := svc.GetLoan(ctx, 404)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestListCustomerLoans(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns loans for existing customer", func(t *testing.T) {
		repo := new(MockRepository)
		cs := new(MockCustomerService)
		svc := NewLoanService(repo, cs, nil, logger)

		cs.On("GetCustomer", ctx, int64(7)).Return(newCustomerFixture(), nil)
		repo.On("ListByCustomerID", ctx, int64(7)).Return([]Loan{{LoanID: 1}, {LoanID: 2}}, nil)

		loans, err := svc.ListCustomerLoans(ctx, 7)
		assert.NoError(t, err)
		assert.Len(t, loans, 2)
	})

	t.Run("Unknown customer maps to not-found", func(t *testing.T) {
		repo := new(MockRepository)
		cs := new(MockCustomerService)
		svc := NewLoanService(repo, cs, nil, logger)

		cs.On("GetCustomer", ctx, int64(99)).Return(nil, customer.ErrNotFound)

		_, err := svc.ListCustomerLoans(ctx, 99)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		repo.AssertNotCalled(t, "ListByCustomerID")
	})
}
