package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"credit-engine/internal/config"
	"credit-engine/internal/domain/customer"
	"credit-engine/internal/domain/loan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/xuri/excelize/v2"
)

var logger = slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Save(ctx context.Context, cust *customer.Customer) error {
	args := m.Called(ctx, cust)
	return args.Error(0)
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	args := m.Called(ctx, customerID)
	if cust, ok := args.Get(0).(*customer.Customer); ok {
		return cust, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerRepository) FindAll(ctx context.Context) ([]*customer.Customer, error) {
	args := m.Called(ctx)
	if customers, ok := args.Get(0).([]*customer.Customer); ok {
		return customers, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerRepository) Upsert(ctx context.Context, cust *customer.Customer) (bool, error) {
	args := m.Called(ctx, cust)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustomerRepository) SetCurrentDebt(ctx context.Context, customerID int64, currentDebt float64) error {
	args := m.Called(ctx, customerID, currentDebt)
	return args.Error(0)
}

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) CreateLoan(ctx context.Context, newLoan *loan.Loan) (*loan.Loan, error) {
	args := m.Called(ctx, newLoan)
	if created, ok := args.Get(0).(*loan.Loan); ok {
		return created, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	args := m.Called(ctx, loanID)
	if found, ok := args.Get(0).(*loan.Loan); ok {
		return found, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) ListByCustomerID(ctx context.Context, customerID int64) ([]loan.Loan, error) {
	args := m.Called(ctx, customerID)
	if loans, ok := args.Get(0).([]loan.Loan); ok {
		return loans, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLoanRepository) Upsert(ctx context.Context, newLoan *loan.Loan) (bool, error) {
	args := m.Called(ctx, newLoan)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoanRepository) ListCustomerIDsWithLoans(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if ids, ok := args.Get(0).([]int64); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestIngestor(customerRepo *MockCustomerRepository, loanRepo *MockLoanRepository) *Ingestor {
	cfg := config.IngestConfig{MaxRetries: 1, RetryDelay: time.Millisecond}
	return NewIngestor(customerRepo, loanRepo, cfg, logger)
}

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write csv fixture: %v", err)
	}
	return path
}

func TestIngestCustomersFromCSV(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts valid rows and skips malformed ones", func(t *testing.T) {
		customerRepo := new(MockCustomerRepository)
		loanRepo := new(MockLoanRepository)
		ing := newTestIngestor(customerRepo, loanRepo)

		path := writeTempCSV(t, "Customer ID,First Name,Last Name,Age,Phone Number,Monthly Salary,Approved Limit,Current Debt\n"+
			"1,Asha,Rao,34,9876543210,50000,1800000,0\n"+
			"2,Ben,Singh,not-a-number,9876543211,60000,2200000,0\n"+
			"3,Cara,Iyer,29,9876543212,30000,1100000,50000\n")

		customerRepo.On("Upsert", ctx, mock.MatchedBy(func(c *customer.Customer) bool { return c.CustomerID == 1 })).Return(true, nil)
		customerRepo.On("Upsert", ctx, mock.MatchedBy(func(c *customer.Customer) bool { return c.CustomerID == 3 })).Return(false, nil)

		result, err := ing.IngestCustomers(ctx, path)
		assert.NoError(t, err)
		assert.Equal(t, 1, result.Created)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, 1, result.Skipped)
		customerRepo.AssertExpectations(t)
	})

	t.Run("derives approved limit when the column is absent", func(t *testing.T) {
		customerRepo := new(MockCustomerRepository)
		loanRepo := new(MockLoanRepository)
		ing := newTestIngestor(customerRepo, loanRepo)

		path := writeTempCSV(t, "customer_id,first_name,last_name,age,phone_number,monthly_salary\n"+
			"1,Asha,Rao,34,9876543210,50000\n")

		customerRepo.On("Upsert", ctx, mock.MatchedBy(func(c *customer.Customer) bool {
			return c.ApprovedLimit == 1_800_000
		})).Return(true, nil)

		result, err := ing.IngestCustomers(ctx, path)
		assert.NoError(t, err)
		assert.Equal(t, 1, result.Created)
		customerRepo.AssertExpectations(t)
	})

	t.Run("fails after retries when the file is missing", func(t *testing.T) {
		customerRepo := new(MockCustomerRepository)
		loanRepo := new(MockLoanRepository)
		ing := newTestIngestor(customerRepo, loanRepo)

		_, err := ing.IngestCustomers(ctx, filepath.Join(t.TempDir(), "missing.csv"))
		assert.Error(t, err)
	})
}

func writeTempXLSX(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("failed to build cell reference: %v", err)
		}
		if err := f.SetSheetRow(sheet, cellRef, &row); err != nil {
			t.Fatalf("failed to write sheet row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("failed to save xlsx fixture: %v", err)
	}
	return path
}

func TestIngestLoansFromXLSX(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts loans and skips unknown customers", func(t *testing.T) {
		customerRepo := new(MockCustomerRepository)
		loanRepo := new(MockLoanRepository)
		ing := newTestIngestor(customerRepo, loanRepo)

		path := writeTempXLSX(t, [][]interface{}{
			{"Customer ID", "Loan ID", "Loan Amount", "Tenure", "Interest Rate", "Monthly payment", "EMIs paid on Time", "Date of Approval", "End Date"},
			{"1", "101", "200000", "24", "12", "9414.69", "6", "2023-09-01", ""},
			{"99", "102", "100000", "12", "10", "8791.59", "0", "2024-01-15", ""},
		})

		customerRepo.On("FindByID", ctx, int64(1)).Return(&customer.Customer{CustomerID: 1}, nil)
		customerRepo.On("FindByID", ctx, int64(99)).Return(nil, customer.ErrNotFound)
		loanRepo.On("Upsert", ctx, mock.MatchedBy(func(l *loan.Loan) bool {
			return l.LoanID == 101 && l.CustomerID == 1 && l.EndDate == nil
		})).Return(true, nil)

		result, err := ing.IngestLoans(ctx, path)
		assert.NoError(t, err)
		assert.Equal(t, 1, result.Created)
		assert.Equal(t, 1, result.Skipped)
		loanRepo.AssertExpectations(t)
	})

	t.Run("parses end dates into closed loans", func(t *testing.T) {
		customerRepo := new(MockCustomerRepository)
		loanRepo := new(MockLoanRepository)
		ing := newTestIngestor(customerRepo, loanRepo)

		path := writeTempXLSX(t, [][]interface{}{
			{"customer_id", "loan_id", "loan_amount", "tenure", "interest_rate", "monthly_repayment", "emis_paid_on_time", "start_date", "end_date"},
			{"1", "103", "150000", "12", "14", "13468.18", "12", "2022-03-01", "2023-03-01"},
		})

		customerRepo.On("FindByID", ctx, int64(1)).Return(&customer.Customer{CustomerID: 1}, nil)
		loanRepo.On("Upsert", ctx, mock.MatchedBy(func(l *loan.Loan) bool {
			return l.LoanID == 103 && l.EndDate != nil && l.EndDate.Year() == 2023
		})).Return(true, nil)

		result, err := ing.IngestLoans(ctx, path)
		assert.NoError(t, err)
		assert.Equal(t, 1, result.Created)
		loanRepo.AssertExpectations(t)
	})

	t.Run("upsert failure skips the row without failing the batch", func(t *testing.T) {
		customerRepo := new(MockCustomerRepository)
		loanRepo := new(MockLoanRepository)
		ing := newTestIngestor(customerRepo, loanRepo)

		path := writeTempCSV(t, "customer_id,loan_id,loan_amount,tenure,interest_rate,monthly_repayment,emis_paid_on_time,start_date\n"+
			"1,104,150000,12,14,13468.18,3,2024-03-01\n")

		customerRepo.On("FindByID", ctx, int64(1)).Return(&customer.Customer{CustomerID: 1}, nil)
		loanRepo.On("Upsert", ctx, mock.Anything).Return(false, errors.New("db down"))

		result, err := ing.IngestLoans(ctx, path)
		assert.NoError(t, err)
		assert.Equal(t, 1, result.Skipped)
		assert.Zero(t, result.Created)
	})
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "customer_id", normalizeHeader("Customer ID"))
	assert.Equal(t, "customer_id", normalizeHeader("customer_id"))
	assert.Equal(t, "emis_paid_on_time", normalizeHeader("EMIs paid on Time"))
	assert.Equal(t, "end_date", normalizeHeader(" End-Date "))
}
