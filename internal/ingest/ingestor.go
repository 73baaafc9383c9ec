package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"credit-engine/internal/config"
	"credit-engine/internal/domain/credit"
	"credit-engine/internal/domain/customer"
	"credit-engine/internal/domain/loan"
	"credit-engine/internal/infrastructure/monitoring"

	"github.com/cenkalti/backoff/v4"
	"github.com/xuri/excelize/v2"
)

// Result summarizes one file ingestion. Skipped counts malformed rows and
// loans referencing unknown customers; they never fail the batch.
type Result struct {
	Created int
	Updated int
	Skipped int
}

type Ingestor struct {
	customerRepo customer.CustomerRepository
	loanRepo     loan.Repository
	maxRetries   uint64
	retryDelay   time.Duration
	logger       *slog.Logger
}

func NewIngestor(customerRepo customer.CustomerRepository, loanRepo loan.Repository, cfg config.IngestConfig, logger *slog.Logger) *Ingestor {
	if customerRepo == nil || loanRepo == nil || logger == nil {
		panic("Ingestor dependencies cannot be nil")
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	return &Ingestor{
		customerRepo: customerRepo,
		loanRepo:     loanRepo,
		maxRetries:   uint64(maxRetries),
		retryDelay:   retryDelay,
		logger:       logger.With("component", "Ingestor"),
	}
}

// IngestCustomers loads a customer sheet (.xlsx or .csv) and upserts each
// row by its stable customer id. The whole file is retried on failure to
// read it; row-level problems are skipped, not retried.
func (ing *Ingestor) IngestCustomers(ctx context.Context, path string) (Result, error) {
	var result Result
	operation := func() error {
		rows, err := readTabularFile(path)
		if err != nil {
			ing.logger.WarnContext(ctx, "Failed to read customer file, will retry", "path", path, slog.Any("error", err))
			return err
		}
		result = ing.upsertCustomerRows(ctx, rows)
		return nil
	}

	if err := ing.retry(ctx, operation); err != nil {
		return Result{}, fmt.Errorf("customer ingestion failed for %s: %w", path, err)
	}

	ing.logger.InfoContext(ctx, "Customer ingestion finished",
		"path", path, "created", result.Created, "updated", result.Updated, "skipped", result.Skipped)
	return result, nil
}

// IngestLoans loads a loan sheet (.xlsx or .csv) and upserts each row by its
// stable loan id. Rows referencing unknown customers are skipped with a
// warning.
func (ing *Ingestor) IngestLoans(ctx context.Context, path string) (Result, error) {
	var result Result
	operation := func() error {
		rows, err := readTabularFile(path)
		if err != nil {
			ing.logger.WarnContext(ctx, "Failed to read loan file, will retry", "path", path, slog.Any("error", err))
			return err
		}
		result = ing.upsertLoanRows(ctx, rows)
		return nil
	}

	if err := ing.retry(ctx, operation); err != nil {
		return Result{}, fmt.Errorf("loan ingestion failed for %s: %w", path, err)
	}

	ing.logger.InfoContext(ctx, "Loan ingestion finished",
		"path", path, "created", result.Created, "updated", result.Updated, "skipped", result.Skipped)
	return result, nil
}

func (ing *Ingestor) retry(ctx context.Context, operation backoff.Operation) error {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(ing.retryDelay), ing.maxRetries)
	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

func (ing *Ingestor) upsertCustomerRows(ctx context.Context, rows *tabularRows) Result {
	var result Result
	for i, row := range rows.records {
		cust, err := parseCustomerRow(rows.header, row)
		if err != nil {
			ing.logger.WarnContext(ctx, "Skipping malformed customer row", "row", i+2, slog.Any("error", err))
			monitoring.RecordIngestedRow("customer", "skipped")
			result.Skipped++
			continue
		}

		created, err := ing.customerRepo.Upsert(ctx, cust)
		if err != nil {
			ing.logger.WarnContext(ctx, "Skipping customer row after upsert failure", "row", i+2, "customerID", cust.CustomerID, slog.Any("error", err))
			monitoring.RecordIngestedRow("customer", "skipped")
			result.Skipped++
			continue
		}
		if created {
			monitoring.RecordIngestedRow("customer", "created")
			result.Created++
		} else {
			monitoring.RecordIngestedRow("customer", "updated")
			result.Updated++
		}
	}
	return result
}

func (ing *Ingestor) upsertLoanRows(ctx context.Context, rows *tabularRows) Result {
	var result Result
	for i, row := range rows.records {
		parsedLoan, err := parseLoanRow(rows.header, row)
		if err != nil {
			ing.logger.WarnContext(ctx, "Skipping malformed loan row", "row", i+2, slog.Any("error", err))
			monitoring.RecordIngestedRow("loan", "skipped")
			result.Skipped++
			continue
		}

		if _, err := ing.customerRepo.FindByID(ctx, parsedLoan.CustomerID); err != nil {
			if errors.Is(err, customer.ErrNotFound) {
				ing.logger.WarnContext(ctx, "Skipping loan row for unknown customer", "row", i+2, "customerID", parsedLoan.CustomerID)
			} else {
				ing.logger.WarnContext(ctx, "Skipping loan row after customer lookup failure", "row", i+2, slog.Any("error", err))
			}
			monitoring.RecordIngestedRow("loan", "skipped")
			result.Skipped++
			continue
		}

		created, err := ing.loanRepo.Upsert(ctx, parsedLoan)
		if err != nil {
			ing.logger.WarnContext(ctx, "Skipping loan row after upsert failure", "row", i+2, "loanID", parsedLoan.LoanID, slog.Any("error", err))
			monitoring.RecordIngestedRow("loan", "skipped")
			result.Skipped++
			continue
		}
		if created {
			monitoring.RecordIngestedRow("loan", "created")
			result.Created++
		} else {
			monitoring.RecordIngestedRow("loan", "updated")
			result.Updated++
		}
	}
	return result
}

type tabularRows struct {
	header  map[string]int
	records [][]string
}

func readTabularFile(path string) (*tabularRows, error) {
	var raw [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		raw, err = readXLSX(path)
	case ".csv":
		raw, err = readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(raw) < 1 {
		return nil, fmt.Errorf("file %s has no header row", path)
	}

	header := make(map[string]int, len(raw[0]))
	for i, name := range raw[0] {
		header[normalizeHeader(name)] = i
	}
	return &tabularRows{header: header, records: raw[1:]}, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx file %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv file: %w", err)
	}
	return rows, nil
}

// normalizeHeader maps "Customer ID", "customer_id" and "Customer-Id" to the
// same key.
func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return name
}

func cell(header map[string]int, row []string, keys ...string) (string, error) {
	for _, key := range keys {
		idx, ok := header[key]
		if !ok {
			continue
		}
		if idx >= len(row) {
			return "", nil
		}
		return strings.TrimSpace(row[idx]), nil
	}
	return "", fmt.Errorf("missing column %q", keys[0])
}

func parseCustomerRow(header map[string]int, row []string) (*customer.Customer, error) {
	id, err := cellInt64(header, row, "customer_id")
	if err != nil {
		return nil, err
	}
	firstName, err := cell(header, row, "first_name")
	if err != nil {
		return nil, err
	}
	lastName, err := cell(header, row, "last_name")
	if err != nil {
		return nil, err
	}
	age, err := cellInt(header, row, "age")
	if err != nil {
		return nil, err
	}
	phone, err := cellInt64(header, row, "phone_number")
	if err != nil {
		return nil, err
	}
	salary, err := cellFloat(header, row, "monthly_salary", "monthly_income")
	if err != nil {
		return nil, err
	}
	approvedLimit, err := cellFloat(header, row, "approved_limit")
	if err != nil {
		// Absent in some source sheets; derive it the way registration does.
		approvedLimit = credit.ApprovedLimit(salary)
	}
	currentDebt, err := cellFloat(header, row, "current_debt")
	if err != nil {
		currentDebt = 0
	}

	if id <= 0 {
		return nil, fmt.Errorf("customer_id must be positive, got %d", id)
	}
	if firstName == "" {
		return nil, fmt.Errorf("first_name cannot be empty")
	}

	return &customer.Customer{
		CustomerID:    id,
		FirstName:     firstName,
		LastName:      lastName,
		Age:           age,
		PhoneNumber:   phone,
		MonthlySalary: salary,
		ApprovedLimit: approvedLimit,
		CurrentDebt:   currentDebt,
	}, nil
}

func parseLoanRow(header map[string]int, row []string) (*loan.Loan, error) {
	loanID, err := cellInt64(header, row, "loan_id")
	if err != nil {
		return nil, err
	}
	customerID, err := cellInt64(header, row, "customer_id")
	if err != nil {
		return nil, err
	}
	amount, err := cellFloat(header, row, "loan_amount")
	if err != nil {
		return nil, err
	}
	tenure, err := cellInt(header, row, "tenure")
	if err != nil {
		return nil, err
	}
	rate, err := cellFloat(header, row, "interest_rate")
	if err != nil {
		return nil, err
	}
	repayment, err := cellFloat(header, row, "monthly_repayment", "monthly_payment")
	if err != nil {
		return nil, err
	}
	paidOnTime, err := cellInt(header, row, "emis_paid_on_time")
	if err != nil {
		return nil, err
	}
	startDate, err := cellDate(header, row, "start_date", "date_of_approval")
	if err != nil {
		return nil, err
	}

	var endDate *time.Time
	if endStr, cellErr := cell(header, row, "end_date"); cellErr == nil && endStr != "" {
		parsed, parseErr := parseDate(endStr)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid end_date: %w", parseErr)
		}
		endDate = &parsed
	}

	if loanID <= 0 {
		return nil, fmt.Errorf("loan_id must be positive, got %d", loanID)
	}
	if tenure < 1 {
		return nil, fmt.Errorf("tenure must be at least one month, got %d", tenure)
	}

	return &loan.Loan{
		LoanID:           loanID,
		CustomerID:       customerID,
		Amount:           amount,
		Tenure:           tenure,
		InterestRate:     rate,
		MonthlyRepayment: repayment,
		EMIsPaidOnTime:   paidOnTime,
		StartDate:        startDate,
		EndDate:          endDate,
	}, nil
}

func cellInt64(header map[string]int, row []string, keys ...string) (int64, error) {
	s, err := cell(header, row, keys...)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %q", keys[0], s)
	}
	return v, nil
}

func cellInt(header map[string]int, row []string, keys ...string) (int, error) {
	v, err := cellInt64(header, row, keys...)
	return int(v), err
}

func cellFloat(header map[string]int, row []string, keys ...string) (float64, error) {
	s, err := cell(header, row, keys...)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number for %s: %q", keys[0], s)
	}
	return v, nil
}

func cellDate(header map[string]int, row []string, keys ...string) (time.Time, error) {
	s, err := cell(header, row, keys...)
	if err != nil {
		return time.Time{}, err
	}
	parsed, err := parseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date for %s: %q", keys[0], s)
	}
	return parsed, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01-02-06",
	"1/2/06 15:04",
	"1/2/2006",
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}
