package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"credit-engine/internal/domain/credit"
	"credit-engine/internal/domain/customer"
	"credit-engine/internal/event"
	"credit-engine/internal/infrastructure/monitoring"
	"credit-engine/internal/pkg/apperrors"
)

type Money = float64

// EligibilityResult pairs the engine's decision with the request context the
// API layer echoes back.
type EligibilityResult struct {
	CustomerID int64
	Tenure     int
	Decision   credit.Decision
}

type LoanService interface {
	CheckEligibility(ctx context.Context, customerID int64, amount Money, interestRate float64, tenure int) (*EligibilityResult, error)

	// CreateLoan evaluates eligibility and persists the loan only on
	// approval. A denial returns a nil loan with the result and no error;
	// an unknown customer returns apperrors.ErrNotFound.
	CreateLoan(ctx context.Context, customerID int64, amount Money, interestRate float64, tenure int) (*Loan, *EligibilityResult, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	ListCustomerLoans(ctx context.Context, customerID int64) ([]Loan, error)
}

type loanServiceImpl struct {
	repo            Repository
	customerService customer.CustomerService
	pub             event.EventPublisher
	logger          *slog.Logger
}

func NewLoanService(r Repository, cs customer.CustomerService, pub event.EventPublisher, logger *slog.Logger) LoanService {
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	return &loanServiceImpl{repo: r, customerService: cs, pub: pub, logger: logger.With("component", "loanService")}
}

func (s *loanServiceImpl) CheckEligibility(ctx context.Context, customerID int64, amount Money, interestRate float64, tenure int) (*EligibilityResult, error) {
	s.logger.InfoContext(ctx, "Checking loan eligibility", "customerID", customerID, "amount", amount, "tenure", tenure)

	cust, err := s.customerService.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Customer not found for eligibility check", "customerID", customerID)
			return nil, fmt.Errorf("%w: customer %d not found", apperrors.ErrNotFound, customerID)
		}
		s.logger.ErrorContext(ctx, "Failed to get customer for eligibility check", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %d: %w", customerID, err)
	}

	history, err := s.repo.ListByCustomerID(ctx, customerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load loan history", slog.Any("error", err))
		return nil, fmt.Errorf("failed to load loan history for customer %d: %w", customerID, err)
	}

	today := time.Now().Truncate(24 * time.Hour)
	req := credit.EligibilityRequest{Amount: amount, InterestRate: interestRate, Tenure: tenure}

	decision, err := credit.Decide(cust.Profile(), Records(history), req, today)
	if err != nil {
		s.logger.WarnContext(ctx, "Eligibility evaluation rejected request", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	outcome := "denied"
	if decision.Approved {
		outcome = "approved"
	}
	monitoring.RecordDecision(outcome, decision.CreditScore)
	s.logger.InfoContext(ctx, "Eligibility decided",
		"customerID", customerID,
		"approved", decision.Approved,
		"creditScore", decision.CreditScore,
		"correctedRate", decision.CorrectedRate,
	)

	return &EligibilityResult{CustomerID: customerID, Tenure: tenure, Decision: decision}, nil
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, customerID int64, amount Money, interestRate float64, tenure int) (*Loan, *EligibilityResult, error) {
	s.logger.InfoContext(ctx, "Creating new loan", "customerID", customerID)

	result, err := s.CheckEligibility(ctx, customerID, amount, interestRate, tenure)
	if err != nil {
		return nil, nil, err
	}

	if !result.Decision.Approved {
		s.logger.InfoContext(ctx, "Loan denied, nothing persisted", "customerID", customerID, "creditScore", result.Decision.CreditScore)
		return nil, result, nil
	}

	today := time.Now().Truncate(24 * time.Hour)
	newLoan := NewLoan(customerID, amount, tenure, result.Decision.CorrectedRate, result.Decision.MonthlyInstallment, today)

	createdLoan, err := s.repo.CreateLoan(ctx, newLoan)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save approved loan", slog.Any("error", err))
		return nil, nil, fmt.Errorf("%w: failed to save loan: %v", apperrors.ErrInternalServer, err)
	}

	approvedEvent := event.LoanApprovedEvent{
		Timestamp: time.Now(),
		Payload: event.LoanEventPayload{
			LoanID:             createdLoan.LoanID,
			CustomerID:         createdLoan.CustomerID,
			Amount:             createdLoan.Amount,
			Tenure:             createdLoan.Tenure,
			InterestRate:       createdLoan.InterestRate,
			MonthlyInstallment: createdLoan.MonthlyRepayment,
			CreditScore:        result.Decision.CreditScore,
			StartDate:          createdLoan.StartDate,
			EndDate:            createdLoan.EndDate,
		},
	}
	if pubErr := s.pub.PublishLoanApproved(ctx, approvedEvent); pubErr != nil {
		s.logger.ErrorContext(ctx, "Loan created, but FAILED to publish approval event", slog.Any("error", pubErr))
	}

	s.logger.InfoContext(ctx, "Loan created successfully", "loanID", createdLoan.LoanID, "customerID", customerID)
	return createdLoan, result, nil
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	s.logger.InfoContext(ctx, "Getting loan details", "loanID", loanID)

	found, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "Loan not found", "loanID", loanID)
			return nil, fmt.Errorf("%w: loan with ID %d not found", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", "loanID", loanID, slog.Any("error", err))
		return nil, fmt.Errorf("%w: failed to get loan %d: %v", apperrors.ErrInternalServer, loanID, err)
	}

	return found, nil
}

func (s *loanServiceImpl) ListCustomerLoans(ctx context.Context, customerID int64) ([]Loan, error) {
	s.logger.InfoContext(ctx, "Listing loans for customer", "customerID", customerID)

	if _, err := s.customerService.GetCustomer(ctx, customerID); err != nil {
		if errors.Is(err, customer.ErrNotFound) || errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %d not found", apperrors.ErrNotFound, customerID)
		}
		return nil, fmt.Errorf("failed to verify customer %d: %w", customerID, err)
	}

	loans, err := s.repo.ListByCustomerID(ctx, customerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list customer loans", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list loans for customer %d: %w", customerID, err)
	}

	return loans, nil
}
