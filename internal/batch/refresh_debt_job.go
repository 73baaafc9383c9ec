package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"credit-engine/internal/domain/customer"
	"credit-engine/internal/domain/loan"
	"credit-engine/internal/infrastructure/monitoring"
	"credit-engine/internal/pkg/apperrors"
)

// RefreshDebtJob recomputes each customer's stored current debt as the sum
// of their current loan amounts. Loans closed outside the API (ingested end
// dates passing) would otherwise leave the stored debt stale.
type RefreshDebtJob struct {
	loanRepo     loan.Repository
	customerRepo customer.CustomerRepository
	logger       *slog.Logger
}

func NewRefreshDebtJob(
	loanRepo loan.Repository,
	customerRepo customer.CustomerRepository,
	logger *slog.Logger,
) *RefreshDebtJob {
	if loanRepo == nil || customerRepo == nil || logger == nil {
		panic("RefreshDebtJob dependencies cannot be nil")
	}
	return &RefreshDebtJob{
		loanRepo:     loanRepo,
		customerRepo: customerRepo,
		logger:       logger.With("job", "RefreshDebt"),
	}
}

func (j *RefreshDebtJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting current debt refresh job.")

	customerIDs, err := j.loanRepo.ListCustomerIDsWithLoans(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to list customers with loans, aborting job.", slog.Any("error", err))
		return fmt.Errorf("cannot run job, failed to list customers with loans: %w", err)
	}
	j.logger.InfoContext(ctx, "Fetched customers with loans.", slog.Int("count", len(customerIDs)))

	if len(customerIDs) == 0 {
		j.logger.InfoContext(ctx, "No customers with loans to process.")
		j.logger.InfoContext(ctx, "Current debt refresh job finished.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	today := time.Now().Truncate(24 * time.Hour)

	var wg sync.WaitGroup
	var refreshedCount, errorCount int32

	for _, customerID := range customerIDs {
		wg.Add(1)
		go func(currentCustomerID int64) {
			defer wg.Done()

			logCtx := j.logger.With(slog.Int64("customerID", currentCustomerID))

			loans, listErr := j.loanRepo.ListByCustomerID(ctx, currentCustomerID)
			if listErr != nil {
				logCtx.ErrorContext(ctx, "Failed to load loans for debt refresh", slog.Any("error", listErr))
				atomic.AddInt32(&errorCount, 1)
				return
			}

			var currentDebt float64
			for i := range loans {
				if loans[i].IsCurrent(today) {
					currentDebt += loans[i].Amount
				}
			}

			if updateErr := j.customerRepo.SetCurrentDebt(ctx, currentCustomerID, currentDebt); updateErr != nil {
				if errors.Is(updateErr, customer.ErrNotFound) || errors.Is(updateErr, apperrors.ErrNotFound) {
					logCtx.WarnContext(ctx, "Customer with loans has no customer record (data inconsistency?)", slog.Any("error", updateErr))
				} else {
					logCtx.ErrorContext(ctx, "Failed to update current debt", slog.Any("error", updateErr))
					atomic.AddInt32(&errorCount, 1)
				}
				return
			}

			monitoring.RecordDebtRefreshed()
			atomic.AddInt32(&refreshedCount, 1)
			logCtx.DebugContext(ctx, "Current debt refreshed.", slog.Float64("currentDebt", currentDebt))
		}(customerID)
	}

	wg.Wait()
	duration := time.Since(startTime)
	summaryLog := j.logger.With(
		slog.Duration("duration", duration),
		slog.Int("customers_with_loans", len(customerIDs)),
		slog.Int("customers_refreshed", int(atomic.LoadInt32(&refreshedCount))),
		slog.Int("errors_encountered", int(atomic.LoadInt32(&errorCount))),
	)
	if errorCount > 0 {
		summaryLog.WarnContext(ctx, "Current debt refresh job finished with errors.")
		return fmt.Errorf("job completed with %d errors", errorCount)
	}

	summaryLog.InfoContext(ctx, "Current debt refresh job finished successfully.")
	return nil
}
