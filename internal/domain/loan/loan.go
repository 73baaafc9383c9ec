package loan

import (
	"time"

	"credit-engine/internal/domain/credit"
)

type Loan struct {
	LoanID           int64
	CustomerID       int64
	Amount           float64
	Tenure           int
	InterestRate     float64
	MonthlyRepayment float64
	EMIsPaidOnTime   int
	StartDate        time.Time
	EndDate          *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewLoan builds an approved loan starting today: nothing repaid yet and no
// end date until it is closed externally.
func NewLoan(customerID int64, amount float64, tenure int, interestRate, monthlyRepayment float64, startDate time.Time) *Loan {
	if startDate.IsZero() {
		startDate = time.Now().Truncate(24 * time.Hour)
	}
	return &Loan{
		CustomerID:       customerID,
		Amount:           amount,
		Tenure:           tenure,
		InterestRate:     interestRate,
		MonthlyRepayment: monthlyRepayment,
		EMIsPaidOnTime:   0,
		StartDate:        startDate,
		EndDate:          nil,
	}
}

// Record converts the stored loan into the engine's snapshot form.
func (l *Loan) Record() credit.LoanRecord {
	return credit.LoanRecord{
		Amount:           l.Amount,
		Tenure:           l.Tenure,
		InterestRate:     l.InterestRate,
		MonthlyRepayment: l.MonthlyRepayment,
		EMIsPaidOnTime:   l.EMIsPaidOnTime,
		StartDate:        l.StartDate,
		EndDate:          l.EndDate,
	}
}

func Records(loans []Loan) []credit.LoanRecord {
	records := make([]credit.LoanRecord, len(loans))
	for i := range loans {
		records[i] = loans[i].Record()
	}
	return records
}

func (l *Loan) IsCurrent(today time.Time) bool {
	return l.Record().IsCurrent(today)
}

func (l *Loan) RepaymentsLeft() int {
	return l.Record().RepaymentsLeft()
}
