package credit

import "time"

// CustomerProfile is the read-only slice of customer state the engine needs.
// The persistence layer hands in a consistent snapshot; the engine never
// reads storage or the clock itself.
type CustomerProfile struct {
	MonthlySalary float64
	ApprovedLimit float64
	CurrentDebt   float64
}

// LoanRecord is one historical loan in a customer's snapshot.
type LoanRecord struct {
	Amount           float64
	Tenure           int
	InterestRate     float64
	MonthlyRepayment float64
	EMIsPaidOnTime   int
	StartDate        time.Time
	EndDate          *time.Time
}

// IsCurrent reports whether the loan is still active on the given day:
// no end date, or an end date on or after it.
func (l LoanRecord) IsCurrent(today time.Time) bool {
	return l.EndDate == nil || !l.EndDate.Before(today)
}

// RepaymentsLeft is the number of EMIs still owed.
func (l LoanRecord) RepaymentsLeft() int {
	left := l.Tenure - l.EMIsPaidOnTime
	if left < 0 {
		return 0
	}
	return left
}

const (
	onTimeWeight   = 35.0
	neutralScore   = 50
	maxCreditScore = 100
)

// Score aggregates a customer's loan history into a 0-100 credit score.
//
// A customer whose current loans exceed the approved limit scores 0
// outright. A customer with no history at all scores the neutral 50.
// Otherwise four weighted factors are summed: on-time repayment ratio (35),
// loan count (20), current-year activity (20) and historical volume against
// the approved limit (25); the total is truncated and capped at 100.
func Score(profile CustomerProfile, loans []LoanRecord, today time.Time) int {
	var currentExposure float64
	for _, l := range loans {
		if l.IsCurrent(today) {
			currentExposure += l.Amount
		}
	}
	if currentExposure > profile.ApprovedLimit {
		return 0
	}

	if len(loans) == 0 {
		return neutralScore
	}

	total := onTimeScore(loans) +
		loanCountScore(len(loans)) +
		activityScore(loans, today.Year()) +
		volumeScore(loans, profile.ApprovedLimit)

	score := int(total)
	if score > maxCreditScore {
		return maxCreditScore
	}
	return score
}

func onTimeScore(loans []LoanRecord) float64 {
	var totalEMIs, paidOnTime int
	for _, l := range loans {
		totalEMIs += l.Tenure
		paidOnTime += l.EMIsPaidOnTime
	}
	if totalEMIs == 0 {
		return 0
	}
	return float64(paidOnTime) / float64(totalEMIs) * onTimeWeight
}

func loanCountScore(count int) float64 {
	switch {
	case count <= 3:
		return 20
	case count <= 6:
		return 15
	case count <= 10:
		return 10
	default:
		return 5
	}
}

func activityScore(loans []LoanRecord, currentYear int) float64 {
	var taken int
	for _, l := range loans {
		if l.StartDate.Year() == currentYear {
			taken++
		}
	}
	switch {
	case taken == 0:
		return 20
	case taken <= 2:
		return 15
	case taken <= 4:
		return 10
	default:
		return 5
	}
}

func volumeScore(loans []LoanRecord, approvedLimit float64) float64 {
	var volume float64
	for _, l := range loans {
		volume += l.Amount
	}

	// A zero limit pins the ratio to 1, capping this factor at its middle tier.
	ratio := 1.0
	if approvedLimit > 0 {
		ratio = volume / approvedLimit
	}

	switch {
	case ratio <= 0.5:
		return 25
	case ratio <= 1.0:
		return 20
	case ratio <= 2.0:
		return 10
	default:
		return 5
	}
}
