package credit

import "time"

const (
	// Interest-rate floors enforced on the middle approval tiers.
	tierTwoRateFloor   = 12.0
	tierThreeRateFloor = 16.0

	// Current EMIs above this share of monthly income deny outright.
	maxEMIBurden = 0.5
)

// EligibilityRequest is a requested loan to evaluate.
type EligibilityRequest struct {
	Amount       float64
	InterestRate float64
	Tenure       int
}

// Decision is the outcome of an eligibility evaluation. CorrectedRate is the
// rate the loan would actually carry; it equals InterestRate unless a tier
// floor raised it. MonthlyInstallment is always populated, even on denial,
// so callers can report what the payment would have been.
type Decision struct {
	Approved           bool
	InterestRate       float64
	CorrectedRate      float64
	MonthlyInstallment float64
	CreditScore        int
}

// Decide evaluates a loan request against a customer snapshot.
//
// Customers already committing more than half their income to current EMIs
// are denied before scoring; in that branch the installment is computed at
// the requested rate. Otherwise the credit score picks the tier: above 50
// approves at the requested rate, (30,50] approves with a 12% floor,
// (10,30] approves with a 16% floor, and 10 or below denies.
//
// The only error is an invalid tenure reaching the installment formula.
func Decide(profile CustomerProfile, loans []LoanRecord, req EligibilityRequest, today time.Time) (Decision, error) {
	decision := Decision{
		InterestRate:  req.InterestRate,
		CorrectedRate: req.InterestRate,
	}

	var currentEMIs float64
	for _, l := range loans {
		if l.IsCurrent(today) {
			currentEMIs += l.MonthlyRepayment
		}
	}
	if currentEMIs > maxEMIBurden*profile.MonthlySalary {
		installment, err := Installment(req.Amount, req.InterestRate, req.Tenure)
		if err != nil {
			return Decision{}, err
		}
		decision.MonthlyInstallment = installment
		return decision, nil
	}

	score := Score(profile, loans, today)
	decision.CreditScore = score

	switch {
	case score > 50:
		decision.Approved = true
	case score > 30:
		decision.Approved = true
		if req.InterestRate <= tierTwoRateFloor {
			decision.CorrectedRate = tierTwoRateFloor
		}
	case score > 10:
		decision.Approved = true
		if req.InterestRate <= tierThreeRateFloor {
			decision.CorrectedRate = tierThreeRateFloor
		}
	}

	installment, err := Installment(req.Amount, decision.CorrectedRate, req.Tenure)
	if err != nil {
		return Decision{}, err
	}
	decision.MonthlyInstallment = installment

	return decision, nil
}
