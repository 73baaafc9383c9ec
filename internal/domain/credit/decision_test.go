package credit

import (
	"errors"
	"testing"
	"time"

	"credit-engine/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
)

var decideToday = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func TestDecideNewCustomerGetsTierTwoFloor(t *testing.T) {
	profile := CustomerProfile{MonthlySalary: 100_000, ApprovedLimit: 3_600_000}
	req := EligibilityRequest{Amount: 200_000, InterestRate: 5, Tenure: 24}

	decision, err := Decide(profile, nil, req, decideToday)
	assert.NoError(t, err)

	// No history scores the neutral 50, which falls in the (30,50] tier.
	assert.True(t, decision.Approved)
	assert.Equal(t, 50, decision.CreditScore)
	assert.Equal(t, 5.0, decision.InterestRate)
	assert.Equal(t, 12.0, decision.CorrectedRate)
	assert.Greater(t, decision.MonthlyInstallment, 0.0)
}

func TestDecideNewCustomerKeepsRateAboveFloor(t *testing.T) {
	profile := CustomerProfile{MonthlySalary: 100_000, ApprovedLimit: 3_600_000}
	req := EligibilityRequest{Amount: 200_000, InterestRate: 15, Tenure: 24}

	decision, err := Decide(profile, nil, req, decideToday)
	assert.NoError(t, err)

	assert.True(t, decision.Approved)
	assert.Equal(t, 15.0, decision.InterestRate)
	assert.Equal(t, 15.0, decision.CorrectedRate)
}

func TestDecideDeniesWhenEMIBurdenTooHigh(t *testing.T) {
	profile := CustomerProfile{MonthlySalary: 50_000, ApprovedLimit: 1_800_000}
	loans := []LoanRecord{
		{Amount: 500_000, Tenure: 24, MonthlyRepayment: 26_000, StartDate: decideToday.AddDate(-1, 0, 0)},
	}
	req := EligibilityRequest{Amount: 100_000, InterestRate: 8, Tenure: 12}

	decision, err := Decide(profile, loans, req, decideToday)
	assert.NoError(t, err)

	assert.False(t, decision.Approved)
	assert.Equal(t, 8.0, decision.CorrectedRate, "burden denial must not correct the rate")

	// Installment is still reported, computed at the requested rate.
	expected, _ := Installment(100_000, 8, 12)
	assert.Equal(t, expected, decision.MonthlyInstallment)
}

func TestDecideBurdenAtExactlyHalfIncomeIsAllowed(t *testing.T) {
	profile := CustomerProfile{MonthlySalary: 50_000, ApprovedLimit: 1_800_000}
	loans := []LoanRecord{
		{Amount: 500_000, Tenure: 24, MonthlyRepayment: 25_000, EMIsPaidOnTime: 12, StartDate: decideToday.AddDate(-1, 0, 0)},
	}
	req := EligibilityRequest{Amount: 100_000, InterestRate: 20, Tenure: 12}

	decision, err := Decide(profile, loans, req, decideToday)
	assert.NoError(t, err)
	assert.True(t, decision.Approved)
}

func TestDecideTierBoundaries(t *testing.T) {
	// A single closed loan tuned so the score lands exactly where each case
	// needs it: score = trunc(35*paid/tenure) + 20 + 20 + 25.
	mkProfileAndLoans := func(paid, tenure int) (CustomerProfile, []LoanRecord) {
		profile := CustomerProfile{MonthlySalary: 100_000, ApprovedLimit: 10_000_000}
		end := decideToday.AddDate(-1, 0, 0)
		loans := []LoanRecord{{
			Amount:         100_000,
			Tenure:         tenure,
			EMIsPaidOnTime: paid,
			StartDate:      decideToday.AddDate(-3, 0, 0),
			EndDate:        &end,
		}}
		return profile, loans
	}

	t.Run("Score above fifty keeps requested rate", func(t *testing.T) {
		profile, loans := mkProfileAndLoans(35, 35)
		assert.Equal(t, 100, Score(profile, loans, decideToday))

		decision, err := Decide(profile, loans, EligibilityRequest{Amount: 100_000, InterestRate: 7, Tenure: 12}, decideToday)
		assert.NoError(t, err)
		assert.True(t, decision.Approved)
		assert.Equal(t, 7.0, decision.CorrectedRate)
	})

	t.Run("Low score gets sixteen percent floor", func(t *testing.T) {
		// 0 on time: score = 0 + 20 + 20 + 25 = 65... use a crowded history
		// instead to land in (10,30].
		profile := CustomerProfile{MonthlySalary: 100_000, ApprovedLimit: 100_000}
		end := decideToday.AddDate(0, 0, -1)
		var loans []LoanRecord
		for i := 0; i < 7; i++ {
			loans = append(loans, LoanRecord{
				Amount:    100_000,
				Tenure:    12,
				StartDate: decideToday.AddDate(0, -i, 0),
				EndDate:   &end,
			})
		}
		// 0 + 10 (7 loans) + 5 (6 this year) + 5 (volume 7x limit) = 20.
		assert.Equal(t, 20, Score(profile, loans, decideToday))

		decision, err := Decide(profile, loans, EligibilityRequest{Amount: 50_000, InterestRate: 10, Tenure: 12}, decideToday)
		assert.NoError(t, err)
		assert.True(t, decision.Approved)
		assert.Equal(t, 16.0, decision.CorrectedRate)
	})

	t.Run("Hard override denies with rate unchanged", func(t *testing.T) {
		profile := CustomerProfile{MonthlySalary: 100_000, ApprovedLimit: 100_000}
		loans := []LoanRecord{
			{Amount: 500_000, Tenure: 24, MonthlyRepayment: 20_000, EMIsPaidOnTime: 24, StartDate: decideToday.AddDate(-1, 0, 0)},
		}
		assert.Equal(t, 0, Score(profile, loans, decideToday))

		decision, err := Decide(profile, loans, EligibilityRequest{Amount: 50_000, InterestRate: 9, Tenure: 12}, decideToday)
		assert.NoError(t, err)
		assert.False(t, decision.Approved)
		assert.Equal(t, 9.0, decision.CorrectedRate)
		assert.Greater(t, decision.MonthlyInstallment, 0.0)
	})
}

func TestDecideInvalidTenure(t *testing.T) {
	profile := CustomerProfile{MonthlySalary: 100_000, ApprovedLimit: 3_600_000}

	_, err := Decide(profile, nil, EligibilityRequest{Amount: 100_000, InterestRate: 10, Tenure: 0}, decideToday)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTenure))
}
