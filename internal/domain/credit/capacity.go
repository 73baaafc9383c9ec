package credit

import (
	"credit-engine/internal/pkg/apperrors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const limitRoundingUnit = 100_000.0

// ApprovedLimit derives the maximum aggregate exposure a customer is
// pre-qualified for: 36x monthly income, rounded half-up to the nearest
// multiple of 100,000. Total for any input; callers validate income > 0.
func ApprovedLimit(monthlyIncome float64) float64 {
	raw := 36 * monthlyIncome
	return math.Round(raw/limitRoundingUnit) * limitRoundingUnit
}

// Installment computes the fixed monthly repayment (EMI) for a principal at
// an annual percentage rate over tenureMonths periods. The compound-interest
// arithmetic runs in float64 and the result is rounded to 2 decimal places
// exactly once, at the end.
func Installment(principal, annualRatePercent float64, tenureMonths int) (float64, error) {
	if tenureMonths < 1 {
		return 0, fmt.Errorf("%w: got %d", apperrors.ErrInvalidTenure, tenureMonths)
	}

	if annualRatePercent == 0 {
		return roundMoney(principal / float64(tenureMonths)), nil
	}

	monthlyRate := annualRatePercent / 1200
	factor := math.Pow(1+monthlyRate, float64(tenureMonths))
	emi := principal * monthlyRate * factor / (factor - 1)
	return roundMoney(emi), nil
}

func roundMoney(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}
