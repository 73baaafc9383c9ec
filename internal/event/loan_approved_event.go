package event

import "time"

type LoanEventPayload struct {
	LoanID             int64      `json:"loanId"`
	CustomerID         int64      `json:"customerId"`
	Amount             float64    `json:"amount"`
	Tenure             int        `json:"tenure"`
	InterestRate       float64    `json:"interestRate"`
	MonthlyInstallment float64    `json:"monthlyInstallment"`
	CreditScore        int        `json:"creditScore"`
	StartDate          time.Time  `json:"startDate"`
	EndDate            *time.Time `json:"endDate,omitempty"`
}

type LoanApprovedEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	Payload   LoanEventPayload `json:"payload"`
}
