package dto

import (
	"fmt"

	"credit-engine/internal/domain/customer"
	"credit-engine/internal/domain/loan"
)

type CheckEligibilityRequest struct {
	CustomerID   int64   `json:"customer_id"`
	LoanAmount   float64 `json:"loan_amount"`
	InterestRate float64 `json:"interest_rate"`
	Tenure       int     `json:"tenure"`
}

func (r *CheckEligibilityRequest) Validate() error {
	if r.CustomerID <= 0 {
		return fmt.Errorf("customer_id must be a positive number")
	}
	if r.LoanAmount <= 0 {
		return fmt.Errorf("loan_amount must be greater than zero")
	}
	if r.InterestRate < 0 {
		return fmt.Errorf("interest_rate cannot be negative")
	}
	if r.Tenure < 1 {
		return fmt.Errorf("tenure must be at least one month")
	}
	return nil
}

type CreateLoanRequest struct {
	CustomerID   int64   `json:"customer_id"`
	LoanAmount   float64 `json:"loan_amount"`
	InterestRate float64 `json:"interest_rate"`
	Tenure       int     `json:"tenure"`
}

func (r *CreateLoanRequest) Validate() error {
	req := CheckEligibilityRequest(*r)
	return req.Validate()
}

type EligibilityResponse struct {
	CustomerID            int64   `json:"customer_id"`
	Approval              bool    `json:"approval"`
	InterestRate          float64 `json:"interest_rate"`
	CorrectedInterestRate float64 `json:"corrected_interest_rate"`
	Tenure                int     `json:"tenure"`
	MonthlyInstallment    float64 `json:"monthly_installment"`
}

func NewEligibilityResponse(result *loan.EligibilityResult) EligibilityResponse {
	if result == nil {
		return EligibilityResponse{}
	}

	return EligibilityResponse{
		CustomerID:            result.CustomerID,
		Approval:              result.Decision.Approved,
		InterestRate:          result.Decision.InterestRate,
		CorrectedInterestRate: result.Decision.CorrectedRate,
		Tenure:                result.Tenure,
		MonthlyInstallment:    result.Decision.MonthlyInstallment,
	}
}

type CreateLoanResponse struct {
	LoanID             *int64  `json:"loan_id"`
	CustomerID         int64   `json:"customer_id"`
	LoanApproved       bool    `json:"loan_approved"`
	Message            string  `json:"message"`
	MonthlyInstallment float64 `json:"monthly_installment"`
}

func NewCreateLoanResponse(createdLoan *loan.Loan, result *loan.EligibilityResult) CreateLoanResponse {
	resp := CreateLoanResponse{
		CustomerID:         result.CustomerID,
		LoanApproved:       result.Decision.Approved,
		MonthlyInstallment: result.Decision.MonthlyInstallment,
	}

	if createdLoan != nil {
		id := createdLoan.LoanID
		resp.LoanID = &id
		resp.Message = "Loan approved"
		return resp
	}

	resp.Message = "Loan not approved based on credit score and current obligations"
	return resp
}

type ViewLoanResponse struct {
	LoanID             int64           `json:"loan_id"`
	Customer           CustomerSummary `json:"customer"`
	LoanAmount         float64         `json:"loan_amount"`
	InterestRate       float64         `json:"interest_rate"`
	MonthlyInstallment float64         `json:"monthly_installment"`
	Tenure             int             `json:"tenure"`
}

func NewViewLoanResponse(domainLoan *loan.Loan, cust *customer.Customer) ViewLoanResponse {
	if domainLoan == nil {
		return ViewLoanResponse{}
	}

	return ViewLoanResponse{
		LoanID:             domainLoan.LoanID,
		Customer:           NewCustomerSummary(cust),
		LoanAmount:         domainLoan.Amount,
		InterestRate:       domainLoan.InterestRate,
		MonthlyInstallment: domainLoan.MonthlyRepayment,
		Tenure:             domainLoan.Tenure,
	}
}

type CustomerLoanResponse struct {
	LoanID             int64   `json:"loan_id"`
	LoanAmount         float64 `json:"loan_amount"`
	InterestRate       float64 `json:"interest_rate"`
	MonthlyInstallment float64 `json:"monthly_installment"`
	RepaymentsLeft     int     `json:"repayments_left"`
}

func NewCustomerLoanResponse(domainLoan *loan.Loan) CustomerLoanResponse {
	return CustomerLoanResponse{
		LoanID:             domainLoan.LoanID,
		LoanAmount:         domainLoan.Amount,
		InterestRate:       domainLoan.InterestRate,
		MonthlyInstallment: domainLoan.MonthlyRepayment,
		RepaymentsLeft:     domainLoan.RepaymentsLeft(),
	}
}

type ErrorDetail struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
