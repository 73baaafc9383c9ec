package customer

import (
	"credit-engine/internal/domain/credit"
	"time"
)

type Customer struct {
	CustomerID    int64     `json:"customerId"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Age           int       `json:"age"`
	PhoneNumber   int64     `json:"phoneNumber"`
	MonthlySalary float64   `json:"monthlySalary"`
	ApprovedLimit float64   `json:"approvedLimit"`
	CurrentDebt   float64   `json:"currentDebt"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func NewCustomer(firstName, lastName string, age int, phoneNumber int64, monthlySalary float64) *Customer {
	now := time.Now()
	return &Customer{
		FirstName:     firstName,
		LastName:      lastName,
		Age:           age,
		PhoneNumber:   phoneNumber,
		MonthlySalary: monthlySalary,
		ApprovedLimit: credit.ApprovedLimit(monthlySalary),
		CurrentDebt:   0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// Profile is the snapshot view the credit engine consumes.
func (c *Customer) Profile() credit.CustomerProfile {
	return credit.CustomerProfile{
		MonthlySalary: c.MonthlySalary,
		ApprovedLimit: c.ApprovedLimit,
		CurrentDebt:   c.CurrentDebt,
	}
}
