package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"credit-engine/internal/api/handler/dto"
	"credit-engine/internal/domain/customer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) RegisterCustomer(ctx context.Context, firstName, lastName string, age int, monthlyIncome float64, phoneNumber int64) (*customer.Customer, error) {
	args := m.Called(ctx, firstName, lastName, age, monthlyIncome, phoneNumber)
	if cust, ok := args.Get(0).(*customer.Customer); ok {
		return cust, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, customerID int64) (*customer.Customer, error) {
	args := m.Called(ctx, customerID)
	if cust, ok := args.Get(0).(*customer.Customer); ok {
		return cust, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCustomerService) ListCustomers(ctx context.Context) ([]*customer.Customer, error) {
	args := m.Called(ctx)
	if customers, ok := args.Get(0).([]*customer.Customer); ok {
		return customers, args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCustomerHandlerRegisterCustomer(t *testing.T) {
	t.Run("registers customer and returns derived limit", func(t *testing.T) {
		mockService := new(MockCustomerService)
		h := NewCustomerHandler(mockService, testLogger)

		mockService.On("RegisterCustomer", mock.Anything, "Asha", "Rao", 34, 50_000.0, int64(9_876_543_210)).
			Return(&customer.Customer{
				CustomerID:    42,
				FirstName:     "Asha",
				LastName:      "Rao",
				Age:           34,
				PhoneNumber:   9_876_543_210,
				MonthlySalary: 50_000,
				ApprovedLimit: 1_800_000,
			}, nil)

		body := `{"first_name":"Asha","last_name":"Rao","age":34,"monthly_income":50000,"phone_number":9876543210}`
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.RegisterCustomer(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.CustomerResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, int64(42), resp.CustomerID)
		assert.Equal(t, "Asha Rao", resp.Name)
		assert.Equal(t, 1_800_000.0, resp.ApprovedLimit)
		mockService.AssertExpectations(t)
	})

	t.Run("rejects non-positive income", func(t *testing.T) {
		mockService := new(MockCustomerService)
		h := NewCustomerHandler(mockService, testLogger)

		body := `{"first_name":"Asha","last_name":"Rao","age":34,"monthly_income":0,"phone_number":9876543210}`
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.RegisterCustomer(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "RegisterCustomer")
	})

	t.Run("rejects empty first name", func(t *testing.T) {
		mockService := new(MockCustomerService)
		h := NewCustomerHandler(mockService, testLogger)

		body := `{"first_name":" ","last_name":"Rao","age":34,"monthly_income":50000,"phone_number":9876543210}`
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.RegisterCustomer(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		mockService.AssertNotCalled(t, "RegisterCustomer")
	})
}

func TestCustomerHandlerGetCustomer(t *testing.T) {
	t.Run("returns customer details", func(t *testing.T) {
		mockService := new(MockCustomerService)
		h := NewCustomerHandler(mockService, testLogger)

		mockService.On("GetCustomer", mock.Anything, int64(42)).Return(&customer.Customer{
			CustomerID: 42, FirstName: "Asha", LastName: "Rao", MonthlySalary: 50_000, ApprovedLimit: 1_800_000,
		}, nil)

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/customers/42", nil), "customerID", "42")
		rec := httptest.NewRecorder()

		h.GetCustomer(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp dto.CustomerResponse
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, int64(42), resp.CustomerID)
	})

	t.Run("returns 404 for unknown customer", func(t *testing.T) {
		mockService := new(MockCustomerService)
		h := NewCustomerHandler(mockService, testLogger)

		mockService.On("GetCustomer", mock.Anything, int64(99)).Return(nil, customer.ErrNotFound)

		req := withURLParam(httptest.NewRequest(http.MethodGet, "/customers/99", nil), "customerID", "99")
		rec := httptest.NewRecorder()

		h.GetCustomer(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCustomerHandlerListCustomers(t *testing.T) {
	mockService := new(MockCustomerService)
	h := NewCustomerHandler(mockService, testLogger)

	mockService.On("ListCustomers", mock.Anything).Return([]*customer.Customer{
		{CustomerID: 1, FirstName: "Asha"},
		{CustomerID: 2, FirstName: "Ben"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/customers", nil)
	rec := httptest.NewRecorder()

	h.ListCustomers(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp []dto.CustomerResponse
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp, 2)
}
