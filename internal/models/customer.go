// internal/models/customer.go
package models

// Customer is a CRM profile as served by the bank's customer directory.
type Customer struct {
	CustomerID       string  `json:"customerId" db:"customer_id"`
	Name             string  `json:"name" db:"name"`
	Phone            string  `json:"phone" db:"phone"`
	Email            string  `json:"email" db:"email"`
	City             string  `json:"city,omitempty" db:"city"`
	Segment          string  `json:"segment" db:"segment"`
	CreditScore      int     `json:"creditScore" db:"credit_score"`
	PreApprovedLimit float64 `json:"preApprovedLimit" db:"pre_approved_limit"`
	MonthlySalary    float64 `json:"monthlySalary" db:"monthly_salary"`
	KYCComplete      bool    `json:"kycComplete" db:"kyc_complete"`
}

// ExistingLoan is one active obligation on a customer's book.
type ExistingLoan struct {
	LoanID      string  `json:"loanId" db:"loan_id"`
	Type        string  `json:"type" db:"type"`
	Outstanding float64 `json:"outstanding" db:"outstanding"`
	MonthlyEMI  float64 `json:"monthlyEmi" db:"monthly_emi"`
}

// TotalEMI sums the monthly obligations across loans.
func TotalEMI(loans []ExistingLoan) float64 {
	var total float64
	for _, l := range loans {
		total += l.MonthlyEMI
	}
	return total
}
