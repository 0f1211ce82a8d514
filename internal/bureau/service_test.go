// internal/bureau/service_test.go
package bureau

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/loan"
	"loan-desk/internal/models"
)

// stubDirectory serves a fixed customer book without touching any backend.
type stubDirectory struct {
	customers map[string]*models.Customer
	loans     map[string][]models.ExistingLoan
}

func (d *stubDirectory) CustomerByID(_ context.Context, id string) (*models.Customer, error) {
	if c, ok := d.customers[id]; ok {
		return c, nil
	}
	return nil, errors.NewCustomerNotFoundError(id)
}

func (d *stubDirectory) CustomerByPhone(_ context.Context, phone string) (*models.Customer, error) {
	for _, c := range d.customers {
		if c.Phone == phone {
			return c, nil
		}
	}
	return nil, errors.NewCustomerNotFoundError(phone)
}

func (d *stubDirectory) ExistingLoans(_ context.Context, id string) ([]models.ExistingLoan, error) {
	return d.loans[id], nil
}

func (d *stubDirectory) ExistingEMI(ctx context.Context, id string) (float64, error) {
	loans, _ := d.ExistingLoans(ctx, id)
	return models.TotalEMI(loans), nil
}

func testDirectory() *stubDirectory {
	return &stubDirectory{
		customers: map[string]*models.Customer{
			"CUST001": {CustomerID: "CUST001", Name: "Rajesh Kumar", Phone: "9876543210",
				Segment: "premium", CreditScore: 800, PreApprovedLimit: 500000, MonthlySalary: 85000},
			"CUST002": {CustomerID: "CUST002", Name: "Priya Sharma", Phone: "9876543211",
				Segment: "prime", CreditScore: 750, PreApprovedLimit: 400000, MonthlySalary: 65000},
			"CUST003": {CustomerID: "CUST003", Name: "Amit Patel", Phone: "9876543212",
				Segment: "standard", CreditScore: 680, PreApprovedLimit: 200000, MonthlySalary: 45000},
		},
		loans: map[string][]models.ExistingLoan{
			"CUST002": {{LoanID: "LN010", Type: "personal", Outstanding: 150000, MonthlyEMI: 5000}},
		},
	}
}

func newTestService(t *testing.T) *Service {
	return NewService(testDirectory(), DefaultConfig(), logger.NewTestLogger(t))
}

func TestCheckEligibility_LowScoreRejected(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.CheckEligibility(context.Background(), "CUST003", 150000, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DecisionRejected, result.Decision)
	assert.Zero(t, result.ApprovedAmount)
	assert.Contains(t, result.Reason, "680")
	assert.NotEmpty(t, result.Recommendations, "rejection must carry at least one recommendation")
}

func TestCheckEligibility_WithinLimitInstantApproval(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.CheckEligibility(context.Background(), "CUST001", 300000, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DecisionApproved, result.Decision)
	assert.Equal(t, 300000.0, result.ApprovedAmount)
	assert.Empty(t, result.Conditions)
}

func TestCheckEligibility_OverCeilingRejected(t *testing.T) {
	svc := newTestService(t)

	// CUST002 limit 400000, ceiling 800000.
	result, err := svc.CheckEligibility(context.Background(), "CUST002", 900000, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DecisionRejected, result.Decision)
	assert.Zero(t, result.ApprovedAmount)
	assert.NotEmpty(t, result.Recommendations)
}

func TestCheckEligibility_BetweenLimitsNeedsDocuments(t *testing.T) {
	svc := newTestService(t)

	result, err := svc.CheckEligibility(context.Background(), "CUST002", 600000, nil)
	require.NoError(t, err)

	assert.Equal(t, models.DecisionNeedsDocuments, result.Decision)
	assert.Contains(t, result.Conditions, ConditionSalarySlip)
	assert.Zero(t, result.ApprovedAmount)
}

func TestCheckEligibility_VerifiedSalaryApproves(t *testing.T) {
	svc := newTestService(t)

	// Reference EMI for 600000 at 12% over 36 months is about 19929;
	// plus 5000 existing it fits under half of a 65000 salary.
	salary := 65000.0
	result, err := svc.CheckEligibility(context.Background(), "CUST002", 600000, &salary)
	require.NoError(t, err)

	assert.Equal(t, models.DecisionApproved, result.Decision)
	assert.Equal(t, 600000.0, result.ApprovedAmount)
	assert.InDelta(t, loan.EMI(600000, 0.12, 36), result.ProposedEMI, 0.01)
}

func TestCheckEligibility_VerifiedSalaryTooLowRejects(t *testing.T) {
	svc := newTestService(t)

	salary := 40000.0
	result, err := svc.CheckEligibility(context.Background(), "CUST002", 600000, &salary)
	require.NoError(t, err)

	assert.Equal(t, models.DecisionRejected, result.Decision)
	assert.Zero(t, result.ApprovedAmount)
	require.NotEmpty(t, result.Recommendations)
	assert.Contains(t, result.Recommendations[0], "afford")
}

func TestCheckEligibility_UnknownCustomer(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CheckEligibility(context.Background(), "CUST999", 100000, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCustomerNotFound, errors.CodeOf(err))
}

func TestCheckEligibility_NonPositiveAmount(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CheckEligibility(context.Background(), "CUST001", 0, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvariantViolation, errors.CodeOf(err))
}

func TestRiskScore(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	low, err := svc.RiskScore(ctx, "CUST001", 200000)
	require.NoError(t, err)

	high, err := svc.RiskScore(ctx, "CUST003", 400000)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, low, 0)
	assert.LessOrEqual(t, high, 100)
	assert.Greater(t, high, low, "weaker score and higher exposure must raise the risk score")
}

func TestCreditScore(t *testing.T) {
	svc := newTestService(t)

	score, err := svc.CreditScore(context.Background(), "CUST001")
	require.NoError(t, err)
	assert.Equal(t, 800, score)

	_, err = svc.CreditScore(context.Background(), "CUST999")
	assert.Error(t, err)
}
