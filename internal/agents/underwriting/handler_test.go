// internal/agents/underwriting/handler_test.go
package underwriting

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-desk/internal/bureau"
	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/documents"
	"loan-desk/internal/models"
	"loan-desk/internal/phrases"
	"loan-desk/internal/workflow"
)

// ==========================
// TEST SETUP
// ==========================

type stubDirectory struct {
	customers map[string]models.Customer
	loans     map[string][]models.ExistingLoan
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		customers: map[string]models.Customer{
			"CUST001": {
				CustomerID: "CUST001", Name: "Rajesh Kumar", Segment: "premium",
				CreditScore: 800, PreApprovedLimit: 500000, MonthlySalary: 85000,
			},
			"CUST002": {
				CustomerID: "CUST002", Name: "Priya Sharma", Segment: "prime",
				CreditScore: 750, PreApprovedLimit: 400000, MonthlySalary: 65000,
			},
			"CUST003": {
				CustomerID: "CUST003", Name: "Amit Patel", Segment: "standard",
				CreditScore: 680, PreApprovedLimit: 200000, MonthlySalary: 45000,
			},
		},
		loans: map[string][]models.ExistingLoan{
			"CUST001": {{LoanID: "LN001", Type: "car", MonthlyEMI: 8000}},
			"CUST002": {{LoanID: "LN010", Type: "personal", MonthlyEMI: 5000}},
		},
	}
}

func (d *stubDirectory) CustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	if c, ok := d.customers[id]; ok {
		return &c, nil
	}
	return nil, errors.NewCustomerNotFoundError(id)
}

func (d *stubDirectory) CustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	return nil, errors.NewCustomerNotFoundError(phone)
}

func (d *stubDirectory) ExistingLoans(ctx context.Context, id string) ([]models.ExistingLoan, error) {
	return d.loans[id], nil
}

func (d *stubDirectory) ExistingEMI(ctx context.Context, id string) (float64, error) {
	return models.TotalEMI(d.loans[id]), nil
}

type testEnv struct {
	handler *Handler
	docs    *documents.Service
}

func newTestEnv(t *testing.T) *testEnv {
	log := logger.NewTestLogger(t)
	bureauSvc := bureau.NewService(newStubDirectory(), bureau.DefaultConfig(), log)

	dir := t.TempDir()
	docs, err := documents.NewService(filepath.Join(dir, "uploads"), filepath.Join(dir, "generated"), 30, log)
	require.NoError(t, err)

	return &testEnv{
		handler: NewHandler(bureauSvc, docs, phrases.NewComposer(), log),
		docs:    docs,
	}
}

func applicationRecord(customerID string, amount float64) *models.ApplicationRecord {
	rec := models.NewRecord("sess-u")
	rec.CustomerID = customerID
	rec.CustomerName = "Test Customer"
	rec.Stage = models.StageUnderwriting
	rec.RequestedAmount = amount
	rec.TenureMonths = 24
	rec.Rate = 0.09
	rec.MonthlyEMI = 22839.87
	rec.PhoneVerified = true
	return rec
}

// ==========================
// DECISION TESTS
// ==========================

func TestStep_InstantApprovalWithinLimit(t *testing.T) {
	env := newTestEnv(t)
	rec := applicationRecord("CUST001", 400000)

	next, sig, err := env.handler.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalContinue, sig.Kind)
	assert.Equal(t, models.UnitSanction, sig.Next)
	assert.Equal(t, models.DecisionApproved, next.Decision)
	assert.Equal(t, models.StatusApproved, next.Status)
	assert.Equal(t, float64(400000), next.ApprovedAmount)
	assert.Equal(t, models.StageSanctionGeneration, next.Stage)
	assert.Greater(t, next.RiskScore, 0)
}

func TestStep_LowScoreRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := applicationRecord("CUST003", 100000)

	next, sig, err := env.handler.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalNone, sig.Kind)
	assert.Equal(t, models.DecisionRejected, next.Decision)
	assert.Equal(t, models.StatusRejected, next.Status)
	assert.NotEmpty(t, next.RejectionReason)
	assert.NotEmpty(t, next.Recommendations)
	assert.Equal(t, models.StageClosure, next.Stage)
}

func TestStep_OverCeilingRejectedWithoutDocuments(t *testing.T) {
	env := newTestEnv(t)
	rec := applicationRecord("CUST001", 1100000)

	next, _, err := env.handler.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionRejected, next.Decision)
	assert.Equal(t, models.StatusRejected, next.Status)
	assert.Empty(t, next.Conditions)
}

func TestStep_BetweenLimitsAsksForDocuments(t *testing.T) {
	env := newTestEnv(t)
	rec := applicationRecord("CUST002", 600000)

	next, sig, err := env.handler.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	assert.Equal(t, models.DecisionNeedsDocuments, next.Decision)
	assert.Equal(t, models.StatusInProgress, next.Status)
	assert.Contains(t, next.Conditions, bureau.ConditionSalarySlip)
	assert.Equal(t, models.StageDocumentUpload, next.Stage)
}

func TestStep_DocumentRerunApproves(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slip := "Employee: Priya Sharma\nNet Salary: Rs. 65,000\n"
	_, err := env.docs.StoreUpload(ctx, "payslip.txt", []byte(slip))
	require.NoError(t, err)

	rec := applicationRecord("CUST002", 600000)
	rec.Stage = models.StageDocumentUpload
	rec.Decision = models.DecisionNeedsDocuments
	rec.UploadedDocument = "payslip.txt"

	next, sig, err := env.handler.Step(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalContinue, sig.Kind)
	assert.Equal(t, models.UnitSanction, sig.Next)
	assert.True(t, next.SalarySlipUploaded)
	assert.InDelta(t, 65000, next.VerifiedSalary, 0.01)
	assert.Equal(t, models.StatusApproved, next.Status)
	assert.Equal(t, float64(600000), next.ApprovedAmount)
}

func TestStep_DocumentRerunRejectsOnAffordability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	slip := "Net Salary: Rs. 40,000\n"
	_, err := env.docs.StoreUpload(ctx, "thin_payslip.txt", []byte(slip))
	require.NoError(t, err)

	rec := applicationRecord("CUST002", 600000)
	rec.Stage = models.StageDocumentUpload
	rec.Decision = models.DecisionNeedsDocuments
	rec.UploadedDocument = "thin_payslip.txt"

	next, _, err := env.handler.Step(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, next.Status)
	assert.NotEmpty(t, next.RejectionReason)
}

func TestStep_UnreadableDocumentAsksForRetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.docs.StoreUpload(ctx, "junk.txt", []byte("nothing useful in here"))
	require.NoError(t, err)

	rec := applicationRecord("CUST002", 600000)
	rec.Stage = models.StageDocumentUpload
	rec.Decision = models.DecisionNeedsDocuments
	rec.AddCondition(bureau.ConditionSalarySlip)
	rec.UploadedDocument = "junk.txt"

	next, sig, err := env.handler.Step(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	assert.Equal(t, string(errors.ErrCodeDocumentUnreadable), next.LastError)
	assert.False(t, next.SalarySlipUploaded)
	assert.Equal(t, models.StageDocumentUpload, next.Stage)
	assert.Empty(t, next.UploadedDocument, "a failed upload must be cleared for retry")
}

// ==========================
// GUARD TESTS
// ==========================

func TestStep_MissingAmountAwaits(t *testing.T) {
	env := newTestEnv(t)
	rec := applicationRecord("CUST001", 0)

	next, sig, err := env.handler.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	assert.Equal(t, string(errors.ErrCodePreconditionMissing), next.LastError)
	assert.Equal(t, models.DecisionPending, next.Decision)
}

func TestStep_UnknownCustomerAwaitsWithError(t *testing.T) {
	env := newTestEnv(t)
	rec := applicationRecord("CUST404", 100000)

	next, sig, err := env.handler.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	assert.Equal(t, string(errors.ErrCodeCustomerNotFound), next.LastError)
	assert.Equal(t, models.StatusInProgress, next.Status)
}

func TestStep_ClosedStatusNeverRedecides(t *testing.T) {
	env := newTestEnv(t)
	rec := applicationRecord("CUST001", 400000)
	rec.Status = models.StatusRejected

	next, sig, err := env.handler.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	assert.Equal(t, models.StatusRejected, next.Status)
}
