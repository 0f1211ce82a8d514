// internal/agents/master/handler_test.go
package master

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/models"
	"loan-desk/internal/phrases"
	"loan-desk/internal/workflow"
)

// ==========================
// TEST SETUP
// ==========================

type stubDirectory struct {
	customers map[string]models.Customer
	emi       map[string]float64
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{
		customers: map[string]models.Customer{
			"CUST001": {
				CustomerID:       "CUST001",
				Name:             "Rajesh Kumar",
				Phone:            "9876543210",
				Email:            "rajesh.kumar@example.com",
				Segment:          "premium",
				CreditScore:      800,
				PreApprovedLimit: 500000,
				MonthlySalary:    85000,
				KYCComplete:      true,
			},
		},
		emi: map[string]float64{"CUST001": 8000},
	}
}

func (d *stubDirectory) CustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	if c, ok := d.customers[id]; ok {
		return &c, nil
	}
	return nil, errors.NewCustomerNotFoundError(id)
}

func (d *stubDirectory) CustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	for _, c := range d.customers {
		if c.Phone == phone {
			cc := c
			return &cc, nil
		}
	}
	return nil, errors.NewCustomerNotFoundError(phone)
}

func (d *stubDirectory) ExistingLoans(ctx context.Context, id string) ([]models.ExistingLoan, error) {
	return nil, nil
}

func (d *stubDirectory) ExistingEMI(ctx context.Context, id string) (float64, error) {
	return d.emi[id], nil
}

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(newStubDirectory(), phrases.NewComposer(), logger.NewTestLogger(t))
}

// ==========================
// GREETING TESTS
// ==========================

func TestStep_GreetsKnownCustomer(t *testing.T) {
	h := newTestHandler(t)
	rec := models.NewRecord("sess-1")
	rec.CustomerID = "CUST001"

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	assert.Equal(t, "Rajesh Kumar", next.CustomerName)
	assert.Equal(t, float64(8000), next.ExistingEMI)
	assert.Equal(t, models.StageNeedsAssessment, next.Stage)
	require.NotNil(t, next.LastMessage())
	assert.Contains(t, next.LastMessage().Content, "Rajesh Kumar")
}

func TestStep_GreetsAnonymousCaller(t *testing.T) {
	h := newTestHandler(t)
	rec := models.NewRecord("sess-2")

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	assert.Empty(t, next.CustomerName)
	assert.Contains(t, next.LastMessage().Content, "customer ID or phone")
}

func TestStep_IdentifiesByCustomerID(t *testing.T) {
	h := newTestHandler(t)
	rec := models.NewRecord("sess-3")
	rec.AppendAssistant(models.UnitMaster, "greeting")
	rec.AppendUser("My id is CUST001")

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	assert.Equal(t, "Rajesh Kumar", next.CustomerName)
	assert.Equal(t, "premium", next.Segment)
}

func TestStep_IdentifiesByPhone(t *testing.T) {
	h := newTestHandler(t)
	rec := models.NewRecord("sess-4")
	rec.AppendUser("9876543210")

	next, _, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "CUST001", next.CustomerID)
}

func TestStep_UnknownCustomerSetsLastError(t *testing.T) {
	h := newTestHandler(t)
	rec := models.NewRecord("sess-5")
	rec.AppendUser("CUST999")

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	assert.Equal(t, string(errors.ErrCodeCustomerNotFound), next.LastError)
	assert.Empty(t, next.CustomerName)
}

// ==========================
// DELEGATION TESTS
// ==========================

func identifiedRecord(stage models.Stage) *models.ApplicationRecord {
	rec := models.NewRecord("sess-d")
	rec.CustomerID = "CUST001"
	rec.CustomerName = "Rajesh Kumar"
	rec.Phone = "9876543210"
	rec.Segment = "premium"
	rec.CreditScore = 800
	rec.PreApprovedLimit = 500000
	rec.Stage = stage
	return rec
}

func TestStep_AmountDelegatesToSales(t *testing.T) {
	h := newTestHandler(t)
	rec := identifiedRecord(models.StageNeedsAssessment)
	rec.AppendUser("I need 5 lakhs for home renovation")

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalContinue, sig.Kind)
	assert.Equal(t, models.UnitSales, sig.Next)
	assert.Equal(t, float64(500000), next.RequestedAmount)
	assert.Equal(t, "home renovation", next.LoanPurpose)
	assert.Equal(t, models.StageSalesNegotiation, next.Stage)
}

func TestStep_SendOTPDelegatesToVerification(t *testing.T) {
	h := newTestHandler(t)
	rec := identifiedRecord(models.StageSalesNegotiation)
	rec.RequestedAmount = 500000
	rec.AppendUser("send otp please")

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalContinue, sig.Kind)
	assert.Equal(t, models.UnitVerification, sig.Next)
	assert.Equal(t, models.StageVerification, next.Stage)
}

func TestStep_AffirmAtNegotiationMovesToVerification(t *testing.T) {
	h := newTestHandler(t)
	rec := identifiedRecord(models.StageSalesNegotiation)
	rec.RequestedAmount = 500000
	rec.AppendUser("yes, let's proceed")

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalContinue, sig.Kind)
	assert.Equal(t, models.UnitVerification, sig.Next)
	assert.Equal(t, models.StageVerification, next.Stage)
}

func TestStep_UploadDelegatesToUnderwriting(t *testing.T) {
	h := newTestHandler(t)
	rec := identifiedRecord(models.StageDocumentUpload)
	rec.RequestedAmount = 700000
	rec.AppendUser("UPLOAD DOCUMENT salary_slip.txt")

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalContinue, sig.Kind)
	assert.Equal(t, models.UnitUnderwriting, sig.Next)
	assert.Equal(t, "salary_slip.txt", next.UploadedDocument)
}

func TestStep_DeclineAbandonsConversation(t *testing.T) {
	h := newTestHandler(t)
	rec := identifiedRecord(models.StageSalesNegotiation)
	rec.AppendUser("not interested, bye")

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalNone, sig.Kind)
	assert.Equal(t, models.StatusAbandoned, next.Status)
	assert.Equal(t, models.StageClosure, next.Stage)
}

func TestStep_ClosedConversationIsTerminal(t *testing.T) {
	h := newTestHandler(t)
	rec := identifiedRecord(models.StageClosure)
	rec.Status = models.StatusRejected
	rec.AppendUser("hello again")

	_, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalTerminal, sig.Kind)
}

func TestStep_ApprovedWithoutLetterRetriesSanction(t *testing.T) {
	h := newTestHandler(t)
	rec := identifiedRecord(models.StageSanctionGeneration)
	rec.Status = models.StatusApproved
	rec.ApprovedAmount = 400000
	rec.AppendUser("where is my letter?")

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalContinue, sig.Kind)
	assert.Equal(t, models.UnitSanction, sig.Next)
	assert.Equal(t, models.StatusApproved, next.Status)
}

// ==========================
// CLASSIFIER TESTS
// ==========================

func TestClassify(t *testing.T) {
	base := models.NewRecord("sess-c")

	otpPending := models.NewRecord("sess-c2")
	otpPending.OTPSent = true

	withOffers := models.NewRecord("sess-c3")
	withOffers.Offers = []models.Offer{{TenureMonths: 24}}

	tests := []struct {
		name string
		text string
		rec  *models.ApplicationRecord
		want intentKind
	}{
		{"lakh amount", "5 lakhs please", base, intentAmount},
		{"lac spelling", "give me 2 lac", base, intentAmount},
		{"thousand amount", "50 thousand", base, intentAmount},
		{"bare amount", "300000", base, intentAmount},
		{"customer id", "cust001 here", base, intentIdentify},
		{"phone number", "9876543210", base, intentIdentify},
		{"otp code while pending", "123456", otpPending, intentOTPCode},
		{"send otp", "please SEND OTP", base, intentSendOTP},
		{"upload with file", "uploaded payslip.txt", base, intentUploadDocument},
		{"negotiation percent", "can you do 10.5%?", withOffers, intentNegotiate},
		{"negotiation phrase", "any better rate?", withOffers, intentNegotiate},
		{"affirmation", "yes", base, intentAffirm},
		{"decline", "no thanks", base, intentDecline},
		{"unknown", "what is the weather", base, intentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.text, tt.rec)
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		text string
		want float64
		ok   bool
	}{
		{"5 lakhs", 500000, true},
		{"2.5 lakh", 250000, true},
		{"50 thousand", 50000, true},
		{"75k", 75000, true},
		{"300000", 300000, true},
		{"give me money", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseAmount(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		if tt.ok {
			assert.InDelta(t, tt.want, got, 0.01, tt.text)
		}
	}
}
