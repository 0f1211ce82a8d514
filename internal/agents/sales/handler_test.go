// internal/agents/sales/handler_test.go
package sales

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/loan"
	"loan-desk/internal/models"
	"loan-desk/internal/phrases"
	"loan-desk/internal/workflow"
)

// ==========================
// TEST SETUP
// ==========================

type stubDirectory struct {
	customers map[string]models.Customer
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
	return nil, nil
}

func (d *stubDirectory) ExistingEMI(ctx context.Context, id string) (float64, error) {
	return 0, nil
}

func newTestHandler(t *testing.T) *Handler {
	directory := &stubDirectory{customers: map[string]models.Customer{
		"CUST001": {
			CustomerID:       "CUST001",
			Name:             "Rajesh Kumar",
			Segment:          "premium",
			CreditScore:      800,
			PreApprovedLimit: 500000,
		},
	}}
	return NewHandler(directory, loan.DefaultPricing(), phrases.NewComposer(), logger.NewTestLogger(t))
}

func negotiableRecord() *models.ApplicationRecord {
	rec := models.NewRecord("sess-n")
	rec.CustomerID = "CUST001"
	rec.CustomerName = "Rajesh Kumar"
	rec.Segment = "premium"
	rec.CreditScore = 800
	rec.Stage = models.StageSalesNegotiation
	rec.RequestedAmount = 500000
	return rec
}

// ==========================
// TESTS
// ==========================

func TestStep_NoAmountIsNoOp(t *testing.T) {
	h := newTestHandler(t)
	rec := models.NewRecord("sess-1")
	rec.CustomerID = "CUST001"

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalNone, sig.Kind)
	assert.Len(t, next.History, 0, "no-op step must not speak")
}

func TestStep_PresentsOffers(t *testing.T) {
	h := newTestHandler(t)
	rec := negotiableRecord()

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	require.Len(t, next.Offers, 3)

	// Premium at score 800 prices at 9% flat across tenures.
	for _, offer := range next.Offers {
		assert.InDelta(t, 0.09, offer.AnnualRate, 1e-9)
	}

	// The middle tenure is adopted as the working choice.
	assert.Equal(t, 24, next.TenureMonths)
	assert.InDelta(t, 0.09, next.Rate, 1e-9)
	assert.Greater(t, next.MonthlyEMI, float64(0))
	require.NotNil(t, next.LastMessage())
	assert.Contains(t, next.LastMessage().Content, "24 months")
}

func TestStep_UnknownCustomerAwaitsWithError(t *testing.T) {
	h := newTestHandler(t)
	rec := negotiableRecord()
	rec.CustomerID = "CUST404"

	next, sig, err := h.Step(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	assert.Equal(t, string(errors.ErrCodeCustomerNotFound), next.LastError)
	assert.Empty(t, next.Offers)
}

func TestStep_NegotiatesWithinCap(t *testing.T) {
	h := newTestHandler(t)
	rec := negotiableRecord()

	// First pass builds the offers at 9%.
	offered, _, err := h.Step(context.Background(), rec)
	require.NoError(t, err)

	// Premium with a loyalty bonus may cut up to 1.8 points.
	offered.AppendUser("can you do 7.5%?")
	next, sig, err := h.Step(context.Background(), offered)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	assert.InDelta(t, 0.075, next.Rate, 1e-9)
	assert.Contains(t, next.LastMessage().Content, "Done!")
}

func TestStep_CountersExcessiveAsk(t *testing.T) {
	h := newTestHandler(t)
	rec := negotiableRecord()

	offered, _, err := h.Step(context.Background(), rec)
	require.NoError(t, err)

	offered.AppendUser("give me 5% or I walk")
	next, sig, err := h.Step(context.Background(), offered)
	require.NoError(t, err)
	assert.Equal(t, workflow.SignalAwaitInput, sig.Kind)
	// Counter lands at the discount floor, 9% minus 1.8 points.
	assert.InDelta(t, 0.072, next.Rate, 1e-9)
	assert.Contains(t, next.LastMessage().Content, "best I can do")

	emi := loan.EMI(500000, 0.072, 24)
	assert.InDelta(t, emi, next.MonthlyEMI, 0.01)
}
