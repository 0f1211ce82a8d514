// internal/agents/sales/handler.go
package sales

import (
	"context"
	"regexp"
	"strconv"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/crm"
	"loan-desk/internal/loan"
	"loan-desk/internal/models"
	"loan-desk/internal/phrases"
	"loan-desk/internal/workflow"
)

// ==========================================
// SALES AND NEGOTIATION UNIT
// ==========================================

var rePercent = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)

// Handler builds the offer grid for a requested amount and haggles
// over the rate within segment discount limits. It needs the amount
// on the record already; invoked without one it returns to triage
// without acting.
type Handler struct {
	directory crm.Directory
	pricing   loan.PricingConfig
	composer  *phrases.Composer
	logger    logger.Logger
}

func NewHandler(directory crm.Directory, pricing loan.PricingConfig, composer *phrases.Composer, log logger.Logger) *Handler {
	return &Handler{
		directory: directory,
		pricing:   pricing,
		composer:  composer,
		logger: log.With(map[string]interface{}{
			"unit": string(models.UnitSales),
		}),
	}
}

func (h *Handler) Name() models.UnitName {
	return models.UnitSales
}

func (h *Handler) Step(ctx context.Context, rec *models.ApplicationRecord) (*models.ApplicationRecord, workflow.Signal, error) {
	if rec.RequestedAmount <= 0 {
		// No amount yet. Hand back to triage without acting.
		return rec, workflow.None(), nil
	}

	next := rec.Clone()

	if len(next.Offers) == 0 {
		return h.presentOffers(ctx, next)
	}
	return h.negotiate(next)
}

func (h *Handler) presentOffers(ctx context.Context, rec *models.ApplicationRecord) (*models.ApplicationRecord, workflow.Signal, error) {
	// Re-check the customer against the directory so a stale session
	// cannot price against a deleted profile.
	customer, err := h.directory.CustomerByID(ctx, rec.CustomerID)
	if err != nil {
		h.logger.Warn("Offer generation failed on customer lookup", map[string]interface{}{
			"session_id":  rec.SessionID,
			"customer_id": rec.CustomerID,
			"error":       err.Error(),
		})
		rec.LastError = string(errors.CodeOf(err))
		rec.AppendAssistant(models.UnitSales, h.composer.CustomerNotFound())
		return rec, workflow.AwaitInput(), nil
	}

	offers := loan.GenerateOffers(rec.RequestedAmount, customer.Segment, customer.CreditScore, h.pricing)
	rec.Offers = offers
	if pick := models.RecommendedOffer(offers); pick != nil {
		rec.TenureMonths = pick.TenureMonths
		rec.Rate = pick.AnnualRate
		rec.MonthlyEMI = pick.MonthlyEMI
	}

	h.logger.Info("Offers presented", map[string]interface{}{
		"session_id": rec.SessionID,
		"amount":     rec.RequestedAmount,
		"offers":     len(offers),
	})
	rec.AppendAssistant(models.UnitSales, h.composer.PresentOffers(offers))
	return rec, workflow.AwaitInput(), nil
}

func (h *Handler) negotiate(rec *models.ApplicationRecord) (*models.ApplicationRecord, workflow.Signal, error) {
	asked := askedRate(rec)
	result := loan.NegotiateRate(rec.Rate, asked, rec.Segment, rec.CreditScore)

	rec.Rate = result.FinalRate
	rec.MonthlyEMI = loan.EMI(rec.RequestedAmount, result.FinalRate, rec.TenureMonths)

	h.logger.Info("Rate negotiated", map[string]interface{}{
		"session_id": rec.SessionID,
		"asked":      asked,
		"granted":    result.FinalRate,
		"accepted":   result.Accepted,
	})

	if result.Accepted {
		rec.AppendAssistant(models.UnitSales, h.composer.RateAccepted(result.FinalRate, rec.MonthlyEMI))
	} else {
		rec.AppendAssistant(models.UnitSales, h.composer.RateCounterOffer(result.FinalRate, rec.MonthlyEMI))
	}
	return rec, workflow.AwaitInput(), nil
}

// askedRate extracts an explicit percentage from the latest user
// message. Zero means "as low as you can go" and lets the discount
// cap decide.
func askedRate(rec *models.ApplicationRecord) float64 {
	last := rec.LastUserMessage()
	if last == nil {
		return 0
	}
	m := rePercent.FindStringSubmatch(last.Content)
	if m == nil {
		return 0
	}
	rate, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return rate / 100
}
