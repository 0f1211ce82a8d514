// internal/agents/sanction/handler.go
package sanction

import (
	"context"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/documents"
	"loan-desk/internal/models"
	"loan-desk/internal/notify"
	"loan-desk/internal/phrases"
	"loan-desk/internal/workflow"
)

// ==========================================
// SANCTION GENERATION UNIT
// ==========================================

// Handler turns an approved application into a sanction letter and
// closes the conversation. Re-entry on an already sanctioned record
// is idempotent: the stored reference is repeated, never regenerated.
type Handler struct {
	documents *documents.Service
	notifier  *notify.Notifier
	composer  *phrases.Composer
	logger    logger.Logger
}

func NewHandler(docs *documents.Service, notifier *notify.Notifier, composer *phrases.Composer, log logger.Logger) *Handler {
	return &Handler{
		documents: docs,
		notifier:  notifier,
		composer:  composer,
		logger: log.With(map[string]interface{}{
			"unit": string(models.UnitSanction),
		}),
	}
}

func (h *Handler) Name() models.UnitName {
	return models.UnitSanction
}

func (h *Handler) Step(ctx context.Context, rec *models.ApplicationRecord) (*models.ApplicationRecord, workflow.Signal, error) {
	next := rec.Clone()

	if next.SanctionRef != "" {
		// Already sanctioned. Repeat the reference and close.
		if next.SanctionValidUntil != nil {
			next.AppendAssistant(models.UnitSanction, h.composer.SanctionIssued(next.SanctionRef, *next.SanctionValidUntil))
		}
		h.close(next)
		return next, workflow.None(), nil
	}

	if missing := missingPreconditions(next); missing != "" {
		h.logger.Warn("Sanction declined on missing precondition", map[string]interface{}{
			"session_id": next.SessionID,
			"missing":    missing,
		})
		next.LastError = string(errors.ErrCodePreconditionMissing)
		next.AppendAssistant(models.UnitSanction, h.composer.Apology())
		return next, workflow.AwaitInput(), nil
	}

	letter, err := h.documents.GenerateSanctionLetter(ctx, documents.SanctionRequest{
		CustomerID:    next.CustomerID,
		CustomerName:  next.CustomerName,
		Amount:        next.ApprovedAmount,
		TenureMonths:  next.TenureMonths,
		AnnualRate:    next.Rate,
		MonthlyEMI:    next.MonthlyEMI,
		ProcessingFee: processingFee(next),
	})
	if err != nil {
		h.logger.Error("Sanction letter generation failed", map[string]interface{}{
			"session_id": next.SessionID,
			"error":      err.Error(),
		})
		next.LastError = string(errors.CodeOf(err))
		next.AppendAssistant(models.UnitSanction, h.composer.Apology())
		return next, workflow.AwaitInput(), nil
	}

	next.SanctionRef = letter.Reference
	next.SanctionLocation = letter.Location
	validUntil := letter.ValidUntil
	next.SanctionValidUntil = &validUntil
	next.LastError = ""

	// Email delivery is best effort; the sanction stands without it.
	if next.Email != "" {
		if err := h.notifier.EmailSanctionLetter(ctx, next.Email, next.CustomerName, letter.Reference, letter.Content); err != nil {
			h.logger.Warn("Sanction letter email failed", map[string]interface{}{
				"session_id": next.SessionID,
				"reference":  letter.Reference,
			})
		}
	}

	h.logger.Info("Sanction issued", map[string]interface{}{
		"session_id": next.SessionID,
		"reference":  letter.Reference,
		"amount":     next.ApprovedAmount,
	})

	next.AppendAssistant(models.UnitSanction, h.composer.SanctionIssued(letter.Reference, letter.ValidUntil))
	h.close(next)
	return next, workflow.None(), nil
}

func (h *Handler) close(rec *models.ApplicationRecord) {
	if rec.Stage != models.StageClosure {
		if err := rec.AdvanceStage(models.StageClosure); err != nil {
			h.logger.Error("Stage advance refused", map[string]interface{}{
				"session_id": rec.SessionID,
				"from":       string(rec.Stage),
			})
		}
	}
}

func missingPreconditions(rec *models.ApplicationRecord) string {
	switch {
	case rec.Status != models.StatusApproved:
		return "application_status"
	case rec.ApprovedAmount <= 0:
		return "approved_amount"
	case rec.TenureMonths <= 0:
		return "tenure_months"
	case rec.Rate <= 0:
		return "rate"
	case rec.MonthlyEMI <= 0:
		return "monthly_emi"
	case rec.CustomerName == "":
		return "customer_name"
	}
	return ""
}

func processingFee(rec *models.ApplicationRecord) float64 {
	for _, offer := range rec.Offers {
		if offer.TenureMonths == rec.TenureMonths {
			return offer.ProcessingFee
		}
	}
	return 0
}
