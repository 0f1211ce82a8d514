// internal/agents/underwriting/handler.go
package underwriting

import (
	"context"

	"loan-desk/internal/bureau"
	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/documents"
	"loan-desk/internal/models"
	"loan-desk/internal/phrases"
	"loan-desk/internal/workflow"
)

// ==========================================
// UNDERWRITING UNIT
// ==========================================

// Handler maps the eligibility verdict onto the record. The same unit
// runs twice when documents are requested: the second invocation
// ingests the uploaded salary slip and re-decides with verified
// income instead of treating the re-run as a new state.
type Handler struct {
	bureau    *bureau.Service
	documents *documents.Service
	composer  *phrases.Composer
	logger    logger.Logger
}

func NewHandler(bureauSvc *bureau.Service, docs *documents.Service, composer *phrases.Composer, log logger.Logger) *Handler {
	return &Handler{
		bureau:    bureauSvc,
		documents: docs,
		composer:  composer,
		logger: log.With(map[string]interface{}{
			"unit": string(models.UnitUnderwriting),
		}),
	}
}

func (h *Handler) Name() models.UnitName {
	return models.UnitUnderwriting
}

func (h *Handler) Step(ctx context.Context, rec *models.ApplicationRecord) (*models.ApplicationRecord, workflow.Signal, error) {
	next := rec.Clone()

	if next.RequestedAmount <= 0 || next.CustomerID == "" {
		next.LastError = string(errors.ErrCodePreconditionMissing)
		next.AppendAssistant(models.UnitUnderwriting, h.composer.AskAmount())
		return next, workflow.AwaitInput(), nil
	}

	// Closed applications never re-decide.
	if next.Status.Terminal() {
		next.AppendAssistant(models.UnitUnderwriting, h.composer.Goodbye())
		return next, workflow.AwaitInput(), nil
	}

	if next.Stage == models.StageDocumentUpload && next.UploadedDocument != "" && !next.SalarySlipUploaded {
		if halt := h.ingestSalarySlip(ctx, next); halt {
			return next, workflow.AwaitInput(), nil
		}
	}

	var verifiedSalary *float64
	if next.SalarySlipUploaded && next.VerifiedSalary > 0 {
		verifiedSalary = &next.VerifiedSalary
	}

	result, err := h.bureau.CheckEligibility(ctx, next.CustomerID, next.RequestedAmount, verifiedSalary)
	if err != nil {
		if errors.IsFatal(errors.CodeOf(err)) {
			return rec, workflow.None(), err
		}
		h.logger.Warn("Eligibility check failed", map[string]interface{}{
			"session_id":  next.SessionID,
			"customer_id": next.CustomerID,
			"error":       err.Error(),
		})
		next.LastError = string(errors.CodeOf(err))
		next.AppendAssistant(models.UnitUnderwriting, h.composer.Apology())
		return next, workflow.AwaitInput(), nil
	}
	next.LastError = ""

	if score, err := h.bureau.RiskScore(ctx, next.CustomerID, next.RequestedAmount); err == nil {
		next.RiskScore = score
	}

	return h.applyDecision(next, result)
}

// ingestSalarySlip reads the uploaded artifact and extracts verified
// income. The returned flag tells the caller to stop the step and let
// the user retry the upload.
func (h *Handler) ingestSalarySlip(ctx context.Context, rec *models.ApplicationRecord) bool {
	content, err := h.documents.ReadDocument(ctx, rec.UploadedDocument)
	if err == nil {
		var income float64
		income, err = h.documents.ExtractIncome(ctx, content)
		if err == nil {
			rec.VerifiedSalary = income
			rec.SalarySlipUploaded = true
			rec.LastError = ""
			rec.AppendAssistant(models.UnitUnderwriting, h.composer.DocumentReceived(income))
			return false
		}
	}

	h.logger.Warn("Salary slip ingestion failed", map[string]interface{}{
		"session_id": rec.SessionID,
		"document":   rec.UploadedDocument,
		"error":      err.Error(),
	})
	rec.LastError = string(errors.CodeOf(err))
	rec.UploadedDocument = ""
	rec.AppendAssistant(models.UnitUnderwriting, h.composer.NeedsDocuments(rec.Conditions))
	return true
}

func (h *Handler) applyDecision(rec *models.ApplicationRecord, result *bureau.EligibilityResult) (*models.ApplicationRecord, workflow.Signal, error) {
	rec.Decision = result.Decision

	h.logger.Info("Underwriting decision", map[string]interface{}{
		"session_id":  rec.SessionID,
		"customer_id": rec.CustomerID,
		"decision":    string(result.Decision),
		"amount":      rec.RequestedAmount,
	})

	switch result.Decision {
	case models.DecisionApproved:
		rec.Status = models.StatusApproved
		rec.ApprovedAmount = result.ApprovedAmount
		if result.ProposedEMI > 0 && rec.MonthlyEMI == 0 {
			rec.MonthlyEMI = result.ProposedEMI
		}
		if err := rec.AdvanceStage(models.StageSanctionGeneration); err != nil {
			return rec, workflow.None(), errors.NewStageRegressionError(string(rec.Stage), string(models.StageSanctionGeneration))
		}
		rec.AppendAssistant(models.UnitUnderwriting, h.composer.Approved(result.ApprovedAmount, rec.MonthlyEMI))
		return rec, workflow.ContinueWith(models.UnitSanction), nil

	case models.DecisionRejected:
		rec.Status = models.StatusRejected
		rec.RejectionReason = result.Reason
		rec.Recommendations = result.Recommendations
		if err := rec.AdvanceStage(models.StageClosure); err != nil {
			return rec, workflow.None(), errors.NewStageRegressionError(string(rec.Stage), string(models.StageClosure))
		}
		rec.AppendAssistant(models.UnitUnderwriting, h.composer.Rejected(result.Reason, result.Recommendations))
		return rec, workflow.None(), nil

	case models.DecisionNeedsDocuments:
		for _, c := range result.Conditions {
			rec.AddCondition(c)
		}
		if rec.Stage != models.StageDocumentUpload {
			if err := rec.AdvanceStage(models.StageDocumentUpload); err != nil {
				return rec, workflow.None(), errors.NewStageRegressionError(string(rec.Stage), string(models.StageDocumentUpload))
			}
		}
		rec.AppendAssistant(models.UnitUnderwriting, h.composer.NeedsDocuments(rec.Conditions))
		return rec, workflow.AwaitInput(), nil

	default:
		return rec, workflow.None(), errors.NewInvariantViolationError("unknown eligibility decision " + string(result.Decision))
	}
}
