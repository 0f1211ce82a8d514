// internal/agents/master/handler.go
package master

import (
	"context"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/crm"
	"loan-desk/internal/models"
	"loan-desk/internal/phrases"
	"loan-desk/internal/workflow"
)

// ==========================================
// MASTER (CONVERSATIONAL TRIAGE) UNIT
// ==========================================

// Handler is the triage unit every turn starts from. It greets new
// sessions, resolves the customer against the directory, classifies
// each user message and delegates to exactly one specialist unit per
// iteration. It never decides eligibility or pricing itself.
type Handler struct {
	directory crm.Directory
	composer  *phrases.Composer
	logger    logger.Logger
}

func NewHandler(directory crm.Directory, composer *phrases.Composer, log logger.Logger) *Handler {
	return &Handler{
		directory: directory,
		composer:  composer,
		logger: log.With(map[string]interface{}{
			"unit": string(models.UnitMaster),
		}),
	}
}

func (h *Handler) Name() models.UnitName {
	return models.UnitMaster
}

func (h *Handler) Step(ctx context.Context, rec *models.ApplicationRecord) (*models.ApplicationRecord, workflow.Signal, error) {
	next := rec.Clone()

	// Opening turn: no user message yet, greet and wait.
	if next.LastUserMessage() == nil {
		h.greet(ctx, next)
		return next, workflow.AwaitInput(), nil
	}

	// An approved application whose letter has not issued yet retries
	// sanction until the record reaches closure.
	if next.Status == models.StatusApproved && next.Stage == models.StageSanctionGeneration {
		return next, workflow.ContinueWith(models.UnitSanction), nil
	}

	if next.Closed() {
		next.AppendAssistant(models.UnitMaster, h.composer.Goodbye())
		return next, workflow.Terminal(), nil
	}

	in := classify(next.LastUserMessage().Content, next)

	// Until the caller is identified nothing else can proceed.
	if next.CustomerName == "" {
		h.identify(ctx, next, in)
		return next, workflow.AwaitInput(), nil
	}

	switch in.Kind {
	case intentAmount:
		next.RequestedAmount = in.Amount
		if in.Purpose != "" {
			next.LoanPurpose = in.Purpose
		}
		h.advanceTo(next, models.StageSalesNegotiation)
		return next, workflow.ContinueWith(models.UnitSales), nil

	case intentNegotiate:
		return next, workflow.ContinueWith(models.UnitSales), nil

	case intentSendOTP:
		h.advanceTo(next, models.StageVerification)
		return next, workflow.ContinueWith(models.UnitVerification), nil

	case intentOTPCode:
		return next, workflow.ContinueWith(models.UnitVerification), nil

	case intentUploadDocument:
		if in.Document != "" {
			next.UploadedDocument = in.Document
		}
		if next.Stage == models.StageDocumentUpload {
			return next, workflow.ContinueWith(models.UnitUnderwriting), nil
		}
		next.AppendAssistant(models.UnitMaster, h.composer.Apology())
		return next, workflow.AwaitInput(), nil

	case intentDecline:
		next.Status = models.StatusAbandoned
		h.advanceTo(next, models.StageClosure)
		next.AppendAssistant(models.UnitMaster, h.composer.Goodbye())
		return next, workflow.None(), nil

	case intentAffirm:
		return h.affirm(next)

	default:
		h.nudge(next)
		return next, workflow.AwaitInput(), nil
	}
}

// greet resolves a known customer id if the session carries one,
// otherwise asks the caller to identify themselves.
func (h *Handler) greet(ctx context.Context, rec *models.ApplicationRecord) {
	if rec.CustomerID == "" {
		rec.AppendAssistant(models.UnitMaster, h.composer.Greeting("", 0))
		return
	}

	customer, err := h.directory.CustomerByID(ctx, rec.CustomerID)
	if err != nil {
		h.logger.Warn("Customer lookup failed on greeting", map[string]interface{}{
			"session_id":  rec.SessionID,
			"customer_id": rec.CustomerID,
			"error":       err.Error(),
		})
		rec.LastError = string(errors.CodeOf(err))
		rec.AppendAssistant(models.UnitMaster, h.composer.Greeting("", 0))
		return
	}

	h.adopt(ctx, rec, customer)
	h.advanceTo(rec, models.StageNeedsAssessment)
	rec.AppendAssistant(models.UnitMaster, h.composer.Greeting(customer.Name, customer.PreApprovedLimit))
}

func (h *Handler) identify(ctx context.Context, rec *models.ApplicationRecord, in intent) {
	var (
		customer *models.Customer
		err      error
	)
	switch {
	case in.CustomerID != "":
		customer, err = h.directory.CustomerByID(ctx, in.CustomerID)
	case in.Phone != "":
		customer, err = h.directory.CustomerByPhone(ctx, in.Phone)
	default:
		rec.AppendAssistant(models.UnitMaster, h.composer.Greeting("", 0))
		return
	}

	if err != nil {
		rec.LastError = string(errors.CodeOf(err))
		rec.AppendAssistant(models.UnitMaster, h.composer.CustomerNotFound())
		return
	}

	h.adopt(ctx, rec, customer)
	h.advanceTo(rec, models.StageNeedsAssessment)
	rec.LastError = ""
	rec.AppendAssistant(models.UnitMaster, h.composer.Greeting(customer.Name, customer.PreApprovedLimit))
}

// adopt copies the directory profile onto the record. The obligation
// total is best effort; a miss leaves it at zero rather than failing
// the greeting.
func (h *Handler) adopt(ctx context.Context, rec *models.ApplicationRecord, customer *models.Customer) {
	rec.CustomerID = customer.CustomerID
	rec.CustomerName = customer.Name
	rec.Phone = customer.Phone
	rec.Email = customer.Email
	rec.Segment = customer.Segment
	rec.CreditScore = customer.CreditScore
	rec.PreApprovedLimit = customer.PreApprovedLimit
	rec.MonthlySalary = customer.MonthlySalary
	rec.KYCVerified = customer.KYCComplete

	if emi, err := h.directory.ExistingEMI(ctx, customer.CustomerID); err == nil {
		rec.ExistingEMI = emi
	}
}

func (h *Handler) affirm(rec *models.ApplicationRecord) (*models.ApplicationRecord, workflow.Signal, error) {
	switch rec.Stage {
	case models.StageSalesNegotiation:
		if rec.RequestedAmount <= 0 {
			h.nudge(rec)
			return rec, workflow.AwaitInput(), nil
		}
		h.advanceTo(rec, models.StageVerification)
		return rec, workflow.ContinueWith(models.UnitVerification), nil

	case models.StageVerification:
		return rec, workflow.ContinueWith(models.UnitVerification), nil

	case models.StageUnderwriting, models.StageDocumentUpload:
		return rec, workflow.ContinueWith(models.UnitUnderwriting), nil

	case models.StageSanctionGeneration:
		return rec, workflow.ContinueWith(models.UnitSanction), nil

	default:
		h.nudge(rec)
		return rec, workflow.AwaitInput(), nil
	}
}

// nudge reminds the caller what the conversation needs next.
func (h *Handler) nudge(rec *models.ApplicationRecord) {
	switch rec.Stage {
	case models.StageGreeting, models.StageNeedsAssessment:
		rec.AppendAssistant(models.UnitMaster, h.composer.AskAmount())
	case models.StageSalesNegotiation:
		if len(rec.Offers) == 0 {
			rec.AppendAssistant(models.UnitMaster, h.composer.AskAmount())
		} else {
			rec.AppendAssistant(models.UnitMaster, h.composer.ProceedToVerification())
		}
	case models.StageVerification:
		rec.AppendAssistant(models.UnitMaster, h.composer.ProceedToVerification())
	case models.StageDocumentUpload:
		rec.AppendAssistant(models.UnitMaster, h.composer.NeedsDocuments(rec.Conditions))
	default:
		rec.AppendAssistant(models.UnitMaster, h.composer.Apology())
	}
}

// advanceTo moves the stage forward and never regresses it. A target
// at or behind the current stage is a no-op.
func (h *Handler) advanceTo(rec *models.ApplicationRecord, target models.Stage) {
	if target.Order() <= rec.Stage.Order() {
		return
	}
	if err := rec.AdvanceStage(target); err != nil {
		h.logger.Error("Stage advance refused", map[string]interface{}{
			"session_id": rec.SessionID,
			"from":       string(rec.Stage),
			"to":         string(target),
		})
	}
}
