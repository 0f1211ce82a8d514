// internal/agents/verification/handler.go
package verification

import (
	"context"
	"regexp"

	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/models"
	"loan-desk/internal/notify"
	"loan-desk/internal/phrases"
	"loan-desk/internal/workflow"
)

// ==========================================
// IDENTITY VERIFICATION UNIT
// ==========================================

var reCode = regexp.MustCompile(`\b(\d{6})\b`)

// Handler runs the phone code challenge. It sends a one-time code on
// first invocation, checks the caller's answer on subsequent ones,
// and hands a verified record straight to underwriting. It never
// decides eligibility.
type Handler struct {
	notifier    *notify.Notifier
	composer    *phrases.Composer
	maxAttempts int
	logger      logger.Logger
}

func NewHandler(notifier *notify.Notifier, maxAttempts int, composer *phrases.Composer, log logger.Logger) *Handler {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Handler{
		notifier:    notifier,
		composer:    composer,
		maxAttempts: maxAttempts,
		logger: log.With(map[string]interface{}{
			"unit": string(models.UnitVerification),
		}),
	}
}

func (h *Handler) Name() models.UnitName {
	return models.UnitVerification
}

func (h *Handler) Step(ctx context.Context, rec *models.ApplicationRecord) (*models.ApplicationRecord, workflow.Signal, error) {
	next := rec.Clone()

	if next.PhoneVerified {
		// Already verified; move straight on.
		h.advance(next)
		return next, workflow.ContinueWith(models.UnitUnderwriting), nil
	}

	if next.Phone == "" {
		next.LastError = string(errors.ErrCodePreconditionMissing)
		next.AppendAssistant(models.UnitVerification, h.composer.CustomerNotFound())
		return next, workflow.AwaitInput(), nil
	}

	if !next.OTPSent {
		return h.sendCode(ctx, next)
	}

	last := next.LastUserMessage()
	if last != nil {
		if code := reCode.FindString(last.Content); code != "" {
			return h.checkCode(next, code)
		}
	}

	// A "send otp" or anything without a code while a challenge is
	// pending re-issues the code.
	return h.sendCode(ctx, next)
}

func (h *Handler) sendCode(ctx context.Context, rec *models.ApplicationRecord) (*models.ApplicationRecord, workflow.Signal, error) {
	code, err := h.notifier.SendOTP(ctx, rec.Phone)
	if err != nil {
		h.logger.Warn("Code delivery failed", map[string]interface{}{
			"session_id": rec.SessionID,
			"error":      err.Error(),
		})
		rec.LastError = string(errors.CodeOf(err))
		rec.AppendAssistant(models.UnitVerification, h.composer.Apology())
		return rec, workflow.AwaitInput(), nil
	}

	rec.ExpectedOTP = code
	rec.OTPSent = true
	rec.OTPAttempts = 0
	rec.AppendAssistant(models.UnitVerification, h.composer.OTPPrompt(rec.Phone))
	return rec, workflow.AwaitInput(), nil
}

func (h *Handler) checkCode(rec *models.ApplicationRecord, code string) (*models.ApplicationRecord, workflow.Signal, error) {
	if notify.CheckOTP(code, rec.ExpectedOTP) {
		rec.PhoneVerified = true
		rec.ExpectedOTP = ""
		rec.LastError = ""
		h.advance(rec)
		rec.AppendAssistant(models.UnitVerification, h.composer.VerificationComplete())
		return rec, workflow.ContinueWith(models.UnitUnderwriting), nil
	}

	rec.OTPAttempts++
	if rec.OTPAttempts >= h.maxAttempts {
		h.logger.Warn("Code challenge exhausted", map[string]interface{}{
			"session_id": rec.SessionID,
			"attempts":   rec.OTPAttempts,
		})
		rec.OTPSent = false
		rec.ExpectedOTP = ""
		rec.AppendAssistant(models.UnitVerification, h.composer.OTPExhausted())
		return rec, workflow.AwaitInput(), nil
	}

	rec.AppendAssistant(models.UnitVerification, h.composer.OTPRetry(h.maxAttempts-rec.OTPAttempts))
	return rec, workflow.AwaitInput(), nil
}

func (h *Handler) advance(rec *models.ApplicationRecord) {
	if rec.Stage.Order() < models.StageUnderwriting.Order() {
		if err := rec.AdvanceStage(models.StageUnderwriting); err != nil {
			h.logger.Error("Stage advance refused", map[string]interface{}{
				"session_id": rec.SessionID,
				"from":       string(rec.Stage),
			})
		}
	}
}
