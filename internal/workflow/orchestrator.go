// internal/workflow/orchestrator.go
package workflow

import (
	"context"
	"time"

	"loan-desk/internal/archive"
	"loan-desk/internal/common/errors"
	"loan-desk/internal/common/logger"
	"loan-desk/internal/common/metrics"
	"loan-desk/internal/models"
	"loan-desk/internal/session"
)

// ==========================================
// ORCHESTRATOR
// ==========================================

// TurnResult is the caller-facing outcome of processing one inbound
// message: the latest assistant reply plus the record's position in
// the pipeline.
type TurnResult struct {
	SessionID string        `json:"sessionId"`
	Reply     string        `json:"reply"`
	Stage     models.Stage  `json:"stage"`
	Status    models.Status `json:"status"`
	Steps     int           `json:"steps"`
}

// Orchestrator drives the step loop for each inbound message. One
// turn runs synchronously to completion under the session's lock;
// the record is persisted only after the whole turn succeeds, so a
// failed turn leaves the last committed record authoritative.
type Orchestrator struct {
	store    session.Store
	archiver archive.Archiver
	units    map[models.UnitName]Unit
	maxSteps int
	logger   logger.Logger
}

func NewOrchestrator(store session.Store, archiver archive.Archiver, maxSteps int, log logger.Logger, units ...Unit) *Orchestrator {
	byName := make(map[models.UnitName]Unit, len(units))
	for _, u := range units {
		byName[u.Name()] = u
	}
	if archiver == nil {
		archiver = archive.NoOpArchiver{}
	}
	if maxSteps <= 0 {
		maxSteps = 10
	}
	return &Orchestrator{
		store:    store,
		archiver: archiver,
		units:    byName,
		maxSteps: maxSteps,
		logger:   log,
	}
}

// StartSession creates a fresh record and runs the opening turn with
// no user message, producing the greeting. CustomerID may be empty
// for anonymous starts; the master unit then asks for identification.
func (o *Orchestrator) StartSession(ctx context.Context, sessionID, customerID string) (*TurnResult, error) {
	rec := models.NewRecord(sessionID)
	rec.CustomerID = customerID

	o.store.Lock(sessionID)
	defer o.store.Unlock(sessionID)

	if err := o.store.Create(ctx, rec); err != nil {
		return nil, err
	}
	metrics.ActiveSessions.Inc()

	return o.runTurn(ctx, rec)
}

// HandleMessage appends the user's text to the session's history and
// runs the step loop until a unit awaits input or the conversation
// closes.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, text string) (*TurnResult, error) {
	o.store.Lock(sessionID)
	defer o.store.Unlock(sessionID)

	rec, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rec.AppendUser(text)

	return o.runTurn(ctx, rec)
}

// Record returns the current record for a session without advancing it.
func (o *Orchestrator) Record(ctx context.Context, sessionID string) (*models.ApplicationRecord, error) {
	return o.store.Get(ctx, sessionID)
}

func (o *Orchestrator) runTurn(ctx context.Context, rec *models.ApplicationRecord) (*TurnResult, error) {
	sig := None()
	steps := 0
	terminal := false
	alreadyClosed := rec.Stage == models.StageClosure && rec.Status.Terminal()

	for {
		route := NextRoute(sig, rec)
		if route.Halt {
			terminal = route.Terminal
			break
		}

		if steps >= o.maxSteps {
			metrics.ConversationTurnsTotal.WithLabelValues("step_limit").Inc()
			o.logger.Error("Step loop exceeded iteration cap", map[string]interface{}{
				"session_id": rec.SessionID,
				"max_steps":  o.maxSteps,
				"stage":      string(rec.Stage),
			})
			return nil, errors.NewStepLimitExceededError(rec.SessionID, o.maxSteps)
		}

		unit, ok := o.units[route.Unit]
		if !ok {
			return nil, errors.NewInvariantViolationError("no unit registered for " + string(route.Unit))
		}

		next, err := o.dispatch(ctx, unit, rec)
		if err != nil {
			metrics.ConversationTurnsTotal.WithLabelValues("error").Inc()
			return nil, err
		}

		rec = next.rec
		sig = next.sig
		steps++
	}

	if err := o.store.Replace(ctx, rec); err != nil {
		return nil, err
	}

	// Messages to a session that was closed before this turn still
	// terminate, but the close-out side effects ran on the turn that
	// closed it: the gauge drops once and the archive holds one
	// document per conversation.
	if terminal && !alreadyClosed {
		metrics.ActiveSessions.Dec()
		// Archive failures must never fail the turn. The committed
		// record is the source of truth either way.
		if err := o.archiver.ArchiveConversation(ctx, rec); err != nil {
			o.logger.Warn("Skipping conversation archive after write failure", map[string]interface{}{
				"session_id": rec.SessionID,
			})
		}
	}

	metrics.StepsPerTurn.Observe(float64(steps))
	metrics.ConversationTurnsTotal.WithLabelValues(turnOutcome(rec, terminal)).Inc()

	reply := ""
	if last := rec.LastMessage(); last != nil && last.Role == models.RoleAssistant {
		reply = last.Content
	}

	return &TurnResult{
		SessionID: rec.SessionID,
		Reply:     reply,
		Stage:     rec.Stage,
		Status:    rec.Status,
		Steps:     steps,
	}, nil
}

type stepOutcome struct {
	rec *models.ApplicationRecord
	sig Signal
}

// dispatch runs one unit step and enforces the cross-step invariants:
// the stage never regresses, history never shrinks, and a closed
// status never changes again.
func (o *Orchestrator) dispatch(ctx context.Context, unit Unit, rec *models.ApplicationRecord) (*stepOutcome, error) {
	start := time.Now()
	next, sig, err := unit.Step(ctx, rec)
	metrics.StepDuration.WithLabelValues(string(unit.Name())).Observe(time.Since(start).Seconds())
	metrics.ConversationStepsTotal.WithLabelValues(string(unit.Name())).Inc()

	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, errors.NewInvariantViolationError(string(unit.Name()) + " returned a nil record")
	}
	if !rec.Stage.CanTransition(next.Stage) {
		return nil, errors.NewStageRegressionError(string(rec.Stage), string(next.Stage))
	}
	if len(next.History) < len(rec.History) {
		return nil, errors.NewInvariantViolationError(string(unit.Name()) + " shrank the history")
	}
	if rec.Status.Terminal() && next.Status != rec.Status {
		return nil, errors.NewInvariantViolationError(string(unit.Name()) + " changed a closed status")
	}

	o.logger.Debug("Decision unit step completed", map[string]interface{}{
		"session_id": rec.SessionID,
		"unit":       string(unit.Name()),
		"signal":     string(sig.Kind),
		"stage":      string(next.Stage),
	})

	return &stepOutcome{rec: next, sig: sig}, nil
}

func turnOutcome(rec *models.ApplicationRecord, terminal bool) string {
	if !terminal {
		return "await_input"
	}
	return string(rec.Status)
}
