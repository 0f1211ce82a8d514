// internal/workflow/unit.go
package workflow

import (
	"context"

	"loan-desk/internal/models"
)

// ==========================================
// DECISION UNIT INTERFACE
// ==========================================

// Unit is the single capability every decision unit implements. Step
// receives the working record and returns an updated record plus a
// routing signal for the orchestrator.
//
// Contract:
//   - A step is atomic. On error the returned record must be the
//     untouched input, never a partially updated one. Units clone the
//     record before mutating it to guarantee this.
//   - A unit never calls another unit directly. All hand-offs flow
//     back through the router via the returned signal.
//   - Recoverable collaborator failures are converted into
//     conversational responses inside the unit. A non-nil error from
//     Step means an invariant was violated and aborts the turn.
type Unit interface {
	Name() models.UnitName
	Step(ctx context.Context, rec *models.ApplicationRecord) (*models.ApplicationRecord, Signal, error)
}
