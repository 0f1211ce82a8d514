// internal/workflow/router.go
package workflow

import (
	"loan-desk/internal/models"
)

// ==========================================
// ROUTER (DISPATCH POLICY)
// ==========================================

// Route is the router's verdict for one loop iteration: either halt
// the step loop (optionally marking the conversation terminal) or
// dispatch to the named unit.
type Route struct {
	Halt     bool
	Terminal bool
	Unit     models.UnitName
}

// NextRoute is a deterministic function of the previous step's signal
// and the record's stage and status. Explicit delegation always wins;
// without one, a closed record in the closure stage is terminal and
// everything else returns to conversational triage with the master
// unit.
func NextRoute(sig Signal, rec *models.ApplicationRecord) Route {
	switch sig.Kind {
	case SignalAwaitInput:
		return Route{Halt: true}
	case SignalTerminal:
		return Route{Halt: true, Terminal: true}
	case SignalContinue:
		return Route{Unit: sig.Next}
	}

	if rec.Stage == models.StageClosure && rec.Status.Terminal() {
		return Route{Halt: true, Terminal: true}
	}
	return Route{Unit: models.UnitMaster}
}
