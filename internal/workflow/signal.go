// internal/workflow/signal.go
package workflow

import (
	"loan-desk/internal/models"
)

// ==========================================
// ROUTING SIGNALS
// ==========================================

// SignalKind enumerates the routing instructions a decision unit may emit
// after a step. The router consumes exactly one signal per iteration.
type SignalKind string

const (
	// SignalNone means the unit expressed no routing preference. The
	// router falls back to its stage-based policy.
	SignalNone SignalKind = "none"

	// SignalContinue delegates to a named unit on the next iteration.
	SignalContinue SignalKind = "continue_with"

	// SignalAwaitInput ends the current turn and waits for the next
	// user message.
	SignalAwaitInput SignalKind = "await_user_input"

	// SignalTerminal ends the conversation permanently.
	SignalTerminal SignalKind = "terminal"
)

// Signal is the tagged routing instruction returned by a unit's Step.
// Next is only meaningful when Kind is SignalContinue.
type Signal struct {
	Kind SignalKind
	Next models.UnitName
}

func None() Signal {
	return Signal{Kind: SignalNone}
}

func ContinueWith(next models.UnitName) Signal {
	return Signal{Kind: SignalContinue, Next: next}
}

func AwaitInput() Signal {
	return Signal{Kind: SignalAwaitInput}
}

func Terminal() Signal {
	return Signal{Kind: SignalTerminal}
}
