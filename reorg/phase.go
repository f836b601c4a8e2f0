package reorg

// Phase identifies where a run is in its lifecycle. A [Driver] moves
// strictly forward: Idle, Scanning, Processing, Finalizing, then one of
// the two terminal phases. Failed is reachable from any working phase;
// Done only from Finalizing.
type Phase string

const (
	PhaseIdle       Phase = "IDLE"
	PhaseScanning   Phase = "SCANNING"
	PhaseProcessing Phase = "PROCESSING"
	PhaseFinalizing Phase = "FINALIZING"
	PhaseDone       Phase = "DONE"
	PhaseFailed     Phase = "FAILED"
)

// IsTerminal reports whether the phase is final for the run.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

func allowedPhase(from, to Phase) bool {
	switch from {
	case PhaseIdle:
		return to == PhaseScanning
	case PhaseScanning:
		return to == PhaseProcessing || to == PhaseFailed
	case PhaseProcessing:
		return to == PhaseFinalizing || to == PhaseFailed
	case PhaseFinalizing:
		return to == PhaseDone || to == PhaseFailed
	default:
		return false
	}
}
