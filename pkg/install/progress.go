package install

// Phase is one step of the fixed external-process sequence.
type Phase int

const (
	PhaseConfigure Phase = iota
	PhaseEncryptionSetup
	PhaseRender
	PhaseHardwareScan
	PhaseInstall
)

func (p Phase) String() string {
	switch p {
	case PhaseConfigure:
		return "configure"
	case PhaseEncryptionSetup:
		return "encryption-setup"
	case PhaseRender:
		return "render"
	case PhaseHardwareScan:
		return "hardware-scan"
	case PhaseInstall:
		return "install"
	default:
		return "unknown"
	}
}

// fraction is the coarse, monotonic checkpoint reported when the phase
// starts. Informational only; nothing branches on it.
func (p Phase) fraction() float64 {
	switch p {
	case PhaseConfigure:
		return 0.1
	case PhaseEncryptionSetup:
		return 0.15
	case PhaseRender:
		return 0.18
	case PhaseHardwareScan:
		return 0.25
	case PhaseInstall:
		return 0.3
	default:
		return 0
	}
}

// ProgressReporter receives a callback at each phase boundary. The host
// wires its own progress surface here instead of polling shared state.
type ProgressReporter interface {
	Progress(phase Phase, fraction float64)
}

// NopProgress discards progress callbacks.
type NopProgress struct{}

func (NopProgress) Progress(Phase, float64) {}
