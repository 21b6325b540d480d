package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/waforensic/internal/bus"
)

// Stage is a step of the case pipeline.
type Stage string

const (
	Idle       Stage = "IDLE"
	Acquiring  Stage = "ACQUIRING"
	Hashing    Stage = "HASHING"
	Decrypting Stage = "DECRYPTING"
	Parsing    Stage = "PARSING"
	Archiving  Stage = "ARCHIVING"
	Reporting  Stage = "REPORTING"
	Degraded   Stage = "DEGRADED"
	Done       Stage = "DONE"
	Failed     Stage = "FAILED"
)

// validTransitions defines allowed stage transitions. Hashing is re-entered
// after decryption to record the recovered database.
var validTransitions = map[Stage][]Stage{
	Idle:       {Acquiring, Hashing, Decrypting, Parsing, Failed},
	Acquiring:  {Hashing, Failed},
	Hashing:    {Decrypting, Parsing, Reporting, Degraded, Done, Failed},
	Decrypting: {Hashing, Parsing, Degraded, Done, Failed},
	Parsing:    {Archiving, Reporting, Degraded, Done, Failed},
	Archiving:  {Reporting, Degraded, Done, Failed},
	Reporting:  {Hashing, Degraded, Done, Failed},
	Degraded:   {Archiving, Reporting, Done, Failed},
	Done:       {Idle},
	Failed:     {Idle},
}

// Machine tracks and enforces pipeline stage transitions.
type Machine struct {
	mu      sync.RWMutex
	current Stage
	history []Stage
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Idle.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Idle,
		history: []Stage{Idle},
		bus:     b,
	}
}

// Current returns the current stage.
func (m *Machine) Current() Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// History returns every stage entered so far, starting with Idle.
func (m *Machine) History() []Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.history)
}

// Transition attempts to move to a new stage. Returns error if transition is invalid.
func (m *Machine) Transition(to Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.history = append(m.history, to)
	m.bus.Emit(bus.KindStageChanged, StageChange{From: from, To: to})
	return nil
}

// Terminal reports whether the pipeline has finished, successfully or not.
func (m *Machine) Terminal() bool {
	c := m.Current()
	return c == Done || c == Failed
}

// StageChange is the payload for stage change events.
type StageChange struct {
	From Stage
	To   Stage
}
