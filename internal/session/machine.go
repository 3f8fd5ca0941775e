// Package session owns the view state machine for the allocation portal.
//
// The portal cycles through three views: Upload (initial), Results, and
// Analytics. All state lives in a single State value owned by the Machine;
// every transition replaces it wholesale, so a (state, event) pair always
// maps to exactly one next state. The machine also enforces the two request
// lifecycle rules: at most one allocation request is in flight at a time,
// and a response that arrives after a reset is discarded rather than applied
// to state that has since moved on.
package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/smartalloc/portal/internal/model"
)

// View is the tag of the current view.
type View string

const (
	ViewUpload    View = "upload"
	ViewResults   View = "results"
	ViewAnalytics View = "analytics"
)

// ErrBusy is returned when a submission is attempted while another is
// outstanding.
var ErrBusy = errors.New("an allocation request is already in flight")

// State is the single source of truth for what is rendered. Batch is
// non-nil exactly when View is Results or Analytics.
type State struct {
	View  View
	Error string
	Batch *model.AllocationBatch
}

// Token identifies one outstanding submission. Generation implements
// stale-response suppression: a resolution whose generation no longer
// matches the machine's is ignored. RunID correlates log entries for the
// round.
type Token struct {
	Generation uint64
	RunID      uuid.UUID
}

// Machine sequences the portal's views in response to user actions and
// service outcomes. Safe for concurrent use; transitions are serialized.
type Machine struct {
	mu         sync.Mutex
	state      State
	busy       bool
	generation uint64
}

// New creates a machine in the Upload view.
func New() *Machine {
	return &Machine{state: State{View: ViewUpload}}
}

// State returns a snapshot of the current state. If a stale trigger has left
// the view on Results or Analytics without a batch, the snapshot
// self-corrects to Upload rather than rendering with absent data.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Batch == nil && m.state.View != ViewUpload {
		m.state = State{View: ViewUpload, Error: m.state.Error}
	}
	return m.state
}

// Busy reports whether a submission is outstanding.
func (m *Machine) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// Begin marks a submission as in flight and returns its token. It fails
// with ErrBusy while another submission is outstanding; the caller never
// issues the network call in that case.
func (m *Machine) Begin() (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.busy {
		return Token{}, ErrBusy
	}
	m.busy = true
	m.generation++
	return Token{Generation: m.generation, RunID: uuid.New()}, nil
}

// Resolve applies the outcome of the submission identified by tok. On
// success the machine moves to Results holding the batch; on failure it
// stays on Upload with the message stored. A resolution whose generation no
// longer matches the current one is discarded entirely and Resolve reports
// false; the busy flag is left alone because it belongs to whichever
// submission owns the current generation.
func (m *Machine) Resolve(tok Token, batch *model.AllocationBatch, errMsg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tok.Generation != m.generation {
		return false
	}
	m.busy = false

	if errMsg != "" || batch == nil {
		m.state = State{View: ViewUpload, Error: errMsg}
		return true
	}
	m.state = State{View: ViewResults, Batch: batch}
	return true
}

// ViewAnalytics moves from Results to Analytics. Without a batch the
// machine forces Upload instead.
func (m *Machine) ViewAnalytics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Batch == nil {
		m.state = State{View: ViewUpload}
		return
	}
	m.state = State{View: ViewAnalytics, Batch: m.state.Batch}
}

// Back moves from Analytics to Results, with the same self-correction.
func (m *Machine) Back() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Batch == nil {
		m.state = State{View: ViewUpload}
		return
	}
	m.state = State{View: ViewResults, Batch: m.state.Batch}
}

// Reset returns to Upload, discarding the batch and error. Bumping the
// generation makes any in-flight submission stale, so its eventual
// resolution is dropped instead of resurrecting discarded state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.generation++
	m.busy = false
	m.state = State{View: ViewUpload}
}
