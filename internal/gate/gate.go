// Package gate decides which view a session resolves to: pending approval,
// an active user, or the master account.
package gate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/yukikurage/mayau-app/internal/models"
)

type State string

const (
	Unauthenticated State = "unauthenticated"
	PendingApproval State = "pending-approval"
	Active          State = "active"
	MasterActive    State = "master-active"
)

// Authenticated reports whether the state belongs to a signed-in session.
func (s State) Authenticated() bool {
	return s == PendingApproval || s == Active || s == MasterActive
}

// CanWrite reports whether the state grants access to shared records.
func (s State) CanWrite() bool {
	return s == Active || s == MasterActive
}

var ErrInvalidTransition = errors.New("invalid session transition")

// Event is an input to the machine.
type Event interface {
	event()
}

// SignedIn is a regular identity completing sign-in. Profile is nil when the
// profile did not exist yet.
type SignedIn struct {
	Profile *models.Profile
}

// MasterSignedIn is a successful master credential check.
type MasterSignedIn struct{}

// ProfileChanged is the session's own profile being written elsewhere.
type ProfileChanged struct {
	Profile *models.Profile
}

type SignedOut struct{}

func (SignedIn) event()       {}
func (MasterSignedIn) event() {}
func (ProfileChanged) event() {}
func (SignedOut) event()      {}

// Next returns the state reached from current on ev. A ProfileChanged that
// does not unlock anything leaves the state as is.
func Next(current State, ev Event) (State, error) {
	switch e := ev.(type) {
	case SignedIn:
		if current != Unauthenticated {
			break
		}
		if e.Profile != nil && e.Profile.Approved {
			return Active, nil
		}
		return PendingApproval, nil

	case MasterSignedIn:
		if current == Unauthenticated {
			return MasterActive, nil
		}

	case ProfileChanged:
		if !current.Authenticated() {
			break
		}
		if current == PendingApproval && e.Profile != nil && e.Profile.Approved {
			return Active, nil
		}
		return current, nil

	case SignedOut:
		if current.Authenticated() {
			return Unauthenticated, nil
		}
	}

	return current, fmt.Errorf("%w: %T from %s", ErrInvalidTransition, ev, current)
}

// Machine holds the current state of one session. It is safe for concurrent use.
type Machine struct {
	mu    sync.Mutex
	state State
}

func NewMachine() *Machine {
	return &Machine{state: Unauthenticated}
}

func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Apply feeds ev to the machine and reports whether the state changed.
func (m *Machine) Apply(ev Event) (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := Next(m.state, ev)
	if err != nil {
		return m.state, false, err
	}
	changed := next != m.state
	m.state = next
	return next, changed, nil
}
