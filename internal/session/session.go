package session

import (
	"log/slog"
	"sync"

	"github.com/yukikurage/mayau-app/internal/gate"
	"github.com/yukikurage/mayau-app/internal/models"
	"github.com/yukikurage/mayau-app/internal/realtime"
)

// Session is one signed-in identity. Updates delivers the latest state
// whenever it changes; a slow reader only ever sees the newest value.
type Session struct {
	identity models.Identity
	machine  *gate.Machine
	sub      realtime.Subscription

	mu      sync.Mutex
	profile models.Profile
	updates chan gate.State
	closed  bool

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(identity models.Identity, profile *models.Profile, sub realtime.Subscription) *Session {
	return &Session{
		identity: identity,
		machine:  gate.NewMachine(),
		sub:      sub,
		profile:  *profile,
		updates:  make(chan gate.State, 1),
		done:     make(chan struct{}),
	}
}

func (s *Session) Identity() models.Identity {
	return s.identity
}

// Profile returns a copy of the most recently seen profile.
func (s *Session) Profile() models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *Session) State() gate.State {
	return s.machine.Current()
}

// Updates is closed after SignOut.
func (s *Session) Updates() <-chan gate.State {
	return s.updates
}

// Done is closed once the session has been signed out.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// SignOut releases the profile subscription and moves the session to
// unauthenticated. It is safe to call more than once.
func (s *Session) SignOut() {
	s.closeOnce.Do(func() {
		if _, changed, err := s.machine.Apply(gate.SignedOut{}); err == nil && changed {
			s.notify(gate.Unauthenticated)
		}

		s.mu.Lock()
		s.closed = true
		close(s.updates)
		s.mu.Unlock()

		if s.sub != nil {
			if err := s.sub.Close(); err != nil {
				slog.Warn("failed to close profile subscription", "error", err, "identity_id", s.identity.ID)
			}
		}
		close(s.done)
	})
}

// Close is SignOut for callers that only release resources.
func (s *Session) Close() error {
	s.SignOut()
	return nil
}

func (s *Session) watch() {
	for ev := range s.sub.Events() {
		switch ev.Kind {
		case realtime.KindProfileCreated, realtime.KindProfileUpdated:
		default:
			continue
		}

		var profile models.Profile
		if err := ev.Decode(&profile); err != nil {
			slog.Warn("dropping malformed profile event", "error", err, "identity_id", s.identity.ID)
			continue
		}
		if profile.IdentityID != s.identity.ID {
			continue
		}

		s.mu.Lock()
		s.profile = profile
		s.mu.Unlock()

		state, changed, err := s.machine.Apply(gate.ProfileChanged{Profile: &profile})
		if err != nil {
			// Signed out while the event was in flight.
			return
		}
		if changed {
			slog.Info("session state changed", "identity_id", s.identity.ID, "state", state)
			s.notify(state)
		}
	}
}

func (s *Session) notify(state gate.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case <-s.updates:
	default:
	}
	s.updates <- state
}
