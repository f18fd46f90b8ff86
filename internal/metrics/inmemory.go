package metrics

import "sync/atomic"

// Snapshot captures current in-memory counters.
type Snapshot struct {
	Signups           uint64
	LoginSuccesses    uint64
	LoginFailures     uint64
	AccountsDeleted   uint64
	AuthFailures      map[string]uint64
	IdentityCacheHits uint64
	IdentityCacheMiss uint64
	NotesCreated      uint64
	NotesUpdated      uint64
	NotesDeleted      uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	signups           atomic.Uint64
	loginSuccesses    atomic.Uint64
	loginFailures     atomic.Uint64
	accountsDeleted   atomic.Uint64
	missingToken      atomic.Uint64
	invalidToken      atomic.Uint64
	unknownUser       atomic.Uint64
	identityCacheHit  atomic.Uint64
	identityCacheMiss atomic.Uint64
	notesCreated      atomic.Uint64
	notesUpdated      atomic.Uint64
	notesDeleted      atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		Signups:         m.signups.Load(),
		LoginSuccesses:  m.loginSuccesses.Load(),
		LoginFailures:   m.loginFailures.Load(),
		AccountsDeleted: m.accountsDeleted.Load(),
		AuthFailures: map[string]uint64{
			ReasonMissingToken: m.missingToken.Load(),
			ReasonInvalidToken: m.invalidToken.Load(),
			ReasonUnknownUser:  m.unknownUser.Load(),
		},
		IdentityCacheHits: m.identityCacheHit.Load(),
		IdentityCacheMiss: m.identityCacheMiss.Load(),
		NotesCreated:      m.notesCreated.Load(),
		NotesUpdated:      m.notesUpdated.Load(),
		NotesDeleted:      m.notesDeleted.Load(),
	}
}

// IncSignup increments the signup counter.
func (m *InMemoryRecorder) IncSignup() { m.signups.Add(1) }

// IncLogin increments the login counter for the given result.
func (m *InMemoryRecorder) IncLogin(result string) {
	if result == LoginSuccess {
		m.loginSuccesses.Add(1)
		return
	}
	m.loginFailures.Add(1)
}

// IncAccountDeleted increments the account deletion counter.
func (m *InMemoryRecorder) IncAccountDeleted() { m.accountsDeleted.Add(1) }

// IncAuthFailure increments the auth failure counter for the reason.
// Unknown reasons are ignored.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	switch reason {
	case ReasonMissingToken:
		m.missingToken.Add(1)
	case ReasonInvalidToken:
		m.invalidToken.Add(1)
	case ReasonUnknownUser:
		m.unknownUser.Add(1)
	}
}

// IncIdentityCacheHit increments the identity cache hit counter.
func (m *InMemoryRecorder) IncIdentityCacheHit() { m.identityCacheHit.Add(1) }

// IncIdentityCacheMiss increments the identity cache miss counter.
func (m *InMemoryRecorder) IncIdentityCacheMiss() { m.identityCacheMiss.Add(1) }

// IncNoteCreated increments the note creation counter.
func (m *InMemoryRecorder) IncNoteCreated() { m.notesCreated.Add(1) }

// IncNoteUpdated increments the note update counter.
func (m *InMemoryRecorder) IncNoteUpdated() { m.notesUpdated.Add(1) }

// IncNoteDeleted increments the note deletion counter.
func (m *InMemoryRecorder) IncNoteDeleted() { m.notesDeleted.Add(1) }
