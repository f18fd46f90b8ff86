// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Auth failure reasons reported by the auth gate.
const (
	ReasonMissingToken = "missing_token"
	ReasonInvalidToken = "invalid_token"
	ReasonUnknownUser  = "unknown_user"
)

// Login outcomes.
const (
	LoginSuccess = "success"
	LoginFailure = "failure"
)

// Recorder captures metric events for the application.
// The production implementation is the Prometheus Collector.
type Recorder interface {
	// Account metrics
	IncSignup()
	IncLogin(result string) // result: "success" or "failure"
	IncAccountDeleted()

	// Auth gate metrics
	IncAuthFailure(reason string)
	IncIdentityCacheHit()
	IncIdentityCacheMiss()

	// Note metrics
	IncNoteCreated()
	IncNoteUpdated()
	IncNoteDeleted()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
