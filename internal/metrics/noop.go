package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncSignup()                   {}
func (n *NoopRecorder) IncLogin(result string)       {}
func (n *NoopRecorder) IncAccountDeleted()           {}
func (n *NoopRecorder) IncAuthFailure(reason string) {}
func (n *NoopRecorder) IncIdentityCacheHit()         {}
func (n *NoopRecorder) IncIdentityCacheMiss()        {}
func (n *NoopRecorder) IncNoteCreated()              {}
func (n *NoopRecorder) IncNoteUpdated()              {}
func (n *NoopRecorder) IncNoteDeleted()              {}
