package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = (*InMemoryRecorder)(nil)
)

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	signups         prometheus.Counter
	logins          *prometheus.CounterVec
	accountsDeleted prometheus.Counter
	authFailures    *prometheus.CounterVec
	identityCache   *prometheus.CounterVec
	notes           *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notekeep_signups_total",
			Help: "Total number of accounts created.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notekeep_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		accountsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notekeep_accounts_deleted_total",
			Help: "Total number of accounts deleted.",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notekeep_auth_failures_total",
			Help: "Requests rejected by the auth gate, by reason.",
		}, []string{"reason"}),
		identityCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notekeep_identity_cache_lookups_total",
			Help: "Identity cache lookups by result.",
		}, []string{"result"}),
		notes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notekeep_note_operations_total",
			Help: "Note mutations by operation.",
		}, []string{"operation"}),
	}

	reg.MustRegister(
		c.signups,
		c.logins,
		c.accountsDeleted,
		c.authFailures,
		c.identityCache,
		c.notes,
	)

	return c
}

// IncSignup records a created account.
func (c *Collector) IncSignup() { c.signups.Inc() }

// IncLogin records a login attempt.
func (c *Collector) IncLogin(result string) { c.logins.WithLabelValues(result).Inc() }

// IncAccountDeleted records a deleted account.
func (c *Collector) IncAccountDeleted() { c.accountsDeleted.Inc() }

// IncAuthFailure records a rejected request.
func (c *Collector) IncAuthFailure(reason string) { c.authFailures.WithLabelValues(reason).Inc() }

// IncIdentityCacheHit records an identity cache hit.
func (c *Collector) IncIdentityCacheHit() { c.identityCache.WithLabelValues("hit").Inc() }

// IncIdentityCacheMiss records an identity cache miss.
func (c *Collector) IncIdentityCacheMiss() { c.identityCache.WithLabelValues("miss").Inc() }

// IncNoteCreated records a created note.
func (c *Collector) IncNoteCreated() { c.notes.WithLabelValues("create").Inc() }

// IncNoteUpdated records an updated note.
func (c *Collector) IncNoteUpdated() { c.notes.WithLabelValues("update").Inc() }

// IncNoteDeleted records a deleted note.
func (c *Collector) IncNoteDeleted() { c.notes.WithLabelValues("delete").Inc() }

// Handler returns the scrape handler for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
