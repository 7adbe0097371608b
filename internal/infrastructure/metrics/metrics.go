// Package metrics exposes Prometheus counters for the onboarding flows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns a private registry so tests can build as many as they like
type Recorder struct {
	registry *prometheus.Registry

	codesIssued      *prometheus.CounterVec
	codeVerification *prometheus.CounterVec
	lockouts         prometheus.Counter
	registrations    *prometheus.CounterVec
	referrals        *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates a Recorder with process and Go runtime collectors attached
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		codesIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veloop",
			Name:      "otp_requests_total",
			Help:      "Verification code requests by purpose and outcome.",
		}, []string{"purpose", "outcome"}),
		codeVerification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veloop",
			Name:      "otp_verifications_total",
			Help:      "Verification code checks by outcome.",
		}, []string{"outcome"}),
		lockouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veloop",
			Name:      "address_lockouts_total",
			Help:      "Addresses locked after repeated wrong codes.",
		}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veloop",
			Name:      "registrations_total",
			Help:      "Accounts created by provider.",
		}, []string{"provider"}),
		referrals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veloop",
			Name:      "referrals_total",
			Help:      "Referral attempts by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veloop",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "veloop",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.codesIssued,
		r.codeVerification,
		r.lockouts,
		r.registrations,
		r.referrals,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// CodeRequested counts a code request; outcome is issued, rate_limited,
// locked or dispatch_failed
func (r *Recorder) CodeRequested(purpose, outcome string) {
	r.codesIssued.WithLabelValues(purpose, outcome).Inc()
}

// CodeVerified counts a verification check
func (r *Recorder) CodeVerified(outcome string) {
	r.codeVerification.WithLabelValues(outcome).Inc()
}

// AddressLocked counts a lockout
func (r *Recorder) AddressLocked() {
	r.lockouts.Inc()
}

// AccountRegistered counts a new account
func (r *Recorder) AccountRegistered(provider string) {
	r.registrations.WithLabelValues(provider).Inc()
}

// Referral counts a referral outcome
func (r *Recorder) Referral(outcome string) {
	r.referrals.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request
func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
