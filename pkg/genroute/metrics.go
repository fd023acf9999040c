package genroute

import "time"

// Metrics defines the interface for tracking orchestration outcomes.
type Metrics interface {
	// RecordGeneration records a finished orchestration with its outcome:
	// the winning provider id, "cache", "fallback", or "exhausted".
	RecordGeneration(mode Mode, outcome string)

	// RecordProviderCall records the duration and result of one provider
	// invocation attempt.
	RecordProviderCall(provider string, mode Mode, duration time.Duration, err error)

	// RecordDebit records a credit charge against a provider.
	RecordDebit(provider string, amount int)

	// RecordCacheHit records a fingerprint cache hit.
	RecordCacheHit()

	// RecordCacheMiss records a fingerprint cache miss.
	RecordCacheMiss()

	// RecordEviction records record-store evictions under capacity pressure.
	RecordEviction(count int)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordGeneration(mode Mode, outcome string)                                  {}
func (n *NoopMetrics) RecordProviderCall(provider string, mode Mode, d time.Duration, err error)   {}
func (n *NoopMetrics) RecordDebit(provider string, amount int)                                     {}
func (n *NoopMetrics) RecordCacheHit()                                                             {}
func (n *NoopMetrics) RecordCacheMiss()                                                            {}
func (n *NoopMetrics) RecordEviction(count int)                                                    {}
