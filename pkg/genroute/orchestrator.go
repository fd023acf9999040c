package genroute

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// attemptState enumerates the orchestration state machine. The fallback
// loop is written as explicit states rather than nested error handling so
// each transition is individually testable.
type attemptState int

const (
	stateTryingProvider attemptState = iota
	stateCacheHit
	stateSuccess
	stateExhausted
)

// Orchestrator ties the cache, ledger, registry, and record store together
// into the fallback-and-retry routing loop. One Orchestrator serves many
// concurrent requests; the cache and ledger are its only shared mutable
// state and are each internally synchronized.
type Orchestrator struct {
	storage Storage
	ledger  *Ledger
	records *Records

	registry        *Registry
	cache           ResultCache
	providerTimeout time.Duration
	logger          Logger
	metrics         Metrics

	// group collapses concurrent requests with the same fingerprint into
	// a single provider call, so a burst of identical requests is charged
	// at most once.
	group singleflight.Group
}

// New creates an orchestrator with the given storage and configuration.
func New(storage Storage, config Config) (*Orchestrator, error) {
	if storage == nil {
		return nil, errors.New("storage is required")
	}

	// Set defaults
	if config.Registry == nil {
		config.Registry = DefaultRegistry()
	}
	if config.Cache == nil {
		config.Cache = NewLRUResultCache(0, 0)
	}
	if config.ProviderTimeout == 0 {
		config.ProviderTimeout = 60 * time.Second
	}
	if config.Logger == nil {
		config.Logger = &NoopLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = &NoopMetrics{}
	}

	return &Orchestrator{
		storage:         storage,
		ledger:          NewLedger(storage, config.Logger, config.Metrics),
		records:         NewRecords(storage, config.Logger, config.Metrics, config.HistoryWindowDays, config.EvictBatch),
		registry:        config.Registry,
		cache:           config.Cache,
		providerTimeout: config.ProviderTimeout,
		logger:          config.Logger,
		metrics:         config.Metrics,
	}, nil
}

// Ledger exposes the credit ledger for admin surfaces.
func (o *Orchestrator) Ledger() *Ledger { return o.ledger }

// Records exposes the generation record store.
func (o *Orchestrator) Records() *Records { return o.records }

// Registry exposes the provider registry.
func (o *Orchestrator) Registry() *Registry { return o.registry }

// Execute runs one generation request through the routing loop.
//
// A cache hit returns immediately and is free: no credit deduction, no log
// entry. On a miss providers are tried in strict priority order, skipping
// any the user cannot afford and any that fail, time out, or panic. The
// first success is charged exactly once, logged, cached, and recorded.
// When every provider is exhausted the fallback value is returned if one
// was supplied (degraded, uncharged, unlogged); otherwise the call fails
// with ErrAllProvidersExhausted.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Result, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, req.Mode)
	}
	if req.UserID == "" || req.Invoke == nil {
		return nil, ErrInvalidRequest
	}

	fp := Fingerprint(req.Mode, req.CacheKeyInputs)

	v, err, shared := o.group.Do(fp, func() (interface{}, error) {
		return o.run(ctx, fp, req)
	})
	if err != nil {
		return nil, err
	}
	res := v.(*Result)
	if shared {
		// Followers get their own copy of the winner's result.
		res = res.clone()
	}
	return res, nil
}

// run drives the state machine for a single deduplicated request.
func (o *Orchestrator) run(ctx context.Context, fp string, req Request) (*Result, error) {
	providers := o.registry.ForMode(req.Mode)

	var (
		state  attemptState
		idx    int
		result *Result
		winner Provider
	)

	if cached, ok := o.cache.Get(fp); ok {
		state = stateCacheHit
		result = cached
	} else {
		o.metrics.RecordCacheMiss()
		state = stateTryingProvider
	}

	for {
		switch state {
		case stateCacheHit:
			o.metrics.RecordCacheHit()
			o.metrics.RecordGeneration(req.Mode, "cache")
			o.logger.Debug("cache hit",
				Field{"userId", req.UserID},
				Field{"mode", req.Mode},
				Field{"fingerprint", fp},
			)
			result.Provenance = "cache"
			return result, nil

		case stateTryingProvider:
			if idx >= len(providers) {
				state = stateExhausted
				continue
			}
			p := providers[idx]

			if !o.ledger.CanAfford(ctx, req.UserID, p.Cost) {
				o.logger.Debug("provider skipped, not affordable",
					Field{"userId", req.UserID},
					Field{"provider", p.ID},
					Field{"cost", p.Cost},
				)
				idx++
				continue
			}

			res, err := o.invoke(ctx, p, req)
			if err != nil {
				o.logger.Warn("provider attempt failed",
					Field{"userId", req.UserID},
					Field{"provider", p.ID},
					Field{"mode", req.Mode},
					Field{"error", err},
				)
				if ctx.Err() != nil {
					// Overall request deadline gone; stop burning providers.
					state = stateExhausted
					continue
				}
				idx++
				continue
			}

			result = res
			winner = p
			state = stateSuccess

		case stateSuccess:
			if _, err := o.ledger.Consume(ctx, req.UserID, winner, req.Mode); err != nil {
				// Lost the debit race (or the user vanished mid-flight).
				// The result is discarded uncharged and the loop moves on.
				o.logger.Warn("post-success debit failed, advancing",
					Field{"userId", req.UserID},
					Field{"provider", winner.ID},
					Field{"error", err},
				)
				idx++
				state = stateTryingProvider
				continue
			}

			o.cache.Put(fp, result)
			o.persistRecord(ctx, req, result, StatusCompleted)
			o.metrics.RecordGeneration(req.Mode, winner.ID)
			o.logger.Info("generation succeeded",
				Field{"userId", req.UserID},
				Field{"provider", winner.ID},
				Field{"mode", req.Mode},
			)
			result.Provenance = winner.ID
			return result, nil

		case stateExhausted:
			if req.Fallback != nil {
				o.persistRecord(ctx, req, req.Fallback, StatusCompleted)
				o.metrics.RecordGeneration(req.Mode, "fallback")
				o.logger.Info("all providers exhausted, using fallback value",
					Field{"userId", req.UserID},
					Field{"mode", req.Mode},
				)
				fb := req.Fallback.clone()
				fb.Provenance = "fallback"
				return fb, nil
			}
			o.persistRecord(ctx, req, nil, StatusFailed)
			o.metrics.RecordGeneration(req.Mode, "exhausted")
			return nil, fmt.Errorf("%w: mode=%s providers=%d", ErrAllProvidersExhausted, req.Mode, len(providers))
		}
	}
}

// invoke runs one provider attempt under the per-provider timeout. Panics
// and timeouts are normalized into ErrProviderUnavailable like any other
// attempt failure.
func (o *Orchestrator) invoke(ctx context.Context, p Provider, req Request) (res *Result, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.providerTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrProviderUnavailable, p.ID, r)
		}
		o.metrics.RecordProviderCall(p.ID, req.Mode, time.Since(start), err)
	}()

	res, err = req.Invoke(attemptCtx, p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, p.ID, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%w: %s: empty response", ErrProviderUnavailable, p.ID)
	}
	return res, nil
}

// persistRecord writes the generation record for modes that produce an
// artifact. Record failures degrade to a warning; they never fail the
// request that produced the artifact.
func (o *Orchestrator) persistRecord(ctx context.Context, req Request, res *Result, status RecordStatus) {
	recType := req.Mode.RecordType()
	if recType == "" {
		return
	}

	rec := &GenerationRecord{
		UserID:   req.UserID,
		Type:     recType,
		Prompt:   req.Prompt,
		Status:   status,
		Settings: req.Settings,
	}
	if res != nil {
		if len(res.URLs) > 0 {
			rec.URL = res.URLs[0]
		}
		if len(res.URLs) > 1 {
			rec.ThumbnailURL = res.URLs[1]
		}
		rec.SEO = res.SEO
	}
	if status == StatusCompleted && rec.URL == "" {
		// COMPLETED implies a non-empty artifact reference.
		rec.Status = StatusFailed
	}

	if err := o.records.Create(ctx, rec); err != nil {
		o.logger.Warn("generation record write failed",
			Field{"userId", req.UserID},
			Field{"type", recType},
			Field{"error", err},
		)
	}
}
