// Predikt - Online Model Serving and Personalization Engine
// Copyright 2026 Predikt Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/predikt-io/predikt

// Package engine orchestrates online model serving: scoring (user, item)
// pairs against per-user weight vectors and folding feedback observations
// back into those weights with an incremental regularized least-squares
// update.
//
// An Engine is parameterized by the item type of its model. Construction
// takes a Definition bundling the model's capabilities (feature extraction,
// fallback vectors, regularization) and wires up the feature cache, the
// persistent weight and observation tables, and the solver. Predictions
// never fail on degraded inputs: extraction failures fall back to the
// model's default feature vector and missing or corrupt weights fall back
// to the global average vector. Feedback updates persist the observation
// before solving, so a solve or write failure never loses the observation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/predikt-io/predikt/internal/cache"
	"github.com/predikt-io/predikt/internal/logging"
	"github.com/predikt-io/predikt/internal/metrics"
	"github.com/predikt-io/predikt/internal/solver"
	"github.com/predikt-io/predikt/internal/store"
)

var (
	// ErrEngineClosed is returned by operations issued after Close.
	ErrEngineClosed = errors.New("engine closed")
)

// Observation is one persisted feedback record: an item and the score the
// user assigned to it. A user's observation set holds at most one record
// per item; repeated feedback overwrites the score.
type Observation[T comparable] struct {
	Item  T       `json:"item"`
	Score float64 `json:"score"`
}

// RetrainFunc triggers a full offline retraining run. Implementations
// typically enqueue a job or call out to the training system; the engine
// only cares about success or failure.
type RetrainFunc func(ctx context.Context) error

// Definition bundles everything model-specific the engine needs. All
// function fields must be safe for concurrent use.
type Definition[T comparable] struct {
	// Name identifies the model in logs, metrics, and the registry.
	Name string

	// NumFeatures is the feature dimension k shared by feature vectors,
	// weight vectors, and the solver.
	NumFeatures int

	// Lambda is the regularization constant, shared by convention with the
	// offline training job that produced AverageWeights.
	Lambda float64

	// AverageWeights is the global average weight vector used for users with
	// no (or unreadable) personal weights. Must have length NumFeatures; nil
	// means all zeros.
	AverageWeights []float64

	// DefaultFeatures is the fallback feature vector used when extraction
	// fails. Must have length NumFeatures; nil means all zeros.
	DefaultFeatures []float64

	// ComputeFeatures derives the feature vector for an item. It may be
	// expensive; results are cached by item value.
	ComputeFeatures func(item T) ([]float64, error)

	// DecodeItem parses an item from its request wire form. Required only
	// when the engine is exposed through the raw Model interface.
	DecodeItem func(data []byte) (T, error)

	// Retrain triggers a full offline retraining run. Optional.
	Retrain RetrainFunc
}

func (d *Definition[T]) validate() error {
	if d.Name == "" {
		return errors.New("engine: model name must not be empty")
	}
	if d.NumFeatures <= 0 {
		return fmt.Errorf("engine: model %s: NumFeatures must be positive, got %d", d.Name, d.NumFeatures)
	}
	if d.Lambda < 0 {
		return fmt.Errorf("engine: model %s: Lambda must not be negative, got %f", d.Name, d.Lambda)
	}
	if d.ComputeFeatures == nil {
		return fmt.Errorf("engine: model %s: ComputeFeatures is required", d.Name)
	}
	if d.AverageWeights != nil && len(d.AverageWeights) != d.NumFeatures {
		return fmt.Errorf("engine: model %s: AverageWeights has length %d, want %d", d.Name, len(d.AverageWeights), d.NumFeatures)
	}
	if d.DefaultFeatures != nil && len(d.DefaultFeatures) != d.NumFeatures {
		return fmt.Errorf("engine: model %s: DefaultFeatures has length %d, want %d", d.Name, len(d.DefaultFeatures), d.NumFeatures)
	}
	return nil
}

// Config holds the per-engine runtime settings that are not model-specific.
type Config struct {
	// DataDir is the root directory for this engine's persistent tables.
	// The engine stores under DataDir/<model>/{weights,observations}.
	DataDir string

	// SyncWrites forces an fsync on every write.
	SyncWrites bool

	// CacheCapacity is the maximum number of cached feature vectors.
	CacheCapacity int

	// CacheShards is the feature cache shard count; must be a power of two.
	CacheShards int
}

// Option customizes an Engine at construction time.
type Option[T comparable] func(*Engine[T])

// WithStores injects pre-built weight and observation stores, bypassing the
// default BadgerDB tables. Used by tests and by callers that manage storage
// themselves; the engine still closes injected stores on Close.
func WithStores[T comparable](weights store.Store[[]float64], observations store.Store[[]Observation[T]]) Option[T] {
	return func(e *Engine[T]) {
		e.weights = weights
		e.observations = observations
	}
}

// WithLogger overrides the engine's logger.
func WithLogger[T comparable](log zerolog.Logger) Option[T] {
	return func(e *Engine[T]) { e.log = log }
}

// Engine serves predictions and feedback updates for one model.
//
// Predictions are lock-free reads. Feedback updates are serialized per user
// by an internal lock table, so concurrent updates for the same user apply
// one at a time while updates for different users proceed in parallel.
type Engine[T comparable] struct {
	def     Definition[T]
	cache   *cache.FeatureCache[T]
	solver  *solver.LeastSquares
	locks   *keyLock
	breaker *retrainBreaker
	log     zerolog.Logger
	closed  atomic.Bool

	weights      store.Store[[]float64]
	observations store.Store[[]Observation[T]]

	avgWeights      []float64
	defaultFeatures []float64
}

// New builds an engine for the given model definition. Unless stores are
// injected, it opens two BadgerDB tables under cfg.DataDir/<model>/; an
// open failure is fatal and returns an error.
func New[T comparable](def Definition[T], cfg Config, opts ...Option[T]) (*Engine[T], error) {
	if err := def.validate(); err != nil {
		return nil, err
	}

	ls, err := solver.NewLeastSquares(def.NumFeatures, def.Lambda)
	if err != nil {
		return nil, err
	}

	capacity := cfg.CacheCapacity
	if capacity <= 0 {
		capacity = 100_000
	}
	shards := cfg.CacheShards
	if shards <= 0 {
		shards = 64
	}
	fc, err := cache.New[T](capacity, shards)
	if err != nil {
		return nil, fmt.Errorf("engine: model %s: %w", def.Name, err)
	}

	e := &Engine[T]{
		def:             def,
		cache:           fc,
		solver:          ls,
		locks:           newKeyLock(),
		breaker:         newRetrainBreaker(def.Name),
		log:             logging.With("engine").With().Str("model", def.Name).Logger(),
		avgWeights:      paddedCopy(def.AverageWeights, def.NumFeatures),
		defaultFeatures: paddedCopy(def.DefaultFeatures, def.NumFeatures),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.weights == nil || e.observations == nil {
		if err := e.openStores(cfg); err != nil {
			return nil, err
		}
	}

	e.log.Info().
		Int("num_features", def.NumFeatures).
		Float64("lambda", def.Lambda).
		Int("cache_capacity", capacity).
		Msg("engine ready")
	return e, nil
}

func (e *Engine[T]) openStores(cfg Config) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("engine: model %s: data directory must not be empty", e.def.Name)
	}
	dir := filepath.Join(cfg.DataDir, e.def.Name)

	w, err := store.OpenBadger[[]float64](store.BadgerOptions{
		Dir:        dir,
		Table:      "weights",
		SyncWrites: cfg.SyncWrites,
	}, store.VectorCodec{})
	if err != nil {
		return fmt.Errorf("engine: model %s: open weights table: %w", e.def.Name, err)
	}

	o, err := store.OpenBadger[[]Observation[T]](store.BadgerOptions{
		Dir:        dir,
		Table:      "observations",
		SyncWrites: cfg.SyncWrites,
	}, store.JSONCodec[[]Observation[T]]{})
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("engine: model %s: open observations table: %w", e.def.Name, err)
	}

	e.weights = w
	e.observations = o
	return nil
}

// Name returns the model name.
func (e *Engine[T]) Name() string { return e.def.Name }

// NumFeatures returns the feature dimension k.
func (e *Engine[T]) NumFeatures() int { return e.def.NumFeatures }

// Predict scores one (user, item) pair. It always produces a score for
// well-formed input: feature extraction failures degrade to the default
// feature vector and missing or unreadable weights degrade to the global
// average, both logged and counted rather than surfaced as errors.
func (e *Engine[T]) Predict(ctx context.Context, userID int64, item T) (float64, error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}

	start := time.Now()
	defer func() {
		metrics.PredictionsTotal.WithLabelValues(e.def.Name).Inc()
		metrics.PredictionDuration.WithLabelValues(e.def.Name).Observe(time.Since(start).Seconds())
	}()

	f := e.resolveFeatures(item)
	w := e.userWeights(ctx, userID)
	return floats.Dot(f, w), nil
}

// resolveFeatures returns the feature vector for item: cached if available,
// freshly extracted otherwise. A failed or malformed extraction yields the
// default vector, which is never cached so a later retry can succeed.
func (e *Engine[T]) resolveFeatures(item T) []float64 {
	if f, ok := e.cache.Get(item); ok {
		metrics.FeatureCacheHits.WithLabelValues(e.def.Name).Inc()
		return f
	}
	metrics.FeatureCacheMisses.WithLabelValues(e.def.Name).Inc()

	f, err := e.def.ComputeFeatures(item)
	if err != nil {
		metrics.ExtractionFailuresTotal.WithLabelValues(e.def.Name).Inc()
		e.log.Warn().Err(err).Any("item", item).Msg("feature extraction failed, using default features")
		return e.defaultFeatureVector()
	}
	if len(f) != e.def.NumFeatures {
		metrics.ExtractionFailuresTotal.WithLabelValues(e.def.Name).Inc()
		e.log.Error().
			Any("item", item).
			Int("got", len(f)).
			Int("want", e.def.NumFeatures).
			Msg("extractor returned wrong feature dimension, using default features")
		return e.defaultFeatureVector()
	}

	e.cache.Add(item, f)
	return f
}

// userWeights returns the weight vector for userID, falling back to the
// global average on absence, corruption, or any read failure. Serving keeps
// going even when storage does not.
func (e *Engine[T]) userWeights(ctx context.Context, userID int64) []float64 {
	w, err := e.weights.Get(ctx, userID)
	switch {
	case err == nil:
		if len(w) != e.def.NumFeatures {
			metrics.CorruptRecordsTotal.WithLabelValues(e.def.Name, "weights").Inc()
			e.log.Error().
				Int64("user_id", userID).
				Int("got", len(w)).
				Int("want", e.def.NumFeatures).
				Msg("stored weight vector has wrong dimension, using average weights")
			return e.averageWeightVector()
		}
		return w

	case errors.Is(err, store.ErrNotFound):
		metrics.ColdStartFallbacksTotal.WithLabelValues(e.def.Name).Inc()
		return e.averageWeightVector()

	case errors.Is(err, store.ErrCorruptRecord):
		metrics.CorruptRecordsTotal.WithLabelValues(e.def.Name, "weights").Inc()
		e.log.Error().Err(err).Int64("user_id", userID).Msg("corrupt weight record, using average weights")
		return e.averageWeightVector()

	default:
		e.log.Warn().Err(err).Int64("user_id", userID).Msg("weight read failed, using average weights")
		return e.averageWeightVector()
	}
}

// AddObservation records feedback for one (user, item) pair and recomputes
// the user's weight vector from the full updated observation set. Updates
// for the same user are serialized; repeating an identical observation is
// idempotent with respect to the resulting weights.
//
// The observation set is persisted before the solve runs. A solve or weight
// write failure therefore leaves the observation durable and the previous
// weights in place; the next successful update repairs the weights.
func (e *Engine[T]) AddObservation(ctx context.Context, userID int64, item T, score float64) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}

	start := time.Now()
	defer func() {
		metrics.ObservationDuration.WithLabelValues(e.def.Name).Observe(time.Since(start).Seconds())
	}()

	unlock := e.locks.lock(userID)
	defer unlock()

	obs, err := e.loadObservations(ctx, userID)
	if err != nil {
		return err
	}

	updated := upsertObservation(obs, item, score)

	if err := e.observations.Put(ctx, userID, updated); err != nil {
		return fmt.Errorf("engine: model %s: persist observations for user %d: %w", e.def.Name, userID, err)
	}
	metrics.ObservationsTotal.WithLabelValues(e.def.Name).Inc()

	features := make([][]float64, len(updated))
	scores := make([]float64, len(updated))
	for i, o := range updated {
		features[i] = e.resolveFeatures(o.Item)
		scores[i] = o.Score
	}

	solveStart := time.Now()
	w, err := e.solver.Solve(features, scores)
	metrics.SolverDuration.WithLabelValues(e.def.Name).Observe(time.Since(solveStart).Seconds())
	if err != nil {
		metrics.SolverFailuresTotal.WithLabelValues(e.def.Name).Inc()
		e.log.Error().Err(err).Int64("user_id", userID).Int("observations", len(updated)).Msg("weight solve failed")
		return fmt.Errorf("engine: model %s: solve weights for user %d: %w", e.def.Name, userID, err)
	}

	if err := e.weights.Put(ctx, userID, w); err != nil {
		return fmt.Errorf("engine: model %s: persist weights for user %d: %w", e.def.Name, userID, err)
	}

	e.log.Debug().
		Int64("user_id", userID).
		Int("observations", len(updated)).
		Msg("user weights updated")
	return nil
}

// loadObservations reads a user's observation set. Absence and corruption
// both yield an empty set (corruption is logged and counted); any other
// read failure aborts the update rather than silently discarding history.
func (e *Engine[T]) loadObservations(ctx context.Context, userID int64) ([]Observation[T], error) {
	obs, err := e.observations.Get(ctx, userID)
	switch {
	case err == nil:
		return obs, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, nil
	case errors.Is(err, store.ErrCorruptRecord):
		metrics.CorruptRecordsTotal.WithLabelValues(e.def.Name, "observations").Inc()
		e.log.Error().Err(err).Int64("user_id", userID).Msg("corrupt observation set, starting fresh")
		return nil, nil
	default:
		return nil, fmt.Errorf("engine: model %s: load observations for user %d: %w", e.def.Name, userID, err)
	}
}

// upsertObservation overwrites the score for item if present, otherwise
// appends. Insertion order is preserved so the persisted set is stable
// across identical update sequences.
func upsertObservation[T comparable](obs []Observation[T], item T, score float64) []Observation[T] {
	for i := range obs {
		if obs[i].Item == item {
			obs[i].Score = score
			return obs
		}
	}
	return append(obs, Observation[T]{Item: item, Score: score})
}

// ObservationCount returns the number of distinct items the user has rated.
func (e *Engine[T]) ObservationCount(ctx context.Context, userID int64) (int, error) {
	if e.closed.Load() {
		return 0, ErrEngineClosed
	}
	obs, err := e.loadObservations(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(obs), nil
}

// CacheStats returns the feature cache hit/miss counters.
func (e *Engine[T]) CacheStats() (hits, misses int64) {
	return e.cache.Stats()
}

// Close releases the engine's stores. Idempotent; in-flight operations may
// fail with store errors once closing begins.
func (e *Engine[T]) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	err := errors.Join(e.weights.Close(), e.observations.Close())
	if err != nil {
		return fmt.Errorf("engine: model %s: close stores: %w", e.def.Name, err)
	}
	e.log.Info().Msg("engine closed")
	return nil
}

func (e *Engine[T]) defaultFeatureVector() []float64 {
	out := make([]float64, len(e.defaultFeatures))
	copy(out, e.defaultFeatures)
	return out
}

func (e *Engine[T]) averageWeightVector() []float64 {
	out := make([]float64, len(e.avgWeights))
	copy(out, e.avgWeights)
	return out
}

// paddedCopy copies src, or returns a zero vector of length n when src is
// nil. Definitions keep ownership of their slices.
func paddedCopy(src []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, src)
	return out
}
