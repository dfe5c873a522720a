// Package session holds the mutable training set behind an interactive
// regression view. Every mutation refits a fresh immutable gp.Model and
// publishes it atomically; readers predict against whichever model is
// current without taking the mutation lock.
package session

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/adalundhe/gpr/core/gp"
	"github.com/adalundhe/gpr/core/store"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrIndexOutOfRange indicates Remove was given an index past the training set.
	ErrIndexOutOfRange = errors.New("point index out of range")

	// ErrNoPoints indicates RemoveNearest was called on an empty training set.
	ErrNoPoints = errors.New("no training points")
)

// DefaultCacheSize is the number of distinct (model, grid) predictions kept.
const DefaultCacheSize = 64

type options struct {
	logger    *slog.Logger
	cacheSize int
}

// Option configures a Session.
type Option func(*options)

// WithLogger sets the logger for the session and the models it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCacheSize bounds the prediction cache. Values below 1 disable caching.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// fitted pairs a model with the generation it was published as.
type fitted struct {
	model      *gp.Model
	generation uint64
}

type cacheKey struct {
	generation uint64
	observed   bool
	grid       string
}

// Session owns the training points and hyperparameters and the model
// fitted to them.
type Session struct {
	mu sync.Mutex
	id uuid.UUID
	x  []float64
	y  []float64
	hp gp.Hyperparams

	current atomic.Pointer[fitted]
	cache   *lru.Cache[cacheKey, gp.Prediction]

	watchers  []func(*gp.Model)
	watcherMu sync.RWMutex

	notifyMu sync.Mutex
	notified uint64

	logger *slog.Logger
}

// New starts a session from st, fitting its initial model. A nil st starts
// from store.DefaultState.
func New(st *store.State, opts ...Option) (*Session, error) {
	o := options{logger: slog.Default(), cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}
	if st == nil {
		st = store.DefaultState()
	}

	s := &Session{
		id:     st.ID,
		x:      cloneFloats(st.X),
		y:      cloneFloats(st.Y),
		hp:     st.Hyperparams,
		logger: o.logger,
	}
	if s.id == uuid.Nil {
		s.id = uuid.New()
	}
	if o.cacheSize > 0 {
		cache, err := lru.New[cacheKey, gp.Prediction](o.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("prediction cache: %w", err)
		}
		s.cache = cache
	}

	model, err := s.fit(s.x, s.y, s.hp)
	if err != nil {
		return nil, err
	}
	s.current.Store(&fitted{model: model, generation: 1})
	return s, nil
}

// Model returns the current fitted model.
func (s *Session) Model() *gp.Model {
	return s.current.Load().model
}

// Generation increases by one with every successful rebuild.
func (s *Session) Generation() uint64 {
	return s.current.Load().generation
}

// ID identifies the training state across saves.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Points returns copies of the training inputs and targets.
func (s *Session) Points() (x, y []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFloats(s.x), cloneFloats(s.y)
}

// Hyperparams returns the hyperparameters of the current model.
func (s *Session) Hyperparams() gp.Hyperparams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hp
}

// Add appends the observation (x, y).
func (s *Session) Add(x, y float64) error {
	return s.mutate(func(xs, ys []float64, hp gp.Hyperparams) ([]float64, []float64, gp.Hyperparams, error) {
		return append(xs, x), append(ys, y), hp, nil
	})
}

// Remove deletes the i-th observation.
func (s *Session) Remove(i int) error {
	return s.mutate(func(xs, ys []float64, hp gp.Hyperparams) ([]float64, []float64, gp.Hyperparams, error) {
		if i < 0 || i >= len(xs) {
			return nil, nil, hp, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(xs))
		}
		return append(xs[:i], xs[i+1:]...), append(ys[:i], ys[i+1:]...), hp, nil
	})
}

// RemoveNearest deletes the observation closest to (px, py) in the plane
// and returns its former index.
func (s *Session) RemoveNearest(px, py float64) (int, error) {
	removed := -1
	err := s.mutate(func(xs, ys []float64, hp gp.Hyperparams) ([]float64, []float64, gp.Hyperparams, error) {
		i := Nearest(xs, ys, px, py)
		if i < 0 {
			return nil, nil, hp, ErrNoPoints
		}
		removed = i
		return append(xs[:i], xs[i+1:]...), append(ys[:i], ys[i+1:]...), hp, nil
	})
	if err != nil {
		return -1, err
	}
	return removed, nil
}

// Clear removes every observation; the model reverts to the prior.
func (s *Session) Clear() error {
	return s.mutate(func(_, _ []float64, hp gp.Hyperparams) ([]float64, []float64, gp.Hyperparams, error) {
		return []float64{}, []float64{}, hp, nil
	})
}

// SetHyperparams refits with hp.
func (s *Session) SetHyperparams(hp gp.Hyperparams) error {
	return s.mutate(func(xs, ys []float64, _ gp.Hyperparams) ([]float64, []float64, gp.Hyperparams, error) {
		return xs, ys, hp, nil
	})
}

// Replace swaps in a whole new training state.
func (s *Session) Replace(st *store.State) error {
	if st == nil {
		return fmt.Errorf("%w: nil state", store.ErrInvalidState)
	}
	return s.mutateAndCommit(func(_, _ []float64, _ gp.Hyperparams) ([]float64, []float64, gp.Hyperparams, error) {
		return cloneFloats(st.X), cloneFloats(st.Y), st.Hyperparams, nil
	}, func() {
		if st.ID != uuid.Nil {
			s.id = st.ID
		}
	})
}

type mutation func(x, y []float64, hp gp.Hyperparams) ([]float64, []float64, gp.Hyperparams, error)

// mutate applies fn to a copy of the training state, refits, and commits
// only when the refit succeeds. The previous model stays current otherwise.
func (s *Session) mutate(fn mutation) error {
	return s.mutateAndCommit(fn, nil)
}

// mutateAndCommit is mutate with commit run under the session lock
// alongside the state swap.
func (s *Session) mutateAndCommit(fn mutation, commit func()) error {
	s.mu.Lock()

	x, y, hp, err := fn(cloneFloats(s.x), cloneFloats(s.y), s.hp)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	model, err := s.fit(x, y, hp)
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("rebuild failed, keeping previous model",
			slog.Int("points", len(x)),
			slog.String("error", err.Error()))
		return err
	}

	s.x, s.y, s.hp = x, y, hp
	if commit != nil {
		commit()
	}
	next := &fitted{model: model, generation: s.current.Load().generation + 1}
	s.current.Store(next)
	s.mu.Unlock()

	s.logger.Debug("model rebuilt",
		slog.Int("points", model.Len()),
		slog.Uint64("generation", next.generation))
	s.notifyWatchers(next)
	return nil
}

func (s *Session) fit(x, y []float64, hp gp.Hyperparams) (*gp.Model, error) {
	return gp.Fit(x, y, hp, gp.WithLogger(s.logger))
}

// Predict evaluates the current model at xq. Results are cached per model
// generation and grid, so repeated calls with the same grid are cheap.
func (s *Session) Predict(xq []float64) gp.Prediction {
	return s.predict(xq, false)
}

// PredictObserved is Predict with observation noise included in the
// variance. It is cached separately from Predict.
func (s *Session) PredictObserved(xq []float64) gp.Prediction {
	return s.predict(xq, true)
}

func (s *Session) predict(xq []float64, observed bool) gp.Prediction {
	f := s.current.Load()
	eval := f.model.Predict
	if observed {
		eval = f.model.PredictObserved
	}
	if s.cache == nil {
		return eval(xq)
	}

	key := cacheKey{generation: f.generation, observed: observed, grid: gridKey(xq)}
	if p, ok := s.cache.Get(key); ok {
		return clonePrediction(p)
	}

	p := eval(xq)
	s.cache.Add(key, clonePrediction(p))
	return p
}

// Snapshot returns the persistable state of the session.
func (s *Session) Snapshot() *store.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &store.State{
		ID:          s.id,
		X:           cloneFloats(s.x),
		Y:           cloneFloats(s.y),
		Hyperparams: s.hp,
	}
}

// OnRebuild registers fn to be called with newly published models. Calls
// are serialized and arrive in generation order; when rebuilds race, a
// model already superseded by a delivered one is skipped. fn must not
// mutate the session.
func (s *Session) OnRebuild(fn func(*gp.Model)) {
	s.watcherMu.Lock()
	s.watchers = append(s.watchers, fn)
	s.watcherMu.Unlock()
}

func (s *Session) notifyWatchers(f *fitted) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if f.generation <= s.notified {
		return
	}
	s.notified = f.generation

	s.watcherMu.RLock()
	watchers := s.watchers
	s.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(f.model)
	}
}

// Nearest returns the index of the point closest to (px, py) by squared
// euclidean distance, or -1 when there are no points. Ties go to the lower
// index.
func Nearest(xs, ys []float64, px, py float64) int {
	best, bestDist := -1, math.Inf(1)
	for i := range xs {
		dx, dy := xs[i]-px, ys[i]-py
		if d := dx*dx + dy*dy; d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func gridKey(xq []float64) string {
	buf := make([]byte, 8*len(xq))
	for i, v := range xq {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return string(buf)
}

func clonePrediction(p gp.Prediction) gp.Prediction {
	p.X = cloneFloats(p.X)
	p.Mean = cloneFloats(p.Mean)
	p.Variance = cloneFloats(p.Variance)
	return p
}

func cloneFloats(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
