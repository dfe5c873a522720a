// Package store persists training states: the observed points and the
// hyperparameters they were fitted with. Fitted matrices are never stored;
// a loaded state is refitted.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/adalundhe/gpr/core/gp"
	"github.com/google/uuid"
)

var (
	// ErrStateNotFound indicates no state is saved under the requested name.
	ErrStateNotFound = errors.New("state not found")

	// ErrInvalidState indicates a state that cannot be saved or was stored corrupt.
	ErrInvalidState = errors.New("invalid state")
)

// DefaultName is the state used when none is named.
const DefaultName = "default"

// State is a persisted training set.
type State struct {
	ID          uuid.UUID      `yaml:"id" json:"id"`
	X           []float64      `yaml:"x" json:"x"`
	Y           []float64      `yaml:"y" json:"y"`
	Hyperparams gp.Hyperparams `yaml:"hyperparams" json:"hyperparams"`
	UpdatedAt   time.Time      `yaml:"updated_at" json:"updated_at"`
}

// DefaultState returns the initial three-point training set with default
// hyperparameters.
func DefaultState() *State {
	return &State{
		ID:          uuid.New(),
		X:           []float64{1, 2, 6},
		Y:           []float64{1, 1, -1},
		Hyperparams: gp.DefaultHyperparams(),
	}
}

// Validate checks that the state can be fitted.
func (s *State) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil state", ErrInvalidState)
	}
	if len(s.X) != len(s.Y) {
		return fmt.Errorf("%w: %d x values but %d y values", ErrInvalidState, len(s.X), len(s.Y))
	}
	if err := s.Hyperparams.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return nil
}

// Len returns the number of training points.
func (s *State) Len() int {
	return len(s.X)
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := *s
	out.X = append([]float64(nil), s.X...)
	out.Y = append([]float64(nil), s.Y...)
	return &out
}

// stamp assigns an ID to a new state and records the save time.
func (s *State) stamp(now time.Time) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.UpdatedAt = now.UTC()
}

// Store loads and saves named states.
type Store interface {
	// Load returns the state saved under name or ErrStateNotFound.
	Load(ctx context.Context, name string) (*State, error)

	// Save writes st under name, replacing any previous state. It assigns
	// st.ID when nil and sets st.UpdatedAt.
	Save(ctx context.Context, name string, st *State) error

	// Delete removes the named state or returns ErrStateNotFound.
	Delete(ctx context.Context, name string) error

	// List returns the saved names in lexical order.
	List(ctx context.Context) ([]string, error)

	Close() error
}

// LoadOrDefault loads name, falling back to DefaultState when nothing is
// saved yet.
func LoadOrDefault(ctx context.Context, s Store, name string) (*State, error) {
	st, err := s.Load(ctx, name)
	if errors.Is(err, ErrStateNotFound) {
		return DefaultState(), nil
	}
	return st, err
}

// ValidateName rejects names that are empty or could escape a directory.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty state name", ErrInvalidState)
	case name == "." || name == "..":
		return fmt.Errorf("%w: state name %q", ErrInvalidState, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: state name %q contains a path separator", ErrInvalidState, name)
	}
	return nil
}
