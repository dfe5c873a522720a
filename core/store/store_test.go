package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adalundhe/gpr/core/database"
	"github.com/adalundhe/gpr/core/gp"
	"github.com/adalundhe/gpr/core/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) Store

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"file": func(t *testing.T) Store {
			s, err := NewFileStore(filepath.Join(t.TempDir(), "states"))
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T) Store {
			mgr := database.NewManager(&storage.Dirs{Data: t.TempDir()})
			t.Cleanup(func() { mgr.CloseAll() })
			pool, err := mgr.Open(context.Background(), "states", database.DefaultPoolConfig())
			require.NoError(t, err)
			s, err := NewSQLStore(context.Background(), pool)
			require.NoError(t, err)
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range backends() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()
			fn(t, s)
		})
	}
}

func TestStore_RoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		st := &State{
			X:           []float64{1, 2.5, -3},
			Y:           []float64{0.1, -0.2, 1e-9},
			Hyperparams: gp.Hyperparams{Sigma: 2, LengthScale: 0.5, NoiseSigma: 0.01},
		}

		require.NoError(t, s.Save(ctx, "alpha", st))
		assert.NotEqual(t, uuid.Nil, st.ID)
		assert.False(t, st.UpdatedAt.IsZero())

		got, err := s.Load(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, st.ID, got.ID)
		assert.Equal(t, st.X, got.X)
		assert.Equal(t, st.Y, got.Y)
		assert.Equal(t, st.Hyperparams, got.Hyperparams)
		assert.True(t, st.UpdatedAt.Equal(got.UpdatedAt), "updated_at %v vs %v", st.UpdatedAt, got.UpdatedAt)
	})
}

func TestStore_SaveReplacesPoints(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		st := DefaultState()
		require.NoError(t, s.Save(ctx, "default", st))
		id := st.ID

		st.X = st.X[:1]
		st.Y = st.Y[:1]
		require.NoError(t, s.Save(ctx, "default", st))

		got, err := s.Load(ctx, "default")
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, []float64{1}, got.X)
		assert.Equal(t, []float64{1}, got.Y)
	})
}

func TestStore_EmptyState(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		st := &State{X: []float64{}, Y: []float64{}, Hyperparams: gp.DefaultHyperparams()}
		require.NoError(t, s.Save(ctx, "empty", st))

		got, err := s.Load(ctx, "empty")
		require.NoError(t, err)
		assert.Equal(t, 0, got.Len())
		assert.NotNil(t, got.X)
	})
}

func TestStore_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.Load(ctx, "missing")
		assert.ErrorIs(t, err, ErrStateNotFound)

		assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrStateNotFound)

		st, err := LoadOrDefault(ctx, s, "missing")
		require.NoError(t, err)
		assert.Equal(t, []float64{1, 2, 6}, st.X)
		assert.Equal(t, []float64{1, 1, -1}, st.Y)
		assert.Equal(t, gp.DefaultHyperparams(), st.Hyperparams)
	})
}

func TestStore_ListAndDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		names, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, names)

		for _, name := range []string{"zeta", "alpha", "mid"} {
			require.NoError(t, s.Save(ctx, name, DefaultState()))
		}

		names, err = s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)

		require.NoError(t, s.Delete(ctx, "mid"))
		names, err = s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "zeta"}, names)

		_, err = s.Load(ctx, "mid")
		assert.ErrorIs(t, err, ErrStateNotFound)
	})
}

func TestStore_RejectsInvalid(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		bad := DefaultState()
		bad.Y = bad.Y[:2]
		assert.ErrorIs(t, s.Save(ctx, "bad", bad), ErrInvalidState)

		bad = DefaultState()
		bad.Hyperparams.LengthScale = 0
		err := s.Save(ctx, "bad", bad)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.ErrorIs(t, err, gp.ErrConfiguration)

		for _, name := range []string{"", " ", "..", "a/b", `a\b`} {
			assert.ErrorIs(t, s.Save(ctx, name, DefaultState()), ErrInvalidState, "name %q", name)
		}
	})
}

func TestFileStore_WritesYAML(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	st := DefaultState()
	require.NoError(t, s.Save(context.Background(), "doc", st))

	data, err := os.ReadFile(s.Path("doc"))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "id: "+st.ID.String())
	assert.Contains(t, text, "length_scale: 1")
	assert.Contains(t, text, "noise_sigma: 0.1")
	assert.Contains(t, text, "updated_at: 2026-01-02T03:04:05Z")

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}

func TestFileStore_CorruptDocument(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path("broken"), []byte("x: [1, 2\n"), 0644))
	require.NoError(t, os.WriteFile(s.Path("uneven"), []byte("x: [1, 2]\ny: [1]\nhyperparams: {sigma: 1, length_scale: 1, noise_sigma: 0.1}\n"), 0644))

	_, err = s.Load(context.Background(), "broken")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Load(context.Background(), "uneven")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFileStore_ListSkipsForeignFiles(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), "kept", DefaultState()))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), ".kept-123.tmp"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(s.Dir(), "sub.yaml"), 0755))

	names, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, names)
}

func TestFileStore_CanceledContext(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Save(ctx, "x", DefaultState()), context.Canceled)
}

func TestOpen(t *testing.T) {
	root := t.TempDir()
	dirs := &storage.Dirs{Data: root}
	mgr := database.NewManager(dirs)
	defer mgr.CloseAll()
	ctx := context.Background()

	s, err := Open(ctx, Options{Backend: BackendFile}, dirs, mgr)
	require.NoError(t, err)
	fs, ok := s.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, dirs.StatesDir(), fs.Dir())

	s, err = Open(ctx, Options{Backend: BackendSQLite, Driver: database.DriverPure}, dirs, mgr)
	require.NoError(t, err)
	_, ok = s.(*SQLStore)
	assert.True(t, ok)
	_, err = os.Stat(filepath.Join(root, "states.db"))
	assert.NoError(t, err)

	_, err = Open(ctx, Options{Backend: "s3"}, dirs, mgr)
	assert.Error(t, err)
}

func TestState_Clone(t *testing.T) {
	st := DefaultState()
	c := st.Clone()
	c.X[0] = 42
	assert.Equal(t, 1.0, st.X[0])
	assert.Equal(t, st.ID, c.ID)
}
