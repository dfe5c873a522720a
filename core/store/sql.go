package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adalundhe/gpr/core/database"
	"github.com/google/uuid"
)

var migrations = []database.Migration{
	{
		Version:     1,
		Description: "create states and points",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE states (
					name         TEXT PRIMARY KEY,
					id           TEXT NOT NULL,
					sigma        REAL NOT NULL,
					length_scale REAL NOT NULL,
					noise_sigma  REAL NOT NULL,
					updated_at   INTEGER NOT NULL
				)`); err != nil {
				return err
			}
			_, err := tx.Exec(`
				CREATE TABLE points (
					state_name TEXT NOT NULL REFERENCES states(name) ON DELETE CASCADE,
					idx        INTEGER NOT NULL,
					x          REAL NOT NULL,
					y          REAL NOT NULL,
					PRIMARY KEY (state_name, idx)
				)`)
			return err
		},
	},
}

// SQLStore keeps states in a sqlite database.
type SQLStore struct {
	pool *database.Pool
	now  func() time.Time
}

// NewSQLStore migrates the schema of pool and returns a store over it.
func NewSQLStore(ctx context.Context, pool *database.Pool) (*SQLStore, error) {
	if err := database.NewMigrator(pool, migrations).Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate state schema: %w", err)
	}
	return &SQLStore{pool: pool, now: time.Now}, nil
}

func (s *SQLStore) Load(ctx context.Context, name string) (*State, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	var (
		st      State
		id      string
		updated int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, sigma, length_scale, noise_sigma, updated_at FROM states WHERE name = ?`, name,
	).Scan(&id, &st.Hyperparams.Sigma, &st.Hyperparams.LengthScale, &st.Hyperparams.NoiseSigma, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrStateNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", name, err)
	}

	if st.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: state %s has id %q: %v", ErrInvalidState, name, id, err)
	}
	st.UpdatedAt = time.Unix(0, updated).UTC()

	rows, err := s.pool.Query(ctx, `SELECT x, y FROM points WHERE state_name = ? ORDER BY idx`, name)
	if err != nil {
		return nil, fmt.Errorf("load points of %s: %w", name, err)
	}
	defer rows.Close()

	st.X, st.Y = []float64{}, []float64{}
	for rows.Next() {
		var x, y float64
		if err := rows.Scan(&x, &y); err != nil {
			return nil, fmt.Errorf("scan point of %s: %w", name, err)
		}
		st.X = append(st.X, x)
		st.Y = append(st.Y, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load points of %s: %w", name, err)
	}

	return &st, nil
}

func (s *SQLStore) Save(ctx context.Context, name string, st *State) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := st.Validate(); err != nil {
		return err
	}
	st.stamp(s.now())

	return s.pool.Transaction(ctx, func(tx *sql.Tx) error {
		hp := st.Hyperparams
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO states (name, id, sigma, length_scale, noise_sigma, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				id = excluded.id,
				sigma = excluded.sigma,
				length_scale = excluded.length_scale,
				noise_sigma = excluded.noise_sigma,
				updated_at = excluded.updated_at`,
			name, st.ID.String(), hp.Sigma, hp.LengthScale, hp.NoiseSigma, st.UpdatedAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("save state %s: %w", name, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE state_name = ?`, name); err != nil {
			return fmt.Errorf("clear points of %s: %w", name, err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO points (state_name, idx, x, y) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range st.X {
			if _, err := stmt.ExecContext(ctx, name, i, st.X[i], st.Y[i]); err != nil {
				return fmt.Errorf("save point %d of %s: %w", i, name, err)
			}
		}
		return nil
	})
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	return s.pool.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE state_name = ?`, name); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM states WHERE name = ?`, name)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrStateNotFound, name)
		}
		return nil
	})
}

func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM states ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Close closes the underlying pool.
func (s *SQLStore) Close() error {
	return s.pool.Close()
}

var _ Store = (*SQLStore)(nil)
