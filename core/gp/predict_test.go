package gp

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestPredict_SinglePairNoNoise(t *testing.T) {
	tests := []struct {
		x0, y0 float64
	}{
		{x0: 0, y0: 0.7},
		{x0: 3.5, y0: -0.4},
		{x0: -12, y0: 0},
		{x0: 3.3, y0: -2.5},
		{x0: 1, y0: 1e4},
	}

	for _, tt := range tests {
		m, err := New([]float64{tt.x0}, []float64{tt.y0}, mustRBF(t, 1, 1), 0)
		require.NoError(t, err)

		p := m.Predict([]float64{tt.x0})
		// Jitter shrinks the mean to y0·sigma/(sigma+Jitter), so the error
		// scales with |y0|.
		assert.InDelta(t, tt.y0, p.Mean[0], 1e-6*math.Max(1, math.Abs(tt.y0)), "y0=%v", tt.y0)
		assert.InDelta(t, tt.y0/(1+Jitter), p.Mean[0], 1e-9*math.Max(1, math.Abs(tt.y0)))
		assert.InDelta(t, 0, p.Variance[0], 1e-3)
	}
}

func TestPredict_FarPointRevertsToPrior(t *testing.T) {
	for _, sigma := range []float64{0.5, 1, 2} {
		m, err := Fit([]float64{0, 1}, []float64{1, -1}, Hyperparams{Sigma: sigma, LengthScale: 1, NoiseSigma: 0.1})
		require.NoError(t, err)

		p := m.Predict([]float64{1000})
		assert.InDelta(t, 0, p.Mean[0], 1e-12)
		assert.InDelta(t, sigma+Jitter, p.Variance[0], 1e-9)

		obs := m.PredictObserved([]float64{1000})
		assert.InDelta(t, sigma+0.1+Jitter, obs.Variance[0], 1e-9)
		assert.Equal(t, p.Mean, obs.Mean)
	}
}

func TestPredict_EmptyTrainingSetIsPrior(t *testing.T) {
	m, err := New(nil, nil, mustRBF(t, 2, 1), 0.1)
	require.NoError(t, err)

	p := m.Predict([]float64{-1, 0, 5})
	assert.Equal(t, []float64{0, 0, 0}, p.Mean)
	for _, v := range p.Variance {
		assert.InDelta(t, 2+Jitter, v, 1e-15)
	}
}

func TestPredict_EmptyQuery(t *testing.T) {
	m, err := Fit([]float64{1}, []float64{1}, DefaultHyperparams())
	require.NoError(t, err)

	p := m.Predict(nil)
	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.Mean)
	assert.Empty(t, p.Variance)

	mean, cov := m.PredictCov(nil)
	assert.Empty(t, mean)
	assert.Nil(t, cov)
}

func TestPredict_ThreePointScenario(t *testing.T) {
	x := []float64{1, 2, 6}
	y := []float64{1, 1, -1}
	m, err := Fit(x, y, DefaultHyperparams())
	require.NoError(t, err)

	p := m.Predict(x)
	for i := range x {
		assert.InDelta(t, y[i], p.Mean[i], 0.2, "mean at x=%v", x[i])
		assert.Greater(t, p.Variance[i], 0.0)
		assert.Less(t, p.Variance[i], 1.0)
	}
	assert.Equal(t, 0, p.Clamped)

	// Between the clusters uncertainty grows again.
	mid := m.Predict([]float64{4})
	assert.Greater(t, mid.Variance[0], p.Variance[0])
}

func TestPredict_Idempotent(t *testing.T) {
	m, err := Fit([]float64{1, 2, 6}, []float64{1, 1, -1}, DefaultHyperparams())
	require.NoError(t, err)

	xq := []float64{0, 0.5, 1.5, 3, 7.25, 10}
	first := m.Predict(xq)
	second := m.Predict(xq)
	assert.Equal(t, first, second)
}

func TestPredict_QueryOrderPreserved(t *testing.T) {
	m, err := Fit([]float64{1, 2, 6}, []float64{1, 1, -1}, DefaultHyperparams())
	require.NoError(t, err)

	forward := m.Predict([]float64{0, 3, 6})
	reverse := m.Predict([]float64{6, 3, 0})
	for i := 0; i < 3; i++ {
		assert.InDelta(t, forward.Mean[i], reverse.Mean[2-i], 1e-12)
		assert.InDelta(t, forward.Variance[i], reverse.Variance[2-i], 1e-12)
	}
	assert.Equal(t, []float64{6, 3, 0}, reverse.X)
}

func TestPredict_Concurrent(t *testing.T) {
	m, err := Fit([]float64{1, 2, 6}, []float64{1, 1, -1}, DefaultHyperparams())
	require.NoError(t, err)

	xq := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	want := m.Predict(xq)

	var wg sync.WaitGroup
	results := make([]Prediction, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = m.Predict(xq)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestPredictCov_DiagonalMatchesPredict(t *testing.T) {
	m, err := Fit([]float64{1, 2, 6}, []float64{1, 1, -1}, DefaultHyperparams())
	require.NoError(t, err)

	xq := []float64{0, 1, 2.5, 6, 9}
	p := m.Predict(xq)
	mean, cov := m.PredictCov(xq)
	require.NotNil(t, cov)

	for i := range xq {
		assert.InDelta(t, p.Mean[i], mean[i], 1e-12)
		assert.InDelta(t, p.Variance[i], cov.At(i, i), 1e-9)
	}
}

func TestPrediction_Band(t *testing.T) {
	p := Prediction{
		X:        []float64{0, 1},
		Mean:     []float64{1, -1},
		Variance: []float64{0.25, 4},
	}

	lower, upper := p.Band(BandVariance, 1)
	assert.Equal(t, []float64{0.75, -5}, lower)
	assert.Equal(t, []float64{1.25, 3}, upper)

	lower, upper = p.Band(BandStdDev, 2)
	assert.Equal(t, []float64{0, -5}, lower)
	assert.Equal(t, []float64{2, 3}, upper)

	assert.Equal(t, []float64{0.5, 2}, p.StdDev())
}

func TestParseBandMode(t *testing.T) {
	mode, err := ParseBandMode(" StdDev ")
	require.NoError(t, err)
	assert.Equal(t, BandStdDev, mode)

	mode, err = ParseBandMode("variance")
	require.NoError(t, err)
	assert.Equal(t, BandVariance, mode)

	_, err = ParseBandMode("quantile")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSample(t *testing.T) {
	m, err := Fit([]float64{1, 2, 6}, []float64{1, 1, -1}, DefaultHyperparams())
	require.NoError(t, err)

	xq := []float64{1, 4, 20}
	rng := rand.New(rand.NewPCG(7, 11))
	draws, err := m.Sample(xq, 4000, rng)
	require.NoError(t, err)

	r, c := draws.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 4000, c)

	p := m.Predict(xq)
	for i := range xq {
		row := draws.RawRowView(i)
		var sum, sq float64
		for _, v := range row {
			sum += v
		}
		mean := sum / float64(len(row))
		for _, v := range row {
			sq += (v - mean) * (v - mean)
		}
		variance := sq / float64(len(row)-1)

		assert.InDelta(t, p.Mean[i], mean, 0.1, "mean at x=%v", xq[i])
		assert.InDelta(t, p.Variance[i], variance, 0.15, "variance at x=%v", xq[i])
	}
}

func TestSample_Deterministic(t *testing.T) {
	m, err := Fit([]float64{1, 2}, []float64{0, 1}, DefaultHyperparams())
	require.NoError(t, err)

	a, err := m.Sample([]float64{0, 1, 2}, 3, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	b, err := m.Sample([]float64{0, 1, 2}, 3, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, a.RawMatrix().Data, b.RawMatrix().Data)
}

func TestSample_NearDegenerateCovariance(t *testing.T) {
	// Noise-free duplicate training points leave the posterior covariance at
	// those points at the level of rounding error.
	m, err := New([]float64{1, 1, 1}, []float64{2, 2, 2}, mustRBF(t, 1, 1), 0)
	require.NoError(t, err)

	draws, err := m.Sample([]float64{1, 1.000001, 1.000002}, 5, rand.New(rand.NewPCG(3, 4)))
	require.NoError(t, err)
	for _, v := range draws.RawMatrix().Data {
		assert.False(t, math.IsNaN(v))
		assert.InDelta(t, 2, v, 0.05)
	}
}

func TestCovFactor_IndefiniteClipsNegativeEigenvalues(t *testing.T) {
	// Eigenvalues 3 and −1; only the positive direction survives.
	cov := mat.NewSymDense(2, []float64{
		1, 2,
		2, 1,
	})

	f, err := covFactor(cov)
	require.NoError(t, err)

	var got mat.Dense
	got.Mul(f, f.T())
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, 1.5, got.At(i, j), 1e-9)
		}
	}
}

func TestSample_Validation(t *testing.T) {
	m, err := Fit([]float64{1}, []float64{1}, DefaultHyperparams())
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(1, 1))

	_, err = m.Sample([]float64{1}, 0, rng)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = m.Sample(nil, 3, rng)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = m.Sample([]float64{1}, 3, nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}
