package personalization

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/helper-matcher/internal/cache"
	"github.com/spigell/helper-matcher/internal/decisions"
	"github.com/spigell/helper-matcher/internal/features"
	"github.com/spigell/helper-matcher/internal/locks"
)

type stubHistory struct {
	records map[string][]decisions.Record
	err     error
}

func (s *stubHistory) QueryByEmployer(_ context.Context, employerID string, _ int) ([]decisions.Record, error) {
	return s.records[employerID], s.err
}

func (s *stubHistory) Employers(context.Context) ([]string, error) {
	var out []string
	for id := range s.records {
		out = append(out, id)
	}
	return out, s.err
}

type stubStore struct {
	mu      sync.Mutex
	models  map[string]*Model
	loads   int
	saveErr error
}

func newStubStore() *stubStore {
	return &stubStore{models: map[string]*Model{}}
}

func (s *stubStore) Load(_ context.Context, employerID string) (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return s.models[employerID], nil
}

func (s *stubStore) Save(_ context.Context, m *Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if prev := s.models[m.EmployerID]; prev != nil {
		m.Version = prev.Version + 1
	} else {
		m.Version = 1
	}
	s.models[m.EmployerID] = m
	return nil
}

// decisionsFor builds n records whose label follows the first feature.
func decisionsFor(employerID string, n int) []decisions.Record {
	rng := rand.New(rand.NewSource(7))
	out := make([]decisions.Record, 0, n)
	for i := 0; i < n; i++ {
		vec := make([]float64, features.TrainingDimension)
		for k := range vec {
			vec[k] = rng.Float64()
		}
		action := decisions.ActionRejected
		if vec[0] > 0.5 {
			action = decisions.ActionHired
		}
		out = append(out, decisions.Record{
			EmployerID: employerID,
			Action:     action,
			Candidate:  decisions.CandidateSnapshot{Features: vec, LayoutVersion: features.LayoutVersion},
		})
	}
	return out
}

func TestTrainRequiresMinimumSamples(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	existing := &Model{EmployerID: "e-1", Version: 3, LayoutVersion: features.LayoutVersion}
	store.models["e-1"] = existing

	history := &stubHistory{records: map[string][]decisions.Record{"e-1": decisionsFor("e-1", 9)}}
	svc := NewService(history, store, DefaultConfig, nil)

	_, err := svc.Train(context.Background(), "e-1")
	require.ErrorIs(t, err, ErrInsufficientTrainingData)

	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 9, insufficient.Have)
	assert.Equal(t, 10, insufficient.Need)
	assert.Same(t, existing, store.models["e-1"])
}

func TestTrainWithTenSamplesSucceeds(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	history := &stubHistory{records: map[string][]decisions.Record{"e-1": decisionsFor("e-1", 10)}}
	svc := NewService(history, store, DefaultConfig, nil)

	outcome, err := svc.Train(context.Background(), "e-1")
	require.NoError(t, err)

	assert.Equal(t, 10, outcome.SampleCount)
	assert.Equal(t, int64(1), outcome.Version)
	assert.False(t, math.IsNaN(outcome.FinalLoss))
	assert.GreaterOrEqual(t, outcome.FinalAccuracy, 0.0)
	assert.LessOrEqual(t, outcome.FinalAccuracy, 1.0)

	model := store.models["e-1"]
	require.NotNil(t, model)
	assert.Equal(t, features.TrainingNames(), model.FeatureNames)
	assert.Equal(t, []int{features.TrainingDimension, 16, 8, 1}, model.Network.Sizes)
}

func TestTrainIgnoresStaleSnapshots(t *testing.T) {
	t.Parallel()

	records := decisionsFor("e-1", 12)
	for i := 0; i < 3; i++ {
		records[i].Candidate.LayoutVersion = features.LayoutVersion + 1
	}
	history := &stubHistory{records: map[string][]decisions.Record{"e-1": records}}

	_, err := NewService(history, newStubStore(), DefaultConfig, nil).Train(context.Background(), "e-1")
	var insufficient *InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 9, insufficient.Have)
}

func TestTrainFailsFastWhenLocked(t *testing.T) {
	t.Parallel()

	locker := locks.NewLocal()
	lease, err := locker.Acquire(context.Background(), "train:e-1", 0)
	require.NoError(t, err)
	defer lease.Release(context.Background())

	history := &stubHistory{records: map[string][]decisions.Record{"e-1": decisionsFor("e-1", 20)}}
	svc := NewService(history, newStubStore(), DefaultConfig, nil, WithLocker(locker))

	_, err = svc.Train(context.Background(), "e-1")
	assert.ErrorIs(t, err, ErrTrainingInProgress)
}

func TestTrainSaveFailureIsReported(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.saveErr = errors.New("connection reset")
	history := &stubHistory{records: map[string][]decisions.Record{"e-1": decisionsFor("e-1", 20)}}

	_, err := NewService(history, store, DefaultConfig, nil).Train(context.Background(), "e-1")
	assert.ErrorContains(t, err, "connection reset")
	assert.Nil(t, store.models["e-1"])
}

func TestPredictUsesCachedModelAndInvalidatesAfterTraining(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newStubStore()
	history := &stubHistory{records: map[string][]decisions.Record{"e-1": decisionsFor("e-1", 40)}}
	svc := NewService(history, store, DefaultConfig, nil, WithCache(cache.NewMemory()))

	_, err := svc.Predict(ctx, "e-1", make([]float64, features.TrainingDimension))
	assert.ErrorIs(t, err, ErrModelUnavailable)

	_, err = svc.Train(ctx, "e-1")
	require.NoError(t, err)

	high := make([]float64, features.TrainingDimension)
	low := make([]float64, features.TrainingDimension)
	for i := range high {
		high[i], low[i] = 0.5, 0.5
	}
	high[0], low[0] = 0.95, 0.05

	pHigh, err := svc.Predict(ctx, "e-1", high)
	require.NoError(t, err)
	pLow, err := svc.Predict(ctx, "e-1", low)
	require.NoError(t, err)
	assert.Greater(t, pHigh, pLow)

	loads := store.loads
	_, err = svc.Train(ctx, "e-1")
	require.NoError(t, err)
	model, err := svc.Model(ctx, "e-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), model.Version)
	assert.Equal(t, loads+1, store.loads)

	_, err = svc.Predict(ctx, "e-1", []float64{1, 2})
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

// racingStore runs onLoad once, after reading the model and before returning it.
type racingStore struct {
	*stubStore
	onLoad func()
}

func (s *racingStore) Load(ctx context.Context, employerID string) (*Model, error) {
	m, err := s.stubStore.Load(ctx, employerID)
	if fn := s.onLoad; fn != nil {
		s.onLoad = nil
		fn()
	}
	return m, err
}

func TestModelLoadRacingTrainingDoesNotCacheStaleModel(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &racingStore{stubStore: newStubStore()}
	history := &stubHistory{records: map[string][]decisions.Record{"e-1": decisionsFor("e-1", 40)}}
	svc := NewService(history, store, DefaultConfig, nil, WithCache(cache.NewMemory()))

	_, err := svc.Train(ctx, "e-1")
	require.NoError(t, err)

	store.onLoad = func() {
		_, err := svc.Train(ctx, "e-1")
		require.NoError(t, err)
	}
	model, err := svc.Model(ctx, "e-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), model.Version)

	model, err = svc.Model(ctx, "e-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), model.Version)

	loads := store.loads
	model, err = svc.Model(ctx, "e-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), model.Version)
	assert.Equal(t, loads, store.loads)
}

func TestModelWithOtherLayoutIsUnavailable(t *testing.T) {
	t.Parallel()

	store := newStubStore()
	store.models["e-1"] = &Model{EmployerID: "e-1", LayoutVersion: features.LayoutVersion - 1}

	_, err := NewService(&stubHistory{}, store, DefaultConfig, nil).Model(context.Background(), "e-1")
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestFitIsDeterministic(t *testing.T) {
	t.Parallel()

	samples := Samples(decisionsFor("e", 20))
	a, ma, err := Fit(samples, DefaultTrainingConfig)
	require.NoError(t, err)
	b, mb, err := Fit(samples, DefaultTrainingConfig)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, ma, mb)
	assert.Equal(t, 4, ma.ValidationCount)
	assert.Equal(t, 16, ma.TrainCount)
}

func TestBackwardMatchesNumericGradient(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	net := NewNetwork([]int{3, 4, 2, 1}, rng)
	x := []float64{0.2, 0.7, 0.4}
	y := 0.8

	grad := net.zeroGradients()
	acts, masks := net.forward(x, 0, nil)
	net.backward(grad, acts, masks, y)

	loss := func() float64 {
		acts, _ := net.forward(x, 0, nil)
		return crossEntropy(acts[len(acts)-1][0], y)
	}

	const h = 1e-6
	for li := range net.Layers {
		for o := range net.Layers[li].W {
			for k := range net.Layers[li].W[o] {
				orig := net.Layers[li].W[o][k]
				net.Layers[li].W[o][k] = orig + h
				up := loss()
				net.Layers[li].W[o][k] = orig - h
				down := loss()
				net.Layers[li].W[o][k] = orig

				numeric := (up - down) / (2 * h)
				assert.InDelta(t, numeric, grad[li].W[o][k], 1e-4, fmt.Sprintf("layer %d w[%d][%d]", li, o, k))
			}
		}
	}
}

func TestRetrainAll(t *testing.T) {
	t.Parallel()

	history := &stubHistory{records: map[string][]decisions.Record{
		"e-ok":    decisionsFor("e-ok", 12),
		"e-small": decisionsFor("e-small", 3),
	}}
	store := newStubStore()
	svc := NewService(history, store, DefaultConfig, nil, WithClock(func() time.Time {
		return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	}))

	summary := NewRetrainer(svc, nil).RetrainAll(context.Background())

	assert.Equal(t, RetrainSummary{Employers: 2, Trained: 1, Skipped: 1}, summary)
	assert.NotNil(t, store.models["e-ok"])
	assert.Nil(t, store.models["e-small"])
}

func TestTrainedHooksRunOnlyAfterSave(t *testing.T) {
	t.Parallel()

	history := &stubHistory{records: map[string][]decisions.Record{
		"e-1": decisionsFor("e-1", 10),
		"e-2": decisionsFor("e-2", 3),
	}}
	var notified []string
	svc := NewService(history, newStubStore(), DefaultConfig, nil,
		OnTrained(func(_ context.Context, employerID string) { notified = append(notified, employerID) }),
	)

	_, err := svc.Train(context.Background(), "e-2")
	require.ErrorIs(t, err, ErrInsufficientTrainingData)
	assert.Empty(t, notified)

	_, err = svc.Train(context.Background(), "e-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"e-1"}, notified)
}
