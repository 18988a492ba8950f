package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/seismic_analyze/internal/integrate"
	"github.com/relabs-tech/seismic_analyze/internal/pipeline"
)

var day = time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seismic.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestOpen_MigratesOnce(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Close())

	again, err := Open(path)
	require.NoError(t, err, "reopening an up-to-date database is not an error")
	defer again.Close()

	runs, err := again.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRun_Finish(t *testing.T) {
	s, _ := openTemp(t)

	run, err := s.BeginRun("/data/2024-03-17.dat", day, integrate.PolicyVelocityIntegrated)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID())

	series := []integrate.Displacement{
		{Index: 1, X: 0.5, Y: -0.25, Z: 0},
		{Index: 2, X: 1.5, Y: 4, Z: -0.75},
	}
	for _, d := range series {
		require.NoError(t, run.Emit(d))
	}
	sum := pipeline.Summary{
		Readings: 3, Emitted: 2, First: 10, Last: 11.5,
		Final: r3.Vec{X: 1.5, Y: 4, Z: -0.75},
		Peak:  r3.Vec{X: 1.5, Y: 4, Z: 0.75},
	}
	require.NoError(t, run.Finish(sum))

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	ri := runs[0]
	assert.Equal(t, run.ID(), ri.ID)
	assert.Equal(t, "/data/2024-03-17.dat", ri.Source)
	assert.True(t, day.Equal(ri.Epoch))
	assert.Equal(t, integrate.PolicyVelocityIntegrated, ri.Policy)
	assert.Equal(t, StatusComplete, ri.Status)
	assert.Empty(t, ri.Error)
	assert.Equal(t, 3, ri.Readings)
	assert.Equal(t, 2, ri.Emitted)
	assert.InDelta(t, 1.5, ri.Duration, 1e-12)
	assert.Equal(t, [3]float64{1.5, 4, -0.75}, ri.Final)
	assert.Equal(t, [3]float64{1.5, 4, 0.75}, ri.Peak)

	got, err := s.Displacements(run.ID())
	require.NoError(t, err)
	assert.Equal(t, series, got)

	assert.ErrorIs(t, run.Emit(integrate.Displacement{Index: 3}), ErrRunClosed)
	assert.ErrorIs(t, run.Finish(sum), ErrRunClosed)
}

func TestRun_Abort(t *testing.T) {
	s, _ := openTemp(t)

	run, err := s.BeginRun("2024-03-17.dat", day, integrate.PolicyTrapezoidPosition)
	require.NoError(t, err)
	require.NoError(t, run.Emit(integrate.Displacement{Index: 1, X: 1}))
	require.NoError(t, run.Abort(errors.New("truncated record")))

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Equal(t, "truncated record", runs[0].Error)

	got, err := s.Displacements(run.ID())
	require.NoError(t, err)
	assert.Empty(t, got, "aborted run keeps no displacements")

	assert.ErrorIs(t, run.Abort(nil), ErrRunClosed)
}

func TestRun_DuplicateIndex(t *testing.T) {
	s, _ := openTemp(t)

	run, err := s.BeginRun("2024-03-17.dat", day, integrate.PolicyTrapezoidPosition)
	require.NoError(t, err)
	require.NoError(t, run.Emit(integrate.Displacement{Index: 1}))
	assert.Error(t, run.Emit(integrate.Displacement{Index: 1}))
	require.NoError(t, run.Abort(nil))
}

func TestRuns_Order(t *testing.T) {
	s, _ := openTemp(t)

	var ids []string
	for range 3 {
		run, err := s.BeginRun("2024-03-17.dat", day, integrate.PolicyTrapezoidPosition)
		require.NoError(t, err)
		require.NoError(t, run.Finish(pipeline.Summary{}))
		ids = append(ids, run.ID())
	}

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, ri := range runs {
		assert.Equal(t, ids[i], ri.ID)
	}
}
