package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compress-service/pkg/errno"
)

func TestEstimateWorkedExample(t *testing.T) {
	est, err := EstimateVideoBitrateKbps(50, 120, 128, 100)
	require.NoError(t, err)
	assert.InDelta(t, (409600.0-15360.0)/120.0, est.VideoKbps, 1e-9)
	assert.InDelta(t, 3285.33, est.VideoKbps, 0.01)
	assert.False(t, est.Clamped())
	assert.Equal(t, "3285k", est.Arg())
}

func TestEstimateClampsToFloor(t *testing.T) {
	est, err := EstimateVideoBitrateKbps(1, 600, 128, 100)
	require.NoError(t, err)
	assert.Equal(t, 100.0, est.VideoKbps)
	assert.Less(t, est.RequestedKbps, 0.0)
	require.True(t, est.Clamped())
	assert.True(t, errors.Is(est.Warning, errno.ErrSizeTooSmall))
}

func TestEstimateInvalidDuration(t *testing.T) {
	for _, d := range []float64{0, -1, -0.001} {
		for _, mb := range []float64{0, 1, 1000} {
			_, err := EstimateVideoBitrateKbps(mb, d, 128, 100)
			assert.True(t, errors.Is(err, errno.ErrInvalidDuration), "duration=%v size=%v", d, mb)
		}
	}
}

func TestEstimateNeverBelowFloor(t *testing.T) {
	for _, mb := range []float64{0.1, 1, 5, 25, 50, 500, 4000} {
		for _, d := range []float64{0.5, 1, 30, 120, 3600, 36000} {
			est, err := EstimateVideoBitrateKbps(mb, d, 128, 100)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, est.VideoKbps, 100.0, "size=%v duration=%v", mb, d)
		}
	}
}
