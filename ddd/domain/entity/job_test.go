package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compress-service/ddd/domain/vo"
	"compress-service/pkg/errno"
)

func TestJobLifecycle(t *testing.T) {
	j := NewJob("owner-1", "videos/a.mp4")
	assert.NotEmpty(t, j.ID())
	assert.Equal(t, vo.JobStateFetching, j.State())

	require.NoError(t, j.RecordFetch("/tmp/a.mp4", 120))
	err := j.RecordFetch("/tmp/b.mp4", 60)
	assert.True(t, errors.Is(err, errno.ErrTransitionRejected))
	assert.Equal(t, 120.0, j.DurationSeconds())

	require.NoError(t, j.MoveTo(vo.JobStateAwaitingDecision))
	j.SetTimerArmed(true)

	d, _ := vo.TargetSize(50)
	require.NoError(t, j.ApplyDecision(d))
	other, _ := vo.FixedQuality(vo.QualityLow)
	assert.True(t, errors.Is(j.ApplyDecision(other), errno.ErrDecisionNotApplicable))

	require.NoError(t, j.MoveTo(vo.JobStateQueued))
	assert.False(t, j.TimerArmed())
	require.NoError(t, j.MoveTo(vo.JobStateCompressing))
	require.NoError(t, j.MoveTo(vo.JobStateDone))
	assert.NotNil(t, j.FinishedAt())
	assert.Error(t, j.MoveTo(vo.JobStateFailed))
}

func TestJobCloneIsIndependent(t *testing.T) {
	j := NewJob("o", "s")
	d, _ := vo.TargetSize(10)
	require.NoError(t, j.ApplyDecision(d))

	c := j.Clone()
	require.NoError(t, j.MoveTo(vo.JobStateCancelled))

	assert.Equal(t, vo.JobStateFetching, c.State())
	got, ok := c.Decision()
	require.True(t, ok)
	assert.Equal(t, 10.0, got.TargetSizeMB)
}
