package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compress-service/ddd/domain/gateway"
	"compress-service/ddd/domain/vo"
)

type recorder struct {
	mu   sync.Mutex
	got  []gateway.Notification
	keys []string
	err  error
}

func (r *recorder) Notify(_ context.Context, n gateway.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) PublishJSON(_ context.Context, channel string, v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, channel)
	r.got = append(r.got, v.(gateway.Notification))
	return r.err
}

func (r *recorder) ProduceJSON(_ context.Context, topic, key string, v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, topic+"/"+key)
	r.got = append(r.got, v.(gateway.Notification))
	return r.err
}

func note(jobID string, state vo.JobState) gateway.Notification {
	return gateway.Notification{JobID: jobID, OwnerID: "alice", State: state, Text: "x"}
}

func progressNote(jobID string, state vo.JobState) gateway.Notification {
	n := note(jobID, state)
	n.Progress = true
	return n
}

func TestThrottledDropsProgressBurstButKeepsTerminal(t *testing.T) {
	rec := &recorder{}
	th := NewThrottled(rec, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		th.Notify(ctx, progressNote("j1", vo.JobStateCompressing))
	}
	th.Notify(ctx, progressNote("j2", vo.JobStateCompressing))
	th.Notify(ctx, note("j1", vo.JobStateDone))
	th.Notify(ctx, note("j1", vo.JobStateDone))

	require.Len(t, rec.got, 4)
	assert.Equal(t, vo.JobStateDone, rec.got[2].State)
	assert.Equal(t, vo.JobStateDone, rec.got[3].State)
}

func TestThrottledDeliversEveryLifecycleMessage(t *testing.T) {
	rec := &recorder{}
	th := NewThrottled(rec, 2*time.Second)
	ctx := context.Background()

	th.Notify(ctx, progressNote("j1", vo.JobStateFetching))
	th.Notify(ctx, note("j1", vo.JobStateFetching))
	th.Notify(ctx, progressNote("j1", vo.JobStateFetching))
	th.Notify(ctx, note("j1", vo.JobStateAwaitingDecision))
	th.Notify(ctx, note("j1", vo.JobStateQueued))
	th.Notify(ctx, note("j1", vo.JobStateCompressing))
	th.Notify(ctx, progressNote("j1", vo.JobStateCompressing))

	states := make([]vo.JobState, 0, len(rec.got))
	for _, n := range rec.got {
		states = append(states, n.State)
	}
	assert.Equal(t, []vo.JobState{
		vo.JobStateFetching,
		vo.JobStateFetching,
		vo.JobStateAwaitingDecision,
		vo.JobStateQueued,
		vo.JobStateCompressing,
	}, states)
}

func TestRedisAndKafkaNotifiers(t *testing.T) {
	rec := &recorder{}
	NewRedisNotifier(rec, "compress:notify").Notify(context.Background(), note("j1", vo.JobStateQueued))
	NewKafkaNotifier(rec, "compress.events").Notify(context.Background(), note("j1", vo.JobStateQueued))

	assert.Equal(t, []string{"compress:notify:alice", "compress.events/j1"}, rec.keys)
}

func TestNotifierErrorsAreSwallowed(t *testing.T) {
	rec := &recorder{err: errors.New("down")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() {
		Fanout{NewRedisNotifier(rec, "p"), nil, LogNotifier{}}.Notify(ctx, note("j1", vo.JobStateFailed))
	})
	assert.Len(t, rec.got, 1)
}
