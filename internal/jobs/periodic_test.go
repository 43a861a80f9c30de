package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/commerce-adapters/pkg/model"
)

type capturePublisher struct {
	mu   sync.Mutex
	envs []*model.Envelope
	err  error
}

func (c *capturePublisher) Publish(_ context.Context, env *model.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.envs = append(c.envs, env)
	return c.err
}

func (c *capturePublisher) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.envs)
}

var testOpts = Options{
	Name:      "catalog_sync",
	Topic:     "evt.whatsapp.catalog.synced.v1",
	EventType: model.EventCatalogSynced,
	Interval:  10 * time.Millisecond,
}

func TestRunOnce_PublishesResult(t *testing.T) {
	pub := &capturePublisher{}
	job := NewPeriodic(zap.NewNop(), pub, testOpts, func(context.Context) (any, error) {
		return map[string]int{"created": 2, "updated": 1}, nil
	})

	require.True(t, job.RunOnce(context.Background()))
	require.Equal(t, 1, pub.count())

	env := pub.envs[0]
	assert.Equal(t, "evt.whatsapp.catalog.synced.v1", env.Topic)
	assert.Equal(t, model.EventCatalogSynced, env.EventType)

	var payload struct {
		Job    string         `json:"job"`
		Result map[string]int `json:"result"`
	}
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "catalog_sync", payload.Job)
	assert.Equal(t, 2, payload.Result["created"])
}

func TestRunOnce_FailureSkipsPublish(t *testing.T) {
	pub := &capturePublisher{}
	job := NewPeriodic(zap.NewNop(), pub, testOpts, func(context.Context) (any, error) {
		return nil, errors.New("graph down")
	})

	assert.False(t, job.RunOnce(context.Background()))
	assert.Zero(t, pub.count())
}

func TestRunOnce_PublishErrorStillSucceeds(t *testing.T) {
	pub := &capturePublisher{err: errors.New("nats down")}
	job := NewPeriodic(zap.NewNop(), pub, testOpts, func(context.Context) (any, error) { return nil, nil })

	assert.True(t, job.RunOnce(context.Background()))
}

func TestRunOnce_NilPublisher(t *testing.T) {
	job := NewPeriodic(nil, nil, testOpts, func(context.Context) (any, error) { return "ok", nil })
	assert.True(t, job.RunOnce(context.Background()))
}

func TestStart_RunsUntilStopped(t *testing.T) {
	var runs atomic.Int32
	job := NewPeriodic(zap.NewNop(), nil, testOpts, func(context.Context) (any, error) {
		runs.Add(1)
		return nil, nil
	})

	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	job.Stop()
	job.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop")
	}
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	job := NewPeriodic(zap.NewNop(), nil, testOpts, func(context.Context) (any, error) { return nil, nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop on cancel")
	}
}
