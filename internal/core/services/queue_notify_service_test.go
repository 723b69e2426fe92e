package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"clinicdesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(id string, clinicID uint, buffer int) *SSEClient {
	return &SSEClient{ID: id, ClinicID: clinicID, Channel: make(chan SSEEvent, buffer)}
}

func TestSSEHub_BroadcastIsPerClinic(t *testing.T) {
	hub := NewSSEHub()
	a1, a2, b := newClient("a1", 1, 4), newClient("a2", 1, 4), newClient("b", 2, 4)
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b)
	assert.Equal(t, 3, hub.GetClientCount())

	sent := hub.BroadcastToClinic(1, SSEEvent{Event: EventAdvanced, Data: "x"})
	assert.Equal(t, 2, sent)

	got := <-a1.Channel
	assert.Equal(t, uint(1), got.ClinicID)
	assert.Equal(t, EventAdvanced, got.Event)
	assert.Len(t, a2.Channel, 1)
	assert.Len(t, b.Channel, 0)
}

func TestSSEHub_FullChannelDropsInsteadOfBlocking(t *testing.T) {
	hub := NewSSEHub()
	slow := newClient("slow", 1, 1)
	hub.Register(slow)

	assert.Equal(t, 1, hub.BroadcastToClinic(1, SSEEvent{Event: "first"}))
	assert.Equal(t, 0, hub.BroadcastToClinic(1, SSEEvent{Event: "second"}))

	got := <-slow.Channel
	assert.Equal(t, "first", got.Event)
}

func TestSSEHub_UnregisterClosesChannel(t *testing.T) {
	hub := NewSSEHub()
	c := newClient("c", 1, 1)
	hub.Register(c)

	hub.Unregister("c")
	hub.Unregister("c")
	assert.Equal(t, 0, hub.GetClientCount())

	_, open := <-c.Channel
	assert.False(t, open)
	assert.Equal(t, 0, hub.BroadcastToClinic(1, SSEEvent{Event: "late"}))
}

func TestSSEHub_ConcurrentRegisterAndBroadcast(t *testing.T) {
	hub := NewSSEHub()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		id := string(rune('a' + i))
		go func() {
			defer wg.Done()
			hub.Register(newClient(id, 1, 8))
		}()
		go func() {
			defer wg.Done()
			hub.BroadcastToClinic(1, SSEEvent{Event: "tick"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, hub.GetClientCount())
}

func TestQueueAutoService_StartRejectsBadSchedule(t *testing.T) {
	env := newTestEnv(t)
	auto := NewQueueAutoService(env.queues, NewAuthService(env.repos, testConfig()), config.CronConfig{
		Enabled:        true,
		StaleQueueSpec: "every now and then",
		TokenPurgeSpec: "@daily",
	})
	assert.Error(t, auto.Start())
}

func TestQueueAutoService_ClosesStaleQueues(t *testing.T) {
	env := newTestEnv(t)
	scope := env.newClinic(t, "alpha", "UTC")

	clock := time.Date(2024, 6, 10, 22, 0, 0, 0, time.UTC)
	env.queues.now = fixedClock(&clock)
	_, err := env.queues.CreateQueue(context.Background(), scope)
	require.NoError(t, err)

	auto := NewQueueAutoService(env.queues, NewAuthService(env.repos, testConfig()), config.CronConfig{
		StaleQueueSpec: "@every 1h",
		TokenPurgeSpec: "@daily",
	})
	clock = clock.Add(3 * time.Hour)
	auto.closeStaleQueues()

	_, err = env.queues.GetQueue(context.Background(), scope)
	assert.Error(t, err)

	require.NoError(t, auto.Start())
	auto.Stop()
}
