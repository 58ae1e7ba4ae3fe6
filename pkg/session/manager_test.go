package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/harness"
	"github.com/aretw0/harness/pkg/domain"
	"github.com/aretw0/harness/pkg/ports"
	"github.com/aretw0/harness/pkg/session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalFactory() (*harness.Harness, error) {
	return harness.New(harness.WithEngineName("eval"))
}

func TestManager_CreateGetDelete(t *testing.T) {
	m := session.NewManager(evalFactory)
	ctx := context.Background()

	id, h, err := m.Create(ctx)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "ids are uuids")

	got, err := m.Get(id)
	require.NoError(t, err)
	assert.Same(t, h, got)
	assert.Equal(t, []string{id}, m.List())

	require.NoError(t, m.Delete(ctx, id))
	_, err = m.Get(id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, m.Delete(ctx, id), domain.ErrSessionNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestManager_SessionsAreIndependent(t *testing.T) {
	m := session.NewManager(evalFactory)
	ctx := context.Background()

	a, _, err := m.Create(ctx)
	require.NoError(t, err)
	b, _, err := m.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, m.SetInput(ctx, a, "(+ 1 1)"))
	require.NoError(t, m.SetInput(ctx, b, "(* 3 3)"))
	_, err = m.Run(ctx, a)
	require.NoError(t, err)

	ha, _ := m.Get(a)
	hb, _ := m.Get(b)
	assert.Equal(t, "2", ha.Output())
	assert.Equal(t, "", hb.Output(), "b was never run")
}

func TestManager_RunUnknown(t *testing.T) {
	m := session.NewManager(evalFactory)
	_, err := m.Run(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, m.SetInput(context.Background(), "nope", "x"), domain.ErrSessionNotFound)
}

func TestManager_FactoryError(t *testing.T) {
	m := session.NewManager(func() (*harness.Harness, error) { return harness.New() })
	_, _, err := m.Create(context.Background())
	assert.ErrorIs(t, err, harness.ErrNoEngine)
}

func TestManager_IDCollision(t *testing.T) {
	m := session.NewManager(evalFactory, session.WithIDGenerator(func() string { return "fixed" }))
	_, _, err := m.Create(context.Background())
	require.NoError(t, err)
	_, _, err = m.Create(context.Background())
	assert.Error(t, err)
}

func TestManager_Locking(t *testing.T) {
	m := session.NewManager(evalFactory)
	ctx := context.Background()
	id, _, err := m.Create(ctx)
	require.NoError(t, err)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WithLock(ctx, id, func(ctx context.Context) error {
				v := counter
				counter = v + 1
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, m.ActiveLocks(), "unused locks are collected")
}

func TestManager_RunIgnoresCancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	m := session.NewManager(func() (*harness.Harness, error) {
		return harness.New(harness.WithEngine(ports.EngineFunc(func(ctx context.Context, input string) (any, error) {
			close(started)
			<-release
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return "finished", nil
		})))
	})
	id, h, err := m.Create(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() {
		_, err := m.Run(ctx, id)
		result <- err
	}()
	<-started
	cancel()
	close(release)

	require.NoError(t, <-result)
	assert.Equal(t, `"finished"`, h.Output())
}
