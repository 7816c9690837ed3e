package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dusko/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	eventuallyTimeout = time.Second
	eventuallyTick    = 5 * time.Millisecond
)

func TestRegistry_GetAbsent(t *testing.T) {
	registry := NewRegistry(&fakeNode{}, &fakeVoice{})

	// Absence signals nothing is playing, not a failure
	assert.Nil(t, registry.Get(42))
}

func TestRegistry_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	voice := &fakeVoice{}
	registry := NewRegistry(&fakeNode{}, voice)

	session, err := registry.Create(ctx, 1, 100)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, StateConnectedEmpty, session.State())
	assert.Equal(t, int64(100), session.VoiceChannelID())

	assert.Same(t, session, registry.Get(1))
}

func TestRegistry_CreateSameChannelReturnsExisting(t *testing.T) {
	ctx := context.Background()
	voice := &fakeVoice{}
	registry := NewRegistry(&fakeNode{}, voice)

	first, err := registry.Create(ctx, 1, 100)
	require.NoError(t, err)

	second, err := registry.Create(ctx, 1, 100)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, voice.joins)
}

func TestRegistry_CreateDifferentChannelReconnects(t *testing.T) {
	ctx := context.Background()
	node := &fakeNode{}
	voice := &fakeVoice{}
	registry := NewRegistry(node, voice)

	first, err := registry.Create(ctx, 1, 100)
	require.NoError(t, err)

	second, err := registry.Create(ctx, 1, 200)
	require.NoError(t, err)
	require.NotSame(t, first, second)

	assert.Equal(t, StateDisconnected, first.State())
	assert.Equal(t, int64(200), second.VoiceChannelID())
	assert.Equal(t, 1, node.destroys)
	assert.Equal(t, 2, voice.joins)
}

func TestRegistry_ConcurrentJoinRejected(t *testing.T) {
	ctx := context.Background()
	block := make(chan struct{})
	voice := &fakeVoice{block: block}
	registry := NewRegistry(&fakeNode{}, voice)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := registry.Create(ctx, 1, 100)
		assert.NoError(t, err)
	}()

	// Wait until the first join is in flight
	require.Eventually(t, func() bool {
		s := registry.Get(1)
		return s != nil && s.State() == StateConnecting
	}, eventuallyTimeout, eventuallyTick)

	_, err := registry.Create(ctx, 1, 100)
	require.ErrorIs(t, err, models.ErrAlreadyConnecting)

	close(block)
	wg.Wait()

	assert.Equal(t, StateConnectedEmpty, registry.Get(1).State())
}

func TestRegistry_CreateJoinFailure(t *testing.T) {
	ctx := context.Background()
	voice := &fakeVoice{joinErr: errors.New("udp handshake timed out")}
	registry := NewRegistry(&fakeNode{}, voice)

	session, err := registry.Create(ctx, 1, 100)
	require.ErrorIs(t, err, models.ErrConnectionFailure)
	assert.Nil(t, session)

	// The failed join leaves no session behind
	assert.Nil(t, registry.Get(1))
}

func TestRegistry_Destroy(t *testing.T) {
	ctx := context.Background()
	node := &fakeNode{}
	voice := &fakeVoice{}
	registry := NewRegistry(node, voice)

	session, err := registry.Create(ctx, 1, 100)
	require.NoError(t, err)

	registry.Destroy(ctx, 1)

	assert.Nil(t, registry.Get(1))
	assert.Equal(t, StateDisconnected, session.State())
	assert.Equal(t, 1, node.destroys)
	assert.Equal(t, 1, voice.leaves)

	// Destroying an absent session is a no-op
	registry.Destroy(ctx, 1)
	assert.Equal(t, 1, node.destroys)
}

func TestRegistry_All(t *testing.T) {
	ctx := context.Background()
	registry := NewRegistry(&fakeNode{}, &fakeVoice{})

	_, err := registry.Create(ctx, 1, 100)
	require.NoError(t, err)
	_, err = registry.Create(ctx, 2, 200)
	require.NoError(t, err)

	assert.Len(t, registry.All(), 2)

	registry.Shutdown(ctx)
	assert.Empty(t, registry.All())
}
