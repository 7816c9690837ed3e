package player

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dusko/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNode struct {
	mu       sync.Mutex
	played   []models.Track
	stops    int
	destroys int
	playErr  error
}

func (n *fakeNode) Play(ctx context.Context, guildID int64, track models.Track) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.playErr != nil {
		return n.playErr
	}
	n.played = append(n.played, track)
	return nil
}

func (n *fakeNode) Pause(ctx context.Context, guildID int64, paused bool) error {
	return nil
}

func (n *fakeNode) Stop(ctx context.Context, guildID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stops++
	return nil
}

func (n *fakeNode) Destroy(ctx context.Context, guildID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.destroys++
	return nil
}

type fakeVoice struct {
	mu      sync.Mutex
	joinErr error
	block   chan struct{}
	joins   int
	leaves  int
}

func (v *fakeVoice) JoinVoice(guildID, channelID int64) error {
	if v.block != nil {
		<-v.block
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.joinErr != nil {
		return v.joinErr
	}
	v.joins++
	return nil
}

func (v *fakeVoice) LeaveVoice(guildID int64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.leaves++
	return nil
}

func testTrack(title string) models.Track {
	return models.Track{
		Encoded: "enc-" + title,
		URI:     "https://tracks.example/" + title,
		Title:   title,
		Author:  "Author",
	}
}

func newConnectedSession(t *testing.T, node *fakeNode) *Session {
	t.Helper()
	registry := NewRegistry(node, &fakeVoice{})
	session, err := registry.Create(context.Background(), 1, 100)
	require.NoError(t, err)
	require.Equal(t, StateConnectedEmpty, session.State())
	return session
}

func TestSession_PlayFromQueue(t *testing.T) {
	ctx := context.Background()
	node := &fakeNode{}
	session := newConnectedSession(t, node)

	track := testTrack("one")
	require.NoError(t, session.Enqueue(track, false))

	// Enqueue alone never changes play state
	assert.Equal(t, StateConnectedEmpty, session.State())

	require.NoError(t, session.Play(ctx, nil))

	snap := session.Snapshot()
	assert.Equal(t, StateConnectedPlaying, snap.State)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "one", snap.Current.Title)
	assert.Empty(t, snap.Queue)
	assert.Equal(t, []models.Track{track}, node.played)
}

func TestSession_PlayWithEmptyQueue(t *testing.T) {
	ctx := context.Background()
	node := &fakeNode{}
	session := newConnectedSession(t, node)

	// Dequeuing from an empty queue is not an error; nothing starts
	require.NoError(t, session.Play(ctx, nil))
	assert.Equal(t, StateConnectedEmpty, session.State())
	assert.Empty(t, node.played)
}

func TestSession_PlayExplicitTrack(t *testing.T) {
	ctx := context.Background()
	node := &fakeNode{}
	session := newConnectedSession(t, node)

	require.NoError(t, session.Enqueue(testTrack("queued"), false))

	explicit := testTrack("explicit")
	require.NoError(t, session.Play(ctx, &explicit))

	snap := session.Snapshot()
	assert.Equal(t, "explicit", snap.Current.Title)
	// The queued track stays queued
	require.Len(t, snap.Queue, 1)
	assert.Equal(t, "queued", snap.Queue[0].Title)
}

func TestSession_PauseResume(t *testing.T) {
	ctx := context.Background()
	node := &fakeNode{}
	session := newConnectedSession(t, node)

	track := testTrack("one")
	require.NoError(t, session.Play(ctx, &track))

	require.NoError(t, session.Pause(ctx, true))
	assert.Equal(t, StateConnectedPaused, session.State())

	// Pausing an already paused session reports the state, changes nothing
	err := session.Pause(ctx, true)
	require.ErrorIs(t, err, models.ErrAlreadyInState)
	assert.Equal(t, StateConnectedPaused, session.State())

	require.NoError(t, session.Pause(ctx, false))
	assert.Equal(t, StateConnectedPlaying, session.State())

	err = session.Pause(ctx, false)
	require.ErrorIs(t, err, models.ErrAlreadyInState)
}

func TestSession_PauseRequiresPlayback(t *testing.T) {
	ctx := context.Background()
	node := &fakeNode{}
	session := newConnectedSession(t, node)

	// A session can never reach paused without having played
	err := session.Pause(ctx, true)
	require.ErrorIs(t, err, models.ErrAlreadyInState)
	assert.Equal(t, StateConnectedEmpty, session.State())
}

func TestSession_Toggle(t *testing.T) {
	ctx := context.Background()
	node := &fakeNode{}
	session := newConnectedSession(t, node)

	err := session.Toggle(ctx)
	require.ErrorIs(t, err, models.ErrAlreadyInState)

	track := testTrack("one")
	require.NoError(t, session.Play(ctx, &track))

	require.NoError(t, session.Toggle(ctx))
	assert.Equal(t, StateConnectedPaused, session.State())

	require.NoError(t, session.Toggle(ctx))
	assert.Equal(t, StateConnectedPlaying, session.State())
}

func TestSession_Skip(t *testing.T) {
	ctx := context.Background()

	t.Run("skip to next track", func(t *testing.T) {
		node := &fakeNode{}
		session := newConnectedSession(t, node)

		first := testTrack("first")
		require.NoError(t, session.Play(ctx, &first))
		require.NoError(t, session.Enqueue(testTrack("second"), false))

		require.NoError(t, session.Skip(ctx))

		snap := session.Snapshot()
		assert.Equal(t, StateConnectedPlaying, snap.State)
		assert.Equal(t, "second", snap.Current.Title)
		assert.Empty(t, snap.Queue)
	})

	t.Run("skip with empty queue lands in connected-empty", func(t *testing.T) {
		node := &fakeNode{}
		session := newConnectedSession(t, node)

		track := testTrack("only")
		require.NoError(t, session.Play(ctx, &track))

		require.NoError(t, session.Skip(ctx))
		snap := session.Snapshot()
		assert.Equal(t, StateConnectedEmpty, snap.State)
		assert.Nil(t, snap.Current)
		assert.Equal(t, 1, node.stops)
	})

	t.Run("skip with nothing playing", func(t *testing.T) {
		node := &fakeNode{}
		session := newConnectedSession(t, node)

		err := session.Skip(ctx)
		require.ErrorIs(t, err, models.ErrAlreadyInState)
	})
}

func TestSession_AdvanceQueue(t *testing.T) {
	ctx := context.Background()
	node := &fakeNode{}
	session := newConnectedSession(t, node)

	track := testTrack("first")
	require.NoError(t, session.Play(ctx, &track))
	require.NoError(t, session.Enqueue(testTrack("second"), false))

	require.NoError(t, session.AdvanceQueue(ctx))
	assert.Equal(t, "second", session.Snapshot().Current.Title)

	// Track end with nothing left falls back to connected-empty
	require.NoError(t, session.AdvanceQueue(ctx))
	snap := session.Snapshot()
	assert.Equal(t, StateConnectedEmpty, snap.State)
	assert.Nil(t, snap.Current)

	// A duplicate or stale event is harmless
	require.NoError(t, session.AdvanceQueue(ctx))
	assert.Equal(t, StateConnectedEmpty, session.State())
}

func TestSession_EnqueuePrepend(t *testing.T) {
	node := &fakeNode{}
	session := newConnectedSession(t, node)

	require.NoError(t, session.Enqueue(testTrack("second"), false))
	require.NoError(t, session.Enqueue(testTrack("first"), true))

	tracks := session.QueueTracks()
	require.Len(t, tracks, 2)
	assert.Equal(t, "first", tracks[0].Title)
	assert.Equal(t, "second", tracks[1].Title)
}

func TestSession_PlayFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	node := &fakeNode{playErr: errors.New("node unavailable")}
	session := newConnectedSession(t, node)

	track := testTrack("one")
	err := session.Play(ctx, &track)
	require.Error(t, err)

	// The failed start leaves the session state untouched
	snap := session.Snapshot()
	assert.Equal(t, StateConnectedEmpty, snap.State)
	assert.Nil(t, snap.Current)
}
