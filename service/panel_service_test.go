package service

import (
	"context"
	"testing"

	"dusko/models"
	"dusko/player"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestService() (*PanelService, *MockPanelRepository, *MockSessionDirectory, *MockMessenger, *MockPanelRenderer) {
	repo := new(MockPanelRepository)
	directory := new(MockSessionDirectory)
	messenger := new(MockMessenger)
	renderer := new(MockPanelRenderer)
	return NewPanelService(repo, directory, messenger, renderer), repo, directory, messenger, renderer
}

func testBinding(guildID int64) *models.PanelBinding {
	return &models.PanelBinding{
		GuildID:   guildID,
		ChannelID: guildID*10 + 1,
		MessageID: guildID*10 + 2,
	}
}

func placeholderContent() PanelContent {
	return PanelContent{
		Embeds: []*discordgo.MessageEmbed{{Title: "Queue"}},
	}
}

func TestPanelService_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("no binding is a no-op", func(t *testing.T) {
		svc, repo, _, messenger, _ := newTestService()

		repo.On("GetBinding", ctx, int64(1)).Return(nil, nil)

		require.NoError(t, svc.Reconcile(ctx, 1))

		repo.AssertExpectations(t)
		messenger.AssertNotCalled(t, "EditPanel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("renders current session state onto bound message", func(t *testing.T) {
		svc, repo, directory, messenger, renderer := newTestService()
		binding := testBinding(1)
		snapshot := &player.Snapshot{GuildID: 1, State: player.StateConnectedPlaying}
		content := placeholderContent()

		repo.On("GetBinding", ctx, int64(1)).Return(binding, nil)
		messenger.On("ResolveTextChannel", ctx, binding.ChannelID).Return(nil)
		messenger.On("ResolveMessage", ctx, binding.ChannelID, binding.MessageID).Return(nil)
		directory.On("SnapshotFor", int64(1)).Return(snapshot)
		renderer.On("Render", snapshot).Return(content)
		messenger.On("EditPanel", ctx, binding.ChannelID, binding.MessageID, content).Return(nil)

		require.NoError(t, svc.Reconcile(ctx, 1))

		repo.AssertExpectations(t)
		messenger.AssertExpectations(t)
		renderer.AssertExpectations(t)
	})

	t.Run("absent session renders the placeholder", func(t *testing.T) {
		svc, repo, directory, messenger, renderer := newTestService()
		binding := testBinding(1)
		content := placeholderContent()

		repo.On("GetBinding", ctx, int64(1)).Return(binding, nil)
		messenger.On("ResolveTextChannel", ctx, binding.ChannelID).Return(nil)
		messenger.On("ResolveMessage", ctx, binding.ChannelID, binding.MessageID).Return(nil)
		directory.On("SnapshotFor", int64(1)).Return(nil)
		renderer.On("Render", (*player.Snapshot)(nil)).Return(content)
		messenger.On("EditPanel", ctx, binding.ChannelID, binding.MessageID, content).Return(nil)

		require.NoError(t, svc.Reconcile(ctx, 1))
		renderer.AssertExpectations(t)
	})

	t.Run("missing channel repairs the binding", func(t *testing.T) {
		svc, repo, _, messenger, _ := newTestService()
		binding := testBinding(1)

		repo.On("GetBinding", ctx, int64(1)).Return(binding, nil)
		messenger.On("ResolveTextChannel", ctx, binding.ChannelID).Return(models.ErrNotFound)
		repo.On("DeleteBinding", ctx, int64(1)).Return(nil)

		// The repair is not surfaced as an error; no user is waiting
		require.NoError(t, svc.Reconcile(ctx, 1))

		repo.AssertExpectations(t)
		messenger.AssertNotCalled(t, "EditPanel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing message repairs the binding", func(t *testing.T) {
		svc, repo, _, messenger, _ := newTestService()
		binding := testBinding(1)

		repo.On("GetBinding", ctx, int64(1)).Return(binding, nil)
		messenger.On("ResolveTextChannel", ctx, binding.ChannelID).Return(nil)
		messenger.On("ResolveMessage", ctx, binding.ChannelID, binding.MessageID).Return(models.ErrNotFound)
		repo.On("DeleteBinding", ctx, int64(1)).Return(nil)

		require.NoError(t, svc.Reconcile(ctx, 1))
		repo.AssertExpectations(t)
	})

	t.Run("concurrent message deletion during edit repairs too", func(t *testing.T) {
		svc, repo, directory, messenger, renderer := newTestService()
		binding := testBinding(1)
		content := placeholderContent()

		repo.On("GetBinding", ctx, int64(1)).Return(binding, nil)
		messenger.On("ResolveTextChannel", ctx, binding.ChannelID).Return(nil)
		messenger.On("ResolveMessage", ctx, binding.ChannelID, binding.MessageID).Return(nil)
		directory.On("SnapshotFor", int64(1)).Return(nil)
		renderer.On("Render", (*player.Snapshot)(nil)).Return(content)
		messenger.On("EditPanel", ctx, binding.ChannelID, binding.MessageID, content).Return(models.ErrNotFound)
		repo.On("DeleteBinding", ctx, int64(1)).Return(nil)

		require.NoError(t, svc.Reconcile(ctx, 1))
		repo.AssertExpectations(t)
	})

	t.Run("is idempotent with no intervening state change", func(t *testing.T) {
		svc, repo, directory, messenger, renderer := newTestService()
		binding := testBinding(1)
		snapshot := &player.Snapshot{GuildID: 1, State: player.StateConnectedEmpty}
		content := placeholderContent()

		repo.On("GetBinding", ctx, int64(1)).Return(binding, nil).Twice()
		messenger.On("ResolveTextChannel", ctx, binding.ChannelID).Return(nil).Twice()
		messenger.On("ResolveMessage", ctx, binding.ChannelID, binding.MessageID).Return(nil).Twice()
		directory.On("SnapshotFor", int64(1)).Return(snapshot).Twice()
		renderer.On("Render", snapshot).Return(content).Twice()
		// Both passes apply the exact same content
		messenger.On("EditPanel", ctx, binding.ChannelID, binding.MessageID, content).Return(nil).Twice()

		require.NoError(t, svc.Reconcile(ctx, 1))
		require.NoError(t, svc.Reconcile(ctx, 1))

		messenger.AssertExpectations(t)
	})
}

func TestPanelService_ReconcileAll(t *testing.T) {
	ctx := context.Background()

	t.Run("drops bindings for unknown guilds and reconciles the rest", func(t *testing.T) {
		svc, repo, directory, messenger, renderer := newTestService()
		known := testBinding(1)
		unknown := testBinding(2)
		content := placeholderContent()

		repo.On("ListBindings", ctx).Return([]*models.PanelBinding{known, unknown}, nil)

		messenger.On("GuildKnown", int64(1)).Return(true)
		repo.On("GetBinding", ctx, int64(1)).Return(known, nil)
		messenger.On("ResolveTextChannel", ctx, known.ChannelID).Return(nil)
		messenger.On("ResolveMessage", ctx, known.ChannelID, known.MessageID).Return(nil)
		directory.On("SnapshotFor", int64(1)).Return(nil)
		renderer.On("Render", (*player.Snapshot)(nil)).Return(content)
		messenger.On("EditPanel", ctx, known.ChannelID, known.MessageID, content).Return(nil)

		messenger.On("GuildKnown", int64(2)).Return(false)
		repo.On("DeleteBinding", ctx, int64(2)).Return(nil)

		require.NoError(t, svc.ReconcileAll(ctx))

		repo.AssertExpectations(t)
		messenger.AssertExpectations(t)
	})
}

func TestPanelService_PrepareCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("no existing binding creates the panel", func(t *testing.T) {
		svc, repo, directory, messenger, renderer := newTestService()
		content := placeholderContent()
		created := &models.PanelBinding{GuildID: 1, ChannelID: 500, MessageID: 900}

		repo.On("GetBinding", ctx, int64(1)).Return(nil, nil)
		directory.On("SnapshotFor", int64(1)).Return(nil)
		renderer.On("Render", (*player.Snapshot)(nil)).Return(content)
		messenger.On("SendPanel", ctx, int64(500), content).Return(int64(900), nil)
		repo.On("CreateBinding", ctx, int64(1), int64(500), int64(900)).Return(created, nil)

		outcome, err := svc.PrepareCreate(ctx, 1, 500)
		require.NoError(t, err)
		require.NotNil(t, outcome.Binding)
		assert.Nil(t, outcome.Existing)
		assert.Equal(t, int64(900), outcome.Binding.MessageID)

		repo.AssertExpectations(t)
		messenger.AssertExpectations(t)
	})

	t.Run("stale binding is deleted and panel created without prompt", func(t *testing.T) {
		svc, repo, directory, messenger, renderer := newTestService()
		stale := testBinding(1)
		content := placeholderContent()
		created := &models.PanelBinding{GuildID: 1, ChannelID: 500, MessageID: 900}

		repo.On("GetBinding", ctx, int64(1)).Return(stale, nil)
		messenger.On("ResolveTextChannel", ctx, stale.ChannelID).Return(nil)
		messenger.On("ResolveMessage", ctx, stale.ChannelID, stale.MessageID).Return(models.ErrNotFound)
		repo.On("DeleteBinding", ctx, int64(1)).Return(nil)
		directory.On("SnapshotFor", int64(1)).Return(nil)
		renderer.On("Render", (*player.Snapshot)(nil)).Return(content)
		messenger.On("SendPanel", ctx, int64(500), content).Return(int64(900), nil)
		repo.On("CreateBinding", ctx, int64(1), int64(500), int64(900)).Return(created, nil)

		outcome, err := svc.PrepareCreate(ctx, 1, 500)
		require.NoError(t, err)
		require.NotNil(t, outcome.Binding)
		assert.Nil(t, outcome.Existing)

		repo.AssertExpectations(t)
	})

	t.Run("resolvable binding requires the keep-or-move choice", func(t *testing.T) {
		svc, repo, _, messenger, _ := newTestService()
		existing := testBinding(1)

		repo.On("GetBinding", ctx, int64(1)).Return(existing, nil)
		messenger.On("ResolveTextChannel", ctx, existing.ChannelID).Return(nil)
		messenger.On("ResolveMessage", ctx, existing.ChannelID, existing.MessageID).Return(nil)

		outcome, err := svc.PrepareCreate(ctx, 1, 500)
		require.NoError(t, err)
		assert.Nil(t, outcome.Binding)
		require.NotNil(t, outcome.Existing)
		assert.Equal(t, existing, outcome.Existing)

		messenger.AssertNotCalled(t, "SendPanel", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "CreateBinding", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPanelService_ConfirmMove(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the panel to the new channel", func(t *testing.T) {
		svc, repo, directory, messenger, renderer := newTestService()
		old := testBinding(1)
		content := placeholderContent()
		moved := &models.PanelBinding{GuildID: 1, ChannelID: 600, MessageID: 901}

		repo.On("GetBinding", ctx, int64(1)).Return(old, nil)
		directory.On("SnapshotFor", int64(1)).Return(nil)
		renderer.On("Render", (*player.Snapshot)(nil)).Return(content)
		messenger.On("SendPanel", ctx, int64(600), content).Return(int64(901), nil)
		repo.On("ReplaceBinding", ctx, int64(1), int64(600), int64(901)).Return(moved, nil)
		messenger.On("DeleteMessage", ctx, old.ChannelID, old.MessageID).Return(nil)

		binding, err := svc.ConfirmMove(ctx, 1, 600)
		require.NoError(t, err)
		assert.Equal(t, int64(600), binding.ChannelID)

		repo.AssertExpectations(t)
		messenger.AssertExpectations(t)
	})

	t.Run("old message already gone is tolerated", func(t *testing.T) {
		svc, repo, directory, messenger, renderer := newTestService()
		old := testBinding(1)
		content := placeholderContent()
		moved := &models.PanelBinding{GuildID: 1, ChannelID: 600, MessageID: 901}

		repo.On("GetBinding", ctx, int64(1)).Return(old, nil)
		directory.On("SnapshotFor", int64(1)).Return(nil)
		renderer.On("Render", (*player.Snapshot)(nil)).Return(content)
		messenger.On("SendPanel", ctx, int64(600), content).Return(int64(901), nil)
		repo.On("ReplaceBinding", ctx, int64(1), int64(600), int64(901)).Return(moved, nil)
		messenger.On("DeleteMessage", ctx, old.ChannelID, old.MessageID).Return(models.ErrNotFound)

		_, err := svc.ConfirmMove(ctx, 1, 600)
		require.NoError(t, err)
	})

	t.Run("vanished binding fails with not found", func(t *testing.T) {
		svc, repo, _, _, _ := newTestService()

		repo.On("GetBinding", ctx, int64(1)).Return(nil, nil)

		_, err := svc.ConfirmMove(ctx, 1, 600)
		require.ErrorIs(t, err, models.ErrNotFound)
	})
}
