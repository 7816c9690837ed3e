package service

import (
	"context"

	"dusko/models"
	"dusko/player"

	"github.com/stretchr/testify/mock"
)

// MockPanelRepository is a mock implementation of PanelRepository
type MockPanelRepository struct {
	mock.Mock
}

func (m *MockPanelRepository) GetBinding(ctx context.Context, guildID int64) (*models.PanelBinding, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PanelBinding), args.Error(1)
}

func (m *MockPanelRepository) CreateBinding(ctx context.Context, guildID, channelID, messageID int64) (*models.PanelBinding, error) {
	args := m.Called(ctx, guildID, channelID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PanelBinding), args.Error(1)
}

func (m *MockPanelRepository) ReplaceBinding(ctx context.Context, guildID, channelID, messageID int64) (*models.PanelBinding, error) {
	args := m.Called(ctx, guildID, channelID, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PanelBinding), args.Error(1)
}

func (m *MockPanelRepository) DeleteBinding(ctx context.Context, guildID int64) error {
	args := m.Called(ctx, guildID)
	return args.Error(0)
}

func (m *MockPanelRepository) ListBindings(ctx context.Context) ([]*models.PanelBinding, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PanelBinding), args.Error(1)
}

// MockMessenger is a mock implementation of Messenger
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) GuildKnown(guildID int64) bool {
	args := m.Called(guildID)
	return args.Bool(0)
}

func (m *MockMessenger) ResolveTextChannel(ctx context.Context, channelID int64) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *MockMessenger) ResolveMessage(ctx context.Context, channelID, messageID int64) error {
	args := m.Called(ctx, channelID, messageID)
	return args.Error(0)
}

func (m *MockMessenger) SendPanel(ctx context.Context, channelID int64, content PanelContent) (int64, error) {
	args := m.Called(ctx, channelID, content)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMessenger) EditPanel(ctx context.Context, channelID, messageID int64, content PanelContent) error {
	args := m.Called(ctx, channelID, messageID, content)
	return args.Error(0)
}

func (m *MockMessenger) DeleteMessage(ctx context.Context, channelID, messageID int64) error {
	args := m.Called(ctx, channelID, messageID)
	return args.Error(0)
}

// MockPanelRenderer is a mock implementation of PanelRenderer
type MockPanelRenderer struct {
	mock.Mock
}

func (m *MockPanelRenderer) Render(snapshot *player.Snapshot) PanelContent {
	args := m.Called(snapshot)
	return args.Get(0).(PanelContent)
}

// MockSessionDirectory is a mock implementation of SessionDirectory
type MockSessionDirectory struct {
	mock.Mock
}

func (m *MockSessionDirectory) SnapshotFor(guildID int64) *player.Snapshot {
	args := m.Called(guildID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*player.Snapshot)
}
