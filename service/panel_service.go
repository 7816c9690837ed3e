package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"dusko/models"

	log "github.com/sirupsen/logrus"
)

// PanelService keeps three sources of truth converged: the live playback
// session, the durable panel binding, and the rendered panel message. It
// holds no state of its own beyond per-guild locks; every pass recomputes
// from current state, which makes reconciliation re-entrant and idempotent.
type PanelService struct {
	repo      PanelRepository
	directory SessionDirectory
	messenger Messenger
	renderer  PanelRenderer

	// Per-guild locks serialize the create/move flows so a pending move
	// confirmation cannot race a concurrent create-panel request.
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// NewPanelService creates a new panel service
func NewPanelService(repo PanelRepository, directory SessionDirectory, messenger Messenger, renderer PanelRenderer) *PanelService {
	return &PanelService{
		repo:      repo,
		directory: directory,
		messenger: messenger,
		renderer:  renderer,
		locks:     make(map[int64]*sync.Mutex),
	}
}

func (s *PanelService) guildLock(guildID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock := s.locks[guildID]
	if lock == nil {
		lock = &sync.Mutex{}
		s.locks[guildID] = lock
	}
	return lock
}

// Reconcile re-renders the guild's panel from current session state, or
// repairs the binding when its channel or message no longer exists. A repair
// deletes the binding and stops; it is logged, never surfaced, since no user
// is waiting on it. Safe to invoke repeatedly and concurrently.
func (s *PanelService) Reconcile(ctx context.Context, guildID int64) error {
	binding, err := s.repo.GetBinding(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to load binding for reconcile: %w", err)
	}
	if binding == nil {
		// No panel exists for this guild; nothing to render
		return nil
	}

	if err := s.messenger.ResolveTextChannel(ctx, binding.ChannelID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return s.repair(ctx, binding, "bound channel no longer usable")
		}
		return fmt.Errorf("failed to resolve panel channel %d: %w", binding.ChannelID, err)
	}

	if err := s.messenger.ResolveMessage(ctx, binding.ChannelID, binding.MessageID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return s.repair(ctx, binding, "bound message no longer exists")
		}
		return fmt.Errorf("failed to resolve panel message %d: %w", binding.MessageID, err)
	}

	// Session absence is valid; the renderer produces the placeholder
	content := s.renderer.Render(s.directory.SnapshotFor(guildID))

	if err := s.messenger.EditPanel(ctx, binding.ChannelID, binding.MessageID, content); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Deleted concurrently between resolve and edit; same repair,
			// no retry
			return s.repair(ctx, binding, "panel message deleted during update")
		}
		return fmt.Errorf("failed to update panel message %d: %w", binding.MessageID, err)
	}

	return nil
}

// repair removes a binding whose render target vanished
func (s *PanelService) repair(ctx context.Context, binding *models.PanelBinding, reason string) error {
	log.WithFields(log.Fields{
		"guildID":   binding.GuildID,
		"channelID": binding.ChannelID,
		"messageID": binding.MessageID,
	}).Infof("Repairing panel binding: %s", reason)

	if err := s.repo.DeleteBinding(ctx, binding.GuildID); err != nil {
		return fmt.Errorf("failed to delete stale binding for guild %d: %w", binding.GuildID, err)
	}
	return nil
}

// ReconcileAll sweeps every stored binding, dropping those whose guild no
// longer resolves and reconciling the rest. Run at startup for self-healing
// after a process restart.
func (s *PanelService) ReconcileAll(ctx context.Context) error {
	bindings, err := s.repo.ListBindings(ctx)
	if err != nil {
		return fmt.Errorf("failed to list bindings for startup sweep: %w", err)
	}

	for _, binding := range bindings {
		if !s.messenger.GuildKnown(binding.GuildID) {
			if err := s.repair(ctx, binding, "guild no longer known"); err != nil {
				log.Errorf("Startup sweep failed to drop binding for guild %d: %v", binding.GuildID, err)
			}
			continue
		}

		if err := s.Reconcile(ctx, binding.GuildID); err != nil {
			// One broken guild must not block the rest of the sweep
			log.Errorf("Startup sweep failed to reconcile guild %d: %v", binding.GuildID, err)
		}
	}

	log.WithFields(log.Fields{"bindings": len(bindings)}).Info("Panel startup sweep complete")
	return nil
}

// CreateOutcome describes what a create-panel request resulted in
type CreateOutcome struct {
	// Binding is set when a panel was created outright
	Binding *models.PanelBinding

	// Existing is set instead when a resolvable panel already exists and the
	// requester must choose between keeping it and moving it
	Existing *models.PanelBinding
}

// PrepareCreate handles a create-panel request for the given channel. If the
// guild has no binding, or a binding whose channel or message is gone, the
// panel is created (the stale binding deleted first) and Outcome.Binding set.
// If a resolvable panel already exists, Outcome.Existing is returned and the
// caller must present the Keep/Move choice; no third state is reachable.
func (s *PanelService) PrepareCreate(ctx context.Context, guildID, channelID int64) (*CreateOutcome, error) {
	lock := s.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.repo.GetBinding(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing binding: %w", err)
	}

	if existing != nil {
		resolvable, err := s.resolveBinding(ctx, existing)
		if err != nil {
			return nil, err
		}
		if resolvable {
			return &CreateOutcome{Existing: existing}, nil
		}

		// The old panel is gone; drop the stale binding and fall through to
		// a direct create with no prompt
		if err := s.repair(ctx, existing, "stale binding found during create"); err != nil {
			return nil, err
		}
	}

	binding, err := s.createPanel(ctx, guildID, channelID)
	if err != nil {
		return nil, err
	}
	return &CreateOutcome{Binding: binding}, nil
}

// ConfirmMove executes a confirmed move: the old panel message is deleted,
// the binding atomically replaced, and the new panel reconciled. The guild
// lock keeps it from racing another create-panel request.
func (s *PanelService) ConfirmMove(ctx context.Context, guildID, newChannelID int64) (*models.PanelBinding, error) {
	lock := s.guildLock(guildID)
	lock.Lock()
	defer lock.Unlock()

	old, err := s.repo.GetBinding(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load binding for move: %w", err)
	}
	if old == nil {
		// The binding vanished between the prompt and the confirmation
		return nil, fmt.Errorf("panel binding for guild %d: %w", guildID, models.ErrNotFound)
	}

	content := s.renderer.Render(s.directory.SnapshotFor(guildID))
	messageID, err := s.messenger.SendPanel(ctx, newChannelID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to send panel message to channel %d: %w", newChannelID, err)
	}

	binding, err := s.repo.ReplaceBinding(ctx, guildID, newChannelID, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to replace binding for guild %d: %w", guildID, err)
	}

	// Best effort: the old message may already be gone
	if err := s.messenger.DeleteMessage(ctx, old.ChannelID, old.MessageID); err != nil && !errors.Is(err, models.ErrNotFound) {
		log.Warnf("Failed to delete old panel message %d in channel %d: %v", old.MessageID, old.ChannelID, err)
	}

	log.WithFields(log.Fields{
		"guildID":     guildID,
		"fromChannel": old.ChannelID,
		"toChannel":   newChannelID,
	}).Info("Panel moved")

	return binding, nil
}

// createPanel sends a fresh panel message and records its binding
func (s *PanelService) createPanel(ctx context.Context, guildID, channelID int64) (*models.PanelBinding, error) {
	content := s.renderer.Render(s.directory.SnapshotFor(guildID))

	messageID, err := s.messenger.SendPanel(ctx, channelID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to send panel message to channel %d: %w", channelID, err)
	}

	binding, err := s.repo.CreateBinding(ctx, guildID, channelID, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to record panel binding for guild %d: %w", guildID, err)
	}

	log.WithFields(log.Fields{
		"guildID":   guildID,
		"channelID": channelID,
		"messageID": messageID,
	}).Info("Panel created")

	return binding, nil
}

// resolveBinding reports whether a binding's channel and message both still
// exist. Only models.ErrNotFound means unresolvable; other failures abort.
func (s *PanelService) resolveBinding(ctx context.Context, binding *models.PanelBinding) (bool, error) {
	if err := s.messenger.ResolveTextChannel(ctx, binding.ChannelID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to resolve channel %d: %w", binding.ChannelID, err)
	}

	if err := s.messenger.ResolveMessage(ctx, binding.ChannelID, binding.MessageID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to resolve message %d: %w", binding.MessageID, err)
	}

	return true, nil
}
