package repository

import (
	"context"
	"errors"
	"fmt"

	"dusko/database"
	"dusko/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolationCode = "23505"

// PanelRepository implements the service.PanelRepository interface over the
// music_players table
type PanelRepository struct {
	db *database.DB
	q  queryable
}

// NewPanelRepository creates a new panel binding repository
func NewPanelRepository(db *database.DB) *PanelRepository {
	return &PanelRepository{db: db, q: db.Pool}
}

// GetBinding retrieves the panel binding for a guild. A nil binding with a nil
// error means the guild has no panel; it never means the session is inactive.
func (r *PanelRepository) GetBinding(ctx context.Context, guildID int64) (*models.PanelBinding, error) {
	query := `
		SELECT guild_id, channel_id, message_id, created_at, updated_at
		FROM music_players
		WHERE guild_id = $1
	`

	var binding models.PanelBinding
	err := r.q.QueryRow(ctx, query, guildID).Scan(
		&binding.GuildID,
		&binding.ChannelID,
		&binding.MessageID,
		&binding.CreatedAt,
		&binding.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get panel binding for guild %d: %w", guildID, err)
	}

	return &binding, nil
}

// CreateBinding inserts a new panel binding for a guild. Returns
// models.ErrAlreadyBound if the guild already has one; callers must
// delete-then-create, never upsert, so an orphaned old message is never
// silently lost.
func (r *PanelRepository) CreateBinding(ctx context.Context, guildID, channelID, messageID int64) (*models.PanelBinding, error) {
	query := `
		INSERT INTO music_players (guild_id, channel_id, message_id)
		VALUES ($1, $2, $3)
		RETURNING guild_id, channel_id, message_id, created_at, updated_at
	`

	var binding models.PanelBinding
	err := r.q.QueryRow(ctx, query, guildID, channelID, messageID).Scan(
		&binding.GuildID,
		&binding.ChannelID,
		&binding.MessageID,
		&binding.CreatedAt,
		&binding.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, models.ErrAlreadyBound
		}
		return nil, fmt.Errorf("failed to create panel binding for guild %d: %w", guildID, err)
	}

	return &binding, nil
}

// ReplaceBinding atomically swaps a guild's binding for a new channel/message
// pair. Used only by the confirmed move flow; no observable state exists where
// the guild has zero or two bindings.
func (r *PanelRepository) ReplaceBinding(ctx context.Context, guildID, channelID, messageID int64) (*models.PanelBinding, error) {
	var binding models.PanelBinding

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM music_players WHERE guild_id = $1`, guildID); err != nil {
			return fmt.Errorf("failed to delete old panel binding for guild %d: %w", guildID, err)
		}

		query := `
			INSERT INTO music_players (guild_id, channel_id, message_id)
			VALUES ($1, $2, $3)
			RETURNING guild_id, channel_id, message_id, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query, guildID, channelID, messageID).Scan(
			&binding.GuildID,
			&binding.ChannelID,
			&binding.MessageID,
			&binding.CreatedAt,
			&binding.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert replacement panel binding for guild %d: %w", guildID, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &binding, nil
}

// DeleteBinding removes the panel binding for a guild. Deleting an absent
// binding is a no-op, not an error.
func (r *PanelRepository) DeleteBinding(ctx context.Context, guildID int64) error {
	_, err := r.q.Exec(ctx, `DELETE FROM music_players WHERE guild_id = $1`, guildID)
	if err != nil {
		return fmt.Errorf("failed to delete panel binding for guild %d: %w", guildID, err)
	}

	return nil
}

// ListBindings returns all panel bindings, used by the startup sweep
func (r *PanelRepository) ListBindings(ctx context.Context) ([]*models.PanelBinding, error) {
	query := `
		SELECT guild_id, channel_id, message_id, created_at, updated_at
		FROM music_players
		ORDER BY guild_id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list panel bindings: %w", err)
	}
	defer rows.Close()

	var bindings []*models.PanelBinding
	for rows.Next() {
		var binding models.PanelBinding
		err := rows.Scan(
			&binding.GuildID,
			&binding.ChannelID,
			&binding.MessageID,
			&binding.CreatedAt,
			&binding.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan panel binding: %w", err)
		}
		bindings = append(bindings, &binding)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate panel bindings: %w", err)
	}

	return bindings, nil
}
