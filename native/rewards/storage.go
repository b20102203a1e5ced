package rewards

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound reports an absent record. Implementations return it for
// missing daily stats, streaks, and claim targets so callers can tell
// "absent" apart from a zero-valued record.
var ErrNotFound = errors.New("rewards: not found")

// Store describes the persistence the engine needs. All operations must be
// safe for concurrent invocation; the engine is the sole writer.
type Store interface {
	// CreateReward persists a new reward record.
	CreateReward(ctx context.Context, reward *Reward) error

	// RewardsByPlayer returns every reward for the player, newest first.
	RewardsByPlayer(ctx context.Context, playerID string) ([]Reward, error)

	// PendingRewardsByPlayer returns the player's unclaimed rewards,
	// newest first.
	PendingRewardsByPlayer(ctx context.Context, playerID string) ([]Reward, error)

	// MarkRewardClaimed flips the claimed flag on one reward. Returns
	// ErrNotFound when the id is unknown.
	MarkRewardClaimed(ctx context.Context, id uuid.UUID) error

	// MarkAllRewardsClaimed flips the claimed flag on every unclaimed
	// reward for the player. A player with no pending rewards is a no-op.
	MarkAllRewardsClaimed(ctx context.Context, playerID string) error

	// DailyStats returns the aggregate for (player, day) or ErrNotFound.
	DailyStats(ctx context.Context, playerID, day string) (*DailyStats, error)

	// PutDailyStats inserts or replaces the aggregate for its key.
	PutDailyStats(ctx context.Context, stats *DailyStats) error

	// LoginStreak returns the player's streak state or ErrNotFound.
	LoginStreak(ctx context.Context, playerID string) (*LoginStreak, error)

	// PutLoginStreak inserts or replaces the player's streak state.
	PutLoginStreak(ctx context.Context, streak *LoginStreak) error

	// HasPendingWelcome reports whether an unclaimed welcome reward exists
	// for the player.
	HasPendingWelcome(ctx context.Context, playerID string) (bool, error)

	// Close releases backend resources.
	Close() error
}
