// Package storage provides the persistence backends for the reward engine.
// Every backend implements rewards.Store; Memory is the reference
// implementation, LevelDB and SQLite are the durable ones.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"pokeengine/native/rewards"
)

// Memory is the in-memory reference store. Each entity kind is guarded by
// its own RWMutex so reads stay concurrent while writes serialize per kind.
type Memory struct {
	rewardsMu sync.RWMutex
	rewards   map[uuid.UUID]rewards.Reward

	statsMu sync.RWMutex
	stats   map[statsKey]rewards.DailyStats

	streaksMu sync.RWMutex
	streaks   map[string]rewards.LoginStreak
}

type statsKey struct {
	playerID string
	day      string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rewards: make(map[uuid.UUID]rewards.Reward),
		stats:   make(map[statsKey]rewards.DailyStats),
		streaks: make(map[string]rewards.LoginStreak),
	}
}

func (m *Memory) CreateReward(ctx context.Context, reward *rewards.Reward) error {
	m.rewardsMu.Lock()
	defer m.rewardsMu.Unlock()
	m.rewards[reward.ID] = *reward
	return nil
}

func (m *Memory) RewardsByPlayer(ctx context.Context, playerID string) ([]rewards.Reward, error) {
	m.rewardsMu.RLock()
	defer m.rewardsMu.RUnlock()
	return m.collect(playerID, false), nil
}

func (m *Memory) PendingRewardsByPlayer(ctx context.Context, playerID string) ([]rewards.Reward, error) {
	m.rewardsMu.RLock()
	defer m.rewardsMu.RUnlock()
	return m.collect(playerID, true), nil
}

// collect filters rewards under a held read lock, newest first.
func (m *Memory) collect(playerID string, pendingOnly bool) []rewards.Reward {
	out := make([]rewards.Reward, 0)
	for _, reward := range m.rewards {
		if reward.PlayerID != playerID {
			continue
		}
		if pendingOnly && reward.Claimed {
			continue
		}
		out = append(out, reward)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (m *Memory) MarkRewardClaimed(ctx context.Context, id uuid.UUID) error {
	m.rewardsMu.Lock()
	defer m.rewardsMu.Unlock()
	reward, ok := m.rewards[id]
	if !ok {
		return rewards.ErrNotFound
	}
	reward.Claimed = true
	m.rewards[id] = reward
	return nil
}

func (m *Memory) MarkAllRewardsClaimed(ctx context.Context, playerID string) error {
	m.rewardsMu.Lock()
	defer m.rewardsMu.Unlock()
	for id, reward := range m.rewards {
		if reward.PlayerID == playerID && !reward.Claimed {
			reward.Claimed = true
			m.rewards[id] = reward
		}
	}
	return nil
}

func (m *Memory) DailyStats(ctx context.Context, playerID, day string) (*rewards.DailyStats, error) {
	m.statsMu.RLock()
	defer m.statsMu.RUnlock()
	stats, ok := m.stats[statsKey{playerID: playerID, day: day}]
	if !ok {
		return nil, rewards.ErrNotFound
	}
	copied := stats
	return &copied, nil
}

func (m *Memory) PutDailyStats(ctx context.Context, stats *rewards.DailyStats) error {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	m.stats[statsKey{playerID: stats.PlayerID, day: stats.Day}] = *stats
	return nil
}

func (m *Memory) LoginStreak(ctx context.Context, playerID string) (*rewards.LoginStreak, error) {
	m.streaksMu.RLock()
	defer m.streaksMu.RUnlock()
	streak, ok := m.streaks[playerID]
	if !ok {
		return nil, rewards.ErrNotFound
	}
	copied := streak
	return &copied, nil
}

func (m *Memory) PutLoginStreak(ctx context.Context, streak *rewards.LoginStreak) error {
	m.streaksMu.Lock()
	defer m.streaksMu.Unlock()
	m.streaks[streak.PlayerID] = *streak
	return nil
}

func (m *Memory) HasPendingWelcome(ctx context.Context, playerID string) (bool, error) {
	m.rewardsMu.RLock()
	defer m.rewardsMu.RUnlock()
	for _, reward := range m.rewards {
		if reward.PlayerID == playerID && reward.Game == rewards.GameWelcome && !reward.Claimed {
			return true, nil
		}
	}
	return false, nil
}

// Close satisfies rewards.Store; nothing to release.
func (m *Memory) Close() error {
	return nil
}
