package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"pokeengine/native/rewards"
)

const (
	rewardKeyPrefix = "reward:"
	playerKeyPrefix = "player:"
	statsKeyPrefix  = "stats:"
	streakKeyPrefix = "streak:"
)

// LevelDB is a durable store backed by goleveldb. Reward records are stored
// under their id with a per-player index for range scans; aggregates and
// streaks are stored under composite keys. Values are JSON.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) the database at the provided path.
func OpenLevelDB(path string) (*LevelDB, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("storage: leveldb path required")
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("resolve leveldb path: %w", err)
	}
	db, err := leveldb.OpenFile(abs, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb store: %w", err)
	}
	return &LevelDB{db: db}, nil
}

// Close releases the underlying LevelDB resources.
func (s *LevelDB) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func rewardKey(id uuid.UUID) []byte {
	return []byte(rewardKeyPrefix + id.String())
}

func playerIndexKey(playerID string, id uuid.UUID) []byte {
	return []byte(playerKeyPrefix + playerID + ":" + id.String())
}

func (s *LevelDB) CreateReward(ctx context.Context, reward *rewards.Reward) error {
	value, err := json.Marshal(reward)
	if err != nil {
		return fmt.Errorf("encode reward: %w", err)
	}
	batch := new(leveldb.Batch)
	batch.Put(rewardKey(reward.ID), value)
	batch.Put(playerIndexKey(reward.PlayerID, reward.ID), nil)
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("write reward: %w", err)
	}
	return nil
}

// rewardsForPlayer loads every record referenced by the player index.
func (s *LevelDB) rewardsForPlayer(playerID string) ([]rewards.Reward, error) {
	prefix := []byte(playerKeyPrefix + playerID + ":")
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	out := make([]rewards.Reward, 0)
	for iter.Next() {
		id := strings.TrimPrefix(string(iter.Key()), string(prefix))
		value, err := s.db.Get([]byte(rewardKeyPrefix+id), nil)
		if err != nil {
			return nil, fmt.Errorf("load reward %s: %w", id, err)
		}
		var reward rewards.Reward
		if err := json.Unmarshal(value, &reward); err != nil {
			return nil, fmt.Errorf("decode reward %s: %w", id, err)
		}
		out = append(out, reward)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("scan rewards: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *LevelDB) RewardsByPlayer(ctx context.Context, playerID string) ([]rewards.Reward, error) {
	return s.rewardsForPlayer(playerID)
}

func (s *LevelDB) PendingRewardsByPlayer(ctx context.Context, playerID string) ([]rewards.Reward, error) {
	all, err := s.rewardsForPlayer(playerID)
	if err != nil {
		return nil, err
	}
	pending := all[:0]
	for _, reward := range all {
		if !reward.Claimed {
			pending = append(pending, reward)
		}
	}
	return pending, nil
}

func (s *LevelDB) MarkRewardClaimed(ctx context.Context, id uuid.UUID) error {
	value, err := s.db.Get(rewardKey(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return rewards.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load reward: %w", err)
	}
	var reward rewards.Reward
	if err := json.Unmarshal(value, &reward); err != nil {
		return fmt.Errorf("decode reward: %w", err)
	}
	reward.Claimed = true
	updated, err := json.Marshal(&reward)
	if err != nil {
		return fmt.Errorf("encode reward: %w", err)
	}
	if err := s.db.Put(rewardKey(id), updated, nil); err != nil {
		return fmt.Errorf("write reward: %w", err)
	}
	return nil
}

func (s *LevelDB) MarkAllRewardsClaimed(ctx context.Context, playerID string) error {
	all, err := s.rewardsForPlayer(playerID)
	if err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	for i := range all {
		if all[i].Claimed {
			continue
		}
		all[i].Claimed = true
		value, err := json.Marshal(&all[i])
		if err != nil {
			return fmt.Errorf("encode reward: %w", err)
		}
		batch.Put(rewardKey(all[i].ID), value)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("write claims: %w", err)
	}
	return nil
}

func (s *LevelDB) DailyStats(ctx context.Context, playerID, day string) (*rewards.DailyStats, error) {
	value, err := s.db.Get([]byte(statsKeyPrefix+playerID+":"+day), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, rewards.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load daily stats: %w", err)
	}
	var stats rewards.DailyStats
	if err := json.Unmarshal(value, &stats); err != nil {
		return nil, fmt.Errorf("decode daily stats: %w", err)
	}
	return &stats, nil
}

func (s *LevelDB) PutDailyStats(ctx context.Context, stats *rewards.DailyStats) error {
	value, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode daily stats: %w", err)
	}
	key := []byte(statsKeyPrefix + stats.PlayerID + ":" + stats.Day)
	if err := s.db.Put(key, value, nil); err != nil {
		return fmt.Errorf("write daily stats: %w", err)
	}
	return nil
}

func (s *LevelDB) LoginStreak(ctx context.Context, playerID string) (*rewards.LoginStreak, error) {
	value, err := s.db.Get([]byte(streakKeyPrefix+playerID), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, rewards.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load login streak: %w", err)
	}
	var streak rewards.LoginStreak
	if err := json.Unmarshal(value, &streak); err != nil {
		return nil, fmt.Errorf("decode login streak: %w", err)
	}
	return &streak, nil
}

func (s *LevelDB) PutLoginStreak(ctx context.Context, streak *rewards.LoginStreak) error {
	value, err := json.Marshal(streak)
	if err != nil {
		return fmt.Errorf("encode login streak: %w", err)
	}
	if err := s.db.Put([]byte(streakKeyPrefix+streak.PlayerID), value, nil); err != nil {
		return fmt.Errorf("write login streak: %w", err)
	}
	return nil
}

func (s *LevelDB) HasPendingWelcome(ctx context.Context, playerID string) (bool, error) {
	all, err := s.rewardsForPlayer(playerID)
	if err != nil {
		return false, err
	}
	for _, reward := range all {
		if reward.Game == rewards.GameWelcome && !reward.Claimed {
			return true, nil
		}
	}
	return false, nil
}
