package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pokeengine/native/rewards"
)

func openBackends(t *testing.T) map[string]rewards.Store {
	t.Helper()
	level, err := OpenLevelDB(filepath.Join(t.TempDir(), "rewards"))
	require.NoError(t, err)
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "rewards.db"))
	require.NoError(t, err)
	return map[string]rewards.Store{
		"memory":  NewMemory(),
		"leveldb": level,
		"sqlite":  sqlite,
	}
}

func newReward(playerID string, game rewards.GameKind, amount uint64, ts time.Time) *rewards.Reward {
	return &rewards.Reward{
		ID:        uuid.New(),
		PlayerID:  playerID,
		Game:      game,
		Amount:    amount,
		Timestamp: ts.UTC(),
		GameData:  []byte(`{"score":42}`),
	}
}

func TestStoreRewardLifecycle(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()
			base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

			var ids []uuid.UUID
			for i := 0; i < 3; i++ {
				reward := newReward("ash", rewards.GameFlyPoke, 10, base.Add(time.Duration(i)*time.Minute))
				require.NoError(t, store.CreateReward(ctx, reward))
				ids = append(ids, reward.ID)
			}
			require.NoError(t, store.CreateReward(ctx, newReward("misty", rewards.GameBattle, 50, base)))

			all, err := store.RewardsByPlayer(ctx, "ash")
			require.NoError(t, err)
			require.Len(t, all, 3)
			// Newest first.
			require.Equal(t, ids[2], all[0].ID)
			require.Equal(t, ids[0], all[2].ID)
			require.Equal(t, rewards.GameFlyPoke, all[0].Game)
			require.JSONEq(t, `{"score":42}`, string(all[0].GameData))

			require.NoError(t, store.MarkRewardClaimed(ctx, ids[0]))
			pending, err := store.PendingRewardsByPlayer(ctx, "ash")
			require.NoError(t, err)
			require.Len(t, pending, 2)
			for _, reward := range pending {
				require.NotEqual(t, ids[0], reward.ID)
			}

			err = store.MarkRewardClaimed(ctx, uuid.New())
			require.ErrorIs(t, err, rewards.ErrNotFound)

			require.NoError(t, store.MarkAllRewardsClaimed(ctx, "ash"))
			pending, err = store.PendingRewardsByPlayer(ctx, "ash")
			require.NoError(t, err)
			require.Empty(t, pending)

			// Repeat claim-all is a no-op, and other players are untouched.
			require.NoError(t, store.MarkAllRewardsClaimed(ctx, "ash"))
			pending, err = store.PendingRewardsByPlayer(ctx, "misty")
			require.NoError(t, err)
			require.Len(t, pending, 1)

			all, err = store.RewardsByPlayer(ctx, "ash")
			require.NoError(t, err)
			require.Len(t, all, 3)
			for _, reward := range all {
				require.True(t, reward.Claimed)
			}
		})
	}
}

func TestStoreDailyStats(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()

			_, err := store.DailyStats(ctx, "ash", "2025-06-01")
			require.ErrorIs(t, err, rewards.ErrNotFound)

			stats := &rewards.DailyStats{
				PlayerID: "ash",
				Day:      "2025-06-01",
				FlyPoke:  100,
				Battle:   50,
				Total:    150,
			}
			require.NoError(t, store.PutDailyStats(ctx, stats))

			got, err := store.DailyStats(ctx, "ash", "2025-06-01")
			require.NoError(t, err)
			require.Equal(t, stats, got)

			// Put replaces the record for its key.
			stats.FlyPoke = 200
			stats.Total = 250
			require.NoError(t, store.PutDailyStats(ctx, stats))
			got, err = store.DailyStats(ctx, "ash", "2025-06-01")
			require.NoError(t, err)
			require.Equal(t, uint64(200), got.FlyPoke)
			require.Equal(t, uint64(250), got.Total)

			// Different day, different record.
			_, err = store.DailyStats(ctx, "ash", "2025-06-02")
			require.ErrorIs(t, err, rewards.ErrNotFound)
		})
	}
}

func TestStoreLoginStreak(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()

			_, err := store.LoginStreak(ctx, "ash")
			require.ErrorIs(t, err, rewards.ErrNotFound)

			streak := &rewards.LoginStreak{PlayerID: "ash", CurrentStreak: 1, LastLoginDay: "2025-06-01"}
			require.NoError(t, store.PutLoginStreak(ctx, streak))

			got, err := store.LoginStreak(ctx, "ash")
			require.NoError(t, err)
			require.Equal(t, streak, got)

			streak.CurrentStreak = 2
			streak.LastLoginDay = "2025-06-02"
			require.NoError(t, store.PutLoginStreak(ctx, streak))
			got, err = store.LoginStreak(ctx, "ash")
			require.NoError(t, err)
			require.Equal(t, uint32(2), got.CurrentStreak)
			require.Equal(t, "2025-06-02", got.LastLoginDay)
		})
	}
}

func TestStoreHasPendingWelcome(t *testing.T) {
	for name, store := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer store.Close()
			ctx := context.Background()

			has, err := store.HasPendingWelcome(ctx, "ash")
			require.NoError(t, err)
			require.False(t, has)

			// Non-welcome rewards do not count.
			ts := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
			require.NoError(t, store.CreateReward(ctx, newReward("ash", rewards.GameBattle, 50, ts)))
			has, err = store.HasPendingWelcome(ctx, "ash")
			require.NoError(t, err)
			require.False(t, has)

			welcome := newReward("ash", rewards.GameWelcome, 100, ts)
			require.NoError(t, store.CreateReward(ctx, welcome))
			has, err = store.HasPendingWelcome(ctx, "ash")
			require.NoError(t, err)
			require.True(t, has)

			require.NoError(t, store.MarkRewardClaimed(ctx, welcome.ID))
			has, err = store.HasPendingWelcome(ctx, "ash")
			require.NoError(t, err)
			require.False(t, has)
		})
	}
}

func TestOpenDispatch(t *testing.T) {
	store, err := Open("memory", "")
	require.NoError(t, err)
	require.IsType(t, &Memory{}, store)
	require.NoError(t, store.Close())

	store, err = Open("", "")
	require.NoError(t, err)
	require.IsType(t, &Memory{}, store)
	require.NoError(t, store.Close())

	dir := t.TempDir()
	store, err = Open("leveldb", dir)
	require.NoError(t, err)
	require.IsType(t, &LevelDB{}, store)
	require.NoError(t, store.Close())

	store, err = Open("sqlite", dir)
	require.NoError(t, err)
	require.IsType(t, &SQLite{}, store)
	require.NoError(t, store.Close())

	_, err = Open("oracle", dir)
	require.Error(t, err)
}
