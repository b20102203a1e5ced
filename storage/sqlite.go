package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/sqlite"
	"github.com/google/uuid"

	"pokeengine/native/rewards"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rewards (
    id           TEXT PRIMARY KEY,
    player_id    TEXT NOT NULL,
    game         TEXT NOT NULL,
    amount       INTEGER NOT NULL,
    created_at   TEXT NOT NULL,
    claimed      INTEGER NOT NULL DEFAULT 0,
    game_data    TEXT,
    tx_signature TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_rewards_player ON rewards(player_id);
CREATE TABLE IF NOT EXISTS daily_stats (
    player_id TEXT NOT NULL,
    day       TEXT NOT NULL,
    flypoke   INTEGER NOT NULL DEFAULT 0,
    battle    INTEGER NOT NULL DEFAULT 0,
    pokematch INTEGER NOT NULL DEFAULT 0,
    login     INTEGER NOT NULL DEFAULT 0,
    total     INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (player_id, day)
);
CREATE TABLE IF NOT EXISTS login_streaks (
    player_id      TEXT PRIMARY KEY,
    current_streak INTEGER NOT NULL,
    last_login_day TEXT NOT NULL
);
`

// SQLite is a durable store over a sqlite-compatible DSN.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite initialises the backing store and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("storage: sqlite dsn required")
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases database resources.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) CreateReward(ctx context.Context, reward *rewards.Reward) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO rewards(id, player_id, game, amount, created_at, claimed, game_data, tx_signature)
        VALUES(?, ?, ?, ?, ?, ?, ?, ?)
    `, reward.ID.String(), reward.PlayerID, string(reward.Game), int64(reward.Amount),
		reward.Timestamp.UTC().Format(time.RFC3339Nano), boolInt(reward.Claimed),
		string(reward.GameData), reward.TxSignature)
	if err != nil {
		return fmt.Errorf("insert reward: %w", err)
	}
	return nil
}

func (s *SQLite) queryRewards(ctx context.Context, query string, args ...any) ([]rewards.Reward, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rewards: %w", err)
	}
	defer rows.Close()

	out := make([]rewards.Reward, 0)
	for rows.Next() {
		var (
			id, player, game, created, data, signature string
			amount                                     int64
			claimed                                    int
		)
		if err := rows.Scan(&id, &player, &game, &amount, &created, &claimed, &data, &signature); err != nil {
			return nil, fmt.Errorf("scan reward: %w", err)
		}
		parsedID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse reward id: %w", err)
		}
		ts, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse reward timestamp: %w", err)
		}
		out = append(out, rewards.Reward{
			ID:          parsedID,
			PlayerID:    player,
			Game:        rewards.GameKind(game),
			Amount:      uint64(amount),
			Timestamp:   ts,
			Claimed:     claimed != 0,
			GameData:    []byte(data),
			TxSignature: signature,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rewards: %w", err)
	}
	return out, nil
}

const rewardColumns = "id, player_id, game, amount, created_at, claimed, game_data, tx_signature"

func (s *SQLite) RewardsByPlayer(ctx context.Context, playerID string) ([]rewards.Reward, error) {
	return s.queryRewards(ctx, `
        SELECT `+rewardColumns+` FROM rewards
        WHERE player_id = ?
        ORDER BY created_at DESC
    `, playerID)
}

func (s *SQLite) PendingRewardsByPlayer(ctx context.Context, playerID string) ([]rewards.Reward, error) {
	return s.queryRewards(ctx, `
        SELECT `+rewardColumns+` FROM rewards
        WHERE player_id = ? AND claimed = 0
        ORDER BY created_at DESC
    `, playerID)
}

func (s *SQLite) MarkRewardClaimed(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE rewards SET claimed = 1 WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("update reward: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reward: %w", err)
	}
	if affected == 0 {
		return rewards.ErrNotFound
	}
	return nil
}

func (s *SQLite) MarkAllRewardsClaimed(ctx context.Context, playerID string) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE rewards SET claimed = 1 WHERE player_id = ? AND claimed = 0
    `, playerID)
	if err != nil {
		return fmt.Errorf("update rewards: %w", err)
	}
	return nil
}

func (s *SQLite) DailyStats(ctx context.Context, playerID, day string) (*rewards.DailyStats, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT flypoke, battle, pokematch, login, total FROM daily_stats
        WHERE player_id = ? AND day = ?
    `, playerID, day)
	stats := rewards.DailyStats{PlayerID: playerID, Day: day}
	var flypoke, battle, pokematch, login, total int64
	if err := row.Scan(&flypoke, &battle, &pokematch, &login, &total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rewards.ErrNotFound
		}
		return nil, fmt.Errorf("query daily stats: %w", err)
	}
	stats.FlyPoke = uint64(flypoke)
	stats.Battle = uint64(battle)
	stats.PokeMatch = uint64(pokematch)
	stats.Login = uint64(login)
	stats.Total = uint64(total)
	return &stats, nil
}

func (s *SQLite) PutDailyStats(ctx context.Context, stats *rewards.DailyStats) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO daily_stats(player_id, day, flypoke, battle, pokematch, login, total)
        VALUES(?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(player_id, day) DO UPDATE SET
            flypoke = excluded.flypoke,
            battle = excluded.battle,
            pokematch = excluded.pokematch,
            login = excluded.login,
            total = excluded.total
    `, stats.PlayerID, stats.Day, int64(stats.FlyPoke), int64(stats.Battle),
		int64(stats.PokeMatch), int64(stats.Login), int64(stats.Total))
	if err != nil {
		return fmt.Errorf("upsert daily stats: %w", err)
	}
	return nil
}

func (s *SQLite) LoginStreak(ctx context.Context, playerID string) (*rewards.LoginStreak, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT current_streak, last_login_day FROM login_streaks WHERE player_id = ?
    `, playerID)
	streak := rewards.LoginStreak{PlayerID: playerID}
	var current int64
	if err := row.Scan(&current, &streak.LastLoginDay); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rewards.ErrNotFound
		}
		return nil, fmt.Errorf("query login streak: %w", err)
	}
	streak.CurrentStreak = uint32(current)
	return &streak, nil
}

func (s *SQLite) PutLoginStreak(ctx context.Context, streak *rewards.LoginStreak) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO login_streaks(player_id, current_streak, last_login_day)
        VALUES(?, ?, ?)
        ON CONFLICT(player_id) DO UPDATE SET
            current_streak = excluded.current_streak,
            last_login_day = excluded.last_login_day
    `, streak.PlayerID, int64(streak.CurrentStreak), streak.LastLoginDay)
	if err != nil {
		return fmt.Errorf("upsert login streak: %w", err)
	}
	return nil
}

func (s *SQLite) HasPendingWelcome(ctx context.Context, playerID string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT COUNT(1) FROM rewards
        WHERE player_id = ? AND game = ? AND claimed = 0
    `, playerID, string(rewards.GameWelcome))
	var count int64
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("query welcome bonus: %w", err)
	}
	return count > 0, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
