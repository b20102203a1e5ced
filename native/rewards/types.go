package rewards

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GameKind identifies the mini game that produced an event. The set is
// closed; unknown values are a caller fault, not a policy outcome.
type GameKind string

const (
	GameFlyPoke   GameKind = "flypoke"
	GameBattle    GameKind = "battle"
	GamePokeMatch GameKind = "pokematch"
	GamePokedex   GameKind = "pokedex"
	GameLogin     GameKind = "login"
	GameWelcome   GameKind = "welcome"
)

// ParseGameKind normalises a wire value into a GameKind.
func ParseGameKind(raw string) (GameKind, error) {
	switch GameKind(strings.ToLower(strings.TrimSpace(raw))) {
	case GameFlyPoke:
		return GameFlyPoke, nil
	case GameBattle:
		return GameBattle, nil
	case GamePokeMatch:
		return GamePokeMatch, nil
	case GamePokedex:
		return GamePokedex, nil
	case GameLogin:
		return GameLogin, nil
	case GameWelcome:
		return GameWelcome, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGame, raw)
}

// Reward is a single POKE token grant. Amount is in smallest units.
// TxSignature is written once by the disbursement collaborator after the
// on-chain transfer settles; the engine never sets it.
type Reward struct {
	ID          uuid.UUID       `json:"id"`
	PlayerID    string          `json:"player_id"`
	Game        GameKind        `json:"game"`
	Amount      uint64          `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	Claimed     bool            `json:"claimed"`
	GameData    json.RawMessage `json:"game_data,omitempty"`
	TxSignature string          `json:"transaction_signature,omitempty"`
}

// DailyStats accumulates rewarded amounts for one player on one UTC day.
// Total always equals the sum of the per-game buckets.
type DailyStats struct {
	PlayerID  string `json:"player_id"`
	Day       string `json:"day"`
	FlyPoke   uint64 `json:"flypoke"`
	Battle    uint64 `json:"battle"`
	PokeMatch uint64 `json:"pokematch"`
	Login     uint64 `json:"login"`
	Total     uint64 `json:"total"`
}

// LoginStreak tracks consecutive-day logins for a player.
type LoginStreak struct {
	PlayerID      string `json:"player_id"`
	CurrentStreak uint32 `json:"current_streak"`
	LastLoginDay  string `json:"last_login_day"`
}

// GameEvent is the submission shape accepted by ProcessGameEvent. EventData
// carries the game-specific payload and is decoded by the engine.
type GameEvent struct {
	PlayerID  string          `json:"player_id"`
	Game      GameKind        `json:"game"`
	EventData json.RawMessage `json:"event_data,omitempty"`
}

// RewardResponse reports the outcome of processing a single event. Policy
// rejections set Success to false with Reward nil; they are not errors.
type RewardResponse struct {
	Reward            *Reward `json:"reward,omitempty"`
	Success           bool    `json:"success"`
	Message           string  `json:"message"`
	DailyLimitReached bool    `json:"daily_limit_reached"`
}

// FlyPokeEvent is the payload for GameFlyPoke events.
type FlyPokeEvent struct {
	Score          uint32 `json:"score"`
	IsNewHighScore bool   `json:"is_new_high_score"`
	Level          uint32 `json:"level,omitempty"`
}

// BattleEvent is the payload for GameBattle events.
type BattleEvent struct {
	Level          uint32 `json:"level"`
	Streak         uint32 `json:"streak"`
	PerfectVictory bool   `json:"perfect_victory,omitempty"`
}

// PokeMatchEvent is the payload for GamePokeMatch events.
type PokeMatchEvent struct {
	Perfect bool   `json:"perfect"`
	Score   uint32 `json:"score,omitempty"`
}

// PokedexEvent is the payload for GamePokedex events.
type PokedexEvent struct {
	PokemonID      string `json:"pokemon_id"`
	IsRare         bool   `json:"is_rare"`
	CollectionSize uint32 `json:"collection_size,omitempty"`
}

// DayKey formats a timestamp as the UTC calendar day used to key DailyStats
// and LoginStreak records.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
