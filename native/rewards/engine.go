package rewards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"pokeengine/config"
)

// Engine processes game events one at a time: it computes the candidate
// amount, enforces daily caps and streak policy against the store, and
// persists the outcome. It holds no cross-call state beyond per-player
// serialization and is safe for concurrent use.
type Engine struct {
	calc   *Calculator
	store  Store
	events EventSink
	now    func() time.Time

	mu          sync.Mutex
	playerLocks map[string]*sync.Mutex
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides the time source. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.now = clock }
}

// WithEventSink wires a sink for accrued/skipped events.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.events = sink }
}

// NewEngine builds an engine over the reward table and store. The table is
// treated as immutable for the engine's lifetime.
func NewEngine(table config.RewardTable, store Store, opts ...Option) *Engine {
	e := &Engine{
		calc:        NewCalculator(table),
		store:       store,
		now:         time.Now,
		playerLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calculator exposes the engine's pure amount functions.
func (e *Engine) Calculator() *Calculator {
	return e.calc
}

// lockPlayer serializes processing per player so concurrent events cannot
// pass the cap check against a stale aggregate. Only one lock is ever held
// at a time; cross-player events proceed independently.
func (e *Engine) lockPlayer(playerID string) func() {
	e.mu.Lock()
	lock, ok := e.playerLocks[playerID]
	if !ok {
		lock = &sync.Mutex{}
		e.playerLocks[playerID] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func validPlayer(playerID string) error {
	if strings.TrimSpace(playerID) == "" {
		return ErrInvalidPlayer
	}
	return nil
}

// ProcessGameEvent routes an event to its per-game handler after decoding
// the kind-tagged payload. Unknown kinds are a hard validation fault.
func (e *Engine) ProcessGameEvent(ctx context.Context, event *GameEvent) (*RewardResponse, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil event", ErrInvalidPayload)
	}
	if err := validPlayer(event.PlayerID); err != nil {
		return nil, err
	}
	switch event.Game {
	case GameFlyPoke:
		payload, err := decodePayload[FlyPokeEvent](event.EventData)
		if err != nil {
			return nil, err
		}
		return e.ProcessFlyPokeEvent(ctx, event.PlayerID, payload)
	case GameBattle:
		payload, err := decodePayload[BattleEvent](event.EventData)
		if err != nil {
			return nil, err
		}
		return e.ProcessBattleEvent(ctx, event.PlayerID, payload)
	case GamePokeMatch:
		payload, err := decodePayload[PokeMatchEvent](event.EventData)
		if err != nil {
			return nil, err
		}
		return e.ProcessPokeMatchEvent(ctx, event.PlayerID, payload)
	case GamePokedex:
		payload, err := decodePayload[PokedexEvent](event.EventData)
		if err != nil {
			return nil, err
		}
		return e.ProcessPokedexEvent(ctx, event.PlayerID, payload)
	case GameLogin:
		return e.ProcessLoginEvent(ctx, event.PlayerID)
	case GameWelcome:
		return e.ProcessWelcomeEvent(ctx, event.PlayerID)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownGame, event.Game)
}

func decodePayload[T any](raw json.RawMessage) (*T, error) {
	var payload T
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing event data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return &payload, nil
}

// ProcessFlyPokeEvent rewards a FlyPoke run, subject to the daily cap.
func (e *Engine) ProcessFlyPokeEvent(ctx context.Context, playerID string, event *FlyPokeEvent) (*RewardResponse, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil flypoke payload", ErrInvalidPayload)
	}
	if err := validPlayer(playerID); err != nil {
		return nil, err
	}
	amount := e.calc.FlyPokeReward(event.Score, event.IsNewHighScore)
	return e.processCapped(ctx, playerID, GameFlyPoke, amount, event)
}

// ProcessBattleEvent rewards a battle victory, subject to the daily cap.
func (e *Engine) ProcessBattleEvent(ctx context.Context, playerID string, event *BattleEvent) (*RewardResponse, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil battle payload", ErrInvalidPayload)
	}
	if err := validPlayer(playerID); err != nil {
		return nil, err
	}
	amount := e.calc.BattleReward(event.Level, event.Streak)
	return e.processCapped(ctx, playerID, GameBattle, amount, event)
}

// ProcessPokeMatchEvent rewards a match clear, subject to the daily cap.
func (e *Engine) ProcessPokeMatchEvent(ctx context.Context, playerID string, event *PokeMatchEvent) (*RewardResponse, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil pokematch payload", ErrInvalidPayload)
	}
	if err := validPlayer(playerID); err != nil {
		return nil, err
	}
	amount := e.calc.PokeMatchReward(event.Perfect)
	return e.processCapped(ctx, playerID, GamePokeMatch, amount, event)
}

// ProcessPokedexEvent rewards a catch registration. Pokedex is uncapped and
// does not contribute to the daily aggregate.
func (e *Engine) ProcessPokedexEvent(ctx context.Context, playerID string, event *PokedexEvent) (*RewardResponse, error) {
	if event == nil {
		return nil, fmt.Errorf("%w: nil pokedex payload", ErrInvalidPayload)
	}
	if err := validPlayer(playerID); err != nil {
		return nil, err
	}
	amount := e.calc.PokedexReward(event.IsRare)
	unlock := e.lockPlayer(playerID)
	defer unlock()
	reward, err := e.commitReward(ctx, playerID, GamePokedex, amount, event)
	if err != nil {
		return nil, err
	}
	return successResponse(reward, "Reward processed successfully"), nil
}

// processCapped runs the shared capped-game protocol: read today's
// aggregate, reject when the cap would be exceeded, otherwise commit the
// reward and the aggregate update as one logical step under the player lock.
func (e *Engine) processCapped(ctx context.Context, playerID string, game GameKind, amount uint64, payload any) (*RewardResponse, error) {
	unlock := e.lockPlayer(playerID)
	defer unlock()

	if limit, capped := e.calc.DailyLimit(game); capped {
		day := DayKey(e.now())
		stats, err := e.store.DailyStats(ctx, playerID, day)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("load daily stats: %w", err)
		}
		var accrued uint64
		if stats != nil {
			accrued = gameBucket(stats, game)
		}
		if accrued+amount > limit {
			e.emitSkipped(playerID, game, SkipDailyLimit)
			return &RewardResponse{
				Success:           false,
				Message:           fmt.Sprintf("Daily limit reached for %s", game),
				DailyLimitReached: true,
			}, nil
		}
	}

	reward, err := e.commitReward(ctx, playerID, game, amount, payload)
	if err != nil {
		return nil, err
	}
	return successResponse(reward, "Reward processed successfully"), nil
}

// ProcessLoginEvent advances the login streak state machine and rewards the
// resulting streak length. A second login on the same UTC day is rejected
// without mutation.
func (e *Engine) ProcessLoginEvent(ctx context.Context, playerID string) (*RewardResponse, error) {
	if err := validPlayer(playerID); err != nil {
		return nil, err
	}
	unlock := e.lockPlayer(playerID)
	defer unlock()

	today := DayKey(e.now())
	yesterday := DayKey(e.now().UTC().AddDate(0, 0, -1))

	streak, err := e.store.LoginStreak(ctx, playerID)
	switch {
	case errors.Is(err, ErrNotFound):
		streak = &LoginStreak{PlayerID: playerID, CurrentStreak: 1, LastLoginDay: today}
	case err != nil:
		return nil, fmt.Errorf("load login streak: %w", err)
	case streak.LastLoginDay == today:
		e.emitSkipped(playerID, GameLogin, SkipAlreadyLogged)
		return &RewardResponse{Success: false, Message: "Already logged in today"}, nil
	case streak.LastLoginDay == yesterday:
		streak.CurrentStreak++
		streak.LastLoginDay = today
	default:
		streak.CurrentStreak = 1
		streak.LastLoginDay = today
	}
	if err := e.store.PutLoginStreak(ctx, streak); err != nil {
		return nil, fmt.Errorf("update login streak: %w", err)
	}

	amount := e.calc.LoginReward(streak.CurrentStreak)
	reward, err := e.commitReward(ctx, playerID, GameLogin, amount, map[string]uint32{"streak": streak.CurrentStreak})
	if err != nil {
		return nil, err
	}
	return successResponse(reward, "Login reward processed successfully"), nil
}

// ProcessWelcomeEvent grants the one-time welcome bonus. Welcome rewards
// bypass the daily aggregate.
func (e *Engine) ProcessWelcomeEvent(ctx context.Context, playerID string) (*RewardResponse, error) {
	if err := validPlayer(playerID); err != nil {
		return nil, err
	}
	unlock := e.lockPlayer(playerID)
	defer unlock()

	claimed, err := e.store.HasPendingWelcome(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("check welcome bonus: %w", err)
	}
	if claimed {
		e.emitSkipped(playerID, GameWelcome, SkipWelcomeClaimed)
		return &RewardResponse{Success: false, Message: "Welcome bonus already claimed"}, nil
	}

	reward, err := e.commitReward(ctx, playerID, GameWelcome, e.calc.WelcomeReward(), map[string]string{"type": "welcome_bonus"})
	if err != nil {
		return nil, err
	}
	return successResponse(reward, "Welcome bonus processed successfully"), nil
}

// commitReward persists a new record and, for aggregated kinds, folds the
// amount into today's stats. Total is recomputed from the buckets rather
// than accumulated, so it cannot drift.
func (e *Engine) commitReward(ctx context.Context, playerID string, game GameKind, amount uint64, payload any) (*Reward, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	reward := &Reward{
		ID:        uuid.New(),
		PlayerID:  playerID,
		Game:      game,
		Amount:    amount,
		Timestamp: e.now().UTC(),
		GameData:  data,
	}
	if err := e.store.CreateReward(ctx, reward); err != nil {
		return nil, fmt.Errorf("create reward: %w", err)
	}
	if hasBucket(game) {
		if err := e.updateDailyStats(ctx, playerID, game, amount); err != nil {
			return nil, err
		}
	}
	e.emitAccrued(reward)
	return reward, nil
}

func (e *Engine) updateDailyStats(ctx context.Context, playerID string, game GameKind, amount uint64) error {
	day := DayKey(e.now())
	stats, err := e.store.DailyStats(ctx, playerID, day)
	if errors.Is(err, ErrNotFound) {
		stats = &DailyStats{PlayerID: playerID, Day: day}
	} else if err != nil {
		return fmt.Errorf("load daily stats: %w", err)
	}
	switch game {
	case GameFlyPoke:
		stats.FlyPoke += amount
	case GameBattle:
		stats.Battle += amount
	case GamePokeMatch:
		stats.PokeMatch += amount
	case GameLogin:
		stats.Login += amount
	}
	stats.Total = stats.FlyPoke + stats.Battle + stats.PokeMatch + stats.Login
	if err := e.store.PutDailyStats(ctx, stats); err != nil {
		return fmt.Errorf("update daily stats: %w", err)
	}
	return nil
}

// Rewards returns every reward recorded for the player.
func (e *Engine) Rewards(ctx context.Context, playerID string) ([]Reward, error) {
	if err := validPlayer(playerID); err != nil {
		return nil, err
	}
	return e.store.RewardsByPlayer(ctx, playerID)
}

// PendingRewards returns the player's unclaimed rewards.
func (e *Engine) PendingRewards(ctx context.Context, playerID string) ([]Reward, error) {
	if err := validPlayer(playerID); err != nil {
		return nil, err
	}
	return e.store.PendingRewardsByPlayer(ctx, playerID)
}

// DailyStats returns the aggregate for the given UTC day, or ErrNotFound
// when the player earned nothing that day.
func (e *Engine) DailyStats(ctx context.Context, playerID, day string) (*DailyStats, error) {
	if err := validPlayer(playerID); err != nil {
		return nil, err
	}
	return e.store.DailyStats(ctx, playerID, day)
}

// ClaimReward marks a single reward claimed. Claiming an unknown id is a
// storage fault, not a policy rejection.
func (e *Engine) ClaimReward(ctx context.Context, id uuid.UUID) error {
	return e.store.MarkRewardClaimed(ctx, id)
}

// ClaimRewards marks every pending reward for the player claimed.
func (e *Engine) ClaimRewards(ctx context.Context, playerID string) error {
	if err := validPlayer(playerID); err != nil {
		return err
	}
	return e.store.MarkAllRewardsClaimed(ctx, playerID)
}

func hasBucket(game GameKind) bool {
	switch game {
	case GameFlyPoke, GameBattle, GamePokeMatch, GameLogin:
		return true
	}
	return false
}

func gameBucket(stats *DailyStats, game GameKind) uint64 {
	switch game {
	case GameFlyPoke:
		return stats.FlyPoke
	case GameBattle:
		return stats.Battle
	case GamePokeMatch:
		return stats.PokeMatch
	case GameLogin:
		return stats.Login
	}
	return 0
}

func successResponse(reward *Reward, message string) *RewardResponse {
	return &RewardResponse{Reward: reward, Success: true, Message: message}
}

func formatAmount(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}
