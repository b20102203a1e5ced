package rewards

import (
	"sort"

	"pokeengine/config"
)

// Calculator maps game events to reward amounts using the static reward
// table. All methods are pure; the calculator holds no mutable state and
// never touches storage.
type Calculator struct {
	table config.RewardTable

	// Resolution order is a policy decision: the highest satisfied
	// threshold wins, so both lists are kept sorted descending.
	flyPokeTiers  []config.FlyPokeTier
	streakBonuses []config.StreakBonus
}

// NewCalculator builds a calculator over the supplied table. The table is
// copied; later mutation by the caller has no effect.
func NewCalculator(table config.RewardTable) *Calculator {
	tiers := append([]config.FlyPokeTier(nil), table.FlyPoke.Tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinScore > tiers[j].MinScore })
	bonuses := append([]config.StreakBonus(nil), table.Login.StreakBonuses...)
	sort.Slice(bonuses, func(i, j int) bool { return bonuses[i].Days > bonuses[j].Days })
	return &Calculator{table: table, flyPokeTiers: tiers, streakBonuses: bonuses}
}

// FlyPokeReward returns the tiered base amount for the score plus the high
// score bonus when applicable.
func (c *Calculator) FlyPokeReward(score uint32, newHighScore bool) uint64 {
	amount := uint64(0)
	for _, tier := range c.flyPokeTiers {
		if score >= tier.MinScore {
			amount = tier.Reward
			break
		}
	}
	if newHighScore {
		amount += c.table.FlyPoke.HighScoreBonus
	}
	return amount
}

// BattleReward returns base + level bonus + streak bonus. The streak bonus
// is a step function, not additive across tiers.
func (c *Calculator) BattleReward(level, streak uint32) uint64 {
	amount := c.table.Battle.BaseReward + uint64(level)*c.table.Battle.PerLevelBonus
	switch {
	case streak >= 3:
		amount += c.table.Battle.StreakBonusHigh
	case streak == 2:
		amount += c.table.Battle.StreakBonusLow
	}
	return amount
}

// PokeMatchReward returns the base amount plus the perfect-clear bonus.
func (c *Calculator) PokeMatchReward(perfect bool) uint64 {
	amount := c.table.PokeMatch.BaseReward
	if perfect {
		amount += c.table.PokeMatch.PerfectBonus
	}
	return amount
}

// PokedexReward returns the base amount plus the rare-catch bonus.
func (c *Calculator) PokedexReward(rare bool) uint64 {
	amount := c.table.Pokedex.BaseReward
	if rare {
		amount += c.table.Pokedex.RareBonus
	}
	return amount
}

// LoginReward resolves the streak bonus table highest threshold first, so a
// streak of 7 pays the 7-day bonus even though it also satisfies the 3-day
// threshold. With no threshold satisfied the flat daily reward applies.
func (c *Calculator) LoginReward(streak uint32) uint64 {
	for _, bonus := range c.streakBonuses {
		if streak >= bonus.Days {
			return bonus.Reward
		}
	}
	return c.table.Login.DailyReward
}

// WelcomeReward returns the fixed one-time welcome amount.
func (c *Calculator) WelcomeReward() uint64 {
	return c.table.Welcome.Reward
}

// DailyLimit reports the configured cap for a game kind. The second return
// is false for uncapped kinds (Pokedex, Login, Welcome).
func (c *Calculator) DailyLimit(game GameKind) (uint64, bool) {
	switch game {
	case GameFlyPoke:
		return c.table.FlyPoke.DailyLimit, c.table.FlyPoke.DailyLimit > 0
	case GameBattle:
		return c.table.Battle.DailyLimit, c.table.Battle.DailyLimit > 0
	case GamePokeMatch:
		return c.table.PokeMatch.DailyLimit, c.table.PokeMatch.DailyLimit > 0
	}
	return 0, false
}
