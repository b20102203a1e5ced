package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config captures the runtime configuration for the reward engine daemon.
type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	DataDir        string `toml:"DataDir"`
	StorageBackend string `toml:"StorageBackend"`
	Environment    string `toml:"Environment"`
	TokenDecimals  uint8  `toml:"TokenDecimals"`

	Rewards RewardTable  `toml:"Rewards"`
	Solana  SolanaConfig `toml:"Solana"`
}

// RewardTable holds the per-game reward constants. The engine treats it as
// immutable for its lifetime.
type RewardTable struct {
	FlyPoke   FlyPokeConfig   `toml:"FlyPoke"`
	Battle    BattleConfig    `toml:"Battle"`
	PokeMatch PokeMatchConfig `toml:"PokeMatch"`
	Pokedex   PokedexConfig   `toml:"Pokedex"`
	Login     LoginConfig     `toml:"Login"`
	Welcome   WelcomeConfig   `toml:"Welcome"`
}

// FlyPokeTier maps a minimum score to a base reward. The highest satisfied
// tier wins.
type FlyPokeTier struct {
	MinScore uint32 `toml:"MinScore"`
	Reward   uint64 `toml:"Reward"`
}

// FlyPokeConfig configures the FlyPoke mini game. Amounts are smallest units.
type FlyPokeConfig struct {
	DailyLimit     uint64        `toml:"DailyLimit"`
	HighScoreBonus uint64        `toml:"HighScoreBonus"`
	Tiers          []FlyPokeTier `toml:"Tiers"`
}

// BattleConfig configures battle rewards. The streak bonus is a step
// function: two wins pay StreakBonusLow, three or more pay StreakBonusHigh.
type BattleConfig struct {
	DailyLimit      uint64 `toml:"DailyLimit"`
	BaseReward      uint64 `toml:"BaseReward"`
	PerLevelBonus   uint64 `toml:"PerLevelBonus"`
	StreakBonusLow  uint64 `toml:"StreakBonusLow"`
	StreakBonusHigh uint64 `toml:"StreakBonusHigh"`
}

// PokeMatchConfig configures the memory match game.
type PokeMatchConfig struct {
	DailyLimit   uint64 `toml:"DailyLimit"`
	BaseReward   uint64 `toml:"BaseReward"`
	PerfectBonus uint64 `toml:"PerfectBonus"`
}

// PokedexConfig configures catch registration rewards. Pokedex has no daily
// limit.
type PokedexConfig struct {
	BaseReward uint64 `toml:"BaseReward"`
	RareBonus  uint64 `toml:"RareBonus"`
}

// StreakBonus replaces the daily login reward once a streak reaches Days
// consecutive logins. The highest configured threshold is checked first.
type StreakBonus struct {
	Days   uint32 `toml:"Days"`
	Reward uint64 `toml:"Reward"`
}

// LoginConfig configures daily login rewards.
type LoginConfig struct {
	DailyReward   uint64        `toml:"DailyReward"`
	StreakBonuses []StreakBonus `toml:"StreakBonuses"`
}

// WelcomeConfig configures the one-time welcome bonus.
type WelcomeConfig struct {
	Reward uint64 `toml:"Reward"`
}

// SolanaConfig configures the disbursement collaborator. The engine core
// never reads it; rewardd hands it to the solana client.
type SolanaConfig struct {
	RPCURL      string `toml:"RPCURL"`
	TokenMint   string `toml:"TokenMint"`
	RewardVault string `toml:"RewardVault"`
	Commitment  string `toml:"Commitment"`
}

// unit is one whole POKE in smallest units at the default 9 decimals.
const unit = 1_000_000_000

// Default returns the stock PokeWorld reward table.
func Default() *Config {
	return &Config{
		ListenAddress:  ":8645",
		DataDir:        "./poke-data",
		StorageBackend: "memory",
		TokenDecimals:  9,
		Rewards: RewardTable{
			FlyPoke: FlyPokeConfig{
				DailyLimit:     500 * unit,
				HighScoreBonus: 20 * unit,
				Tiers: []FlyPokeTier{
					{MinScore: 0, Reward: 10 * unit},
					{MinScore: 501, Reward: 25 * unit},
					{MinScore: 1001, Reward: 50 * unit},
					{MinScore: 2000, Reward: 100 * unit},
				},
			},
			Battle: BattleConfig{
				DailyLimit:      300 * unit,
				BaseReward:      50 * unit,
				PerLevelBonus:   20 * unit,
				StreakBonusLow:  10 * unit,
				StreakBonusHigh: 20 * unit,
			},
			PokeMatch: PokeMatchConfig{
				DailyLimit:   200 * unit,
				BaseReward:   20 * unit,
				PerfectBonus: 100 * unit,
			},
			Pokedex: PokedexConfig{
				BaseReward: 10 * unit,
				RareBonus:  100 * unit,
			},
			Login: LoginConfig{
				DailyReward: 20 * unit,
				StreakBonuses: []StreakBonus{
					{Days: 3, Reward: 30 * unit},
					{Days: 7, Reward: 50 * unit},
				},
			},
			Welcome: WelcomeConfig{Reward: 100 * unit},
		},
		Solana: SolanaConfig{
			RPCURL:     "https://api.mainnet-beta.solana.com",
			Commitment: "confirmed",
		},
	}
}

// Load reads the configuration from the given path, layered over Default.
// A missing file yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ToDisplay converts a smallest-unit amount to whole tokens for display.
// The conversion is lossy and must stay at the presentation boundary.
func (c *Config) ToDisplay(amount uint64) float64 {
	return float64(amount) / float64(pow10(c.TokenDecimals))
}

// FromDisplay converts a display amount to smallest units, truncating any
// fractional smallest unit.
func (c *Config) FromDisplay(tokens float64) uint64 {
	if tokens <= 0 {
		return 0
	}
	return uint64(tokens * float64(pow10(c.TokenDecimals)))
}

func pow10(n uint8) uint64 {
	out := uint64(1)
	for i := uint8(0); i < n; i++ {
		out *= 10
	}
	return out
}
