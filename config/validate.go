package config

import (
	"fmt"
	"sort"
	"strings"
)

var knownBackends = map[string]bool{
	"memory":  true,
	"leveldb": true,
	"sqlite":  true,
}

// Validate rejects configurations the engine cannot honour. It is called by
// Load; callers constructing a Config by hand should invoke it themselves.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config: nil config")
	}
	backend := strings.TrimSpace(strings.ToLower(c.StorageBackend))
	if backend != "" && !knownBackends[backend] {
		return fmt.Errorf("config: unknown storage backend %q", c.StorageBackend)
	}
	if c.TokenDecimals > 18 {
		return fmt.Errorf("config: token decimals %d exceed 18", c.TokenDecimals)
	}
	if err := validateFlyPoke(c.Rewards.FlyPoke); err != nil {
		return err
	}
	if err := validateLogin(c.Rewards.Login); err != nil {
		return err
	}
	if c.Rewards.Welcome.Reward == 0 {
		return fmt.Errorf("config: welcome reward must be positive")
	}
	return nil
}

func validateFlyPoke(cfg FlyPokeConfig) error {
	if len(cfg.Tiers) == 0 {
		return fmt.Errorf("config: flypoke requires at least one score tier")
	}
	tiers := append([]FlyPokeTier(nil), cfg.Tiers...)
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinScore < tiers[j].MinScore })
	if tiers[0].MinScore != 0 {
		return fmt.Errorf("config: flypoke tiers must cover score 0")
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].MinScore == tiers[i-1].MinScore {
			return fmt.Errorf("config: duplicate flypoke tier at score %d", tiers[i].MinScore)
		}
		if tiers[i].Reward <= tiers[i-1].Reward {
			return fmt.Errorf("config: flypoke tier rewards must strictly increase")
		}
	}
	return nil
}

func validateLogin(cfg LoginConfig) error {
	seen := make(map[uint32]bool, len(cfg.StreakBonuses))
	for _, bonus := range cfg.StreakBonuses {
		if bonus.Days == 0 {
			return fmt.Errorf("config: login streak threshold must be positive")
		}
		if seen[bonus.Days] {
			return fmt.Errorf("config: duplicate login streak threshold %d", bonus.Days)
		}
		seen[bonus.Days] = true
	}
	return nil
}
