// Package config loads server configuration from an optional YAML file
// and CLAW_* environment overrides, and turns the raw shapes into the
// typed configs the engines take. Amounts are decimal strings in the
// file ("0.50", not cents); conversion to engine cents happens here so
// a bad amount fails at startup, not at the first hand.
package config

import (
	"errors"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/spf13/viper"

	"github.com/RobotsMakeThings/clawcasino/internal/app"
	"github.com/RobotsMakeThings/clawcasino/internal/duel"
	"github.com/RobotsMakeThings/clawcasino/internal/ledger"
	"github.com/RobotsMakeThings/clawcasino/internal/money"
	"github.com/RobotsMakeThings/clawcasino/internal/rake"
	"github.com/RobotsMakeThings/clawcasino/internal/table"
)

const (
	ModuleName = "config"
	envPrefix  = "CLAW"
)

var ErrInvalid = errorsmod.Register(ModuleName, 1, "invalid configuration")

// Config is the full server configuration as read from file and
// environment. Engine configs are derived through the *Config methods
// below, never used raw.
type Config struct {
	Listen   string `mapstructure:"listen"`
	LogLevel string `mapstructure:"log_level"`

	Store  StoreConfig   `mapstructure:"store"`
	Ledger LedgerConfig  `mapstructure:"ledger"`
	Duel   DuelConfig    `mapstructure:"duel"`
	Tables []TableSpec   `mapstructure:"tables"`
	Rake   []RakeCapRule `mapstructure:"rake_caps"`
}

// StoreConfig selects the persistence backend. The memory backend needs
// no DSN and is the default; postgres requires one.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

type LedgerConfig struct {
	Currencies     []string      `mapstructure:"currencies"`
	MinDeposit     string        `mapstructure:"min_deposit"`
	WithdrawMax    int           `mapstructure:"withdraw_max"`
	WithdrawWindow time.Duration `mapstructure:"withdraw_window"`
}

type DuelConfig struct {
	OpenWindow    time.Duration `mapstructure:"open_window"`
	CommitTimeout time.Duration `mapstructure:"commit_timeout"`
	RevealTimeout time.Duration `mapstructure:"reveal_timeout"`
	MinStake      string        `mapstructure:"min_stake"`
	MaxRounds     int           `mapstructure:"max_rounds"`
}

// TableSpec is one cash table definition. Blinds and buy-in bounds are
// decimal strings and must land on whole cents. The json tags let the
// admin API accept the same shape the config file uses.
type TableSpec struct {
	ID            string        `mapstructure:"id" json:"id"`
	Name          string        `mapstructure:"name" json:"name"`
	Currency      string        `mapstructure:"currency" json:"currency"`
	MaxSeats      int           `mapstructure:"max_seats" json:"max_seats"`
	SmallBlind    string        `mapstructure:"small_blind" json:"small_blind"`
	BigBlind      string        `mapstructure:"big_blind" json:"big_blind"`
	MinBuyIn      string        `mapstructure:"min_buy_in" json:"min_buy_in"`
	MaxBuyIn      string        `mapstructure:"max_buy_in" json:"max_buy_in"`
	ActionTimeout time.Duration `mapstructure:"action_timeout" json:"action_timeout,omitempty"`
	StartDelay    time.Duration `mapstructure:"start_delay" json:"start_delay,omitempty"`
}

// RakeCapRule caps the poker rake for one (blind level, player count)
// cell. Levels use the table's blind string, for example "0.50/1.00".
type RakeCapRule struct {
	Level   string `mapstructure:"level" json:"level"`
	Players int    `mapstructure:"players" json:"players"`
	Cap     string `mapstructure:"cap" json:"cap"`
}

// Load reads configuration. An explicit path must exist; with no path
// an optional clawd.yaml is searched in the working directory, and the
// defaults stand on their own. Environment variables override file
// values with the CLAW_ prefix and underscores for nesting, for
// example CLAW_STORE_BACKEND=postgres.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errorsmod.Wrapf(ErrInvalid, "read %s: %v", path, err)
		}
	} else {
		v.SetConfigName("clawd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, errorsmod.Wrapf(ErrInvalid, "read config: %v", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errorsmod.Wrapf(ErrInvalid, "unmarshal: %v", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.dsn", "")

	v.SetDefault("ledger.currencies", []string{"USD"})
	v.SetDefault("ledger.min_deposit", "1.00")
	v.SetDefault("ledger.withdraw_max", 3)
	v.SetDefault("ledger.withdraw_window", time.Hour)

	v.SetDefault("duel.open_window", 5*time.Minute)
	v.SetDefault("duel.commit_timeout", time.Minute)
	v.SetDefault("duel.reveal_timeout", time.Minute)
	v.SetDefault("duel.min_stake", "0.01")
	v.SetDefault("duel.max_rounds", 9)

	v.SetDefault("tables", []map[string]any{{
		"id":             "main",
		"name":           "Main Room",
		"currency":       "USD",
		"max_seats":      6,
		"small_blind":    "0.50",
		"big_blind":      "1.00",
		"min_buy_in":     "20.00",
		"max_buy_in":     "200.00",
		"action_timeout": "30s",
		"start_delay":    "3s",
	}})
}

// LedgerConfig converts the raw ledger section.
func (c Config) LedgerConfig() (ledger.Config, error) {
	min, err := money.Parse(c.Ledger.MinDeposit)
	if err != nil {
		return ledger.Config{}, errorsmod.Wrapf(ErrInvalid, "ledger.min_deposit: %v", err)
	}
	return ledger.Config{
		Currencies:     c.Ledger.Currencies,
		MinDeposit:     min,
		WithdrawMax:    c.Ledger.WithdrawMax,
		WithdrawWindow: c.Ledger.WithdrawWindow,
	}, nil
}

// DuelConfig converts the raw duel section.
func (c Config) DuelConfig() (duel.Config, error) {
	stake, err := money.Parse(c.Duel.MinStake)
	if err != nil {
		return duel.Config{}, errorsmod.Wrapf(ErrInvalid, "duel.min_stake: %v", err)
	}
	return duel.Config{
		OpenWindow:    c.Duel.OpenWindow,
		CommitTimeout: c.Duel.CommitTimeout,
		RevealTimeout: c.Duel.RevealTimeout,
		MinStake:      stake,
		MaxRounds:     c.Duel.MaxRounds,
	}, nil
}

// CasinoConfig converts the duel section and every table definition.
// All tables share one rake cap table built from the rake_caps rules.
func (c Config) CasinoConfig() (app.Config, error) {
	duelCfg, err := c.DuelConfig()
	if err != nil {
		return app.Config{}, err
	}

	caps, err := c.CapTable()
	if err != nil {
		return app.Config{}, err
	}

	tables := make([]table.Config, 0, len(c.Tables))
	for _, spec := range c.Tables {
		tc, err := spec.TableConfig(caps)
		if err != nil {
			return app.Config{}, err
		}
		tables = append(tables, tc)
	}

	return app.Config{Duel: duelCfg, Tables: tables}, nil
}

// CapTable builds the poker rake ceiling table from the rake_caps rules.
// No rules means no ceilings; the 5% rate then applies uncapped.
func (c Config) CapTable() (*rake.CapTable, error) {
	if len(c.Rake) == 0 {
		return nil, nil
	}
	caps := rake.NewCapTable()
	for _, rule := range c.Rake {
		limit, err := money.Parse(rule.Cap)
		if err != nil {
			return nil, errorsmod.Wrapf(ErrInvalid, "rake cap %s/%d: %v", rule.Level, rule.Players, err)
		}
		caps.Set(rule.Level, rule.Players, limit)
	}
	return caps, nil
}

// TableConfig converts one table definition, attaching the given rake
// ceilings.
func (s TableSpec) TableConfig(caps *rake.CapTable) (table.Config, error) {
	cents := func(field, raw string) (int64, error) {
		d, err := money.Parse(raw)
		if err != nil {
			return 0, errorsmod.Wrapf(ErrInvalid, "table %s %s: %v", s.ID, field, err)
		}
		n, err := money.ToCents(d)
		if err != nil {
			return 0, errorsmod.Wrapf(ErrInvalid, "table %s %s: %v", s.ID, field, err)
		}
		return n, nil
	}

	sb, err := cents("small_blind", s.SmallBlind)
	if err != nil {
		return table.Config{}, err
	}
	bb, err := cents("big_blind", s.BigBlind)
	if err != nil {
		return table.Config{}, err
	}
	min, err := cents("min_buy_in", s.MinBuyIn)
	if err != nil {
		return table.Config{}, err
	}
	max, err := cents("max_buy_in", s.MaxBuyIn)
	if err != nil {
		return table.Config{}, err
	}

	return table.Config{
		ID:            s.ID,
		Name:          s.Name,
		Currency:      s.Currency,
		MaxSeats:      s.MaxSeats,
		SmallBlind:    sb,
		BigBlind:      bb,
		MinBuyIn:      min,
		MaxBuyIn:      max,
		ActionTimeout: s.ActionTimeout,
		StartDelay:    s.StartDelay,
		RakeCaps:      caps,
	}, nil
}
