package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/Spok95/costing-engine/internal/domain/costing"
	"github.com/Spok95/costing-engine/internal/domain/pricing"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN        string
		Migrations string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Costing struct {
		MarkupMultiple  float64 `mapstructure:"markup_multiple"`
		DefaultYieldPct float64 `mapstructure:"default_yield_pct"`
		CurrencyPlaces  int32   `mapstructure:"currency_places"`
	} `mapstructure:"costing"`

	Ledger struct {
		Driver     string
		SQLitePath string `mapstructure:"sqlite_path"`
	} `mapstructure:"ledger"`
}

// Load reads the yaml file at path. A .env file in the working directory is
// loaded first if present; APP_* variables override file values
// (APP_POSTGRES_DSN, APP_LEDGER_DRIVER, ...).
func Load(path string) (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "prod")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("postgres.migrations", "migrations")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("costing.markup_multiple", costing.DefaultMarkupMultiple)
	v.SetDefault("costing.default_yield_pct", costing.DefaultYieldPct)
	v.SetDefault("costing.currency_places", costing.DefaultCurrencyPlaces)
	v.SetDefault("ledger.driver", DriverMemory)
	v.SetDefault("ledger.sqlite_path", "data/ledger.db")

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c Config) validate() error {
	switch c.Ledger.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("config: ledger.driver postgres requires postgres.dsn")
		}
	default:
		return fmt.Errorf("config: unknown ledger.driver %q", c.Ledger.Driver)
	}
	if c.Costing.MarkupMultiple <= 0 {
		return errors.New("config: costing.markup_multiple must be > 0")
	}
	if c.Costing.DefaultYieldPct <= 0 {
		return errors.New("config: costing.default_yield_pct must be > 0")
	}
	if c.Costing.CurrencyPlaces <= 0 {
		return errors.New("config: costing.currency_places must be > 0")
	}
	return nil
}

func (c Config) CostingOptions() costing.Options {
	return costing.Options{
		MarkupMultiple:  c.Costing.MarkupMultiple,
		DefaultYieldPct: c.Costing.DefaultYieldPct,
		CurrencyPlaces:  c.Costing.CurrencyPlaces,
	}
}

func (c Config) PricingOptions() pricing.Options {
	return pricing.Options{MarkupMultiple: c.Costing.MarkupMultiple}
}
