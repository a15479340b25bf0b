package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BackfillConfig holds configuration for the backfill command.
type BackfillConfig struct {
	TzktURL     string
	FromLevel   int64
	ToLevel     int64
	Filters     []string
	PerPage     int
	MaxPages    int
	Workers     int
	Out         string
	PGDSN       string
	MetricsAddr string
	LogLevel    string

	ObjktMarketplace string
	ObjktAsksBigmap  int64
	HenMarketplace   string
	HenSwapsBigmap   int64
	HenObjktsFA2     string
}

// LoadBackfill merges config file, environment variables, and flags into
// BackfillConfig.
func LoadBackfill(cfgFile string, flags *pflag.FlagSet) (BackfillConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("tzkt-url", "https://api.tzkt.io")
	v.SetDefault("per-page", 2000)
	v.SetDefault("max-pages", 50)
	v.SetDefault("workers", 8)
	v.SetDefault("out", "./data/events.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return BackfillConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return BackfillConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return BackfillConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := BackfillConfig{
		TzktURL:          v.GetString("tzkt-url"),
		FromLevel:        v.GetInt64("from"),
		ToLevel:          v.GetInt64("to"),
		Filters:          getStringSlice(v, "filter"),
		PerPage:          v.GetInt("per-page"),
		MaxPages:         v.GetInt("max-pages"),
		Workers:          v.GetInt("workers"),
		Out:              v.GetString("out"),
		PGDSN:            v.GetString("pg-dsn"),
		MetricsAddr:      v.GetString("metrics-addr"),
		LogLevel:         v.GetString("log-level"),
		ObjktMarketplace: v.GetString("objkt-marketplace"),
		ObjktAsksBigmap:  v.GetInt64("objkt-asks-bigmap"),
		HenMarketplace:   v.GetString("hen-marketplace"),
		HenSwapsBigmap:   v.GetInt64("hen-swaps-bigmap"),
		HenObjktsFA2:     v.GetString("hen-objkts-fa2"),
	}

	return cfg, nil
}
