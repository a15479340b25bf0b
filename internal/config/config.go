package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	TzktURL           string
	Filters           []string
	PerPage           int
	MaxPages          int
	Workers           int
	Out               string
	PGDSN             string
	Checkpoint        string
	CheckpointEnabled bool
	MetricsAddr       string
	LogLevel          string

	ObjktMarketplace string
	ObjktAsksBigmap  int64
	HenMarketplace   string
	HenSwapsBigmap   int64
	HenObjktsFA2     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("tzkt-url", "https://api.tzkt.io")
	v.SetDefault("per-page", 2000)
	v.SetDefault("max-pages", 50)
	v.SetDefault("workers", 8)
	v.SetDefault("out", "./data/events.jsonl")
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		TzktURL:           v.GetString("tzkt-url"),
		Filters:           getStringSlice(v, "filter"),
		PerPage:           v.GetInt("per-page"),
		MaxPages:          v.GetInt("max-pages"),
		Workers:           v.GetInt("workers"),
		Out:               v.GetString("out"),
		PGDSN:             v.GetString("pg-dsn"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MetricsAddr:       v.GetString("metrics-addr"),
		LogLevel:          v.GetString("log-level"),
		ObjktMarketplace:  v.GetString("objkt-marketplace"),
		ObjktAsksBigmap:   v.GetInt64("objkt-asks-bigmap"),
		HenMarketplace:    v.GetString("hen-marketplace"),
		HenSwapsBigmap:    v.GetInt64("hen-swaps-bigmap"),
		HenObjktsFA2:      v.GetString("hen-objkts-fa2"),
	}

	return cfg, nil
}

// ParseFilters converts "key=value" pairs into a filter map.
func ParseFilters(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", pair)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			return nil, fmt.Errorf("invalid filter %q, expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
