package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix = "ROUTER"
	dotEnv    = ".env"
)

// RouterConfig bounds the route search.
type RouterConfig struct {
	MaxHops        int
	MaxVisits      int
	SearchTimeout  time.Duration
	GasPerHop      uint64
	BaseConfidence float64
}

// SourcesConfig selects where pools come from and where snapshots go.
type SourcesConfig struct {
	PoolFiles     []string
	RPCURL        string
	Pairs         []PairSpec
	PGDSN         string
	PGInitSchema  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	RedisPrefix   string
	SnapshotOut   string
}

// SupplierConfig controls the refresh loop.
type SupplierConfig struct {
	Interval     time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	FetchTimeout time.Duration
}

// Config holds configuration values loaded from flags, env, .env, or config file.
type Config struct {
	Router   RouterConfig
	Sources  SourcesConfig
	Supplier SupplierConfig
	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v)
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	if err := loadDotEnv(dotEnv); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("max-hops", 3)
	v.SetDefault("max-visits", 100000)
	v.SetDefault("search-timeout", time.Duration(0))
	v.SetDefault("gas-per-hop", uint64(150000))
	v.SetDefault("base-confidence", 95.0)
	v.SetDefault("redis-ttl", 10*time.Minute)
	v.SetDefault("redis-prefix", "route_scope")
	v.SetDefault("interval", 10*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("fetch-timeout", 30*time.Second)
	v.SetDefault("listen", ":8080")
	v.SetDefault("read-timeout", 5*time.Second)
	v.SetDefault("write-timeout", 10*time.Second)
	v.SetDefault("shutdown-timeout", 10*time.Second)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// loadDotEnv exports variables from path without overriding the real
// environment. A missing file is fine.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func fromViper(v *viper.Viper) (Config, error) {
	pairs, err := ParsePairs(getStringSlice(v, "pair"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Router: RouterConfig{
			MaxHops:        v.GetInt("max-hops"),
			MaxVisits:      v.GetInt("max-visits"),
			SearchTimeout:  v.GetDuration("search-timeout"),
			GasPerHop:      v.GetUint64("gas-per-hop"),
			BaseConfidence: v.GetFloat64("base-confidence"),
		},
		Sources: SourcesConfig{
			PoolFiles:     getStringSlice(v, "pools"),
			RPCURL:        v.GetString("rpc"),
			Pairs:         pairs,
			PGDSN:         v.GetString("pg-dsn"),
			PGInitSchema:  v.GetBool("pg-init-schema"),
			RedisAddr:     v.GetString("redis-addr"),
			RedisPassword: v.GetString("redis-password"),
			RedisDB:       v.GetInt("redis-db"),
			RedisTTL:      v.GetDuration("redis-ttl"),
			RedisPrefix:   v.GetString("redis-prefix"),
			SnapshotOut:   v.GetString("snapshot-out"),
		},
		Supplier: SupplierConfig{
			Interval:     v.GetDuration("interval"),
			MaxRetries:   v.GetInt("max-retries"),
			RetryBackoff: v.GetDuration("retry-backoff"),
			FetchTimeout: v.GetDuration("fetch-timeout"),
		},
		LogLevel: v.GetString("log-level"),
	}

	if cfg.Router.MaxHops < 1 {
		return Config{}, fmt.Errorf("max-hops must be at least 1")
	}
	if len(cfg.Sources.Pairs) > 0 && cfg.Sources.RPCURL == "" {
		return Config{}, fmt.Errorf("rpc url is required when pairs are configured")
	}
	return cfg, nil
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
