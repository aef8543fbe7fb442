package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"github.com/world-in-progress/surfpool/caller"
	"github.com/world-in-progress/surfpool/core/logger"
)

// EnvPrefix prefixes environment overrides, e.g. SURFPOOL_POOL_SIZE.
const EnvPrefix = "SURFPOOL"

type PoolConfig struct {
	Name              string
	Size              int
	PreConnect        bool
	Timeout           time.Duration
	KeepaliveInterval time.Duration
	HealthCheck       *caller.Request // nil when no health check is configured
	LogLevel          string
	Listen            string
	Store             string
}

// Prepare wires env overrides and defaults into v.
func Prepare(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // enable overwrite envs

	// default
	v.SetDefault("pool.name", "surfpool")
	v.SetDefault("pool.size", 4)
	v.SetDefault("pool.pre_connect", false)
	v.SetDefault("pool.timeout", "30s")
	v.SetDefault("pool.keepalive", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("server.listen", "")
	v.SetDefault("store.kind", "memory")
}

// LoadPoolConfig reads the pool section of the configuration held by v.
// A missing config file is not an error; defaults and env apply.
func LoadPoolConfig(v *viper.Viper) (*PoolConfig, error) {
	if v == nil {
		v = viper.GetViper()
	}
	Prepare(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.Info("no config file found, use default configuration: %v", err)
	}

	timeout, err := parseDuration(v.Get("pool.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid pool.timeout: %w", err)
	}
	keepalive, err := parseDuration(v.Get("pool.keepalive"))
	if err != nil {
		return nil, fmt.Errorf("invalid pool.keepalive: %w", err)
	}

	cfg := &PoolConfig{
		Name:              v.GetString("pool.name"),
		Size:              v.GetInt("pool.size"),
		PreConnect:        v.GetBool("pool.pre_connect"),
		Timeout:           timeout,
		KeepaliveInterval: keepalive,
		LogLevel:          v.GetString("log.level"),
		Listen:            v.GetString("server.listen"),
		Store:             v.GetString("store.kind"),
	}

	if hc, err := loadHealthCheck(v); err != nil {
		return nil, err
	} else {
		cfg.HealthCheck = hc
	}

	return cfg, nil
}

func loadHealthCheck(v *viper.Viper) (*caller.Request, error) {
	url := v.GetString("pool.health_check.url")
	if url == "" {
		return nil, nil
	}

	attributes := v.GetStringMap("pool.health_check")
	attributes["url"] = url
	if method := v.GetString("pool.health_check.method"); method != "" {
		attributes["method"] = method
	}

	hc, err := caller.NewRequestFromMap(attributes)
	if err != nil {
		return nil, fmt.Errorf("invalid pool.health_check: %w", err)
	}
	return hc, nil
}

// parseDuration accepts "1m30s" style strings or a number of seconds.
func parseDuration(value any) (time.Duration, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case time.Duration:
		return v, nil
	case string:
		if v == "" {
			return 0, nil
		}
		if secs, err := cast.ToFloat64E(v); err == nil {
			return time.Duration(secs * float64(time.Second)), nil
		}
		return cast.ToDurationE(v)
	default:
		secs, err := cast.ToFloat64E(v)
		if err != nil {
			return 0, err
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
}
