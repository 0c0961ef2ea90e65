package ratelimit

import (
	"strings"

	internalsettings "github.com/quizforge/quizforge-api/internal/settings"
)

// SettingsConfig captures rate limit settings stored in DB config.
type SettingsConfig struct {
	Limit         int
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// LoadSettingsConfig loads the current rate limit settings snapshot from
// the settings store.
func LoadSettingsConfig(store *internalsettings.Store) SettingsConfig {
	cfg := SettingsConfig{
		Limit:       internalsettings.DefaultRateLimit,
		RedisPrefix: internalsettings.DefaultRateLimitRedisPrefix,
	}
	if store == nil {
		return cfg
	}

	cfg.Limit = store.Int(internalsettings.RateLimitKey, cfg.Limit)
	cfg.RedisEnabled = store.Bool(internalsettings.RateLimitRedisEnabledKey, false)
	cfg.RedisAddr = store.String(internalsettings.RateLimitRedisAddrKey, "")
	cfg.RedisPassword = store.String(internalsettings.RateLimitRedisPasswordKey, "")
	cfg.RedisDB = store.Int(internalsettings.RateLimitRedisDBKey, 0)
	cfg.RedisPrefix = store.String(internalsettings.RateLimitRedisPrefixKey, cfg.RedisPrefix)

	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)
	cfg.RedisPassword = strings.TrimSpace(cfg.RedisPassword)
	cfg.RedisPrefix = strings.TrimSpace(cfg.RedisPrefix)
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = internalsettings.DefaultRateLimitRedisPrefix
	}
	if cfg.RedisDB < 0 {
		cfg.RedisDB = 0
	}
	if cfg.Limit < 0 {
		cfg.Limit = 0
	}
	return cfg
}
