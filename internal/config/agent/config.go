package agent_config

import (
	"github.com/NordCoder/Beacon/internal/obs"
)

type CacheCfg struct {
	Version        string   `mapstructure:"version"`
	StaticAssets   []string `mapstructure:"static_assets"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	RuntimeCap     int      `mapstructure:"runtime_cap"`
}

type RelayCfg struct {
	BaseURL        string `mapstructure:"base_url"`
	VAPIDPublicKey string `mapstructure:"vapid_public_key"`
}

type Config struct {
	Cache    CacheCfg `mapstructure:"cache"`
	Relay    RelayCfg `mapstructure:"relay"`
	LogLevel string   `mapstructure:"log_level"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level: c.LogLevel,
		App:   "beacon/agent",
	}
}
