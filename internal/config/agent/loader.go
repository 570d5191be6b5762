package agent_config

import (
	"strings"

	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}

	v.SetDefault("cache.version", "2.1.0")
	v.SetDefault("cache.static_assets", []string{
		"/",
		"/index.html",
		"/manifest.json",
		"/icons/icon-192.png",
		"/icons/icon-512.png",
	})
	v.SetDefault("cache.allowed_origins", []string{
		"cdn.tailwindcss.com",
		"fonts.googleapis.com",
		"cdnjs.cloudflare.com",
	})
	v.SetDefault("cache.runtime_cap", 256)

	v.SetDefault("relay.base_url", "http://localhost:8085")
	v.SetDefault("relay.vapid_public_key", "")

	v.SetDefault("log_level", "info")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
