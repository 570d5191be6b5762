package relay_config

import (
	"errors"
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

	v.SetDefault("app.name", "relay")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "2.1.0")

	v.SetDefault("server.http_addr", ":8085")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")

	v.SetDefault("kafka.enable", true)
	v.SetDefault("kafka.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka.topic", "beacon.notify")
	v.SetDefault("kafka.group_id", "relay")

	v.SetDefault("push.subject", "admin@example.com")
	v.SetDefault("push.public_key", "")
	v.SetDefault("push.private_key", "")
	v.SetDefault("push.ttl", "24h")
	v.SetDefault("push.attempt_timeout", "10s")

	v.SetDefault("broadcast.max_inflight", 64)
	v.SetDefault("broadcast.prune_gone", true)

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", "relay")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		return nil, errors.New("push.public_key and push.private_key are required")
	}
	return &cfg, nil
}
