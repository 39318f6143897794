package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`

	Match MatchConfig `mapstructure:"match"`
	RTC   RTCConfig   `mapstructure:"rtc"`
}

type MatchConfig struct {
	// How long an unmatched search may wait before the reaper expires it.
	WaitTimeout   time.Duration `mapstructure:"wait_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// Partner selection policy: "random" or "fifo".
	Policy string `mapstructure:"policy"`
	// Per-peer search/skip budget within the burst window.
	SearchBurst       int           `mapstructure:"search_burst"`
	SearchBurstWindow time.Duration `mapstructure:"search_burst_window"`
}

type RTCConfig struct {
	STUNServers []string `mapstructure:"stun_servers"`
	MinPort     uint16   `mapstructure:"min_port"`
	MaxPort     uint16   `mapstructure:"max_port"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "ruletka-dev-secret")

	v.SetDefault("match.wait_timeout", "30s")
	v.SetDefault("match.sweep_interval", "30s")
	v.SetDefault("match.policy", "random")
	v.SetDefault("match.search_burst", 10)
	v.SetDefault("match.search_burst_window", "10s")

	v.SetDefault("rtc.stun_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("rtc.min_port", 10000)
	v.SetDefault("rtc.max_port", 10100)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("policy", cfg.Match.Policy).
		Msg("effective config")
	return &cfg, nil
}
