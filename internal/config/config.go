package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sheinhtuttunlwin/cactus-web-game/internal/game"
)

// Config is the root server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Game    GameConfig    `mapstructure:"game"`
}

// ServerConfig configures the websocket listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	WSPath          string        `mapstructure:"ws_path"`
	ReadLimit       int64         `mapstructure:"read_limit"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig holds the round's timing knobs. Zero values are replaced with
// the defaults during Load.
type GameConfig struct {
	PowerDuration    time.Duration `mapstructure:"power_duration"`
	RevealDuration   time.Duration `mapstructure:"reveal_duration"`
	FinalStackWindow time.Duration `mapstructure:"final_stack_window"`
	SwapAnimDuration time.Duration `mapstructure:"swap_anim_duration"`
	SwapTickInterval time.Duration `mapstructure:"swap_tick_interval"`
}

// Timings converts the configured durations for the engine.
func (g GameConfig) Timings() game.Timings {
	return game.Timings{
		PowerDuration:    g.PowerDuration,
		RevealDuration:   g.RevealDuration,
		FinalStackWindow: g.FinalStackWindow,
		SwapAnimDuration: g.SwapAnimDuration,
		SwapTickInterval: g.SwapTickInterval,
	}
}

// Load reads configuration from the optional YAML file at path, with
// CACTUS_-prefixed environment variables overriding file values and
// defaults filling the rest.
func Load(path string) (*Config, error) {
	v := viper.New()

	defaults := game.DefaultTimings()
	v.SetDefault("server.address", ":5050")
	v.SetDefault("server.ws_path", "/ws")
	v.SetDefault("server.read_limit", 4096)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("game.power_duration", defaults.PowerDuration)
	v.SetDefault("game.reveal_duration", defaults.RevealDuration)
	v.SetDefault("game.final_stack_window", defaults.FinalStackWindow)
	v.SetDefault("game.swap_anim_duration", defaults.SwapAnimDuration)
	v.SetDefault("game.swap_tick_interval", defaults.SwapTickInterval)

	v.SetEnvPrefix("CACTUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
