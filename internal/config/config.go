// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"idiom-quiz-bot/internal/gate"
)

// Storage drivers accepted by StorageConfig.Driver.
const (
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Log       LogConfig       `mapstructure:"log"`
	Game      GameConfig      `mapstructure:"game"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// GameConfig holds the round rules and question bank location.
type GameConfig struct {
	QuestionsPerRound int    `mapstructure:"questions_per_round"`
	CorrectScore      int64  `mapstructure:"correct_score"`
	SkipScore         int64  `mapstructure:"skip_score"`
	BankPath          string `mapstructure:"bank_path"`
	AssetRoot         string `mapstructure:"asset_root"`
}

// ScheduleConfig holds the daily scoring window.
type ScheduleConfig struct {
	Start          string `mapstructure:"start"`
	End            string `mapstructure:"end"`
	Timezone       string `mapstructure:"timezone"`
	RestoreOnStart bool   `mapstructure:"restore_on_start"`
}

// StorageConfig selects the ledger backend.
type StorageConfig struct {
	Driver     string      `mapstructure:"driver"`
	Dir        string      `mapstructure:"dir"`
	SQLitePath string      `mapstructure:"sqlite_path"`
	Redis      RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// MetricsConfig holds the Prometheus listener. An empty address disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, GAME_CORRECT_SCORE, STORAGE_DRIVER
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - defaults and env vars are enough
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.poll_timeout", "10s")
	v.SetDefault("log.level", "info")

	// Round rules
	v.SetDefault("game.questions_per_round", 3)
	v.SetDefault("game.correct_score", 3)
	v.SetDefault("game.skip_score", -2)
	v.SetDefault("game.bank_path", "questions.json")
	v.SetDefault("game.asset_root", "images")

	// Daily scoring window
	v.SetDefault("schedule.start", "18:00")
	v.SetDefault("schedule.end", "23:59")
	v.SetDefault("schedule.timezone", "Local")
	v.SetDefault("schedule.restore_on_start", false)

	// Ledger storage
	v.SetDefault("storage.driver", DriverFile)
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.sqlite_path", "data/ledger.db")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.prefix", "idiomquiz")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "quizbot")
	v.SetDefault("database.name", "quizbot")
	v.SetDefault("database.pool_size", 4)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
}

// Validate checks values that cannot be repaired with defaults.
func (c *Config) Validate() error {
	if c.Game.QuestionsPerRound < 1 {
		return fmt.Errorf("game.questions_per_round must be at least 1, got %d", c.Game.QuestionsPerRound)
	}
	if _, err := gate.ParseClock(c.Schedule.Start); err != nil {
		return fmt.Errorf("schedule.start: %w", err)
	}
	if _, err := gate.ParseClock(c.Schedule.End); err != nil {
		return fmt.Errorf("schedule.end: %w", err)
	}
	if _, err := c.Schedule.Location(); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	switch c.Storage.Driver {
	case DriverFile, DriverRedis, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("storage.driver %q is not one of file, redis, postgres, sqlite", c.Storage.Driver)
	}
	return nil
}

// Window returns the parsed gate schedule.
func (s ScheduleConfig) Window() (gate.ScheduleConfig, error) {
	start, err := gate.ParseClock(s.Start)
	if err != nil {
		return gate.ScheduleConfig{}, err
	}
	end, err := gate.ParseClock(s.End)
	if err != nil {
		return gate.ScheduleConfig{}, err
	}
	loc, err := s.Location()
	if err != nil {
		return gate.ScheduleConfig{}, err
	}
	return gate.ScheduleConfig{
		Start:          start,
		End:            end,
		Location:       loc,
		RestoreOnStart: s.RestoreOnStart,
	}, nil
}

// Location resolves the configured timezone. "Local" and "" mean the host zone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
