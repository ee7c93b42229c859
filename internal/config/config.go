package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode             string        `mapstructure:"mode"`
	Port             int           `mapstructure:"port"`
	StaticPath       string        `mapstructure:"static_path"`
	LogLevel         string        `mapstructure:"log_level"`
	ReadLimit        int64         `mapstructure:"read_limit"`
	PingPeriod       time.Duration `mapstructure:"ping_period"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	SendBuffer       int           `mapstructure:"send_buffer"`
	Secret           string        `mapstructure:"secret"`
	SlowClientPolicy string        `mapstructure:"slow_client_policy"`

	Storage  Storage  `mapstructure:"storage"`
	Chat     Chat     `mapstructure:"chat"`
	Schedule Schedule `mapstructure:"schedule"`
	Seed     Seed     `mapstructure:"seed"`
}

type Storage struct {
	SQLiteDSN      string `mapstructure:"sqlite_dsn"`
	BadgerPath     string `mapstructure:"badger_path"`
	ChatDriver     string `mapstructure:"chat_driver"`
	KickDriver     string `mapstructure:"kick_driver"`
	ValkeyAddr     string `mapstructure:"valkey_addr"`
	ValkeyPassword string `mapstructure:"valkey_password"`
}

type Chat struct {
	MaxLength      int           `mapstructure:"max_length"`
	RateLimit      int           `mapstructure:"rate_limit"`
	RateInterval   time.Duration `mapstructure:"rate_interval"`
	SinkBuffer     int           `mapstructure:"sink_buffer"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
	HistoryLimit   int           `mapstructure:"history_limit"`
}

type Schedule struct {
	Timezone string `mapstructure:"timezone"`
}

func (s Schedule) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// Seed is catalog data upserted at startup, handy for local runs.
type Seed struct {
	Users       []SeedUser       `mapstructure:"users"`
	Rooms       []SeedRoom       `mapstructure:"rooms"`
	Occurrences []SeedOccurrence `mapstructure:"occurrences"`
}

type SeedUser struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

type SeedRoom struct {
	Key       string `mapstructure:"key"`
	Name      string `mapstructure:"name"`
	SubjectID string `mapstructure:"subject_id"`
	OwnerID   string `mapstructure:"owner_id"`
}

type SeedOccurrence struct {
	SubjectID string `mapstructure:"subject_id"`
	Round     int    `mapstructure:"round"`
	Date      string `mapstructure:"date"`
	Start     string `mapstructure:"start"`
	End       string `mapstructure:"end"`
}

const envPrefix = "STUDYROOM"

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("log_level", "info")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "")
	v.SetDefault("slow_client_policy", "drop")

	v.SetDefault("storage.sqlite_dsn", "studyroom.db")
	v.SetDefault("storage.badger_path", "./data/chat")
	v.SetDefault("storage.chat_driver", "badger")
	v.SetDefault("storage.kick_driver", "sqlite")
	v.SetDefault("storage.valkey_addr", "127.0.0.1:6379")
	v.SetDefault("storage.valkey_password", "")

	v.SetDefault("chat.max_length", 2000)
	v.SetDefault("chat.rate_limit", 5)
	v.SetDefault("chat.rate_interval", "3s")
	v.SetDefault("chat.sink_buffer", 256)
	v.SetDefault("chat.persist_timeout", "3s")
	v.SetDefault("chat.history_limit", 50)

	v.SetDefault("schedule.timezone", "UTC")
}

// Load reads config/config.<CONFIG_ENV>.yaml over the defaults, then
// STUDYROOM_* environment variables. A .env file is loaded first if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg("ignoring unreadable .env")
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile is Load for an explicit file. A missing file means defaults; an
// unreadable or malformed one is an error.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("chat_driver", cfg.Storage.ChatDriver).Str("kick_driver", cfg.Storage.KickDriver).
		Str("timezone", cfg.Schedule.Timezone).Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Secret == "" {
		return errors.New("config: secret must be set (STUDYROOM_SECRET)")
	}
	if _, err := c.Schedule.Location(); err != nil {
		return fmt.Errorf("config: schedule.timezone: %w", err)
	}
	switch c.Storage.ChatDriver {
	case "badger", "sqlite", "memory":
	default:
		return fmt.Errorf("config: unknown storage.chat_driver %q", c.Storage.ChatDriver)
	}
	switch c.Storage.KickDriver {
	case "sqlite", "valkey", "memory":
	default:
		return fmt.Errorf("config: unknown storage.kick_driver %q", c.Storage.KickDriver)
	}
	return nil
}
