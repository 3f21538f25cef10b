// Package config loads server settings from the environment, with an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/DoyleJ11/wordchain-backend/internal/engine"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "WORDCHAIN_"

type HTTPConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// GameConfig holds the rules every new room starts with.
type GameConfig struct {
	TurnSeconds   int `env:"TURN_SECONDS" envDefault:"10"`
	StartingLives int `env:"STARTING_LIVES" envDefault:"3"`
	// TickInterval is the wall-clock length of one countdown second.
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	// PenalizeUnavailable charges a life when the dictionary cannot be reached.
	PenalizeUnavailable bool `env:"PENALIZE_UNAVAILABLE" envDefault:"true"`
}

// Rules converts the settings into engine rules.
func (g GameConfig) Rules() engine.Rules {
	return engine.Rules{
		TurnSeconds:         g.TurnSeconds,
		StartingLives:       g.StartingLives,
		PenalizeUnavailable: g.PenalizeUnavailable,
	}
}

type LexiconConfig struct {
	BaseURL  string        `env:"BASE_URL" envDefault:"https://api.dictionaryapi.dev/api/v2/entries/en"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"5s"`
	MaxTries uint          `env:"MAX_TRIES" envDefault:"3"`
}

type DatabaseConfig struct {
	// DSN is a PostgreSQL connection string. Empty disables match recording.
	DSN string `env:"DSN"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `env:"LEVEL" envDefault:"info"`
	// Format is the log output format: "json" or "console".
	Format string `env:"FORMAT" envDefault:"json"`
}

type Config struct {
	HTTP     HTTPConfig     `envPrefix:"HTTP_"`
	Game     GameConfig     `envPrefix:"GAME_"`
	Lexicon  LexiconConfig  `envPrefix:"LEXICON_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Logging  LoggingConfig  `envPrefix:"LOG_"`
}

// Load reads the given .env files, if they exist, and then parses the environment.
// Variables already set in the process environment win over file values.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv parses and validates the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []string

	if c.HTTP.Addr == "" {
		errs = append(errs, "http.addr must not be empty")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Sprintf("http.shutdown_timeout must be > 0, got %s", c.HTTP.ShutdownTimeout))
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLexicon(c.Lexicon); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.TurnSeconds < 1 {
		errs = append(errs, fmt.Sprintf("game.turn_seconds must be >= 1, got %d", g.TurnSeconds))
	}
	if g.StartingLives < 1 {
		errs = append(errs, fmt.Sprintf("game.starting_lives must be >= 1, got %d", g.StartingLives))
	}
	if g.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("game.tick_interval must be > 0, got %s", g.TickInterval))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLexicon(l LexiconConfig) error {
	var errs []string
	u, err := url.Parse(l.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("lexicon.base_url must be an absolute URL, got %q", l.BaseURL))
	}
	if l.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("lexicon.timeout must be > 0, got %s", l.Timeout))
	}
	if l.MaxTries < 1 {
		errs = append(errs, "lexicon.max_tries must be >= 1")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	var errs []string
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		errs = append(errs, fmt.Sprintf("logging.level must be one of [debug, info, warn, error], got %q", l.Level))
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		errs = append(errs, fmt.Sprintf("logging.format must be one of [json, console], got %q", l.Format))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
