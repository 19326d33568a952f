// Package config assembles runtime settings from an optional YAML file with
// environment-variable overrides, ASTA_* for service settings and DB_* for
// Postgres.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	Room       string `yaml:"room"`

	AdminID        string `yaml:"admin_id"`
	AdminName      string `yaml:"admin_name"`
	InitialCredits int    `yaml:"initial_credits"`

	NATSURL string `yaml:"nats_url"`

	Database DatabaseConfig `yaml:"database"`

	Timers TimerConfig `yaml:"timers"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	Disabled bool   `yaml:"disabled"`
}

// TimerConfig holds the countdown windows in seconds.
type TimerConfig struct {
	BidWindowSec      int `yaml:"bid_window_sec"`
	OpenWindowSec     int `yaml:"open_window_sec"`
	SoldDelaySec      int `yaml:"sold_delay_sec"`
	TestBidWindowSec  int `yaml:"test_bid_window_sec"`
	TestOpenWindowSec int `yaml:"test_open_window_sec"`
	TestSoldDelaySec  int `yaml:"test_sold_delay_sec"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:     ":8080",
		Room:           "main",
		AdminID:        "admin",
		AdminName:      "Auction Admin",
		InitialCredits: 500,
		NATSURL:        "nats://localhost:4222",
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Database: "asta",
			SSLMode:  "disable",
		},
		Timers: TimerConfig{
			BidWindowSec:      5,
			OpenWindowSec:     10,
			SoldDelaySec:      5,
			TestBidWindowSec:  2,
			TestOpenWindowSec: 3,
			TestSoldDelaySec:  2,
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty or the file
// is absent) and then applies environment overrides on top of defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.ListenAddr = getEnv("ASTA_LISTEN_ADDR", cfg.ListenAddr)
	cfg.Room = getEnv("ASTA_ROOM", cfg.Room)
	cfg.AdminID = getEnv("ASTA_ADMIN_ID", cfg.AdminID)
	cfg.AdminName = getEnv("ASTA_ADMIN_NAME", cfg.AdminName)
	cfg.InitialCredits = getEnvAsInt("ASTA_INITIAL_CREDITS", cfg.InitialCredits)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	return cfg, nil
}

// DSN returns the Postgres connection URL.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// Durations converts the second counts into time.Durations.
func (t TimerConfig) Durations() (bid, open, sold, testBid, testOpen, testSold time.Duration) {
	sec := func(n int) time.Duration { return time.Duration(n) * time.Second }
	return sec(t.BidWindowSec), sec(t.OpenWindowSec), sec(t.SoldDelaySec),
		sec(t.TestBidWindowSec), sec(t.TestOpenWindowSec), sec(t.TestSoldDelaySec)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
