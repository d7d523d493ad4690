package state

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the observer's node-level configuration.
type Config struct {
	// Unit is the systemd unit whose journal carries the debug log.
	// Used when Device is empty.
	Unit string `yaml:"unit,omitempty"`
	// Device is a serial device providing the debug log directly,
	// i.e. /dev/ttyUSB0. Takes precedence over Unit when set.
	Device string `yaml:"device,omitempty"`
	Baud   int    `yaml:"baud,omitempty"`

	Database  string `yaml:"database,omitempty"`
	ReportDir string `yaml:"report_dir,omitempty"`
	// LogPath, if not empty, duplicates the log stream to this file.
	LogPath string `yaml:"log_path,omitempty"`

	// HourlyMinute is the minute of every hour the rates report runs at.
	HourlyMinute *int `yaml:"hourly_minute,omitempty"`
	// DailyAt are local times ("HH:MM") the full report runs at.
	DailyAt  []string `yaml:"daily_at,omitempty"`
	Timezone string   `yaml:"timezone,omitempty"`
}

func LoadConfig(path string) (Config, error) {
	var cfg Config
	file, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return cfg, err
	}
	ExpandConfig(&cfg)
	if err := ConfigValidator(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ExpandConfig fills in defaults for omitted fields.
func ExpandConfig(cfg *Config) {
	if cfg.Unit == "" {
		cfg.Unit = DefaultJournalUnit
	}
	if cfg.Baud == 0 {
		cfg.Baud = SerialBaudRate
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.ReportDir == "" {
		cfg.ReportDir = DefaultReportDir
	}
	if cfg.HourlyMinute == nil {
		m := DefaultHourlyMin
		cfg.HourlyMinute = &m
	}
	if len(cfg.DailyAt) == 0 {
		cfg.DailyAt = append(cfg.DailyAt, DefaultDailyTimes...)
	}
}

func ConfigValidator(cfg *Config) error {
	if cfg.Device == "" && cfg.Unit == "" {
		return fmt.Errorf("config must name a journal unit or a serial device")
	}
	if cfg.Baud <= 0 {
		return fmt.Errorf("baud = %d is invalid", cfg.Baud)
	}
	if cfg.Database == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if m := *cfg.HourlyMinute; m < 0 || m > 59 {
		return fmt.Errorf("hourly_minute = %d is out of range", m)
	}
	for _, at := range cfg.DailyAt {
		if _, _, err := ParseClock(at); err != nil {
			return err
		}
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone, defaulting to local time.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ParseClock parses an "HH:MM" time of day.
func ParseClock(s string) (hour, min int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not a valid HH:MM time: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}
