// Package config defines rebootplan's configuration file and the manager
// that loads, validates and hot-reloads it.
package config

import (
	"fmt"
	"time"

	"rebootplan/internal/catalog"
	"rebootplan/internal/facade"
	"rebootplan/internal/notifier"
	"rebootplan/internal/storage"
	"rebootplan/internal/sweeper"
	logx "rebootplan/pkg/logx"
)

type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Servers is the read-only catalog reboot tasks reference. Omitting it
	// seeds the built-in fixture.
	Servers []ServerConfig `json:"servers,omitempty"`

	Storage  *StorageConfig  `json:"storage,omitempty"`
	Sweeper  SweeperConfig   `json:"sweeper"`
	Notifier *NotifierConfig `json:"notifier,omitempty"`
	API      APIConfig       `json:"api"`

	// DemoSeed backfills a couple of weeks of historical reboot records when
	// the store starts empty. Useful for demos and first-run walkthroughs.
	DemoSeed bool `json:"demo_seed,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type ServerConfig struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Status  string `json:"status"` // online | offline | maintenance
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./rebootplan_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type SweeperConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"` // cron spec or descriptor; default "@every 1m"
}

type NotifierConfig struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token"`
	ChatID     int64  `json:"chat_id"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// APIConfig controls the facade the presentation layer talks to.
type APIConfig struct {
	// Delay is a Go duration string for the artificial delivery delay.
	// Empty means the default (300ms); "0s" disables it.
	Delay string `json:"delay,omitempty"`
}

// Validate rejects configs that cannot produce a working engine.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i, s := range c.Servers {
		if s.ID == "" {
			return fmt.Errorf("servers[%d]: id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("servers[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
		if s.Status != "" && !catalog.ServerStatus(s.Status).Valid() {
			return fmt.Errorf("servers[%d]: invalid status %q", i, s.Status)
		}
	}
	if _, err := ParseDurationField("api.delay", c.API.Delay); err != nil {
		return err
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}

// CatalogServers converts the configured server list to catalog entries.
// Status defaults to online when omitted.
func (c *Config) CatalogServers() []catalog.Server {
	out := make([]catalog.Server, 0, len(c.Servers))
	for _, s := range c.Servers {
		st := catalog.ServerStatus(s.Status)
		if !st.Valid() {
			st = catalog.StatusOnline
		}
		out = append(out, catalog.Server{ID: s.ID, Name: s.Name, Address: s.Address, Status: st})
	}
	return out
}

func (c *Config) LogxConfig() logx.Config {
	return logx.Config{
		Level:   c.Logging.Level,
		Console: c.Logging.Console,
		File: logx.FileConfig{
			Enabled: c.Logging.File.Enabled,
			Path:    c.Logging.File.Path,
		},
	}
}

func (c *Config) StorageConfig() storage.Config {
	if c.Storage == nil {
		return storage.Config{}
	}
	busy, _ := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	return storage.Config{
		Driver:      c.Storage.Driver,
		Path:        c.Storage.Path,
		BusyTimeout: busy,
	}
}

func (c *Config) SweeperConfig() sweeper.Config {
	return sweeper.Config{Enabled: c.Sweeper.Enabled, Schedule: c.Sweeper.Schedule}
}

func (c *Config) NotifierConfig() notifier.Config {
	if c.Notifier == nil {
		return notifier.Config{}
	}
	return notifier.Config{
		Enabled:    c.Notifier.Enabled,
		Token:      c.Notifier.Token,
		ChatID:     c.Notifier.ChatID,
		RatePerSec: c.Notifier.RatePerSec,
	}
}

func (c *Config) FacadeConfig() facade.Config {
	raw := c.API.Delay
	if raw == "" {
		return facade.Config{} // facade applies its default
	}
	d, _ := ParseDurationField("api.delay", raw)
	if d == 0 {
		return facade.Config{Delay: -1 * time.Millisecond} // explicit "0s" disables
	}
	return facade.Config{Delay: d}
}
