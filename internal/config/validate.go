package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *PanelConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Server.Root == "" {
		return errors.New("server.root is required")
	}
	if c.Server.MaxPlayers < 1 {
		return errors.New("server.max_players must be >= 1")
	}
	if c.Server.StopTimeout < 0 {
		return errors.New("server.stop_timeout must be >= 0")
	}

	if c.Backups.Dir == "" {
		return errors.New("backups.dir is required")
	}
	if c.Backups.RetentionDays < 1 {
		return errors.New("backups.retention_days must be >= 1")
	}

	if c.History.Enabled {
		if err := c.History.Database.validate("history.database"); err != nil {
			return err
		}
		if c.History.BatchSize < 1 {
			return errors.New("history.batch_size must be >= 1")
		}
		if c.History.BufferSize < 1 {
			return errors.New("history.buffer_size must be >= 1")
		}
	}

	return nil
}

// Validate checks the watcher's settings.
func (c *WatcherConfig) Validate() error {
	if c.Panel.URL == "" {
		return errors.New("panel.url is required")
	}
	if c.Watch.FallbackInterval <= 0 {
		return errors.New("watch.fallback_interval must be > 0")
	}
	if c.Watch.StreamRetryDelay < 0 {
		return errors.New("watch.stream_retry_delay must be >= 0")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
