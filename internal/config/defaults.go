package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultListen           = "0.0.0.0:8420"
	DefaultPanelURL         = "http://localhost:8420"
	DefaultHTTPReadTimeout  = 15 * time.Second
	DefaultHTTPWriteTimeout = 30 * time.Second
	DefaultStartScript      = "run.sh"
	DefaultStopTimeout      = 90 * time.Second
	DefaultMaxPlayers       = 20
	DefaultRetentionDays    = 7
	DefaultFallbackInterval = 30 * time.Second
	DefaultStreamRetryDelay = 20 * time.Second
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 10
	DefaultMinConns         = 2
	DefaultBatchSize        = 100
	DefaultFlushInterval    = 1 * time.Second
	DefaultBufferSize       = 1000
)

func (c *PanelConfig) applyDefaults() {
	// Server defaults
	if c.Server.StartScript == "" {
		c.Server.StartScript = DefaultStartScript
	}
	if c.Server.StopTimeout == 0 {
		c.Server.StopTimeout = DefaultStopTimeout
	}
	if c.Server.MaxPlayers == 0 {
		c.Server.MaxPlayers = DefaultMaxPlayers
	}

	// HTTP defaults
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = DefaultListen
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = DefaultHTTPReadTimeout
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = DefaultHTTPWriteTimeout
	}

	// Backup defaults
	if c.Backups.RetentionDays == 0 {
		c.Backups.RetentionDays = DefaultRetentionDays
	}

	// History defaults
	if c.History.Enabled {
		applyDBDefaults(&c.History.Database)
		if c.History.BatchSize == 0 {
			c.History.BatchSize = DefaultBatchSize
		}
		if c.History.FlushInterval == 0 {
			c.History.FlushInterval = DefaultFlushInterval
		}
		if c.History.BufferSize == 0 {
			c.History.BufferSize = DefaultBufferSize
		}
	}
}

func (c *WatcherConfig) applyDefaults() {
	if c.Panel.URL == "" {
		c.Panel.URL = DefaultPanelURL
	}
	if c.Watch.FallbackInterval == 0 {
		c.Watch.FallbackInterval = DefaultFallbackInterval
	}
	if c.Watch.StreamRetryDelay == 0 {
		c.Watch.StreamRetryDelay = DefaultStreamRetryDelay
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
