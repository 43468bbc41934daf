package config

import "time"

// PanelConfig is the root configuration for a craftwatchd instance.
type PanelConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Server    ServerConfig    `yaml:"server"`
	HTTP      HTTPConfig      `yaml:"http"`
	Backups   BackupConfig    `yaml:"backups"`
	Downloads DownloadsConfig `yaml:"downloads"`
	History   HistoryConfig   `yaml:"history"`
}

// InstanceConfig identifies this panel.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ServerConfig describes the managed Minecraft server process.
type ServerConfig struct {
	Root        string        `yaml:"root"`         // server directory (working dir of the process)
	StartScript string        `yaml:"start_script"` // script invoked to boot the server, relative to root
	StopTimeout time.Duration `yaml:"stop_timeout"` // grace period after "stop" before the process is killed
	MaxPlayers  int           `yaml:"max_players"`
}

// HTTPConfig holds the panel's listen settings.
type HTTPConfig struct {
	Listen       string        `yaml:"listen"` // host:port
	Token        string        `yaml:"token"`  // bearer token, empty disables auth
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// BackupConfig holds world backup settings.
type BackupConfig struct {
	Dir           string `yaml:"dir"`            // where backup archives are written
	RetentionDays int    `yaml:"retention_days"` // archives older than this are pruned
}

// DownloadsConfig holds paths of artifacts served to clients.
type DownloadsConfig struct {
	ModsArchive       string `yaml:"mods_archive"`
	NeoForgeInstaller string `yaml:"neoforge_installer"`
}

// WatcherConfig is the root configuration for a craftwatch client.
// All of it is optional on the command line; flags override the file.
type WatcherConfig struct {
	Panel PanelEndpointConfig `yaml:"panel"`
	Watch WatchConfig         `yaml:"watch"`
}

// PanelEndpointConfig points a watcher at a craftwatchd instance.
type PanelEndpointConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"` // bearer token, empty = no auth
}

// WatchConfig holds the watcher's stream tuning.
type WatchConfig struct {
	FallbackInterval time.Duration `yaml:"fallback_interval"` // poll cadence when a stream is down
	StreamRetryDelay time.Duration `yaml:"stream_retry_delay"`
	ThrottleStore    string        `yaml:"throttle_store"` // cooldown persistence path, empty = user cache dir
}

// HistoryConfig holds the optional lifecycle history database.
type HistoryConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}
