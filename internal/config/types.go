package config

// Config is the daemon's on-disk configuration. JSON and YAML are both
// accepted; YAML is coerced to JSON so one strict decoder handles both and
// unknown keys fail loudly at load time.
type Config struct {
	Logging LoggingConfig `json:"logging"`
	Broker  BrokerConfig  `json:"broker"`
	Storage StorageConfig `json:"storage"`

	// Identity is the static caller table used when no platform identity
	// service is wired in. Each entry maps a uid to a bundle.
	Identity IdentityConfig `json:"identity"`

	Distributed DistributedConfig `json:"distributed,omitempty"`
	Sweeper     SweeperConfig     `json:"sweeper,omitempty"`
	Pprof       PprofConfig       `json:"pprof,omitempty"`
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

// BrokerConfig tunes admission control. Zero values fall back to the
// built-in limits.
type BrokerConfig struct {
	MaxIconSize     int `json:"max_icon_size,omitempty"`
	MaxPictureSize  int `json:"max_picture_size,omitempty"`
	QueueDepth      int `json:"queue_depth,omitempty"`
	MaxActive       int `json:"max_active,omitempty"`
	MaxActivePerApp int `json:"max_active_per_app,omitempty"`
	MaxPerSecond    int `json:"max_per_second,omitempty"`

	// MaxSlotGroups bounds slot groups per bundle.
	MaxSlotGroups int `json:"max_slot_groups,omitempty"`
}

// StorageConfig selects the preference persistence engine.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./notibroker.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)

	Addr         string `json:"addr,omitempty"` // redis
	Password     string `json:"password,omitempty"`
	DB           int    `json:"db,omitempty"`
	Namespace    string `json:"namespace,omitempty"`
	PingInterval string `json:"ping_interval,omitempty"` // Go duration string (redis)
}

type IdentityConfig struct {
	Apps []IdentityApp `json:"apps,omitempty"`
}

type IdentityApp struct {
	Bundle    string `json:"bundle"`
	UID       int32  `json:"uid"`
	UserID    int32  `json:"user_id,omitempty"`
	SystemApp bool   `json:"system_app,omitempty"`
}

// DistributedConfig controls cross-device mirroring. It shares the redis
// instance configured under storage when addr is empty.
type DistributedConfig struct {
	Enabled    bool   `json:"enabled"`
	DeviceID   string `json:"device_id,omitempty"`
	Addr       string `json:"addr,omitempty"`
	Password   string `json:"password,omitempty"`
	DB         int    `json:"db,omitempty"`
	Channel    string `json:"channel,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	QueueSize  int    `json:"queue_size,omitempty"`
	RetryMax   int    `json:"retry_max,omitempty"`
	RetryBase  string `json:"retry_base,omitempty"` // Go duration string
}

type SweeperConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"` // cron expression or @every form
}

// PprofConfig controls the optional pprof HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:6060").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type PprofConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`   // default: "127.0.0.1:6060"
	Prefix        string `json:"prefix,omitempty"` // default: "/debug/pprof/"
	Token         string `json:"token,omitempty"`  // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	// Server timeouts (Go duration strings). WriteTimeout defaults to 0 (disabled)
	// so /profile (which can take 30s+) works reliably.
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`

	// Runtime profiling rates. Leave 0 to keep Go defaults.
	MutexProfileFraction int `json:"mutex_profile_fraction,omitempty"`
	BlockProfileRate     int `json:"block_profile_rate,omitempty"`
	MemProfileRate       int `json:"mem_profile_rate,omitempty"`
}
