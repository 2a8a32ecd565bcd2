package am

// Config represents the hmdraft configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Drafts    DraftsConfig    `mapstructure:"drafts"`
	Server    ServerConfig    `mapstructure:"server"`
	Client    ClientConfig    `mapstructure:"client"`
	Diagnosis DiagnosisConfig `mapstructure:"diagnosis"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// DraftsConfig configures the autosave machine and change detection
type DraftsConfig struct {
	AutosaveDebounceMS int `mapstructure:"autosave_debounce_ms"` // quiet period before a save (default: 500)
	MountDelayMS       int `mapstructure:"mount_delay_ms"`       // editor population grace period (default: 20)
	SavedIndicatorMS   int `mapstructure:"saved_indicator_ms"`   // how long "saved" is shown (default: 2000)

	// Attribute keys compared for change detection. Keys outside this list
	// never make two blocks unequal.
	CompareAttributes []string `mapstructure:"compare_attributes"`

	// Attribute keys whose change re-emits the block position.
	StructuralAttributes []string `mapstructure:"structural_attributes"`
}

// ServerConfig configures the hmdraft daemon
type ServerConfig struct {
	HTTPPort       int      `mapstructure:"http_port"`
	GRPCPort       int      `mapstructure:"grpc_port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ClientConfig configures how CLI commands reach the daemon
type ClientConfig struct {
	Address        string `mapstructure:"address"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	APIConstraint  string `mapstructure:"api_constraint"` // semver constraint on the daemon API version
}

// DiagnosisConfig configures the draft diagnosis log
type DiagnosisConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	Buffer       int  `mapstructure:"buffer"`         // pending entries before dropping
	MaxPerSecond int  `mapstructure:"max_per_second"` // 0 = unlimited
}

// LogConfig configures logging output
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// Port constants
const (
	DefaultHTTPPort = 56001
	DefaultGRPCPort = 56002
)

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
