package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/hmdraft/docmodel"
)

// isolate points HOME and cwd at a fresh temp dir so no real config leaks in
func isolate(t *testing.T) string {
	t.Helper()
	Reset()
	t.Cleanup(Reset)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "hmdraft.db", cfg.Database.Path)
	assert.Equal(t, DefaultHTTPPort, cfg.Server.HTTPPort)
	assert.Equal(t, DefaultGRPCPort, cfg.Server.GRPCPort)
	assert.Equal(t, "localhost:56002", cfg.Client.Address)
	assert.Equal(t, "^1.0.0", cfg.Client.APIConstraint)
	assert.Equal(t, docmodel.DefaultCompareAttributes, cfg.Drafts.CompareAttributes)
	assert.Equal(t, docmodel.DefaultStructuralAttributes, cfg.Drafts.StructuralAttributes)
	assert.True(t, cfg.Diagnosis.Enabled)

	assert.Equal(t, 500*time.Millisecond, cfg.AutosaveDebounce())
	assert.Equal(t, 20*time.Millisecond, cfg.MountDelay())
	assert.Equal(t, 2*time.Second, cfg.SavedIndicatorDuration())
	assert.Equal(t, 30*time.Second, cfg.ClientTimeout())
}

func TestZeroValueGetters(t *testing.T) {
	var cfg Config

	assert.Equal(t, "hmdraft.db", cfg.GetDatabasePath())
	assert.Equal(t, DefaultHTTPPort, cfg.GetHTTPPort())
	assert.Equal(t, DefaultGRPCPort, cfg.GetGRPCPort())
	assert.Equal(t, docmodel.DefaultCompareAttributes, cfg.GetCompareAttributes())
	assert.Equal(t, docmodel.DefaultStructuralAttributes, cfg.GetStructuralAttributes())
	assert.NotEmpty(t, cfg.GetServerAllowedOrigins())
	assert.Equal(t, 500*time.Millisecond, cfg.AutosaveDebounce())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "zero values use defaults", config: Config{}},
		{name: "negative debounce", config: Config{Drafts: DraftsConfig{AutosaveDebounceMS: -1}}, wantErr: true},
		{name: "negative mount delay", config: Config{Drafts: DraftsConfig{MountDelayMS: -5}}, wantErr: true},
		{name: "port out of range", config: Config{Server: ServerConfig{HTTPPort: 70000}}, wantErr: true},
		{name: "same ports", config: Config{Server: ServerConfig{HTTPPort: 9000, GRPCPort: 9000}}, wantErr: true},
		{name: "bad constraint", config: Config{Client: ClientConfig{APIConstraint: "not-a-version"}}, wantErr: true},
		{name: "good constraint", config: Config{Client: ClientConfig{APIConstraint: ">=1.2, <2"}}},
		{name: "negative buffer", config: Config{Diagnosis: DiagnosisConfig{Buffer: -1}}, wantErr: true},
		{name: "zero rate is unlimited", config: Config{Diagnosis: DiagnosisConfig{MaxPerSecond: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
path = "custom.db"

[drafts]
autosave_debounce_ms = 250
compare_attributes = ["level", "caption"]
`), DefaultFilePermissions))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "custom.db", cfg.Database.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.AutosaveDebounce())
	assert.Equal(t, []string{"level", "caption"}, cfg.GetCompareAttributes())
	// untouched keys keep their defaults
	assert.Equal(t, DefaultGRPCPort, cfg.Server.GRPCPort)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	require.NoError(t, os.WriteFile(path, []byte("[drafts]\nmount_delay_ms = -3\n"), DefaultFilePermissions))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoad_Precedence(t *testing.T) {
	home := isolate(t)

	userDir := filepath.Join(home, ".hmdraft")
	require.NoError(t, os.MkdirAll(userDir, DefaultDirPermissions))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "am.toml"), []byte(`
[database]
path = "user.db"

[server]
http_port = 7001
`), DefaultFilePermissions))

	project := filepath.Join(home, "project", "nested")
	require.NoError(t, os.MkdirAll(project, DefaultDirPermissions))
	require.NoError(t, os.WriteFile(filepath.Join(home, "project", "am.toml"), []byte(`
[database]
path = "project.db"
`), DefaultFilePermissions))
	require.NoError(t, os.Chdir(project))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "project.db", cfg.Database.Path, "project config wins over user config")
	assert.Equal(t, 7001, cfg.Server.HTTPPort, "user config wins over defaults")

	assert.Equal(t, SourceProject, ConfigSources["database.path"].Source)
	assert.Equal(t, SourceUser, ConfigSources["server.http_port"].Source)
}

func TestLoad_EnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("HMDRAFT_DATABASE_PATH", "env.db")
	t.Setenv("HMDRAFT_DRAFTS_AUTOSAVE_DEBOUNCE_MS", "75")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env.db", cfg.Database.Path)
	assert.Equal(t, 75*time.Millisecond, cfg.AutosaveDebounce())

	path, err := GetDatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "env.db", path)
}

func TestLoad_Cached(t *testing.T) {
	isolate(t)

	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)
	assert.Same(t, first, second)

	Reset()
	third, err := Load()
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestSettings(t *testing.T) {
	home := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(home, "am.toml"), []byte("[client]\naddress = \"remote:9\"\n"), DefaultFilePermissions))
	t.Setenv("HMDRAFT_LOG_JSON", "true")

	settings, err := Settings()
	require.NoError(t, err)

	byKey := map[string]SettingInfo{}
	for _, s := range settings {
		byKey[s.Key] = s
	}

	assert.Equal(t, SourceProject, byKey["client.address"].Source)
	assert.Equal(t, "remote:9", byKey["client.address"].Value)
	assert.Equal(t, SourceEnvironment, byKey["log.json"].Source)
	assert.Equal(t, "HMDRAFT_LOG_JSON", byKey["log.json"].SourcePath)
	assert.Equal(t, SourceDefault, byKey["database.path"].Source)
}

func TestRenderTOML(t *testing.T) {
	isolate(t)

	data, err := RenderTOML()
	require.NoError(t, err)
	assert.Contains(t, string(data), "[drafts]")
	assert.Contains(t, string(data), "autosave_debounce_ms = 500")
}
