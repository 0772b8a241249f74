package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/ledgerctl/internal/domain"
)

// isolate runs the test in an empty directory so no stray ledgerctl.toml or
// .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "ccf-node", cfg.Container.Name)
	assert.Equal(t, "virtual", cfg.Platform)
	assert.Equal(t, "127.0.0.1", cfg.Probe.Host)
	assert.Equal(t, 8000, cfg.Probe.Port)
	assert.Equal(t, "/node/state", cfg.Probe.Path)
	assert.Equal(t, 5*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Service.StopTimeout)
	assert.Equal(t, "./backups", cfg.Backup.Dir)
	assert.Equal(t, "alpine:3.20", cfg.Backup.HelperImage)
	assert.Equal(t, "./scripts/start-ccf.sh", cfg.FreshStart.Script)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.File.Enabled)
}

func TestLoadConfig_PlainEnvNames(t *testing.T) {
	isolate(t)
	t.Setenv("CONTAINER_NAME", "ccf-node-2")
	t.Setenv("PLATFORM", "snp")
	t.Setenv("CCF_PORT", "8443")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "ccf-node-2", cfg.Container.Name)
	assert.Equal(t, "snp", cfg.Platform)
	assert.Equal(t, 8443, cfg.Probe.Port)
}

func TestLoadConfig_PrefixedEnvWins(t *testing.T) {
	isolate(t)
	t.Setenv("CONTAINER_NAME", "plain")
	t.Setenv("LEDGERCTL_CONTAINER_NAME", "prefixed")
	t.Setenv("LEDGERCTL_BACKUP_DIR", "/srv/backups")
	t.Setenv("LEDGERCTL_SERVICE_STOP_TIMEOUT", "1m")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "prefixed", cfg.Container.Name)
	assert.Equal(t, "/srv/backups", cfg.Backup.Dir)
	assert.Equal(t, time.Minute, cfg.Service.StopTimeout)
}

func TestLoadConfig_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	content := `
platform = "sgx"

[container]
name = "member-0"

[probe]
port = 9443
timeout = "2s"

[backup]
dir = "/var/backups/ledger"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "member-0", cfg.Container.Name)
	assert.Equal(t, "sgx", cfg.Platform)
	assert.Equal(t, 9443, cfg.Probe.Port)
	assert.Equal(t, 2*time.Second, cfg.Probe.Timeout)
	assert.Equal(t, "/var/backups/ledger", cfg.Backup.Dir)
	assert.Equal(t, "/node/state", cfg.Probe.Path)
}

func TestLoadConfig_SearchPath(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ledgerctl.toml"), []byte("[container]\nname = \"found\"\n"), 0o600))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "found", cfg.Container.Name)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LEDGERCTL_PROBE_PATH=/app/commit\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LEDGERCTL_PROBE_PATH") })

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/app/commit", cfg.Probe.Path)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	_, err := LoadConfig(filepath.Join(dir, "nope.toml"))
	require.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "empty container name", env: map[string]string{"LEDGERCTL_CONTAINER_NAME": " "}},
		{name: "port out of range", env: map[string]string{"CCF_PORT": "70000"}},
		{name: "zero stop timeout", env: map[string]string{"LEDGERCTL_SERVICE_STOP_TIMEOUT": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig("")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}
