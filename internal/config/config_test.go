package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadContainerConfigParsesAndStripsQuotes(t *testing.T) {
	contents := `# comment line
total_size = 1048576
block_size=4096
max_files = 64
max_filename_length=255
max_users = 16
admin_username = "admin"
admin_password="admin"
require_auth = true
port = 8080
max_connections = 10
queue_timeout = 30
`
	path := filepath.Join(t.TempDir(), "ofs.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := LoadContainerConfig(path)
	require.NoError(t, err)

	require.Equal(t, uint64(1048576), cfg.TotalSize)
	require.Equal(t, uint64(4096), cfg.BlockSize)
	require.Equal(t, 64, cfg.MaxFiles)
	require.Equal(t, 255, cfg.MaxFilenameLength)
	require.Equal(t, 16, cfg.MaxUsers)
	require.Equal(t, "admin", cfg.AdminUsername)
	require.Equal(t, "admin", cfg.AdminPassword)
	require.True(t, cfg.RequireAuth)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 10, cfg.MaxConnections)
	require.Equal(t, 30, cfg.QueueTimeout)
}

func TestLoadContainerConfigIgnoresBadLines(t *testing.T) {
	contents := "not a key value line\ntotal_size = 65536\n"
	path := filepath.Join(t.TempDir(), "ofs.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := LoadContainerConfig(path)
	require.NoError(t, err)
	require.Equal(t, uint64(65536), cfg.TotalSize)
}

func TestValidateRejectsMismatchedSizes(t *testing.T) {
	cfg, err := LoadContainerConfig(writeTemp(t, "total_size = 100\nblock_size = 4096\nmax_files=1\nmax_users=1\nadmin_username=admin\n"))
	require.NoError(t, err)
	require.Error(t, Validate(cfg))
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	cfg, err := LoadContainerConfig(writeTemp(t, "total_size = 1048576\nblock_size = 4096\nmax_files=64\nmax_users=16\nadmin_username=admin\n"))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
}

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ofs.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestServerConfigDefaults(t *testing.T) {
	cfg := NewDefaultServerConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, "INFO", cfg.Global.LogLevel)
}

func TestLoadServerConfigFromFileOverridesDefaults(t *testing.T) {
	contents := `
global:
  log_level: DEBUG
circuit_breaker:
  failure_threshold: 9
`
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := LoadServerConfigFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "DEBUG", cfg.Global.LogLevel)
	require.Equal(t, 9, cfg.Circuit.FailureThreshold)
	require.Equal(t, ":9091", cfg.Global.HealthAddr)
}
