package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasperwreed/msgstats/internal/analytics"
	"github.com/jasperwreed/msgstats/internal/errs"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

// isolate runs the test from an empty directory so no stray .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(EnvOwner, "")
	t.Setenv(EnvMessageDirectory, "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.Timezone)
	assert.True(t, cfg.IncludeGroupChats())
	assert.False(t, cfg.HideNames)
	assert.True(t, cfg.StoreRaw)
	assert.Equal(t, float64(analytics.MinutesInAWeek), cfg.GhostLimit)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	assert.True(t, errs.IsConfiguration(cfg.RequireOwner()))
	assert.True(t, errs.IsConfiguration(cfg.RequireMessageDir()))
}

func TestLoad_Environment(t *testing.T) {
	dir := isolate(t)
	t.Setenv(EnvOwner, "Me Myself")
	t.Setenv(EnvMessageDirectory, dir)
	t.Setenv("MSGSTATS_NO_GROUP_CHATS", "true")
	t.Setenv("MSGSTATS_LOG_LEVEL", "debug")

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "Me Myself", cfg.Owner)
	assert.Equal(t, dir, cfg.MessageDirectory)
	assert.False(t, cfg.IncludeGroupChats())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.NoError(t, cfg.RequireOwner())
	assert.NoError(t, cfg.RequireMessageDir())
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv(EnvOwner, "From Env")

	cfg, err := Load(newFlags(t, "--owner", "From Flag", "--hide-names", "--tz", "Europe/Paris"))
	require.NoError(t, err)

	assert.Equal(t, "From Flag", cfg.Owner)
	assert.True(t, cfg.HideNames)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := isolate(t)
	os.Unsetenv(EnvOwner)

	path := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(path, []byte("OWNER_NAME=Dotenv Owner\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(EnvOwner) })

	cfg, err := Load(newFlags(t, "--env-file", path))
	require.NoError(t, err)
	assert.Equal(t, "Dotenv Owner", cfg.Owner)
}

func TestLoad_MissingEnvFile(t *testing.T) {
	isolate(t)

	_, err := Load(newFlags(t, "--env-file", "does-not-exist.env"))
	require.Error(t, err)
	assert.True(t, errs.IsConfiguration(err))
}

func TestLoad_InvalidValues(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
	}{
		{"log level", []string{"--log-level", "loud"}},
		{"log format", []string{"--log-format", "xml"}},
		{"time zone", []string{"--tz", "Mars/Olympus"}},
		{"negative ghost limit", []string{"--ghost-limit", "-1"}},
		{"missing directory", []string{"--dir", "/does/not/exist"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newFlags(t, tt.args...))
			require.Error(t, err)
			assert.True(t, errs.IsConfiguration(err), "got %v", err)
		})
	}
}
