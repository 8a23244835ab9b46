package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigReadsExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "collector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  dir: /tmp/maint\n"), 0o600))

	v := viper.New()
	require.NoError(t, InitConfig(v, path))
	assert.Equal(t, "/tmp/maint", v.GetString("output.dir"))
	assert.True(t, v.GetBool("resume"))
	assert.Equal(t, path, v.ConfigFileUsed())
}

func TestInitConfigRejectsMalformedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "collector.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output: [unclosed\n"), 0o600))

	require.Error(t, InitConfig(viper.New(), path))
}

func TestInitConfigBindsEnvironment(t *testing.T) {
	t.Setenv("MAINT_FETCH_MAX_ATTEMPTS", "9")
	t.Chdir(t.TempDir())

	v := viper.New()
	require.NoError(t, InitConfig(v, ""))
	assert.Equal(t, 9, v.GetInt("fetch.max_attempts"))
	assert.Equal(t, "output", v.GetString("output.dir"))
	assert.Empty(t, v.ConfigFileUsed())
}
