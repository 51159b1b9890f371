package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleCfg struct {
	Name string `mapstructure:"name"`
	HTTP struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"http"`
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := "name: demo-service\nhttp:\n  addr: \":8080\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "demo-service.yaml"), []byte(yaml), 0o644))

	t.Setenv("DEMO_SERVICE_HTTP_ADDR", ":9999")

	var cfg sampleCfg
	_, err := Load("demo-service", &cfg, dir)
	require.NoError(t, err)

	assert.Equal(t, "demo-service", cfg.Name)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
}

func TestEnvPrefix(t *testing.T) {
	assert.Equal(t, "REDPACKET_SERVICE", EnvPrefix("redpacket-service"))
}
