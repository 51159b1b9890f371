package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	rpConfig "redpacket.com/internal/redpacket/config"
	"redpacket.com/internal/redpacket/social/twitter"
	"redpacket.com/pkg/logger"
)

func TestHandleCache_FallsBackToMemoryWithoutRedis(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	cfg := &rpConfig.Config{}
	cfg.Name = "redpacket-service"
	cfg.HandleCache.Driver = "redis"
	cfg.Normalize()
	a := &App{cfg: cfg}

	hc, err := a.handleCache()
	require.NoError(t, err)
	_, ok := hc.(*twitter.LRUCache)
	assert.True(t, ok)

	entries := logs.FilterMessageSnippet("falling back to memory").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "redpacket-service", entries[0].ContextMap()["service"])
}

func TestNormalize_LockOutlivesInterval(t *testing.T) {
	cfg := &rpConfig.Config{}
	cfg.Reconcile.Interval = 3 * time.Minute
	cfg.Normalize()
	assert.Equal(t, 6*time.Minute, cfg.Reconcile.LockTTL)
}

func TestNew_LoadsConfigAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0o755))
	yaml := "http:\n  addr: \":9090\"\nreconcile:\n  interval: 2m\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "demo-redpacket.yaml"), []byte(yaml), 0o644))
	t.Chdir(dir)

	a, err := New("demo-redpacket")
	require.NoError(t, err)
	assert.Equal(t, ":9090", a.cfg.HTTP.Addr)
	assert.Equal(t, "redpacket-service", a.cfg.Name)
	assert.Equal(t, 4*time.Minute, a.cfg.Reconcile.LockTTL)
}
