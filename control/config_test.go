package control

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-conn/api"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conn.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
listen_addr = "0.0.0.0:7000"
loops = 4
poll_timeout = "250ms"
high_water_mark = 4096
log_format = "json"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.ListenAddr)
	assert.Equal(t, 4, cfg.Loops)
	assert.Equal(t, Duration(250*time.Millisecond), cfg.PollTimeout)
	assert.Equal(t, 4096, cfg.HighWaterMark)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultConfig().ReadScratchSize, cfg.ReadScratchSize)
	assert.True(t, cfg.TCPNoDelay)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `hihg_water_mark = 1`))
	assert.ErrorIs(t, err, api.ErrInvalidConfig)
}

func TestLoadConfigValidates(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `high_water_mark = 0`))
	assert.ErrorIs(t, err, api.ErrInvalidConfig)

	_, err = LoadConfig(writeConfig(t, `log_format = "xml"`))
	assert.ErrorIs(t, err, api.ErrInvalidConfig)

	_, err = LoadConfig(writeConfig(t, `loop_cpus = [0, -1]`))
	assert.ErrorIs(t, err, api.ErrInvalidConfig)
}

func TestLoadConfigLoopCPUs(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `loop_cpus = [0, 2]`))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, cfg.LoopCPUs)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	l, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	cfg.LogLevel = "loud"
	_, err = NewLogger(cfg)
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Read(10)
	m.Read(5)
	m.ConnOpened()
	m.Pending("loop-0", 3)

	assert.Equal(t, 15.0, testutil.ToFloat64(m.BytesRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ConnsOpened))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PendingTasks.WithLabelValues("loop-0")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() {
		nilMetrics.Read(1)
		nilMetrics.ConnClosed()
		nilMetrics.Pending("x", 1)
	})
}

func TestDefaultMetricsIsSingleton(t *testing.T) {
	assert.Same(t, DefaultMetrics(), DefaultMetrics())
	assert.NotNil(t, DefaultRegistry())
}
