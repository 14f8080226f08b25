// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 验证接收器默认值
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, DispatchPool, cfg.Server.Dispatch)
	assert.Equal(t, 10*time.Second, cfg.Server.WriteTimeout)
	assert.Zero(t, cfg.Server.RateLimitRPS)

	// 验证 Pool 默认值
	assert.Equal(t, 100, cfg.Pool.MaxWorkers)
	assert.Equal(t, 1000, cfg.Pool.QueueSize)

	// 验证 Log 默认值
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"stdout"}, cfg.Log.OutputPaths)

	// 验证 Metrics 与 Telemetry 默认值
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "yamhttp", cfg.Metrics.Namespace)
	assert.False(t, cfg.Telemetry.Enabled)

	require.NoError(t, cfg.Validate())
}

// --- Load 测试 ---

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yamhttp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FromYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "[::1]:9000"
  dispatch: poll
  write_timeout: 3s
  rate_limit_rps: 250.5
  rate_limit_burst: 50

pool:
  max_workers: 8
  queue_size: 16

log:
  level: "debug"
  format: "console"

metrics:
  enabled: false
  namespace: "edge"

telemetry:
  metric_interval: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// YAML 值覆盖了默认值
	assert.Equal(t, "[::1]:9000", cfg.Server.Addr)
	assert.Equal(t, DispatchPoll, cfg.Server.Dispatch)
	assert.Equal(t, 3*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 250.5, cfg.Server.RateLimitRPS)
	assert.Equal(t, 50, cfg.Server.RateLimitBurst)
	assert.Equal(t, 8, cfg.Pool.MaxWorkers)
	assert.Equal(t, 16, cfg.Pool.QueueSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, "edge", cfg.Metrics.Namespace)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.MetricInterval)

	// 未出现的字段保留默认值
	assert.Equal(t, 60*time.Second, cfg.Pool.IdleTimeout)
	assert.Equal(t, "yamhttp", cfg.Telemetry.ServiceName)
}

func TestLoad_UnknownYAMLKeyIsRejected(t *testing.T) {
	path := writeConfig(t, `
server:
  adrr: "127.0.0.1:8080"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adrr")
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("YAMHTTP_SERVER_ADDR", "[::1]:7777")
	t.Setenv("YAMHTTP_SERVER_DISPATCH", "poll")
	t.Setenv("YAMHTTP_SERVER_WRITE_TIMEOUT", "250ms")
	t.Setenv("YAMHTTP_SERVER_RATE_LIMIT_RPS", "12.5")
	t.Setenv("YAMHTTP_POOL_MAX_WORKERS", "4")
	t.Setenv("YAMHTTP_POOL_QUEUE_SIZE", "0")
	t.Setenv("YAMHTTP_LOG_OUTPUT_PATHS", "stdout, /var/log/yamhttp.log")
	t.Setenv("YAMHTTP_METRICS_ENABLED", "false")
	t.Setenv("YAMHTTP_TELEMETRY_SAMPLE_RATE", "0.5")
	t.Setenv("YAMHTTP_TELEMETRY_METRIC_INTERVAL", "5s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "[::1]:7777", cfg.Server.Addr)
	assert.Equal(t, DispatchPoll, cfg.Server.Dispatch)
	assert.Equal(t, 250*time.Millisecond, cfg.Server.WriteTimeout)
	assert.Equal(t, 12.5, cfg.Server.RateLimitRPS)
	assert.Equal(t, 4, cfg.Pool.MaxWorkers)
	assert.Equal(t, 0, cfg.Pool.QueueSize)
	assert.Equal(t, []string{"stdout", "/var/log/yamhttp.log"}, cfg.Log.OutputPaths)
	assert.False(t, cfg.Metrics.Enabled)
	assert.Equal(t, 0.5, cfg.Telemetry.SampleRate)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.MetricInterval)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "127.0.0.1:8888"
  dispatch: poll
`)

	// 环境变量应该覆盖 YAML
	t.Setenv("YAMHTTP_SERVER_ADDR", "127.0.0.1:9999")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	// YAML 值保留（没有被环境变量覆盖）
	assert.Equal(t, DispatchPoll, cfg.Server.Dispatch)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"YAMHTTP_POOL_MAX_WORKERS", "many"},
		{"YAMHTTP_SERVER_WRITE_TIMEOUT", "soon"},
		{"YAMHTTP_METRICS_ENABLED", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_Validates(t *testing.T) {
	t.Setenv("YAMHTTP_SERVER_DISPATCH", "fork")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatch must be")
}

func TestLoad_NonExistentFile(t *testing.T) {
	// 配置文件不存在时使用默认值（不报错）
	cfg, err := Load("/non/existent/path/yamhttp.yaml")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig(), cfg.Server)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: [invalid
  this is not valid yaml
`)

	_, err := Load(path)
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid default config",
			modify: func(c *Config) {},
		},
		{
			name:    "hostname is not an endpoint",
			modify:  func(c *Config) { c.Server.Addr = "localhost:8080" },
			wantErr: "invalid server addr",
		},
		{
			name:    "unknown dispatch mode",
			modify:  func(c *Config) { c.Server.Dispatch = "threads" },
			wantErr: "dispatch must be",
		},
		{
			name:    "negative write timeout",
			modify:  func(c *Config) { c.Server.WriteTimeout = -time.Second },
			wantErr: "write_timeout",
		},
		{
			name: "rate limit without burst",
			modify: func(c *Config) {
				c.Server.RateLimitRPS = 10
				c.Server.RateLimitBurst = 0
			},
			wantErr: "rate_limit_burst",
		},
		{
			name:    "pool without workers",
			modify:  func(c *Config) { c.Pool.MaxWorkers = 0 },
			wantErr: "pool.max_workers",
		},
		{
			name: "pool settings ignored in poll mode",
			modify: func(c *Config) {
				c.Server.Dispatch = DispatchPoll
				c.Pool.MaxWorkers = 0
			},
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "unknown log level",
		},
		{
			name:    "metrics without addr",
			modify:  func(c *Config) { c.Metrics.Addr = "" },
			wantErr: "metrics.addr",
		},
		{
			name:    "sample rate out of range",
			modify:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantErr: "sample_rate",
		},
		{
			name:    "negative metric interval",
			modify:  func(c *Config) { c.Telemetry.MetricInterval = -time.Second },
			wantErr: "metric_interval",
		},
		{
			name: "telemetry without endpoint",
			modify: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.OTLPEndpoint = ""
			},
			wantErr: "otlp_endpoint",
		},
		{
			name:   "zero queue is a direct handoff",
			modify: func(c *Config) { c.Pool.QueueSize = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Dispatch = "threads"
	cfg.Log.Level = "verbose"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dispatch must be")
	assert.Contains(t, err.Error(), "unknown log level")
}
