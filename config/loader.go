// =============================================================================
// 📦 yamhttp 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.Load("yamhttp.yaml")
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量，加载后统一校验
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/yamhttp/tcp"
)

// 调度模式
const (
	DispatchPool = "pool"
	DispatchPoll = "poll"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 yamhttp 的完整配置结构
type Config struct {
	// Server 连接接收器配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Pool worker pool 配置（dispatch=pool 时生效）
	Pool PoolConfig `yaml:"pool" env:"POOL"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 连接接收器配置
type ServerConfig struct {
	// 监听地址，IP:port，IPv6 需加方括号
	Addr string `yaml:"addr" env:"ADDR"`
	// 调度模式: pool, poll
	Dispatch string `yaml:"dispatch" env:"DISPATCH"`
	// 响应写入超时，0 表示不设置
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每秒接收连接数上限，0 表示不限流
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 令牌桶容量
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// PoolConfig worker pool 配置
type PoolConfig struct {
	// 最大 worker 数
	MaxWorkers int `yaml:"max_workers" env:"MAX_WORKERS"`
	// 队列长度，0 表示只交给空闲或新建的 worker
	QueueSize int `yaml:"queue_size" env:"QUEUE_SIZE"`
	// 空闲 worker 退出时间
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// /metrics 监听地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
	// OTLP 指标导出周期，0 表示使用 SDK 默认值
	MetricInterval time.Duration `yaml:"metric_interval" env:"METRIC_INTERVAL"`
}

// =============================================================================
// 🔧 配置加载
// =============================================================================

// EnvPrefix 环境变量前缀，例如 YAMHTTP_SERVER_ADDR
const EnvPrefix = "YAMHTTP"

// Load 按 默认值 → YAML 文件 → 环境变量 的顺序构建配置并校验。
// path 为空或文件不存在时跳过文件层。
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := applyEnv(reflect.ValueOf(cfg).Elem(), EnvPrefix); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeFile 严格解码 YAML，未知键视为错误，空文件保持默认值
func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv 按 env tag 逐层拼接变量名。非字符串标量交给 yaml 解码，
// 因此 "250ms"、"0.5"、"false" 与 YAML 文件中的写法一致。
func applyEnv(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag
		field := v.Field(i)

		if field.Kind() == reflect.Struct {
			if err := applyEnv(field, key); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok || raw == "" {
			continue
		}
		if err := setFromEnv(field, raw); err != nil {
			return fmt.Errorf("%s=%q: %w", key, raw, err)
		}
	}
	return nil
}

func setFromEnv(field reflect.Value, raw string) error {
	switch {
	case field.Kind() == reflect.String:
		// 地址如 "[::1]:8080" 在 YAML 中是流序列，字符串直接赋值
		field.SetString(raw)
		return nil
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
		return nil
	default:
		return yaml.Unmarshal([]byte(raw), field.Addr().Interface())
	}
}

// =============================================================================
// 🔍 配置校验
// =============================================================================

// Validate 验证配置，汇总所有错误
func (c *Config) Validate() error {
	var errs []string

	// 验证接收器配置
	if _, err := tcp.ParseEndpoint(c.Server.Addr); err != nil {
		errs = append(errs, fmt.Sprintf("invalid server addr: %v", err))
	}
	if c.Server.Dispatch != DispatchPool && c.Server.Dispatch != DispatchPoll {
		errs = append(errs, fmt.Sprintf("dispatch must be %q or %q", DispatchPool, DispatchPoll))
	}
	if c.Server.WriteTimeout < 0 {
		errs = append(errs, "write_timeout must not be negative")
	}
	if c.Server.RateLimitRPS < 0 {
		errs = append(errs, "rate_limit_rps must not be negative")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		errs = append(errs, "rate_limit_burst must be positive when rate limiting is enabled")
	}

	// 验证 Pool 配置
	if c.Server.Dispatch == DispatchPool {
		if c.Pool.MaxWorkers <= 0 {
			errs = append(errs, "pool.max_workers must be positive")
		}
		if c.Pool.QueueSize < 0 {
			errs = append(errs, "pool.queue_size must not be negative")
		}
	}

	// 验证日志配置
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}

	// 验证指标与遥测配置
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr is required when metrics are enabled")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "sample_rate must be between 0 and 1")
	}
	if c.Telemetry.MetricInterval < 0 {
		errs = append(errs, "metric_interval must not be negative")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		errs = append(errs, "telemetry.otlp_endpoint is required when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
