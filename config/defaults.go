// =============================================================================
// 📦 yamhttp 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Pool:      DefaultPoolConfig(),
		Log:       DefaultLogConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认接收器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            "0.0.0.0:8080",
		Dispatch:        DispatchPool,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    0,
		RateLimitBurst:  200,
	}
}

// DefaultPoolConfig 返回默认 worker pool 配置
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxWorkers:  100,
		QueueSize:   1000,
		IdleTimeout: 60 * time.Second,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Addr:      ":9091",
		Namespace: "yamhttp",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:        false,
		OTLPEndpoint:   "localhost:4317",
		ServiceName:    "yamhttp",
		SampleRate:     0.1,
		MetricInterval: 15 * time.Second,
	}
}
