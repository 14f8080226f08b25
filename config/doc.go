// Package config 提供 yamhttp 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量 的优先级加载，
// 覆盖连接接收器、worker pool、日志、指标与遥测五个部分。
package config
