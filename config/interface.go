// Package config 基于 Viper 加载锁组件与 lockctl 的配置。
//
// 配置来源的优先级从高到低：
//
//	环境变量 > .env 文件 > 环境特定配置（<name>.<env>.yaml） > 基础配置（<name>.yaml） > 默认值
//
// 环境变量名为 <前缀>_<key>，key 中的 "." 替换为 "_"，例如 LOCKCTL_FILE_PATH。
// 环境名取自 <前缀>_ENV。
//
//	loader, _ := config.New(&config.Config{Name: "lockctl", EnvPrefix: "LOCKCTL"})
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//	var cfg AppConfig
//	if err := loader.Unmarshal(&cfg); err != nil {
//		return err
//	}
//
//	// 监听文件变化
//	ch, _ := loader.Watch(ctx, "file.cleaner_delay")
//	for event := range ch {
//		logger.Info("config changed", clog.String("key", event.Key))
//	}
package config

import (
	"context"
	"time"
)

// Loader 配置加载器：加载、解析和监听配置变化
type Loader interface {
	// Load 从所有来源加载配置，并开始监听配置文件
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体（按 mapstructure 标签）
	Unmarshal(v any) error

	// UnmarshalKey 将指定 key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听 key 的变化，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 配置为空时返回 ErrValidationFailed
	Validate() error

	// ConfigFileUsed 实际读取的配置文件，未找到时为空
	ConfigFileUsed() string
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // "file"
	Timestamp time.Time
}
