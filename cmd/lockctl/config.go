package main

import (
	"context"

	"github.com/ceyewan/locks"
	"github.com/ceyewan/locks/clog"
	"github.com/ceyewan/locks/config"
	"github.com/ceyewan/locks/connector"
	"github.com/ceyewan/locks/filelock"
	"github.com/ceyewan/locks/metrics"
	"github.com/ceyewan/locks/mslock"
	"github.com/ceyewan/locks/trace"
)

// AppConfig lockctl.yaml 的结构
//
//	log:
//	  level: info
//	  format: console
//	trace:
//	  endpoint: localhost:4317
//	file:
//	  path: /var/lock/lockctl
//	  cleaner_delay: 60s
//	postgres:
//	  host: 127.0.0.1
//	  username: postgres
//	  database: app
//	pglock:
//	  scope: SESSION
//	sqlserver:
//	  host: 127.0.0.1
//	  username: sa
//	  database: master
//	mslock:
//	  lock_mode: Update
type AppConfig struct {
	Log       clog.Config                `mapstructure:"log"`
	Metrics   metrics.Config             `mapstructure:"metrics"`
	Trace     trace.Config               `mapstructure:"trace"`
	File      filelock.Config            `mapstructure:"file"`
	Postgres  connector.PostgreSQLConfig `mapstructure:"postgres"`
	PGLock    locks.Config               `mapstructure:"pglock"`
	SQLServer connector.SQLServerConfig  `mapstructure:"sqlserver"`
	MSLock    mslock.Config              `mapstructure:"mslock"`
}

// 需要能被环境变量覆盖的 key
var configDefaults = map[string]any{
	"log.level":          "info",
	"log.format":         "console",
	"log.output":         "stderr",
	"metrics.enabled":    false,
	"metrics.port":       0,
	"trace.endpoint":     "",
	"trace.sampler":      1.0,
	"trace.insecure":     true,
	"file.path":          "/var/lock/lockctl",
	"file.cleaner_delay": filelock.DefaultCleanerDelay,
	"postgres.dsn":       "",
	"postgres.host":      "",
	"postgres.username":  "",
	"postgres.password":  "",
	"postgres.database":  "",
	"pglock.scope":       string(locks.Session),
	"sqlserver.dsn":      "",
	"sqlserver.host":     "",
	"sqlserver.username": "",
	"sqlserver.password": "",
	"sqlserver.database": "",
	"mslock.scope":       string(locks.Session),
	"mslock.lock_mode":   "",
}

// loadConfig 从 dirs 中查找 name.yaml，配置文件可选。
// 返回的 loader 可继续用于监听配置文件变化。
func loadConfig(ctx context.Context, name string, dirs []string) (*AppConfig, config.Loader, error) {
	loader, err := config.New(&config.Config{
		Name:      name,
		Paths:     dirs,
		EnvPrefix: config.DefaultEnvPrefix,
		Defaults:  configDefaults,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := loader.Load(ctx); err != nil {
		return nil, nil, err
	}

	cfg := &AppConfig{}
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}
