package config

import (
	"strings"

	"github.com/ceyewan/locks/clog"
)

// DefaultEnvPrefix 默认环境变量前缀
const DefaultEnvPrefix = "LOCKCTL"

// Config 加载器配置
type Config struct {
	Name      string   // 配置文件名称（不含扩展名），默认 "config"
	Paths     []string // 搜索路径，默认 [".", "./config"]
	FileType  string   // 配置文件类型，默认 "yaml"
	EnvPrefix string   // 环境变量前缀，默认 "LOCKCTL"

	// Required 为 true 时找不到配置文件返回 ErrNotFound
	Required bool

	// Defaults 默认值。只有 viper 已知的 key 才能被环境变量覆盖后 Unmarshal 出来，
	// 因此需要从环境变量读取的 key 都应在此声明
	Defaults map[string]any
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "config"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = DefaultEnvPrefix
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
}

// New 创建配置加载器，cfg 为 nil 时使用默认配置
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	c := *cfg
	c.setDefaults()

	o := options{logger: clog.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	return newLoader(&c, o), nil
}
