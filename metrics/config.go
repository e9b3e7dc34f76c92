package metrics

// Config 指标配置
//
//	metrics:
//	  enabled: true
//	  service_name: "lockctl"
//	  port: 9090
//	  path: "/metrics"
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	ServiceName string `mapstructure:"service_name" yaml:"service_name" json:"service_name"`
	Version     string `mapstructure:"version" yaml:"version" json:"version"`

	// Port 大于 0 时启动 HTTP 服务暴露 Prometheus 格式指标
	Port int    `mapstructure:"port" yaml:"port" json:"port"`
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// NewDevDefaultConfig 开发环境配置：启用指标，不开放端口
func NewDevDefaultConfig(serviceName string) *Config {
	return &Config{
		Enabled:     true,
		ServiceName: serviceName,
		Version:     "dev",
	}
}

func (c *Config) setDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "locks"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
