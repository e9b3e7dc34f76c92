package filelock

import (
	"path/filepath"
	"time"

	"github.com/ceyewan/locks"
	"github.com/ceyewan/locks/xerrors"
)

const (
	// DefaultExtension 锁文件扩展名
	DefaultExtension = ".lock"
	// DefaultCleanerDelay 后台清理间隔
	DefaultCleanerDelay = 60 * time.Second
)

var (
	// ErrPathRequired 未设置锁目录
	ErrPathRequired = xerrors.New("filelock: path is required")
	// ErrRelativePath 锁目录必须是绝对路径
	ErrRelativePath = xerrors.New("filelock: path must be absolute")
)

// Config 文件锁配置
//
//	file:
//	  path: /var/run/myapp/locks
//	  delay: 500ms
//	  cleaner_delay: 60s
type Config struct {
	locks.Config `mapstructure:",squash" yaml:",inline"`

	// Path 锁文件所在目录，必须是绝对路径，不存在时自动创建
	Path string `mapstructure:"path" yaml:"path" json:"path"`

	// Extension 锁文件扩展名，默认 ".lock"。清理器只处理此扩展名的文件。
	Extension string `mapstructure:"extension" yaml:"extension" json:"extension"`

	// CleanerDelay 后台清理的间隔
	CleanerDelay time.Duration `mapstructure:"cleaner_delay" yaml:"cleaner_delay" json:"cleaner_delay"`
}

func (c *Config) SetDefaults() {
	c.Config.SetDefaults()
	if c.Extension == "" {
		c.Extension = DefaultExtension
	}
	if c.CleanerDelay <= 0 {
		c.CleanerDelay = DefaultCleanerDelay
	}
}

func (c *Config) Validate() error {
	if c.Path == "" {
		return ErrPathRequired
	}
	if !filepath.IsAbs(c.Path) {
		return xerrors.Wrapf(ErrRelativePath, "%q", c.Path)
	}
	return c.Config.Validate()
}
