package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoader_Priority(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lockctl.yaml"), `
file:
  path: /var/lock/app
  cleaner_delay: 60s
postgres:
  host: localhost
  port: 5432
lock:
  lock_type: EXCLUSIVE
`)
	writeFile(t, filepath.Join(dir, "lockctl.dev.yaml"), `
postgres:
  port: 15432
`)
	writeFile(t, filepath.Join(dir, ".env"), "LOCKTESTA_LOCK_LOCK_TYPE=SHARED\n")

	t.Setenv("LOCKTESTA_ENV", "dev")
	t.Setenv("LOCKTESTA_POSTGRES_HOST", "db.internal")
	t.Cleanup(func() { _ = os.Unsetenv("LOCKTESTA_LOCK_LOCK_TYPE") })

	loader, err := New(&Config{Name: "lockctl", Paths: []string{dir}, EnvPrefix: "locktesta"})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))
	require.NoError(t, loader.Validate())

	assert.Equal(t, filepath.Join(dir, "lockctl.yaml"), loader.ConfigFileUsed())
	assert.Equal(t, "db.internal", loader.Get("postgres.host"), "环境变量优先")
	assert.Equal(t, "SHARED", loader.Get("lock.lock_type"), ".env 次之")
	assert.Equal(t, 15432, loader.Get("postgres.port"), "环境特定配置覆盖基础配置")
	assert.Equal(t, "/var/lock/app", loader.Get("file.path"))

	var cfg struct {
		File struct {
			Path         string        `mapstructure:"path"`
			CleanerDelay time.Duration `mapstructure:"cleaner_delay"`
		} `mapstructure:"file"`
	}
	require.NoError(t, loader.Unmarshal(&cfg))
	assert.Equal(t, "/var/lock/app", cfg.File.Path)
	assert.Equal(t, time.Minute, cfg.File.CleanerDelay)
}

func TestLoader_MissingFile(t *testing.T) {
	dir := t.TempDir()

	loader, err := New(&Config{Name: "absent", Paths: []string{dir}, EnvPrefix: "LOCKTESTB",
		Defaults: map[string]any{"file.path": "/tmp/locks"}})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()), "配置文件可选")
	assert.Empty(t, loader.ConfigFileUsed())

	t.Setenv("LOCKTESTB_FILE_PATH", "/run/locks")
	var cfg struct {
		File struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"file"`
	}
	require.NoError(t, loader.UnmarshalKey("file", &cfg.File))
	assert.Equal(t, "/run/locks", cfg.File.Path, "声明过默认值的 key 可被环境变量覆盖")

	required, err := New(&Config{Name: "absent", Paths: []string{dir}, Required: true})
	require.NoError(t, err)
	err = required.Load(context.Background())
	assert.True(t, IsNotFound(err))
}

func TestLoader_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.yaml"), "file: [unclosed\n")

	loader, err := New(&Config{Name: "broken", Paths: []string{dir}, EnvPrefix: "LOCKTESTC"})
	require.NoError(t, err)
	assert.True(t, IsInvalidInput(loader.Load(context.Background())))
}

func TestLoader_ValidateEmpty(t *testing.T) {
	loader, err := New(&Config{Name: "absent", Paths: []string{t.TempDir()}, EnvPrefix: "LOCKTESTD"})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))
	assert.ErrorIs(t, loader.Validate(), ErrValidationFailed)
}

func TestLoader_Watch(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "watch.yaml")
	writeFile(t, file, "file:\n  cleaner_delay: 60s\n")

	loader, err := New(&Config{Name: "watch", Paths: []string{dir}, EnvPrefix: "LOCKTESTE"})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := loader.Watch(ctx, "file.cleaner_delay")
	require.NoError(t, err)

	// 等待监听生效后再修改
	time.Sleep(100 * time.Millisecond)
	// 先写临时文件再 rename，避免监听到截断后的空文件
	tmp := filepath.Join(dir, "watch.tmp")
	writeFile(t, tmp, "file:\n  cleaner_delay: 30s\n")
	require.NoError(t, os.Rename(tmp, file))

	select {
	case ev := <-ch:
		assert.Equal(t, "file.cleaner_delay", ev.Key)
		assert.Equal(t, "30s", ev.Value)
		assert.Equal(t, "60s", ev.OldValue)
		assert.Equal(t, "file", ev.Source)
	case <-time.After(5 * time.Second):
		t.Fatal("未收到配置变更事件")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond, "ctx 取消后通道应关闭")
}
