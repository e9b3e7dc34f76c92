package filelock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"github.com/ceyewan/locks/clog"
	"github.com/ceyewan/locks/xerrors"
)

// ErrCleanerRunning 后台清理已启动
var ErrCleanerRunning = xerrors.New("filelock: cleaner already running")

// Cleaner 删除目录中无人持有的锁文件。
//
// 对每个锁文件尝试非阻塞排他锁，拿到即说明无人持有，随后删除。
// 拿不到锁、文件已被他人删除等竞争情况一律忽略。
type Cleaner struct {
	dir    string
	ext    string
	delay  time.Duration
	logger clog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

func newCleaner(dir, ext string, delay time.Duration, logger clog.Logger) *Cleaner {
	return &Cleaner{
		dir:    dir,
		ext:    ext,
		delay:  delay,
		logger: logger.WithNamespace("cleaner"),
	}
}

// Sweep 执行一次清理，返回删除的文件数。只有读取目录失败时返回错误。
func (c *Cleaner) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, xerrors.Wrapf(err, "filelock: read %s", c.dir)
	}

	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), c.ext) {
			continue
		}
		if c.remove(filepath.Join(c.dir, e.Name())) {
			removed++
		}
	}
	if removed > 0 {
		c.logger.DebugContext(ctx, "stale lock files removed", clog.Int("count", removed))
	}
	return removed, nil
}

func (c *Cleaner) remove(file string) bool {
	fl := flock.New(file)
	ok, err := fl.TryLock()
	if err != nil || !ok {
		return false
	}
	defer fl.Unlock()

	if err := os.Remove(file); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("remove lock file failed", clog.String("file", file), clog.Error(err))
		}
		return false
	}
	return true
}

// Start 立即清理一次，之后每隔 CleanerDelay 在后台清理。
// 前一次清理未结束时跳过本次。
func (c *Cleaner) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return ErrCleanerRunning
	}

	cr, err := c.newCron()
	if err != nil {
		return err
	}

	c.sweepInBackground()
	cr.Start()
	c.cron = cr
	c.logger.Info("cleaner started", clog.String("dir", c.dir), clog.Duration("delay", c.delay))
	return nil
}

// Delay 当前清理间隔
func (c *Cleaner) Delay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delay
}

// SetDelay 修改清理间隔。后台清理运行中时按新间隔重新调度，不会立即清理。
func (c *Cleaner) SetDelay(d time.Duration) error {
	if d <= 0 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "filelock: cleaner delay %s", d)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if d == c.delay {
		return nil
	}
	c.delay = d
	if c.cron == nil {
		return nil
	}

	cr, err := c.newCron()
	if err != nil {
		return err
	}
	c.cron.Stop()
	cr.Start()
	c.cron = cr
	c.logger.Info("cleaner rescheduled", clog.Duration("delay", d))
	return nil
}

// newCron 按 c.delay 创建调度器，调用方持有 c.mu
func (c *Cleaner) newCron() (*cron.Cron, error) {
	logger := cronLogger{c.logger}
	cr := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := cr.AddFunc("@every "+c.delay.String(), c.sweepInBackground); err != nil {
		return nil, xerrors.Wrap(err, "filelock: schedule cleaner")
	}
	return cr, nil
}

// Stop 停止后台清理，返回的 ctx 在正在执行的清理结束后 Done
func (c *Cleaner) Stop() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	ctx := c.cron.Stop()
	c.cron = nil
	return ctx
}

func (c *Cleaner) sweepInBackground() {
	if _, err := c.Sweep(context.Background()); err != nil {
		c.logger.Warn("sweep lock files failed", clog.Error(err))
	}
}

// cronLogger 把 cron 的内部日志转到 clog
type cronLogger struct {
	l clog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.l.Debug(msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.l.Error(msg, append(kvFields(keysAndValues), clog.Error(err))...)
}

func kvFields(kv []any) []clog.Field {
	fields := make([]clog.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, clog.Any(key, kv[i+1]))
	}
	return fields
}
