package filelock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/locks"
	"github.com/ceyewan/locks/xerrors"
)

func TestCleaner_Sweep(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f := newFactory(t, dir)

	// 三个锁文件：一个持有中，两个已释放
	held := f.NewLock("held")
	require.NoError(t, held.Acquire(ctx))
	defer held.Release(ctx)

	for _, r := range []string{"stale-a", "stale-b"} {
		l := f.NewLock(r)
		require.NoError(t, l.Acquire(ctx))
		require.NoError(t, l.Release(ctx))
	}
	// 非锁文件不应被触碰
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(other, []byte("keep"), 0o644))

	removed, err := f.Cleaner().Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.FileExists(t, f.File("held"), "持有中的锁文件应保留")
	assert.NoFileExists(t, f.File("stale-a"))
	assert.NoFileExists(t, f.File("stale-b"))
	assert.FileExists(t, other)

	// 清理后仍然互斥
	again := f.NewLock("held", locks.WithBlock(false))
	assert.ErrorIs(t, again.Acquire(ctx), locks.ErrResourceIsLocked)
}

func TestCleaner_SweepMissingDir(t *testing.T) {
	dir := t.TempDir()
	f := newFactory(t, dir)
	require.NoError(t, os.RemoveAll(dir))

	_, err := f.Cleaner().Sweep(context.Background())
	assert.Error(t, err)
}

func TestCleaner_Background(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, err := New(&Config{Path: dir, CleanerDelay: time.Second})
	require.NoError(t, err)

	l := f.NewLock("stale")
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Release(ctx))

	c := f.Cleaner()
	require.NoError(t, c.Start())
	assert.ErrorIs(t, c.Start(), ErrCleanerRunning)

	// Start 会立即清理一次
	assert.NoFileExists(t, f.File("stale"))

	l = f.NewLock("stale-later")
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Release(ctx))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(f.File("stale-later"))
		return os.IsNotExist(err)
	}, 5*time.Second, 50*time.Millisecond, "后台清理应删除新产生的锁文件")

	select {
	case <-c.Stop().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Stop 应在清理结束后返回")
	}
	<-c.Stop().Done()
}

func TestCleaner_SetDelay(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, err := New(&Config{Path: dir, CleanerDelay: time.Hour})
	require.NoError(t, err)
	c := f.Cleaner()

	assert.ErrorIs(t, c.SetDelay(0), xerrors.ErrInvalidInput)
	assert.Equal(t, time.Hour, c.Delay())

	require.NoError(t, c.Start())
	defer func() { <-c.Stop().Done() }()

	l := f.NewLock("stale-after-start")
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Release(ctx))

	// 按一小时的间隔不会再清理，缩短间隔后应很快删除
	require.NoError(t, c.SetDelay(time.Second))
	assert.Equal(t, time.Second, c.Delay())
	assert.Eventually(t, func() bool {
		_, err := os.Stat(f.File("stale-after-start"))
		return os.IsNotExist(err)
	}, 5*time.Second, 50*time.Millisecond)
}
