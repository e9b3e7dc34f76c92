// lockctl 在命名锁的保护下执行命令，并提供锁文件清理与资源 ID 计算。
//
// 用法:
//
//	lockctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	--config-dir   配置文件搜索目录，可重复 (默认: . 和 /etc/lockctl)
//	--config-name  配置文件名，不含扩展名 (默认: lockctl)
//	--log-level    覆盖配置中的日志级别
//
// 命令:
//
//	run     获取锁后执行命令，命令结束后释放
//	sweep   清理无人持有的锁文件
//	id      打印资源名对应的 advisory lock 键
//
// 退出码:
//
//	0: 成功
//	1: 其他错误
//	2: 参数错误
//	3: 资源被锁（非阻塞或超时）
//	其余: run 执行的子命令的退出码
//
// 示例:
//
//	lockctl run --resource nightly-report -- ./report.sh
//	lockctl run --backend postgres --resource orders --timeout 10s -- ./migrate
//	lockctl sweep --background
//	lockctl id orders
//
// 所有配置项都可以用 LOCKCTL_<KEY> 环境变量覆盖，例如 LOCKCTL_FILE_PATH。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/ceyewan/locks"
	"github.com/ceyewan/locks/xerrors"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

// 退出码
const (
	exitOK     = 0
	exitError  = 1
	exitUsage  = 2
	exitLocked = 3
)

// 错误码，用 xerrors.WithCode 标注
const (
	codeUsage xerrors.Code = "USAGE"
)

// childExitError 子命令以非零码退出，输出已由子命令完成
type childExitError struct {
	code int
}

func (e *childExitError) Error() string { return fmt.Sprintf("command exited with code %d", e.code) }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "lockctl",
		Usage:     "在命名锁的保护下执行命令",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "config-dir",
				Usage: "配置文件搜索目录",
				Value: []string{".", "/etc/lockctl"},
			},
			&cli.StringFlag{
				Name:  "config-name",
				Usage: "配置文件名（不含扩展名）",
				Value: "lockctl",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 debug|info|warn|error",
			},
		},
		Commands: []*cli.Command{
			createRunCommand(),
			createSweepCommand(),
			createIDCommand(),
		},
		// 退出码由 run 统一决定，禁止框架直接 os.Exit
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := createApp(stdout, stderr).Run(ctx, args)
	if err == nil {
		return exitOK
	}

	var childErr *childExitError
	switch {
	case errors.As(err, &childErr):
		return childErr.code
	case locks.IsResourceLocked(err):
		fmt.Fprintf(stderr, "%v\n", err)
		return exitLocked
	case xerrors.CodeOf(err) == codeUsage:
		fmt.Fprintf(stderr, "参数错误: %v\n", err)
		return exitUsage
	default:
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return exitError
	}
}

func usageErrorf(format string, args ...any) error {
	return xerrors.WithCode(fmt.Errorf(format, args...), codeUsage)
}
