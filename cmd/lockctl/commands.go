package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"gorm.io/gorm"

	"github.com/ceyewan/locks"
	"github.com/ceyewan/locks/clog"
	"github.com/ceyewan/locks/config"
	"github.com/ceyewan/locks/connector"
	"github.com/ceyewan/locks/db"
	"github.com/ceyewan/locks/filelock"
	"github.com/ceyewan/locks/metrics"
	"github.com/ceyewan/locks/mslock"
	"github.com/ceyewan/locks/pglock"
	"github.com/ceyewan/locks/trace"
	"github.com/ceyewan/locks/xerrors"
)

// env 一次命令执行共享的依赖
type env struct {
	cfg    *AppConfig
	loader config.Loader
	logger clog.Logger
	meter  metrics.Meter

	shutdownTracer func(context.Context) error
}

func (e *env) lockOptions() []locks.Option {
	return []locks.Option{locks.WithLogger(e.logger), locks.WithMeter(e.meter)}
}

func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = e.meter.Shutdown(ctx)
	if e.shutdownTracer != nil {
		_ = e.shutdownTracer(ctx)
	}
}

func setup(ctx context.Context, cmd *cli.Command) (*env, error) {
	cfg, loader, err := loadConfig(ctx, cmd.String("config-name"), cmd.StringSlice("config-dir"))
	if err != nil {
		return nil, err
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}

	logger, err := clog.New(&cfg.Log, clog.WithTraceContext())
	if err != nil {
		return nil, usageErrorf("log config: %v", err)
	}
	if cfg.Metrics.ServiceName == "" {
		cfg.Metrics.ServiceName = "lockctl"
	}
	meter, err := metrics.New(&cfg.Metrics, metrics.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if cfg.Trace.ServiceName == "" {
		cfg.Trace.ServiceName = "lockctl"
	}
	shutdownTracer, err := trace.Init(&cfg.Trace)
	if err != nil {
		_ = meter.Shutdown(ctx)
		return nil, err
	}
	return &env{cfg: cfg, loader: loader, logger: logger.WithNamespace("lockctl"), meter: meter, shutdownTracer: shutdownTracer}, nil
}

// ============================================================================
// run
// ============================================================================

func createRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "获取锁后执行命令，命令结束后释放",
		ArgsUsage: "-- <command> [args...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Usage: "file|postgres|sqlserver", Value: filelock.BackendName},
			&cli.StringFlag{Name: "resource", Aliases: []string{"r"}, Usage: "资源名", Required: true},
			&cli.BoolFlag{Name: "shared", Usage: "获取共享锁"},
			&cli.BoolFlag{Name: "no-block", Usage: "资源被锁时立即失败"},
			&cli.DurationFlag{Name: "timeout", Aliases: []string{"t"}, Usage: "最长等待时间，0 表示不限"},
			&cli.StringFlag{Name: "scope", Usage: "TRANSACTION|SESSION，仅数据库后端"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			argv := cmd.Args().Slice()
			if len(argv) == 0 {
				return usageErrorf("run: missing command")
			}
			opts, err := runLockOptions(cmd)
			if err != nil {
				return err
			}

			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.close()

			child := func(ctx context.Context) error { return runChild(ctx, argv) }
			resource := cmd.String("resource")

			backend := cmd.String("backend")
			switch backend {
			case filelock.BackendName:
				err = runWithFileLock(ctx, e, resource, opts, child)
			case pglock.BackendName:
				err = runWithPostgresLock(ctx, e, resource, cmd.String("scope"), opts, child)
			case mslock.BackendName:
				err = runWithSQLServerLock(ctx, e, resource, cmd.String("scope"), opts, child)
			default:
				return usageErrorf("run: unknown backend %q", backend)
			}

			var childErr *childExitError
			if err != nil && !errors.As(err, &childErr) {
				e.logger.DebugContext(ctx, "run failed",
					clog.String("backend", backend), clog.Resource(resource), clog.ErrorWithCode(err))
			}
			return err
		},
	}
}

func runLockOptions(cmd *cli.Command) ([]locks.LockOption, error) {
	var opts []locks.LockOption
	if cmd.IsSet("no-block") {
		opts = append(opts, locks.WithBlock(!cmd.Bool("no-block")))
	}
	if cmd.IsSet("timeout") {
		opts = append(opts, locks.WithTimeout(cmd.Duration("timeout")))
	}
	if cmd.Bool("shared") {
		opts = append(opts, locks.WithLockType(locks.Shared))
	}
	if s := cmd.String("scope"); s != "" {
		scope, err := locks.ParseScope(s)
		if err != nil {
			return nil, usageErrorf("run: %v", err)
		}
		opts = append(opts, locks.WithScope(scope))
	}
	return opts, nil
}

func runChild(ctx context.Context, argv []string) error {
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			return &childExitError{code: exitErr.ExitCode()}
		}
		return xerrors.Wrapf(err, "run %s", argv[0])
	}
	return nil
}

func runWithFileLock(ctx context.Context, e *env, resource string, opts []locks.LockOption, fn func(context.Context) error) error {
	f, err := filelock.New(&e.cfg.File, e.lockOptions()...)
	if err != nil {
		return err
	}
	return locks.WithLock(ctx, f.NewLock(resource, opts...), fn)
}

func runWithPostgresLock(ctx context.Context, e *env, resource, scope string, opts []locks.LockOption, fn func(context.Context) error) error {
	factory, err := pglock.New(&e.cfg.PGLock, e.lockOptions()...)
	if err != nil {
		return err
	}
	conn, err := connector.NewPostgreSQL(&e.cfg.Postgres, connector.WithLogger(e.logger))
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	database, err := db.New(&db.Config{Driver: db.DriverPostgres}, db.WithPostgreSQLConnector(conn), db.WithLogger(e.logger))
	if err != nil {
		return err
	}
	defer database.Close()

	return withDBLock(ctx, database, factory, effectiveScope(scope, e.cfg.PGLock.Scope), resource, opts, fn)
}

func runWithSQLServerLock(ctx context.Context, e *env, resource, scope string, opts []locks.LockOption, fn func(context.Context) error) error {
	factory, err := mslock.New(&e.cfg.MSLock, e.lockOptions()...)
	if err != nil {
		return err
	}
	conn, err := connector.NewSQLServer(&e.cfg.SQLServer, connector.WithLogger(e.logger))
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.Connect(ctx); err != nil {
		return err
	}
	database, err := db.New(&db.Config{Driver: db.DriverSQLServer}, db.WithSQLServerConnector(conn), db.WithLogger(e.logger))
	if err != nil {
		return err
	}
	defer database.Close()

	return withDBLock(ctx, database, factory, effectiveScope(scope, e.cfg.MSLock.Scope), resource, opts, fn)
}

// effectiveScope 命令行优先，其次配置，最后取默认的 TRANSACTION
func effectiveScope(flag string, configured locks.ScopeType) locks.ScopeType {
	if scope, err := locks.ParseScope(flag); err == nil {
		return scope
	}
	if configured != "" {
		return configured
	}
	return locks.Transaction
}

// withDBLock 事务级锁在事务内执行 fn，会话级锁在一条专用连接上执行 fn
func withDBLock(ctx context.Context, database db.DB, factory locks.Factory[db.Session], scope locks.ScopeType,
	resource string, opts []locks.LockOption, fn func(context.Context) error) error {
	opts = append(opts, locks.WithScope(scope))

	if scope == locks.Transaction {
		return database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
			return locks.WithLock(ctx, factory.NewLock(db.NewGorm(tx), resource, opts...), fn)
		})
	}

	sess, release, err := database.Session(ctx)
	if err != nil {
		return err
	}
	defer release()
	return locks.WithLock(ctx, factory.NewLock(sess, resource, opts...), fn)
}

// ============================================================================
// sweep
// ============================================================================

func createSweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "清理无人持有的锁文件",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "background", Usage: "按 file.cleaner_delay 周期清理，直到收到退出信号"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer e.close()

			f, err := filelock.New(&e.cfg.File, e.lockOptions()...)
			if err != nil {
				return err
			}
			cleaner := f.Cleaner()

			if !cmd.Bool("background") {
				removed, err := cleaner.Sweep(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.Root().Writer, "removed %d lock files from %s\n", removed, e.cfg.File.Path)
				return nil
			}

			if err := cleaner.Start(); err != nil {
				return err
			}
			e.logger.Info("cleaner started", clog.String("path", e.cfg.File.Path))
			if err := watchCleanerDelay(ctx, e.loader, cleaner, e.logger); err != nil {
				e.logger.Warn("watch cleaner delay failed", clog.Error(err))
			}
			<-ctx.Done()
			<-cleaner.Stop().Done()
			e.logger.Info("cleaner stopped")
			return nil
		},
	}
}

// watchCleanerDelay 配置文件中的 file.cleaner_delay 变化时重新调度 cleaner，ctx 取消后退出
func watchCleanerDelay(ctx context.Context, loader config.Loader, cleaner *filelock.Cleaner, logger clog.Logger) error {
	ch, err := loader.Watch(ctx, "file.cleaner_delay")
	if err != nil {
		return err
	}
	go func() {
		for range ch {
			var fc filelock.Config
			if err := loader.UnmarshalKey("file", &fc); err != nil {
				logger.Warn("reload file config failed", clog.Error(err))
				continue
			}
			if err := cleaner.SetDelay(fc.CleanerDelay); err != nil {
				logger.Warn("reschedule cleaner failed", clog.Error(err))
				continue
			}
			logger.Info("cleaner delay reloaded", clog.Duration("delay", fc.CleanerDelay))
		}
	}()
	return nil
}

// ============================================================================
// id
// ============================================================================

func createIDCommand() *cli.Command {
	return &cli.Command{
		Name:      "id",
		Usage:     "打印资源名对应的 advisory lock 键",
		ArgsUsage: "<resource> [resource...]",
		Action: func(_ context.Context, cmd *cli.Command) error {
			resources := cmd.Args().Slice()
			if len(resources) == 0 {
				return usageErrorf("id: missing resource")
			}
			var b strings.Builder
			for _, r := range resources {
				fmt.Fprintf(&b, "%s\t%d\n", r, locks.ResourceID(r))
			}
			_, err := fmt.Fprint(cmd.Root().Writer, b.String())
			return err
		},
	}
}
