package testkit

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ceyewan/locks/connector"
)

// SkipIfNoDocker 在 -short 模式或 Docker 不可用时跳过测试
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// NewPostgreSQLContainerConfig 启动 PostgreSQL 容器并返回连接配置，生命周期由 t.Cleanup 管理
func NewPostgreSQLContainerConfig(t *testing.T) *connector.PostgreSQLConfig {
	t.Helper()
	SkipIfNoDocker(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("locks_db"),
		postgres.WithUsername("locks_user"),
		postgres.WithPassword("locks_password"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	port, err := strconv.Atoi(mappedPort.Port())
	require.NoError(t, err)

	return &connector.PostgreSQLConfig{
		Name:         "testcontainer-postgresql",
		Host:         host,
		Port:         port,
		Username:     "locks_user",
		Password:     "locks_password",
		Database:     "locks_db",
		SSLMode:      "disable",
		MaxIdleConns: 2,
		MaxOpenConns: 10,
	}
}

// PostgreSQLURL 把配置转换为 lib/pq 与 pgx 都接受的 URL
func PostgreSQLURL(cfg *connector.PostgreSQLConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database)
}

// NewPostgreSQLConnector 连接到 cfg 描述的实例，Close 由 t.Cleanup 负责
func NewPostgreSQLConnector(t *testing.T, cfg *connector.PostgreSQLConfig) connector.PostgreSQLConnector {
	t.Helper()
	conn, err := connector.NewPostgreSQL(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create postgresql connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to postgresql")
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
