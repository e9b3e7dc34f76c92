package testkit

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mssql"

	"github.com/ceyewan/locks/connector"
)

const mssqlPassword = "Locks@Passw0rd"

// NewSQLServerContainerConfig 启动 SQL Server 容器并返回连接配置，生命周期由 t.Cleanup 管理
func NewSQLServerContainerConfig(t *testing.T) *connector.SQLServerConfig {
	t.Helper()
	SkipIfNoDocker(t)
	ctx := context.Background()

	container, err := mssql.Run(ctx, "mcr.microsoft.com/mssql/server:2022-CU14-ubuntu-22.04",
		mssql.WithAcceptEULA(),
		mssql.WithPassword(mssqlPassword),
	)
	require.NoError(t, err, "failed to start SQL Server container")
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "1433")
	require.NoError(t, err)
	port, err := strconv.Atoi(mappedPort.Port())
	require.NoError(t, err)

	return &connector.SQLServerConfig{
		Name:         "testcontainer-sqlserver",
		Host:         host,
		Port:         port,
		Username:     "sa",
		Password:     mssqlPassword,
		Database:     "master",
		MaxIdleConns: 2,
		MaxOpenConns: 10,
	}
}

// NewSQLServerConnector 连接到 cfg 描述的实例，Close 由 t.Cleanup 负责
func NewSQLServerConnector(t *testing.T, cfg *connector.SQLServerConfig) connector.SQLServerConnector {
	t.Helper()
	conn, err := connector.NewSQLServer(cfg, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlserver connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlserver")
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
