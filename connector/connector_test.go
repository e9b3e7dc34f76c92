package connector

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/locks/clog"
)

func TestPostgreSQLConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *PostgreSQLConfig
		wantErr     bool
		errContains string
	}{
		{name: "nil config", cfg: nil, wantErr: true, errContains: "nil"},
		{name: "valid config with defaults", cfg: &PostgreSQLConfig{Host: "localhost", Username: "postgres", Database: "app"}},
		{name: "dsn skips field checks", cfg: &PostgreSQLConfig{DSN: "postgres://u:p@localhost/app"}},
		{name: "empty host", cfg: &PostgreSQLConfig{Username: "postgres", Database: "app"}, wantErr: true, errContains: "主机地址不能为空"},
		{name: "empty username", cfg: &PostgreSQLConfig{Host: "localhost", Database: "app"}, wantErr: true, errContains: "用户名不能为空"},
		{name: "empty database", cfg: &PostgreSQLConfig{Host: "localhost", Username: "postgres"}, wantErr: true, errContains: "数据库名不能为空"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrConfig)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "default", tt.cfg.Name)
			assert.Equal(t, 5432, tt.cfg.Port)
			assert.Equal(t, 100, tt.cfg.MaxOpenConns)
			assert.Equal(t, time.Hour, tt.cfg.ConnMaxLifetime)
		})
	}
}

func TestPostgreSQLConfig_DSN(t *testing.T) {
	cfg := &PostgreSQLConfig{Host: "db", Username: "u", Password: "p", Database: "app"}
	require.NoError(t, cfg.validate())
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=app sslmode=disable TimeZone=UTC", cfg.dsn())

	cfg.DSN = "postgres://x"
	assert.Equal(t, "postgres://x", cfg.dsn())
}

func TestSQLServerConfig(t *testing.T) {
	cfg := &SQLServerConfig{Host: "mssql", Username: "sa", Password: "p@ss:word", Database: "app"}
	require.NoError(t, cfg.validate())
	assert.Equal(t, 1433, cfg.Port)

	u, err := url.Parse(cfg.dsn())
	require.NoError(t, err)
	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "mssql:1433", u.Host)
	assert.Equal(t, "sa", u.User.Username())
	pass, _ := u.User.Password()
	assert.Equal(t, "p@ss:word", pass, "密码中的特殊字符应被转义")
	assert.Equal(t, "app", u.Query().Get("database"))

	err = (&SQLServerConfig{Username: "sa", Database: "app"}).validate()
	assert.ErrorIs(t, err, ErrConfig)
}

func TestConnector_Lifecycle(t *testing.T) {
	// 端口 1 上没有服务，Connect 必然失败
	conn, err := NewPostgreSQL(&PostgreSQLConfig{
		Name:     "unreachable",
		Host:     "127.0.0.1",
		Port:     1,
		Username: "postgres",
		Database: "app",
	}, WithLogger(clog.Discard()))
	require.NoError(t, err)

	assert.Equal(t, "unreachable", conn.Name())
	assert.Nil(t, conn.GetClient())
	assert.False(t, conn.IsHealthy())
	assert.ErrorIs(t, conn.HealthCheck(context.Background()), ErrClientNil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorIs(t, conn.Connect(ctx), ErrConnection)
	assert.Nil(t, conn.GetClient())

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close(), "Close 应幂等")
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := NewPostgreSQL(&PostgreSQLConfig{})
	assert.ErrorIs(t, err, ErrConfig)

	_, err = NewSQLServer(nil)
	assert.ErrorIs(t, err, ErrConfig)
}
