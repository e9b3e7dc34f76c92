// Package connector 管理锁驱动所借用的数据库连接。
//
// 连接器负责连接的完整生命周期：创建、连接、健康检查、关闭。
// 锁和 db 组件只借用连接器返回的客户端，从不关闭它。
//
// 基本使用：
//
//	conn, err := connector.NewPostgreSQL(&connector.PostgreSQLConfig{
//		Host:     "127.0.0.1",
//		Username: "postgres",
//		Password: "postgres",
//		Database: "app",
//	}, connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	gormDB := conn.GetClient()
//
// 资源所有权：
//
//	Connector 拥有底层连接池，应通过 defer 确保 Close() 被调用。
//	应用层按 LIFO 顺序释放：先释放锁，再关闭 db 组件，最后关闭 Connector。
package connector

import (
	"context"

	"gorm.io/gorm"
)

// Connector 所有连接器的通用行为，方法均并发安全
type Connector interface {
	// Connect 建立连接。幂等，首次调用建立连接，后续调用直接返回 nil。
	//
	// 返回错误：
	//   - ErrConnection: 连接建立失败
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源。幂等。
	// 关闭后 GetClient() 返回 nil，HealthCheck() 返回 ErrClientNil。
	Close() error

	// HealthCheck 通过 Ping 验证连接可用，并更新 IsHealthy 的缓存状态。
	//
	// 返回错误：
	//   - ErrClientNil: 未连接或已关闭
	//   - ErrHealthCheck: Ping 失败
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最后一次健康检查的结果，不阻塞
	IsHealthy() bool

	// Name 连接器实例名称，用于日志
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
type TypedConnector[T any] interface {
	Connector

	// GetClient 返回底层客户端。Connect() 之前或 Close() 之后返回 nil。
	GetClient() T
}

// PostgreSQLConnector PostgreSQL 连接器，基于 GORM（pgx 驱动）
type PostgreSQLConnector interface {
	TypedConnector[*gorm.DB]
}

// SQLServerConnector SQL Server 连接器，基于 GORM（go-mssqldb 驱动）
type SQLServerConnector interface {
	TypedConnector[*gorm.DB]
}
