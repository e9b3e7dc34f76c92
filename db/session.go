package db

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Session 锁驱动需要的最小数据库能力。
//
// 锁只借用 Session，不负责打开、提交或关闭底层连接。会话级锁要求
// 获取与释放落在同一条物理连接上，因此应传入 *sql.Conn、*sql.Tx、
// 事务中的 *gorm.DB 或 *pgx.Conn，而不是连接池。
type Session interface {
	// Scan 执行返回单行单列的查询，把结果写入 dest
	Scan(ctx context.Context, dest any, query string, args ...any) error

	// Exec 执行语句，忽略结果
	Exec(ctx context.Context, query string, args ...any) error

	// Bind 返回第 n 个（从 1 开始）参数的占位符
	Bind(n int) string
}

// BindStyle 占位符风格
type BindStyle int

const (
	// Dollar PostgreSQL 风格 $1, $2
	Dollar BindStyle = iota
	// Question 问号风格，GORM 会按方言改写
	Question
	// AtP SQL Server 风格 @p1, @p2
	AtP
)

// Bind 第 n 个参数的占位符
func (s BindStyle) Bind(n int) string {
	switch s {
	case Dollar:
		return "$" + strconv.Itoa(n)
	case AtP:
		return "@p" + strconv.Itoa(n)
	default:
		return "?"
	}
}

// ============================================================================
// database/sql
// ============================================================================

// SQLQuerier *sql.DB、*sql.Conn、*sql.Tx 的公共方法
type SQLQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type sqlSession struct {
	q     SQLQuerier
	style BindStyle
}

// NewSQL 用 database/sql 连接创建 Session
//
//	conn, _ := sqlDB.Conn(ctx)
//	sess := db.NewSQL(conn, db.Dollar)
func NewSQL(q SQLQuerier, style BindStyle) Session {
	return &sqlSession{q: q, style: style}
}

func (s *sqlSession) Scan(ctx context.Context, dest any, query string, args ...any) error {
	return s.q.QueryRowContext(ctx, query, args...).Scan(dest)
}

func (s *sqlSession) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.q.ExecContext(ctx, query, args...)
	return err
}

func (s *sqlSession) Bind(n int) string { return s.style.Bind(n) }

// ============================================================================
// GORM
// ============================================================================

type gormSession struct {
	tx *gorm.DB
}

// NewGorm 用 *gorm.DB 创建 Session，占位符统一使用 "?"
//
//	database.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
//	    lock := factory.NewLock(db.NewGorm(tx), "orders")
//	    ...
//	})
func NewGorm(tx *gorm.DB) Session {
	return &gormSession{tx: tx}
}

func (s *gormSession) Scan(ctx context.Context, dest any, query string, args ...any) error {
	return s.tx.WithContext(ctx).Raw(query, args...).Scan(dest).Error
}

func (s *gormSession) Exec(ctx context.Context, query string, args ...any) error {
	return s.tx.WithContext(ctx).Exec(query, args...).Error
}

func (s *gormSession) Bind(int) string { return "?" }

// ============================================================================
// pgx
// ============================================================================

// PgxQuerier *pgx.Conn、pgx.Tx、*pgxpool.Conn 的公共方法
type PgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type pgxSession struct {
	q PgxQuerier
}

// NewPgx 用 pgx 原生连接创建 Session
func NewPgx(q PgxQuerier) Session {
	return &pgxSession{q: q}
}

func (s *pgxSession) Scan(ctx context.Context, dest any, query string, args ...any) error {
	return s.q.QueryRow(ctx, query, args...).Scan(dest)
}

func (s *pgxSession) Exec(ctx context.Context, query string, args ...any) error {
	_, err := s.q.Exec(ctx, query, args...)
	return err
}

func (s *pgxSession) Bind(n int) string { return Dollar.Bind(n) }
