package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"ai-portfolio-go/internal/config"
	"ai-portfolio-go/internal/logger"
	"ai-portfolio-go/internal/storage/models"
	"ai-portfolio-go/internal/types"
)

var mysqlTracer = otel.Tracer("ai-portfolio-go/storage/mysql")

// ErrSnapshotNotFound 尚无已提交的快照
var ErrSnapshotNotFound = errors.New("no portfolio snapshot found")

type spanContextKey struct{}

// GormTracingPlugin GORM插件，为数据库操作创建追踪span
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// NewGormTracingPlugin 创建追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		op       string
		before   func(name string, fn func(*gorm.DB)) error
		after    func(name string, fn func(*gorm.DB)) error
		hookName string
	}{
		{"CREATE", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "create"},
		{"SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "query"},
		{"UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "update"},
		{"DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "delete"},
		{"RAW", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, "raw"},
	}
	for _, s := range steps {
		if err := s.before("otel:before_"+s.hookName, p.before(s.op)); err != nil {
			return err
		}
		if err := s.after("otel:after_"+s.hookName, p.after()); err != nil {
			return err
		}
	}
	return nil
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}

		newCtx, span := p.tracer.Start(ctx, operation+" "+table,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", table),
			),
		)
		db.Statement.Context = context.WithValue(newCtx, spanContextKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(spanContextKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			span.SetAttributes(attribute.String("error.type", "record_not_found"))
			span.SetStatus(codes.Ok, "record not found")
		default:
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}
	}
}

// SnapshotStore 作品集快照持久化
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, record *types.PortfolioRecord, version uint64, source string) (*models.PortfolioSnapshot, error)
	LatestSnapshot(ctx context.Context) (*types.PortfolioRecord, error)
}

var _ SnapshotStore = (*MySQL)(nil)

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 连接MySQL、注册追踪插件并迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.ConnectTimeoutSeconds)

	var logLevel gormlogger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = gormlogger.Silent
	case 2:
		logLevel = gormlogger.Error
	case 4:
		logLevel = gormlogger.Info
	default:
		logLevel = gormlogger.Warn
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormlogger.New(
			log.New(logger.Component("gorm"), "", 0),
			gormlogger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  logLevel,
				IgnoreRecordNotFoundError: true,
			},
		),
		PrepareStmt: true,
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := db.Session(&gorm.Session{Logger: db.Logger.LogMode(gormlogger.Silent)}).AutoMigrate(&models.PortfolioSnapshot{}, &models.OutboxMessage{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("成功连接到MySQL并完成表结构迁移")
	return &MySQL{db: db, cfg: cfg}, nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// NewSnapshot 构造快照行
func NewSnapshot(record *types.PortfolioRecord, version uint64, source string) (*models.PortfolioSnapshot, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("序列化作品集记录失败: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成快照ID失败: %w", err)
	}
	return &models.PortfolioSnapshot{
		SnapshotID:  id.String(),
		Version:     version,
		Source:      source,
		PayloadJSON: datatypes.JSON(payload),
		PayloadSize: len(payload),
	}, nil
}

// DecodeSnapshot 把快照内容还原为规范化的记录
func DecodeSnapshot(s *models.PortfolioSnapshot) (*types.PortfolioRecord, error) {
	var record types.PortfolioRecord
	if err := json.Unmarshal(s.PayloadJSON, &record); err != nil {
		return nil, fmt.Errorf("快照 %s 内容损坏: %w", s.SnapshotID, err)
	}
	record.Normalize()
	return &record, nil
}

// SaveSnapshot 保存一条快照
func (m *MySQL) SaveSnapshot(ctx context.Context, record *types.PortfolioRecord, version uint64, source string) (*models.PortfolioSnapshot, error) {
	snapshot, err := NewSnapshot(record, version, source)
	if err != nil {
		return nil, err
	}
	if err := m.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return nil, fmt.Errorf("保存作品集快照失败: %w", err)
	}
	return snapshot, nil
}

// LatestSnapshot 读取最新快照
func (m *MySQL) LatestSnapshot(ctx context.Context) (*types.PortfolioRecord, error) {
	var snapshot models.PortfolioSnapshot
	err := m.db.WithContext(ctx).Order("created_at DESC").Order("version DESC").First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取作品集快照失败: %w", err)
	}
	return DecodeSnapshot(&snapshot)
}
