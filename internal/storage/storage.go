package storage

import (
	"context"
	"fmt"
	"strings"

	"ai-portfolio-go/internal/config"
	"ai-portfolio-go/internal/logger"
)

// Storage 存储管理器，聚合所有外部存储依赖。
// 每个组件都是可选的，未配置时由进程内实现代替
type Storage struct {
	// 对象存储
	MinIO *MinIO

	// 消息队列
	RabbitMQ *RabbitMQ

	// 关系型数据库
	MySQL *MySQL

	// 键值存储
	Redis *Redis
}

// NewStorage 按配置初始化存储组件。配置了但连接失败的组件会导致返回错误
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}

	s := &Storage{}
	var err error
	var initErrors []string

	if cfg.MinIO.Endpoint != "" {
		s.MinIO, err = NewMinIO(&cfg.MinIO)
		if err != nil {
			initErrors = append(initErrors, fmt.Sprintf("MinIO: %v", err))
		}
	}

	if cfg.RabbitMQ.URL != "" {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			initErrors = append(initErrors, fmt.Sprintf("RabbitMQ: %v", err))
		}
	}

	if cfg.MySQL.Host != "" {
		s.MySQL, err = NewMySQL(&cfg.MySQL)
		if err != nil {
			initErrors = append(initErrors, fmt.Sprintf("MySQL: %v", err))
		}
	}

	if cfg.Redis.Address != "" {
		s.Redis, err = NewRedis(&cfg.Redis)
		if err != nil {
			initErrors = append(initErrors, fmt.Sprintf("Redis: %v", err))
		}
	} else {
		logger.Ctx(ctx).Info().Msg("Redis未配置，留言和会话使用进程内存储")
	}

	if len(initErrors) > 0 {
		s.Close()
		return nil, fmt.Errorf("存储组件初始化失败: %s", strings.Join(initErrors, "; "))
	}
	return s, nil
}

// MessageLog 返回留言日志，未配置 Redis 时使用进程内实现
func (s *Storage) MessageLog(opts ...MessageLogOption) MessageLog {
	if s.Redis != nil {
		return NewRedisMessageLog(s.Redis, opts...)
	}
	return NewInMemoryMessageLog(opts...)
}

// InputArchive 返回输入归档，未配置 MinIO 时使用进程内实现
func (s *Storage) InputArchive() InputArchive {
	if s.MinIO != nil {
		return s.MinIO
	}
	return NewInMemoryInputArchive()
}

// SnapshotStore 返回快照存储，未配置 MySQL 时返回 nil
func (s *Storage) SnapshotStore() SnapshotStore {
	if s.MySQL != nil {
		return s.MySQL
	}
	return nil
}

// EventPublisher 返回事件发布器。MySQL 与 RabbitMQ 同时可用时经由发件箱投递，
// 仅有 RabbitMQ 时直接发布，未配置 RabbitMQ 时返回 nil
func (s *Storage) EventPublisher() EventPublisher {
	switch {
	case s.RabbitMQ != nil && s.MySQL != nil:
		return NewOutboxPublisher(s.MySQL, s.RabbitMQ.Exchange(), s.RabbitMQ.RoutingKey())
	case s.RabbitMQ != nil:
		return s.RabbitMQ
	}
	return nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
