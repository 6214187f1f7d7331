package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"
	"github.com/rs/zerolog"

	"ai-portfolio-go/internal/config"
	"ai-portfolio-go/internal/constants"
	"ai-portfolio-go/internal/logger"
)

// InputArchive 生成输入的归档存储
type InputArchive interface {
	// ArchiveInput 保存一次生成的原始输入，返回对象键
	ArchiveInput(ctx context.Context, filename string, data []byte, contentType string) (string, error)
	// GetInput 读取归档内容
	GetInput(ctx context.Context, objectKey string) ([]byte, error)
}

var _ InputArchive = (*MinIO)(nil)

// MinIO 基于 MinIO 的输入归档
type MinIO struct {
	client *minio.Client
	cfg    *config.MinIOConfig
	bucket string
	logger zerolog.Logger
}

// NewMinIO 创建 MinIO 客户端并确保归档桶存在
func NewMinIO(cfg *config.MinIOConfig) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	l := logger.Component("minio")
	if !cfg.EnableTestLogging {
		l = l.Level(zerolog.InfoLevel)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	bucket := cfg.InputsBucket
	if bucket == "" {
		bucket = constants.InputArchiveBucket
	}

	m := &MinIO{client: client, cfg: cfg, bucket: bucket, logger: l}

	ctx := context.Background()
	if err := m.ensureBucketExists(ctx, bucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保归档存储桶 %s 存在失败: %w", bucket, err)
	}
	if cfg.InputsExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, bucket, "expire-inputs", cfg.InputsExpireDays); err != nil {
			m.logger.Warn().Err(err).Str("bucket", bucket).Msg("设置生命周期规则失败")
		}
	}

	m.logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", bucket).Msg("MinIO客户端初始化成功")
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context, bucketName, location string) error {
	exists, err := m.client.BucketExists(ctx, bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if exists {
		m.logger.Debug().Str("bucket", bucketName).Msg("存储桶已存在")
		return nil
	}
	if err := m.client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
	}
	m.logger.Info().Str("bucket", bucketName).Msg("存储桶创建成功")
	return nil
}

func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	cfg := lifecycle.NewConfiguration()
	cfg.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}
	return m.client.SetBucketLifecycle(ctx, bucketName, cfg)
}

// ArchiveInput 以 inputs/{uuid}{ext} 为键上传
func (m *MinIO) ArchiveInput(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	objectKey, err := InputObjectKey(filename)
	if err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = contentTypeForExt(path.Ext(objectKey))
	}

	info, err := m.client.PutObject(ctx, m.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-filename": filename},
	})
	if err != nil {
		return "", fmt.Errorf("上传对象 %s/%s 失败: %w", m.bucket, objectKey, err)
	}
	m.logger.Debug().Str("object", objectKey).Int64("size", info.Size).Str("etag", info.ETag).Msg("生成输入已归档")
	return objectKey, nil
}

// GetInput 下载归档对象
func (m *MinIO) GetInput(ctx context.Context, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s 失败: %w", objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s 失败: %w", objectKey, err)
	}
	return data, nil
}

// InputObjectKey 生成归档对象键，扩展名取自原文件名，缺省为 .txt
func InputObjectKey(filename string) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("生成对象ID失败: %w", err)
	}
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".txt"
	}
	return constants.InputArchivePrefix + id.String() + ext, nil
}

func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// InMemoryInputArchive 进程内实现，未配置 MinIO 时使用
type InMemoryInputArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewInMemoryInputArchive 创建进程内归档
func NewInMemoryInputArchive() *InMemoryInputArchive {
	return &InMemoryInputArchive{objects: make(map[string][]byte)}
}

// ArchiveInput 保存一份数据副本
func (a *InMemoryInputArchive) ArchiveInput(_ context.Context, filename string, data []byte, _ string) (string, error) {
	key, err := InputObjectKey(filename)
	if err != nil {
		return "", err
	}
	a.mu.Lock()
	a.objects[key] = append([]byte(nil), data...)
	a.mu.Unlock()
	return key, nil
}

// GetInput 读取归档
func (a *InMemoryInputArchive) GetInput(_ context.Context, objectKey string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.objects[objectKey]
	if !ok {
		return nil, fmt.Errorf("对象 %s 不存在", objectKey)
	}
	return append([]byte(nil), data...), nil
}

// Len 归档对象数量
func (a *InMemoryInputArchive) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.objects)
}

var _ InputArchive = (*InMemoryInputArchive)(nil)
