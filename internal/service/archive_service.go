package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/grading"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 定义通用存储接口
type StorageProvider interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
	GetURL(filename string) string
}

// LocalStorageProvider 本地存储实现
type LocalStorageProvider struct {
	Config *config.StorageConfig
}

func (p *LocalStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Config.LocalPath, filename)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *LocalStorageProvider) GetURL(filename string) string {
	return "/archives/" + filename
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, filename, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *MinioStorageProvider) GetURL(filename string) string {
	return "/" + p.Config.MinioBucket + "/" + filename
}

// ArchiveService 把已结束的尝试（答案 + 评分）写成 JSON 归档
type ArchiveService struct {
	Provider StorageProvider
}

func NewArchiveService(cfg *config.Config) *ArchiveService {
	var provider StorageProvider
	if cfg.Storage.Type == util.StorageMinio {
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.L().Error("MinIO unavailable, archiving to local disk", zap.Error(err))
		} else {
			provider = p
		}
	}
	if provider == nil {
		provider = &LocalStorageProvider{Config: &cfg.Storage}
	}
	return &ArchiveService{Provider: provider}
}

type attemptArchive struct {
	AssignmentID uint               `json:"assignmentId"`
	TestID       uint               `json:"testId"`
	Attempt      *model.TestAttempt `json:"attempt"`
	Result       grading.Result     `json:"result"`
	ArchivedAt   time.Time          `json:"archivedAt"`
}

// ArchiveAttempt 返回归档文件的 URL
func (s *ArchiveService) ArchiveAttempt(ctx context.Context, a *model.Assignment, attempt *model.TestAttempt, result grading.Result) (string, error) {
	buf, err := json.Marshal(attemptArchive{
		AssignmentID: a.ID,
		TestID:       a.TestID,
		Attempt:      attempt,
		Result:       result,
		ArchivedAt:   time.Now(),
	})
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s/%d/%d-%d.json", util.ArchivePrefix, a.ID, attempt.UserID, attempt.AttemptNumber)
	return s.Provider.Upload(ctx, name, bytes.NewReader(buf), int64(len(buf)), util.ArchiveContentType)
}
