package service

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/sirupsen/logrus"
)

const (
	backupPrefix = "backup_"
	backupSuffix = ".json.gz"
)

// BackupService 备份服务,备份为 gzip 压缩的 JSON 导出快照
type BackupService struct {
	transfer  TransferService
	backupDir string
	now       func() time.Time
	logger    logrus.FieldLogger
}

// BackupInfo 备份信息
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// NewBackupService 创建备份服务
func NewBackupService(transfer TransferService, backupDir string, opts Options) *BackupService {
	opts = opts.withDefaults()
	// 确保备份目录存在
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		opts.Logger.WithError(err).WithField("dir", backupDir).Warn("failed to create backup directory, using temp dir")
		backupDir = os.TempDir()
	}

	return &BackupService{
		transfer:  transfer,
		backupDir: backupDir,
		now:       opts.Now,
		logger:    opts.Logger.WithField("component", "backup"),
	}
}

// CreateBackup 创建备份,返回备份文件路径
func (s *BackupService) CreateBackup(ctx context.Context) (string, error) {
	timestamp := s.now().Format("20060102_150405")
	backupPath, file, err := s.createFile(timestamp)
	if err != nil {
		return "", err
	}

	gzWriter := gzip.NewWriter(file)
	exportErr := s.transfer.ExportTo(ctx, gzWriter, FormatJSON)
	closeErr := gzWriter.Close()
	if err := file.Close(); closeErr == nil {
		closeErr = err
	}
	if exportErr == nil {
		exportErr = closeErr
	}
	if exportErr != nil {
		_ = os.Remove(backupPath)
		return "", fmt.Errorf("failed to write backup: %w", exportErr)
	}

	s.logger.WithField("path", backupPath).Info("backup created")
	return backupPath, nil
}

// createFile 独占创建备份文件,同一秒内重复创建时追加序号
func (s *BackupService) createFile(timestamp string) (string, *os.File, error) {
	for i := 0; i < 100; i++ {
		name := backupPrefix + timestamp + backupSuffix
		if i > 0 {
			name = fmt.Sprintf("%s%s_%d%s", backupPrefix, timestamp, i, backupSuffix)
		}
		path := filepath.Join(s.backupDir, name)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to create backup file: %w", err)
		}
		return path, file, nil
	}
	return "", nil, fmt.Errorf("failed to create backup file: too many backups for %s", timestamp)
}

// RestoreBackup 从备份恢复,替换全部数据
func (s *BackupService) RestoreBackup(ctx context.Context, filename string) (*ImportResult, error) {
	backupPath, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(backupPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.NotFound("backup %q not found", filename)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, apperr.Validation("backup %q is not a gzip file", filename)
	}
	defer gzReader.Close()

	result, err := s.transfer.ImportFrom(ctx, gzReader, FormatJSON)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("path", backupPath).Info("backup restored")
	return result, nil
}

// ListBackups 列出所有备份,最新的在前
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	backups := []BackupInfo{}

	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !isBackupFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			Filename:  entry.Name(),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Filename > backups[j].Filename
	})
	return backups, nil
}

// BackupDir 获取备份目录
func (s *BackupService) BackupDir() string {
	return s.backupDir
}

// DeleteBackup 删除备份
func (s *BackupService) DeleteBackup(ctx context.Context, filename string) error {
	backupPath, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(backupPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.NotFound("backup %q not found", filename)
		}
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	s.logger.WithField("path", backupPath).Info("backup deleted")
	return nil
}

// resolve 校验文件名并返回备份目录内的路径
func (s *BackupService) resolve(filename string) (string, error) {
	if filename == "" || filepath.Base(filename) != filename || !isBackupFile(filename) {
		return "", apperr.Validation("invalid backup file name: %q", filename)
	}

	absBackupDir, err := filepath.Abs(s.backupDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute backup directory: %w", err)
	}
	absBackupPath, err := filepath.Abs(filepath.Join(s.backupDir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to get absolute backup path: %w", err)
	}
	if filepath.Dir(absBackupPath) != absBackupDir {
		return "", apperr.Validation("invalid backup path: %q", filename)
	}
	return absBackupPath, nil
}

// isBackupFile 检查是否是备份文件
func isBackupFile(filename string) bool {
	return strings.HasPrefix(filename, backupPrefix) && strings.HasSuffix(filename, backupSuffix)
}
