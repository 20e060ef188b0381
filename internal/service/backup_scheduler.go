package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// BackupScheduler 备份调度器
type BackupScheduler struct {
	backupService *BackupService
	config        *BackupScheduleConfig
	logger        logrus.FieldLogger
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// BackupScheduleConfig 备份计划配置
type BackupScheduleConfig struct {
	Interval      time.Duration // 备份间隔
	RetentionDays int           // 备份保留天数,0 表示不清理
	RunOnStart    bool          // 启动时立即备份一次
}

// NewBackupScheduler 创建备份调度器
func NewBackupScheduler(backupService *BackupService, config *BackupScheduleConfig, logger logrus.FieldLogger) *BackupScheduler {
	if config == nil {
		config = &BackupScheduleConfig{
			Interval:      24 * time.Hour,
			RetentionDays: 30,
			RunOnStart:    true,
		}
	}
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &BackupScheduler{
		backupService: backupService,
		config:        config,
		logger:        logger.WithField("component", "backup_scheduler"),
		stopChan:      make(chan struct{}),
	}
}

// Start 启动备份调度器
func (s *BackupScheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop 停止备份调度器
func (s *BackupScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.wg.Wait()
}

// Config 获取备份配置
func (s *BackupScheduler) Config() *BackupScheduleConfig {
	return s.config
}

// run 按间隔执行备份和清理
func (s *BackupScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.tick(ctx)
	}

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *BackupScheduler) tick(ctx context.Context) {
	if _, err := s.backupService.CreateBackup(ctx); err != nil {
		s.logger.WithError(err).Error("failed to create scheduled backup")
	}
	s.CleanupOldBackups(ctx)
}

// CleanupOldBackups 清理超过保留期的备份,返回删除数量
func (s *BackupScheduler) CleanupOldBackups(ctx context.Context) int {
	if s.config.RetentionDays <= 0 {
		return 0
	}

	backups, err := s.backupService.ListBackups(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to list backups")
		return 0
	}

	retention := time.Duration(s.config.RetentionDays) * 24 * time.Hour
	now := s.backupService.now()
	deleted := 0
	for _, backup := range backups {
		if now.Sub(backup.CreatedAt) <= retention {
			continue
		}
		if err := s.backupService.DeleteBackup(ctx, backup.Filename); err != nil {
			s.logger.WithError(err).WithField("file", backup.Filename).Warn("failed to delete old backup")
			continue
		}
		deleted++
	}
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("old backups removed")
	}
	return deleted
}
