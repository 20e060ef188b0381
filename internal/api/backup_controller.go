package api

import (
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/mautops/maintcontrol/internal/service"
)

// BackupController 备份控制器
type BackupController struct {
	backupService *service.BackupService
}

// NewBackupController 创建备份控制器
func NewBackupController(backupService *service.BackupService) *BackupController {
	return &BackupController{
		backupService: backupService,
	}
}

// CreateBackup 创建备份
// @Summary      创建数据备份
// @Description  将当前全部数据导出为压缩快照
// @Tags         系统管理
// @Produce      json
// @Success      201  {object}  Response{data=service.BackupInfo}
// @Failure      500  {object}  ErrorResponse
// @Router       /backups [post]
func (c *BackupController) CreateBackup(ctx *gin.Context) {
	backupPath, err := c.backupService.CreateBackup(ctx.Request.Context())
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	backups, err := c.backupService.ListBackups(ctx.Request.Context())
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	// 找到刚创建的备份
	filename := filepath.Base(backupPath)
	for i := range backups {
		if backups[i].Filename == filename {
			Created(ctx, &backups[i])
			return
		}
	}
	Created(ctx, &service.BackupInfo{Filename: filename, Path: backupPath})
}

// ListBackups 列出所有备份
// @Summary      列出所有备份
// @Description  最新的备份在前
// @Tags         系统管理
// @Produce      json
// @Success      200  {object}  Response{data=[]service.BackupInfo}
// @Failure      500  {object}  ErrorResponse
// @Router       /backups [get]
func (c *BackupController) ListBackups(ctx *gin.Context) {
	backups, err := c.backupService.ListBackups(ctx.Request.Context())
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, backups)
}

// RestoreBackup 恢复备份
// @Summary      恢复数据备份
// @Description  用备份快照替换当前全部数据
// @Tags         系统管理
// @Produce      json
// @Param        filename path string true "备份文件名"
// @Success      200  {object}  Response{data=service.ImportResult}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /backups/{filename}/restore [post]
func (c *BackupController) RestoreBackup(ctx *gin.Context) {
	result, err := c.backupService.RestoreBackup(ctx.Request.Context(), ctx.Param("filename"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, result)
}

// DeleteBackup 删除备份
// @Summary      删除备份
// @Tags         系统管理
// @Produce      json
// @Param        filename path string true "备份文件名"
// @Success      200  {object}  Response
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /backups/{filename} [delete]
func (c *BackupController) DeleteBackup(ctx *gin.Context) {
	if err := c.backupService.DeleteBackup(ctx.Request.Context(), ctx.Param("filename")); err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Success(ctx, nil)
}
