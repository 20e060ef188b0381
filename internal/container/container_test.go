package container_test

import (
	"context"
	"testing"

	"github.com/mautops/maintcontrol/internal/config"
	"github.com/mautops/maintcontrol/internal/container"
	"github.com/mautops/maintcontrol/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}
	cfg.Lifecycle.Timezone = "UTC"
	cfg.Backup.Dir = t.TempDir()
	return cfg
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// TestContainer_NewContainer 测试创建依赖注入容器
func TestContainer_NewContainer(t *testing.T) {
	c, err := container.NewContainer(testConfig(t), quietLogger())
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.DB())
	assert.NotNil(t, c.Config())
	assert.NotNil(t, c.Hub())
	assert.NotNil(t, c.EventRepository())
	assert.NotNil(t, c.HistoryService())
	assert.NotNil(t, c.MachineService())
	assert.NotNil(t, c.MaintenanceService())
	assert.NotNil(t, c.QueryService())
	assert.NotNil(t, c.StatisticsService())
	assert.NotNil(t, c.TransferService())
	assert.NotNil(t, c.BackupService())
	assert.Len(t, c.Today(), len("2006-01-02"))
}

// TestContainer_ServicesShareDatabase 测试服务共享同一数据库
func TestContainer_ServicesShareDatabase(t *testing.T) {
	c, err := container.NewContainer(testConfig(t), quietLogger())
	require.NoError(t, err)
	defer c.Close()

	c.StartBackground(context.Background())

	ctx := context.Background()
	_, err = c.MachineService().Create(ctx, &service.CreateMachineRequest{ID: "PRS-001", Name: "Hydraulic press"})
	require.NoError(t, err)

	page, err := c.QueryService().ListMachines(ctx, &service.ListMachinesFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	path, err := c.BackupService().CreateBackup(ctx)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

// TestContainer_InvalidConfig 测试非法配置
func TestContainer_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lifecycle.Timezone = "Mars/Olympus_Mons"
	_, err := container.NewContainer(cfg, quietLogger())
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Database.Driver = "mysql"
	_, err = container.NewContainer(cfg, quietLogger())
	assert.Error(t, err)
}

// TestContainer_ApplyConfig 测试热加载日志级别
func TestContainer_ApplyConfig(t *testing.T) {
	logger := quietLogger()
	c, err := container.NewContainer(testConfig(t), logger)
	require.NoError(t, err)
	defer c.Close()

	updated := testConfig(t)
	updated.Log.Level = "debug"
	c.ApplyConfig(updated)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	updated.Log.Level = "loud"
	c.ApplyConfig(updated)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}
