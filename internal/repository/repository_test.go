package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/mautops/maintcontrol/internal/config"
	"github.com/mautops/maintcontrol/internal/database"
	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func createMachine(t *testing.T, repo repository.MachineRepository, tag string) *model.MachineModel {
	t.Helper()
	machine := &model.MachineModel{Tag: tag, Name: "Machine " + tag, Quantity: 1, Status: model.StatusOK}
	require.NoError(t, repo.Create(context.Background(), machine))
	return machine
}

// TestMachineRepository 测试机器仓储
func TestMachineRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMachineRepository(setupDB(t))

	lathe := createMachine(t, repo, "LTH-01")
	createMachine(t, repo, "PRS-001")

	// 外部 ID 唯一
	err := repo.Create(ctx, &model.MachineModel{Tag: "LTH-01", Name: "Copy", Quantity: 1, Status: model.StatusOK})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	exists, err := repo.ExistsByTag(ctx, "PRS-001")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByTag(ctx, "XYZ")
	require.NoError(t, err)
	assert.False(t, exists)

	found, err := repo.FindByTag(ctx, "LTH-01")
	require.NoError(t, err)
	assert.Equal(t, lathe.ID, found.ID)
	_, err = repo.FindByTag(ctx, "XYZ")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.UpdateColumn(ctx, lathe.ID, "name", "CNC lathe"))
	found, err = repo.FindByTag(ctx, "LTH-01")
	require.NoError(t, err)
	assert.Equal(t, "CNC lathe", found.Name)
	assert.ErrorIs(t, repo.UpdateColumn(ctx, 9999, "name", "x"), repository.ErrNotFound)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "LTH-01", all[0].Tag)
	assert.Equal(t, "PRS-001", all[1].Tag)

	require.NoError(t, repo.Delete(ctx, lathe.ID))
	assert.ErrorIs(t, repo.Delete(ctx, lathe.ID), repository.ErrNotFound)

	require.NoError(t, repo.DeleteAll(ctx))
	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

// TestMaintenanceRepository 测试维护记录仓储
func TestMaintenanceRepository(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	machines := repository.NewMachineRepository(db)
	repo := repository.NewMaintenanceRepository(db)

	press := createMachine(t, machines, "PRS-001")
	other := createMachine(t, machines, "PRS-002")

	_, err := repo.FindOpenEpisode(ctx, press.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	episode := &model.MaintenanceEpisodeModel{
		MachineID:   press.ID,
		Type:        model.MaintenanceCorrective,
		Description: "Oil leak",
		StartDate:   "2024-06-10",
	}
	require.NoError(t, repo.CreateEpisode(ctx, episode))
	require.NotZero(t, episode.ID)

	for _, text := range []string{"Drained oil", "Replaced seal"} {
		require.NoError(t, repo.AddStep(ctx, &model.MaintenanceStepModel{EpisodeID: episode.ID, Timestamp: time.Now(), Description: text}))
	}
	count, err := repo.CountSteps(ctx, episode.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	open, err := repo.FindOpenEpisode(ctx, press.ID)
	require.NoError(t, err)
	require.Len(t, open.Steps, 2)
	assert.Equal(t, "Drained oil", open.Steps[0].Description)

	// 维护记录属于其它机器时视为不存在
	_, err = repo.FindEpisode(ctx, other.ID, episode.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	openCount, err := repo.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), openCount)

	closed, err := repo.CloseEpisode(ctx, other.ID, episode.ID, "2024-06-12")
	require.NoError(t, err)
	assert.False(t, closed)
	closed, err = repo.CloseEpisode(ctx, press.ID, episode.ID, "2024-06-12")
	require.NoError(t, err)
	assert.True(t, closed)
	closed, err = repo.CloseEpisode(ctx, press.ID, episode.ID, "2024-06-13")
	require.NoError(t, err)
	assert.False(t, closed)

	found, err := repo.FindEpisode(ctx, press.ID, episode.ID)
	require.NoError(t, err)
	require.NotNil(t, found.EndDate)
	assert.Equal(t, "2024-06-12", *found.EndDate)

	earlier := &model.MaintenanceEpisodeModel{
		MachineID:   press.ID,
		Type:        model.MaintenancePreventive,
		Description: "Yearly check",
		StartDate:   "2024-01-15",
		EndDate:     strPtr("2024-01-15"),
	}
	require.NoError(t, repo.CreateEpisode(ctx, earlier))

	list, err := repo.FindByMachine(ctx, press.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2024-01-15", list[0].StartDate)

	list, err = repo.FindByMachines(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, repo.DeleteByMachine(ctx, press.ID))
	list, err = repo.FindByMachine(ctx, press.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	count, err = repo.CountSteps(ctx, episode.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

// TestMaintenanceRepository_WithTx 测试事务回滚
func TestMaintenanceRepository_WithTx(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	press := createMachine(t, repository.NewMachineRepository(db), "PRS-001")
	repo := repository.NewMaintenanceRepository(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.WithTx(tx).CreateEpisode(ctx, &model.MaintenanceEpisodeModel{
			MachineID:   press.ID,
			Type:        model.MaintenanceCorrective,
			Description: "Oil leak",
			StartDate:   "2024-06-10",
		}); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	assert.ErrorIs(t, err, gorm.ErrInvalidTransaction)

	openCount, err := repo.CountOpen(ctx)
	require.NoError(t, err)
	assert.Zero(t, openCount)
}

// TestScheduleRepository 测试维护计划仓储
func TestScheduleRepository(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	machines := repository.NewMachineRepository(db)
	repo := repository.NewScheduleRepository(db)

	press := createMachine(t, machines, "PRS-001")
	lathe := createMachine(t, machines, "LTH-01")

	_, err := repo.FindByMachine(ctx, press.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, &model.ScheduleModel{MachineID: press.ID, Date: "2024-07-01", Description: "Oil change", CreatedAt: time.Now()}))
	require.NoError(t, repo.Upsert(ctx, &model.ScheduleModel{MachineID: press.ID, Date: "2024-08-01", Description: "Belt check", CreatedAt: time.Now()}))
	require.NoError(t, repo.Upsert(ctx, &model.ScheduleModel{MachineID: lathe.ID, Date: "2024-06-20", CreatedAt: time.Now()}))

	schedule, err := repo.FindByMachine(ctx, press.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-08-01", schedule.Date)
	assert.Equal(t, "Belt check", schedule.Description)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, lathe.ID, all[0].MachineID)

	byMachine, err := repo.FindByMachines(ctx, []uint{press.ID, lathe.ID})
	require.NoError(t, err)
	assert.Len(t, byMachine, 2)
	assert.Equal(t, "2024-06-20", byMachine[lathe.ID].Date)

	deleted, err := repo.DeleteByMachine(ctx, press.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.DeleteByMachine(ctx, press.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, repo.DeleteAll(ctx))
	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

// TestHistoryRepository 测试历史台账仓储
func TestHistoryRepository(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	machines := repository.NewMachineRepository(db)
	repo := repository.NewHistoryRepository(db)

	press := createMachine(t, machines, "PRS-001")
	lathe := createMachine(t, machines, "LTH-01")

	ts := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	for _, text := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Append(ctx, &model.HistoryEntryModel{MachineID: press.ID, Timestamp: ts, Text: text}))
	}
	require.NoError(t, repo.Append(ctx, &model.HistoryEntryModel{MachineID: lathe.ID, Timestamp: ts, Text: "lathe"}))

	entries, err := repo.FindByMachine(ctx, press.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// 同一时间戳按插入顺序返回
	assert.Equal(t, "first", entries[0].Text)
	assert.Equal(t, "third", entries[2].Text)

	entries, err = repo.FindByMachines(ctx, []uint{press.ID, lathe.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 4)

	require.NoError(t, repo.DeleteByMachine(ctx, press.ID))
	entries, err = repo.FindByMachine(ctx, press.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, repo.DeleteAll(ctx))
	entries, err = repo.FindByMachines(ctx, []uint{lathe.ID})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestEventRepository 测试事件仓储
func TestEventRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewEventRepository(setupDB(t))

	base := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	for i, id := range []string{"evt-1", "evt-2", "evt-3"} {
		require.NoError(t, repo.Save(ctx, &model.EventModel{
			ID:         id,
			MachineTag: "PRS-001",
			Type:       "maintenance.started",
			Data:       []byte(`{"machine_id":"PRS-001"}`),
			Status:     model.EventStatusPending,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Save(ctx, &model.EventModel{
		ID: "evt-4", MachineTag: "-", Type: "data.imported", Data: []byte(`{}`),
		Status: model.EventStatusPending, CreatedAt: base.Add(time.Hour),
	}))

	require.NoError(t, repo.UpdateStatus(ctx, "evt-1", model.EventStatusSuccess, 0))
	require.NoError(t, repo.UpdateStatus(ctx, "evt-2", model.EventStatusFailed, 3))

	events, err := repo.FindByMachineTag(ctx, "PRS-001")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, 3, events[1].RetryCount)

	pending, err := repo.FindPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "evt-3", pending[0].ID)

	pending, err = repo.FindPending(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.EventStatusSuccess])
	assert.Equal(t, int64(1), counts[model.EventStatusFailed])
	assert.Equal(t, int64(2), counts[model.EventStatusPending])
}

func strPtr(s string) *string {
	return &s
}
