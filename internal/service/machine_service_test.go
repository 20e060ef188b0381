package service_test

import (
	"context"
	"testing"

	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/mautops/maintcontrol/internal/integration"
	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMachineService_Create 测试登记机器的默认值和台账
func TestMachineService_Create(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	view, err := env.machines.Create(ctx, &service.CreateMachineRequest{
		ID:           " PRS-001 ",
		Name:         "Hydraulic press",
		Manufacturer: strPtr("Schuler"),
		Capacity:     strPtr("   "),
		Quantity:     0,
	})
	require.NoError(t, err)

	assert.Equal(t, "PRS-001", view.ID)
	assert.Equal(t, model.StatusOK, view.Status)
	assert.Equal(t, 1, view.Quantity, "quantity below 1 is clamped")
	assert.Nil(t, view.Capacity, "blank capacity is stored as unset")
	require.NotNil(t, view.Manufacturer)
	assert.Equal(t, "Schuler", *view.Manufacturer)
	assert.Empty(t, view.Maintenances)
	assert.Nil(t, view.NextMaintenance)

	require.Len(t, view.History, 1)
	assert.Equal(t, "Machine registered in the system.", view.History[0].Text)
	assert.Equal(t, []integration.EventType{integration.EventMachineCreated}, env.events.types())
}

// TestMachineService_CreateDuplicate 测试重复 ID
func TestMachineService_CreateDuplicate(t *testing.T) {
	env := newTestEnv(t, true)
	env.createMachine(t, "PRS-001", "Press")

	_, err := env.machines.Create(context.Background(), &service.CreateMachineRequest{ID: "PRS-001", Name: "Other"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

// TestMachineService_CreateValidation 测试非法输入
func TestMachineService_CreateValidation(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()

	cases := []struct {
		name string
		req  *service.CreateMachineRequest
	}{
		{"nil request", nil},
		{"empty id", &service.CreateMachineRequest{Name: "Press"}},
		{"bad id", &service.CreateMachineRequest{ID: "PRS 001", Name: "Press"}},
		{"empty name", &service.CreateMachineRequest{ID: "PRS-001", Name: "  "}},
		{"unknown status", &service.CreateMachineRequest{ID: "PRS-001", Name: "Press", Status: "BROKEN"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.machines.Create(ctx, tc.req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	all, err := env.machines.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

// TestMachineService_CreateLegacyStatus 测试兼容旧状态标签
func TestMachineService_CreateLegacyStatus(t *testing.T) {
	env := newTestEnv(t, true)

	view, err := env.machines.Create(context.Background(), &service.CreateMachineRequest{
		ID: "LTH-01", Name: "Lathe", Status: "Em Operação",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInOperation, view.Status)
}

// TestMachineService_UpdateField 测试修改字段并写入台账
func TestMachineService_UpdateField(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.createMachine(t, "PRS-001", "Press")

	view, err := env.machines.UpdateField(ctx, "PRS-001", "name", "Hydraulic press")
	require.NoError(t, err)
	assert.Equal(t, "Hydraulic press", view.Name)

	view, err = env.machines.UpdateField(ctx, "PRS-001", "manufacturer", "Schuler")
	require.NoError(t, err)
	require.NotNil(t, view.Manufacturer)

	view, err = env.machines.UpdateField(ctx, "PRS-001", "quantity", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, view.Quantity)

	view, err = env.machines.UpdateField(ctx, "PRS-001", "STATUS", "awaiting parts")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAwaitingParts, view.Status)

	assert.Equal(t, []string{
		"Machine registered in the system.",
		`Field "name" changed from "Press" to "Hydraulic press".`,
		`Field "manufacturer" changed from "" to "Schuler".`,
		"Quantity changed from 1 to 3.",
		`Status changed from "OK" to "AWAITING_PARTS".`,
	}, env.historyTexts(t, "PRS-001"))
}

// TestMachineService_UpdateFieldUnchanged 测试值未变化时不写台账
func TestMachineService_UpdateFieldUnchanged(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.createMachine(t, "PRS-001", "Press")

	_, err := env.machines.UpdateField(ctx, "PRS-001", "name", "  Press ")
	require.NoError(t, err)
	_, err = env.machines.UpdateField(ctx, "PRS-001", "status", "OK")
	require.NoError(t, err)

	assert.Len(t, env.historyTexts(t, "PRS-001"), 1)
	assert.Equal(t, []integration.EventType{integration.EventMachineCreated}, env.events.types())
}

// TestMachineService_UpdateFieldErrors 测试非法字段、非法值和不存在的机器
func TestMachineService_UpdateFieldErrors(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.createMachine(t, "PRS-001", "Press")

	_, err := env.machines.UpdateField(ctx, "PRS-001", "id", "X")
	assert.ErrorIs(t, err, apperr.ErrInvalidField)

	_, err = env.machines.UpdateField(ctx, "PRS-001", "quantity", "many")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.machines.UpdateField(ctx, "PRS-001", "status", "broken")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.machines.UpdateField(ctx, "NOPE", "name", "X")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// TestMachineService_StrictStatus 测试状态与进行中维护的一致性
func TestMachineService_StrictStatus(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.createMachine(t, "PRS-001", "Press")

	_, err := env.machines.Create(ctx, &service.CreateMachineRequest{
		ID: "PRS-002", Name: "Press", Status: "IN_MAINTENANCE",
	})
	assert.ErrorIs(t, err, apperr.ErrConflict, "a new machine has no open episode")
	_, err = env.machines.Get(ctx, "PRS-002")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = env.machines.UpdateField(ctx, "PRS-001", "status", "IN_MAINTENANCE")
	assert.ErrorIs(t, err, apperr.ErrConflict, "IN_MAINTENANCE requires an open episode")

	_, err = env.maintenance.Start(ctx, "PRS-001", &service.StartMaintenanceRequest{
		Type: "CORRECTIVE", Description: "Oil leak", StartDate: "2024-06-01",
	})
	require.NoError(t, err)

	_, err = env.machines.UpdateField(ctx, "PRS-001", "status", "OK")
	assert.ErrorIs(t, err, apperr.ErrConflict, "open episode pins the status")

	view, err := env.machines.Get(ctx, "PRS-001")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInMaintenance, view.Status)
}

// TestMachineService_LenientStatus 测试关闭严格模式后可以直接修改状态
func TestMachineService_LenientStatus(t *testing.T) {
	env := newTestEnv(t, false)
	env.createMachine(t, "PRS-001", "Press")

	view, err := env.machines.UpdateField(context.Background(), "PRS-001", "status", "IN_MAINTENANCE")
	require.NoError(t, err)
	assert.Equal(t, model.StatusInMaintenance, view.Status)
}

// TestMachineService_AdjustQuantity 测试数量增减和下限
func TestMachineService_AdjustQuantity(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.createMachine(t, "PRS-001", "Press")

	view, err := env.machines.AdjustQuantity(ctx, "PRS-001", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, view.Quantity)

	view, err = env.machines.AdjustQuantity(ctx, "PRS-001", -10)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Quantity)

	// 已在下限,不再写台账
	_, err = env.machines.AdjustQuantity(ctx, "PRS-001", -1)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Machine registered in the system.",
		"Quantity changed from 1 to 3.",
		"Quantity changed from 3 to 1.",
	}, env.historyTexts(t, "PRS-001"))
}

// TestMachineService_Delete 测试删除机器及其全部记录
func TestMachineService_Delete(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	env.createMachine(t, "PRS-001", "Press")
	env.createMachine(t, "LTH-01", "Lathe")

	episode, err := env.maintenance.Start(ctx, "PRS-001", &service.StartMaintenanceRequest{
		Type: "PREVENTIVE", Description: "Inspection", StartDate: "2024-06-01",
	})
	require.NoError(t, err)
	_, err = env.maintenance.AddStep(ctx, "PRS-001", episode.ID, "Checked oil")
	require.NoError(t, err)
	_, err = env.maintenance.Schedule(ctx, "PRS-001", "2024-07-01", "")
	require.NoError(t, err)

	require.NoError(t, env.machines.Delete(ctx, "PRS-001"))

	_, err = env.machines.Get(ctx, "PRS-001")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, env.machines.Delete(ctx, "PRS-001"), apperr.ErrNotFound)

	for _, table := range []string{"maintenance_episodes", "maintenance_steps", "schedules"} {
		var count int64
		require.NoError(t, env.db.Table(table).Count(&count).Error)
		assert.Zero(t, count, table)
	}

	// 其它机器不受影响
	other, err := env.machines.Get(ctx, "LTH-01")
	require.NoError(t, err)
	assert.Len(t, other.History, 1)
}

// TestMachineService_GetAllOrdered 测试全部机器按 ID 排序
func TestMachineService_GetAllOrdered(t *testing.T) {
	env := newTestEnv(t, true)
	env.createMachine(t, "B-2", "Beta")
	env.createMachine(t, "A-1", "Alpha")

	all, err := env.machines.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A-1", all[0].ID)
	assert.Equal(t, "B-2", all[1].ID)
}
