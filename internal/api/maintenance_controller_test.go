package api_test

import (
	"fmt"
	"testing"

	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMaintenanceController_Lifecycle 测试开始、步骤、结束的完整流程
func TestMaintenanceController_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	s.createMachine(t, "PRS-001", "Press")

	w := s.do("GET", "/api/v1/machines/PRS-001/maintenance/active", "")
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "null", string(decode(t, w, nil).Data))

	w = s.do("POST", "/api/v1/machines/PRS-001/maintenance", `{"type":"CORRECTIVE","description":"Oil leak","start_date":"2024-06-01"}`)
	require.Equal(t, 201, w.Code, w.Body.String())
	var episode service.EpisodeView
	decode(t, w, &episode)
	require.NotZero(t, episode.ID)

	w = s.do("POST", "/api/v1/machines/PRS-001/maintenance", `{"type":"PREVENTIVE","description":"Again","start_date":"2024-06-02"}`)
	assert.Equal(t, 409, w.Code)

	base := fmt.Sprintf("/api/v1/machines/PRS-001/maintenance/%d", episode.ID)
	w = s.do("POST", base+"/steps", `{"description":"Replaced seal"}`)
	require.Equal(t, 201, w.Code, w.Body.String())

	w = s.do("POST", base+"/steps", `{}`)
	assert.Equal(t, 400, w.Code)

	w = s.do("POST", base+"/end", `{"end_date":"2024-05-01"}`)
	assert.Equal(t, 400, w.Code, "end before start")

	// 空请求体时结束日期为今天
	w = s.do("POST", base+"/end", "")
	require.Equal(t, 200, w.Code, w.Body.String())
	decode(t, w, &episode)
	require.NotNil(t, episode.EndDate)
	assert.Equal(t, "2024-06-10", *episode.EndDate)
	assert.Len(t, episode.Steps, 1)

	w = s.do("POST", base+"/end", "")
	assert.Equal(t, 409, w.Code)

	var episodes []service.EpisodeView
	decode(t, s.do("GET", "/api/v1/machines/PRS-001/maintenance", ""), &episodes)
	require.Len(t, episodes, 1)
	assert.Len(t, episodes[0].Steps, 1)

	var view service.MachineView
	decode(t, s.do("GET", "/api/v1/machines/PRS-001", ""), &view)
	assert.Equal(t, model.StatusOK, view.Status)
	assert.Equal(t, "Maintenance (CORRECTIVE) FINISHED. It had 1 steps.", view.History[len(view.History)-1].Text)
}

// TestMaintenanceController_BadEpisodeID 测试非法的维护记录 ID
func TestMaintenanceController_BadEpisodeID(t *testing.T) {
	s := newTestServer(t)
	s.createMachine(t, "PRS-001", "Press")

	assert.Equal(t, 400, s.do("POST", "/api/v1/machines/PRS-001/maintenance/abc/steps", `{"description":"x"}`).Code)
	assert.Equal(t, 400, s.do("POST", "/api/v1/machines/PRS-001/maintenance/0/end", "").Code)
	assert.Equal(t, 404, s.do("POST", "/api/v1/machines/PRS-001/maintenance/99/steps", `{"description":"x"}`).Code)
}

// TestMaintenanceController_Schedule 测试计划维护
func TestMaintenanceController_Schedule(t *testing.T) {
	s := newTestServer(t)
	s.createMachine(t, "PRS-001", "Press")

	w := s.do("POST", "/api/v1/machines/PRS-001/schedule/start", "")
	assert.Equal(t, 409, w.Code, "nothing scheduled")

	w = s.do("PUT", "/api/v1/machines/PRS-001/schedule", `{"date":"2024-06-09"}`)
	require.Equal(t, 200, w.Code, w.Body.String())

	var view service.MachineView
	decode(t, s.do("GET", "/api/v1/machines/PRS-001", ""), &view)
	require.NotNil(t, view.NextMaintenance)
	assert.Equal(t, service.AlertOverdue, view.Alert)

	var cleared map[string]bool
	decode(t, s.do("DELETE", "/api/v1/machines/PRS-001/schedule", ""), &cleared)
	assert.True(t, cleared["cleared"])
	decode(t, s.do("DELETE", "/api/v1/machines/PRS-001/schedule", ""), &cleared)
	assert.False(t, cleared["cleared"])

	w = s.do("PUT", "/api/v1/machines/PRS-001/schedule", `{"date":"2024-06-10","description":"Quarterly"}`)
	require.Equal(t, 200, w.Code)

	w = s.do("POST", "/api/v1/machines/PRS-001/schedule/start", "")
	require.Equal(t, 201, w.Code, w.Body.String())
	var episode service.EpisodeView
	decode(t, w, &episode)
	assert.Equal(t, model.MaintenancePreventive, episode.Type)
	assert.Equal(t, "Quarterly", episode.Description)
	assert.Equal(t, "2024-06-10", episode.StartDate)

	w = s.do("PUT", "/api/v1/machines/PRS-001/schedule", `{"date":"tomorrow"}`)
	assert.Equal(t, 400, w.Code)
}

// TestStatisticsController_Dashboard 测试看板
func TestStatisticsController_Dashboard(t *testing.T) {
	s := newTestServer(t)
	s.createMachine(t, "PRS-001", "Press")
	s.createMachine(t, "LTH-01", "Lathe")
	require.Equal(t, 200, s.do("PUT", "/api/v1/machines/LTH-01/schedule", `{"date":"2024-06-10"}`).Code)

	w := s.do("GET", "/api/v1/dashboard", "")
	require.Equal(t, 200, w.Code)
	var dash service.Dashboard
	decode(t, w, &dash)
	assert.Equal(t, int64(2), dash.TotalMachines)
	assert.Equal(t, int64(1), dash.DueToday)
	require.Len(t, dash.Upcoming, 1)
	assert.Equal(t, "LTH-01", dash.Upcoming[0].MachineID)
}
