package api_test

import (
	"testing"

	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMachineController_Create 测试登记机器
func TestMachineController_Create(t *testing.T) {
	s := newTestServer(t)

	w := s.do("POST", "/api/v1/machines", `{"id":"PRS-001","name":"Hydraulic press","quantity":0,"manufacturer":"Schuler"}`)
	require.Equal(t, 201, w.Code, w.Body.String())

	var view service.MachineView
	env := decode(t, w, &view)
	assert.Equal(t, "Created successfully", env.Message)
	assert.Equal(t, "PRS-001", view.ID)
	assert.Equal(t, 1, view.Quantity)
	assert.Equal(t, model.StatusOK, view.Status)
	require.Len(t, view.History, 1)

	w = s.do("POST", "/api/v1/machines", `{"id":"PRS-001","name":"Again"}`)
	assert.Equal(t, 409, w.Code)
	env = decode(t, w, nil)
	assert.Equal(t, "conflict", env.Kind)
	assert.Contains(t, env.Detail, "PRS-001")
}

// TestMachineController_ValidationErrors 测试错误映射和翻译
func TestMachineController_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	w := s.do("POST", "/api/v1/machines", `{"id":"bad id","name":"Press"}`)
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "validation", decode(t, w, nil).Kind)

	w = s.do("POST", "/api/v1/machines", `{"id":"bad id","name":"Press"}`, "Accept-Language", "pt-BR,pt;q=0.9")
	assert.Equal(t, "Dados inválidos", decode(t, w, nil).Message)

	w = s.do("POST", "/api/v1/machines?lang=zh", `{"id":"bad id","name":"Press"}`)
	assert.Equal(t, "输入无效", decode(t, w, nil).Message)

	w = s.do("POST", "/api/v1/machines", `{"id":"all","name":"Press"}`)
	assert.Equal(t, 400, w.Code, "all is taken by the /machines/all route")

	w = s.do("POST", "/api/v1/machines", `{not json`)
	assert.Equal(t, 400, w.Code)

	w = s.do("GET", "/api/v1/machines/NOPE", "")
	assert.Equal(t, 404, w.Code)
	assert.Equal(t, "not_found", decode(t, w, nil).Kind)

	w = s.do("GET", "/api/v1/machines?status=BROKEN", "")
	assert.Equal(t, 400, w.Code)

	w = s.do("GET", "/api/v1/machines?page=two", "")
	assert.Equal(t, 400, w.Code)

	w = s.do("GET", "/api/v1/machines?sort_by=created_at", "")
	assert.Equal(t, 400, w.Code)
}

// TestMachineController_ListAndAll 测试分页列表
func TestMachineController_ListAndAll(t *testing.T) {
	s := newTestServer(t)
	for _, id := range []string{"C", "A", "B"} {
		s.createMachine(t, id, "Machine "+id)
	}

	w := s.do("GET", "/api/v1/machines?page_size=2&search=machine", "")
	require.Equal(t, 200, w.Code)
	var items []service.MachineView
	env := decode(t, w, &items)
	assert.Equal(t, int64(3), env.Pagination.Total)
	assert.Equal(t, 2, env.Pagination.TotalPage)
	require.Len(t, items, 2)
	assert.Equal(t, "A", items[0].ID)
	assert.Equal(t, "B", items[1].ID)

	w = s.do("GET", "/api/v1/machines/all", "")
	require.Equal(t, 200, w.Code)
	decode(t, w, &items)
	assert.Len(t, items, 3)
}

// TestMachineController_UpdateField 测试字段修改
func TestMachineController_UpdateField(t *testing.T) {
	s := newTestServer(t)
	s.createMachine(t, "PRS-001", "Press")

	w := s.do("PATCH", "/api/v1/machines/PRS-001", `{"field":"status","value":"awaiting parts"}`)
	require.Equal(t, 200, w.Code, w.Body.String())
	var view service.MachineView
	decode(t, w, &view)
	assert.Equal(t, model.StatusAwaitingParts, view.Status)

	w = s.do("PATCH", "/api/v1/machines/PRS-001", `{"field":"tag","value":"X"}`)
	assert.Equal(t, 422, w.Code)
	assert.Equal(t, "invalid_field", decode(t, w, nil).Kind)

	w = s.do("PATCH", "/api/v1/machines/PRS-001", `{"value":"X"}`)
	assert.Equal(t, 400, w.Code, "field is required")

	w = s.do("PATCH", "/api/v1/machines/PRS-001", `{"field":"status","value":"IN_MAINTENANCE"}`)
	assert.Equal(t, 409, w.Code, "status cannot claim maintenance without an episode")
}

// TestMachineController_AdjustQuantity 测试数量调整
func TestMachineController_AdjustQuantity(t *testing.T) {
	s := newTestServer(t)
	s.createMachine(t, "PRS-001", "Press")

	w := s.do("POST", "/api/v1/machines/PRS-001/quantity", `{"delta":4}`)
	require.Equal(t, 200, w.Code, w.Body.String())
	var view service.MachineView
	decode(t, w, &view)
	assert.Equal(t, 5, view.Quantity)

	w = s.do("POST", "/api/v1/machines/PRS-001/quantity", `{"delta":-10}`)
	require.Equal(t, 200, w.Code)
	decode(t, w, &view)
	assert.Equal(t, 1, view.Quantity)
}

// TestMachineController_History 测试履历追加和排序
func TestMachineController_History(t *testing.T) {
	s := newTestServer(t)
	s.createMachine(t, "PRS-001", "Press")

	w := s.do("POST", "/api/v1/machines/PRS-001/history", `{"text":"Operator reported noise"}`)
	require.Equal(t, 201, w.Code, w.Body.String())

	w = s.do("POST", "/api/v1/machines/PRS-001/history", `{"text":""}`)
	assert.Equal(t, 400, w.Code)

	var entries []service.HistoryView
	decode(t, s.do("GET", "/api/v1/machines/PRS-001/history", ""), &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, "Operator reported noise", entries[0].Text, "newest first by default")

	decode(t, s.do("GET", "/api/v1/machines/PRS-001/history?order=asc", ""), &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, "Machine registered in the system.", entries[0].Text)
}

// TestMachineController_Delete 测试删除机器
func TestMachineController_Delete(t *testing.T) {
	s := newTestServer(t)
	s.createMachine(t, "PRS-001", "Press")

	w := s.do("DELETE", "/api/v1/machines/PRS-001", "")
	require.Equal(t, 200, w.Code)
	assert.Equal(t, "Deleted successfully", decode(t, w, nil).Message)

	assert.Equal(t, 404, s.do("GET", "/api/v1/machines/PRS-001", "").Code)
	assert.Equal(t, 404, s.do("DELETE", "/api/v1/machines/PRS-001", "").Code)
}
