package api_test

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/mautops/maintcontrol/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTransferController_ExportImport 测试导出后再导入
func TestTransferController_ExportImport(t *testing.T) {
	s := newTestServer(t)
	s.createMachine(t, "PRS-001", "Press")
	s.createMachine(t, "LTH-01", "Lathe")

	w := s.do("GET", "/api/v1/export", "")
	require.Equal(t, 200, w.Code)
	assert.Equal(t, `attachment; filename="maintcontrol_backup_2024-06-10.json"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	exported := w.Body.String()

	require.Equal(t, 200, s.do("DELETE", "/api/v1/machines/LTH-01", "").Code)

	w = s.do("POST", "/api/v1/import", exported)
	require.Equal(t, 200, w.Code, w.Body.String())
	var result service.ImportResult
	decode(t, w, &result)
	assert.Equal(t, 2, result.Machines)
	assert.Equal(t, 200, s.do("GET", "/api/v1/machines/LTH-01", "").Code)
}

// TestTransferController_YAML 测试 YAML 导出和 multipart 上传
func TestTransferController_YAML(t *testing.T) {
	s := newTestServer(t)
	s.createMachine(t, "PRS-001", "Press")

	w := s.do("GET", "/api/v1/export?format=yaml", "")
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "maintcontrol_backup_2024-06-10.yaml")
	assert.Contains(t, w.Body.String(), "id: PRS-001")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "backup.yaml")
	require.NoError(t, err)
	_, err = part.Write(w.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/import?format=yaml", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code, rec.Body.String())

	var result service.ImportResult
	decode(t, rec, &result)
	assert.Equal(t, 1, result.Machines)
	assert.Equal(t, 1, result.History)
}

// TestTransferController_Errors 测试非法格式和非法内容
func TestTransferController_Errors(t *testing.T) {
	s := newTestServer(t)
	s.createMachine(t, "PRS-001", "Press")

	assert.Equal(t, 400, s.do("GET", "/api/v1/export?format=csv", "").Code)
	assert.Equal(t, 400, s.do("POST", "/api/v1/import", `[{"id":"A","name":"x"},{"id":"A","name":"y"}]`).Code)
	assert.Equal(t, 400, s.do("POST", "/api/v1/import", `{broken`).Code)

	// 失败的导入不修改数据
	assert.Equal(t, 200, s.do("GET", "/api/v1/machines/PRS-001", "").Code)
}
