package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/service"
)

// MachineController 机器登记控制器
type MachineController struct {
	machineService service.MachineService
	queryService   service.QueryService
	historyService service.HistoryService
}

// NewMachineController 创建机器登记控制器
func NewMachineController(machineService service.MachineService, queryService service.QueryService, historyService service.HistoryService) *MachineController {
	return &MachineController{
		machineService: machineService,
		queryService:   queryService,
		historyService: historyService,
	}
}

// UpdateFieldRequest 修改单个字段请求
type UpdateFieldRequest struct {
	Field string `json:"field" binding:"required" example:"status"`
	Value string `json:"value" example:"AWAITING_PARTS"`
}

// AdjustQuantityRequest 调整数量请求
type AdjustQuantityRequest struct {
	Delta int `json:"delta" example:"-1"`
}

// AppendHistoryRequest 追加履历请求
type AppendHistoryRequest struct {
	Text string `json:"text" binding:"required" example:"Operator reported noise"`
}

// List 分页列出机器
// @Summary      获取机器列表
// @Description  分页获取机器列表,支持搜索、状态过滤、排序
// @Tags         机器管理
// @Produce      json
// @Param        search query string false "按 ID/名称/制造商搜索"
// @Param        status query string false "机器状态"
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(8)
// @Param        sort_by query string false "排序字段" Enums(id, name, capacity, manufacturer, quantity, status) default(id)
// @Param        order query string false "排序方向" Enums(asc, desc) default(asc)
// @Success      200  {object}  PaginatedResponse
// @Failure      400  {object}  ErrorResponse
// @Router       /machines [get]
func (c *MachineController) List(ctx *gin.Context) {
	filter := service.ListMachinesFilter{
		Search: ctx.Query("search"),
		SortBy: ctx.Query("sort_by"),
		Order:  ctx.Query("order"),
	}

	if statusStr := ctx.Query("status"); statusStr != "" {
		status, err := model.ParseMachineStatus(statusStr)
		if err != nil {
			HandleServiceError(ctx, apperr.Validation("%s", err.Error()))
			return
		}
		filter.Status = &status
	}

	var ok bool
	if filter.Page, ok = queryInt(ctx, "page"); !ok {
		return
	}
	if filter.PageSize, ok = queryInt(ctx, "page_size"); !ok {
		return
	}

	page, err := c.queryService.ListMachines(ctx.Request.Context(), &filter)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	Paginated(ctx, page.Items, PaginationInfo{
		Page:      page.Page,
		PageSize:  page.PageSize,
		Total:     page.Total,
		TotalPage: page.Pages,
	})
}

// All 返回全部机器(含维护、计划、履历)
// @Summary      获取全部机器
// @Tags         机器管理
// @Produce      json
// @Success      200  {object}  Response{data=[]service.MachineView}
// @Router       /machines/all [get]
func (c *MachineController) All(ctx *gin.Context) {
	machines, err := c.machineService.GetAll(ctx.Request.Context())
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Success(ctx, machines)
}

// Create 登记机器
// @Summary      登记机器
// @Tags         机器管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateMachineRequest true "机器信息"
// @Success      201  {object}  Response{data=service.MachineView}
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /machines [post]
func (c *MachineController) Create(ctx *gin.Context) {
	var req service.CreateMachineRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
		return
	}

	machine, err := c.machineService.Create(ctx.Request.Context(), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Created(ctx, machine)
}

// Get 获取机器详情
// @Summary      获取机器详情
// @Tags         机器管理
// @Produce      json
// @Param        id path string true "机器 ID"
// @Success      200  {object}  Response{data=service.MachineView}
// @Failure      404  {object}  ErrorResponse
// @Router       /machines/{id} [get]
func (c *MachineController) Get(ctx *gin.Context) {
	machine, err := c.machineService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Success(ctx, machine)
}

// UpdateField 修改单个字段
// @Summary      修改机器字段
// @Description  修改 name/capacity/manufacturer/quantity/status 中的一个字段,变更写入履历
// @Tags         机器管理
// @Accept       json
// @Produce      json
// @Param        id path string true "机器 ID"
// @Param        request body UpdateFieldRequest true "字段和新值"
// @Success      200  {object}  Response{data=service.MachineView}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /machines/{id} [patch]
func (c *MachineController) UpdateField(ctx *gin.Context) {
	var req UpdateFieldRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
		return
	}

	machine, err := c.machineService.UpdateField(ctx.Request.Context(), ctx.Param("id"), req.Field, req.Value)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Success(ctx, machine)
}

// AdjustQuantity 调整数量
// @Summary      调整机器数量
// @Description  数量加减 delta,结果不小于 1
// @Tags         机器管理
// @Accept       json
// @Produce      json
// @Param        id path string true "机器 ID"
// @Param        request body AdjustQuantityRequest true "增量"
// @Success      200  {object}  Response{data=service.MachineView}
// @Failure      404  {object}  ErrorResponse
// @Router       /machines/{id}/quantity [post]
func (c *MachineController) AdjustQuantity(ctx *gin.Context) {
	var req AdjustQuantityRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
		return
	}

	machine, err := c.machineService.AdjustQuantity(ctx.Request.Context(), ctx.Param("id"), req.Delta)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Success(ctx, machine)
}

// Delete 删除机器及其全部记录
// @Summary      删除机器
// @Tags         机器管理
// @Produce      json
// @Param        id path string true "机器 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /machines/{id} [delete]
func (c *MachineController) Delete(ctx *gin.Context) {
	if err := c.machineService.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		HandleServiceError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, Response{Code: 0, Message: T(ctx, "success.deleted")})
}

// History 获取机器履历
// @Summary      获取机器履历
// @Description  默认最新在前, order=asc 时按追加顺序
// @Tags         机器管理
// @Produce      json
// @Param        id path string true "机器 ID"
// @Param        order query string false "排序方向" Enums(asc, desc) default(desc)
// @Success      200  {object}  Response{data=[]service.HistoryView}
// @Failure      404  {object}  ErrorResponse
// @Router       /machines/{id}/history [get]
func (c *MachineController) History(ctx *gin.Context) {
	entries, err := c.historyService.List(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}

	if !strings.EqualFold(ctx.Query("order"), "asc") {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	Success(ctx, entries)
}

// AppendHistory 追加自由文本履历
// @Summary      追加履历
// @Tags         机器管理
// @Accept       json
// @Produce      json
// @Param        id path string true "机器 ID"
// @Param        request body AppendHistoryRequest true "履历内容"
// @Success      201  {object}  Response{data=service.HistoryView}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /machines/{id}/history [post]
func (c *MachineController) AppendHistory(ctx *gin.Context) {
	var req AppendHistoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
		return
	}

	entry, err := c.historyService.Append(ctx.Request.Context(), ctx.Param("id"), req.Text)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Created(ctx, entry)
}

// queryInt 读取整数查询参数,缺省返回 0
func queryInt(ctx *gin.Context, key string) (int, bool) {
	raw := ctx.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		HandleServiceError(ctx, apperr.Validation("%s must be an integer", key))
		return 0, false
	}
	return n, true
}

// pathUint 读取正整数路径参数
func pathUint(ctx *gin.Context, key string) (uint, bool) {
	n, err := strconv.ParseUint(ctx.Param(key), 10, 64)
	if err != nil || n == 0 {
		HandleServiceError(ctx, apperr.Validation("%s must be a positive integer", key))
		return 0, false
	}
	return uint(n), true
}
