package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/maintcontrol/internal/service"
)

// MaintenanceController 维护生命周期控制器
type MaintenanceController struct {
	maintenanceService service.MaintenanceService
}

// NewMaintenanceController 创建维护生命周期控制器
func NewMaintenanceController(maintenanceService service.MaintenanceService) *MaintenanceController {
	return &MaintenanceController{
		maintenanceService: maintenanceService,
	}
}

// AddStepRequest 记录维护步骤请求
type AddStepRequest struct {
	Description string `json:"description" binding:"required" example:"Replaced seal"`
}

// EndMaintenanceRequest 结束维护请求,end_date 为空时取今天
type EndMaintenanceRequest struct {
	EndDate string `json:"end_date" example:"2024-01-05"`
}

// ScheduleRequest 计划下次维护请求
type ScheduleRequest struct {
	Date        string `json:"date" binding:"required" example:"2024-06-10"`
	Description string `json:"description" example:"Quarterly inspection"`
}

// List 列出机器的维护记录
// @Summary      获取维护记录
// @Tags         维护管理
// @Produce      json
// @Param        id path string true "机器 ID"
// @Success      200  {object}  Response{data=[]service.EpisodeView}
// @Failure      404  {object}  ErrorResponse
// @Router       /machines/{id}/maintenance [get]
func (c *MaintenanceController) List(ctx *gin.Context) {
	episodes, err := c.maintenanceService.ListEpisodes(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Success(ctx, episodes)
}

// Active 获取进行中的维护,没有时 data 为 null
// @Summary      获取进行中的维护
// @Tags         维护管理
// @Produce      json
// @Param        id path string true "机器 ID"
// @Success      200  {object}  Response{data=service.EpisodeView}
// @Failure      404  {object}  ErrorResponse
// @Router       /machines/{id}/maintenance/active [get]
func (c *MaintenanceController) Active(ctx *gin.Context) {
	episode, err := c.maintenanceService.ActiveEpisode(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Success(ctx, episode)
}

// Start 开始维护
// @Summary      开始维护
// @Description  机器进入 IN_MAINTENANCE,同一时间只能有一条进行中的维护
// @Tags         维护管理
// @Accept       json
// @Produce      json
// @Param        id path string true "机器 ID"
// @Param        request body service.StartMaintenanceRequest true "维护信息"
// @Success      201  {object}  Response{data=service.EpisodeView}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /machines/{id}/maintenance [post]
func (c *MaintenanceController) Start(ctx *gin.Context) {
	var req service.StartMaintenanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
		return
	}

	episode, err := c.maintenanceService.Start(ctx.Request.Context(), ctx.Param("id"), &req)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Created(ctx, episode)
}

// AddStep 记录维护步骤
// @Summary      记录维护步骤
// @Tags         维护管理
// @Accept       json
// @Produce      json
// @Param        id path string true "机器 ID"
// @Param        episodeId path int true "维护记录 ID"
// @Param        request body AddStepRequest true "步骤描述"
// @Success      201  {object}  Response{data=service.StepView}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /machines/{id}/maintenance/{episodeId}/steps [post]
func (c *MaintenanceController) AddStep(ctx *gin.Context) {
	episodeID, ok := pathUint(ctx, "episodeId")
	if !ok {
		return
	}
	var req AddStepRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
		return
	}

	step, err := c.maintenanceService.AddStep(ctx.Request.Context(), ctx.Param("id"), episodeID, req.Description)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Created(ctx, step)
}

// End 结束维护
// @Summary      结束维护
// @Description  机器回到 OK 状态并写入履历
// @Tags         维护管理
// @Accept       json
// @Produce      json
// @Param        id path string true "机器 ID"
// @Param        episodeId path int true "维护记录 ID"
// @Param        request body EndMaintenanceRequest false "结束日期"
// @Success      200  {object}  Response{data=service.EpisodeView}
// @Failure      400  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /machines/{id}/maintenance/{episodeId}/end [post]
func (c *MaintenanceController) End(ctx *gin.Context) {
	episodeID, ok := pathUint(ctx, "episodeId")
	if !ok {
		return
	}
	var req EndMaintenanceRequest
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
			return
		}
	}

	episode, err := c.maintenanceService.End(ctx.Request.Context(), ctx.Param("id"), episodeID, req.EndDate)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Success(ctx, episode)
}

// Schedule 计划下次维护
// @Summary      计划下次维护
// @Description  覆盖已有计划
// @Tags         维护管理
// @Accept       json
// @Produce      json
// @Param        id path string true "机器 ID"
// @Param        request body ScheduleRequest true "计划信息"
// @Success      200  {object}  Response{data=service.ScheduleView}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /machines/{id}/schedule [put]
func (c *MaintenanceController) Schedule(ctx *gin.Context) {
	var req ScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, T(ctx, "error.bad_request"), err.Error())
		return
	}

	schedule, err := c.maintenanceService.Schedule(ctx.Request.Context(), ctx.Param("id"), req.Date, req.Description)
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Success(ctx, schedule)
}

// ClearSchedule 取消计划
// @Summary      取消计划维护
// @Tags         维护管理
// @Produce      json
// @Param        id path string true "机器 ID"
// @Success      200  {object}  Response
// @Failure      404  {object}  ErrorResponse
// @Router       /machines/{id}/schedule [delete]
func (c *MaintenanceController) ClearSchedule(ctx *gin.Context) {
	cleared, err := c.maintenanceService.ClearSchedule(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Success(ctx, gin.H{"cleared": cleared})
}

// StartFromSchedule 按计划开始预防性维护
// @Summary      按计划开始维护
// @Tags         维护管理
// @Produce      json
// @Param        id path string true "机器 ID"
// @Success      201  {object}  Response{data=service.EpisodeView}
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Router       /machines/{id}/schedule/start [post]
func (c *MaintenanceController) StartFromSchedule(ctx *gin.Context) {
	episode, err := c.maintenanceService.StartFromSchedule(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Created(ctx, episode)
}
