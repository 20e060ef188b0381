package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/maintcontrol/internal/service"
)

// StatisticsController 看板统计控制器
type StatisticsController struct {
	statisticsService service.StatisticsService
}

// NewStatisticsController 创建看板统计控制器
func NewStatisticsController(statisticsService service.StatisticsService) *StatisticsController {
	return &StatisticsController{statisticsService: statisticsService}
}

// Dashboard 看板统计
// @Summary      看板统计
// @Description  按状态统计机器数量,并列出逾期、今日到期和即将到期的维护计划
// @Tags         查询统计
// @Produce      json
// @Success      200  {object}  Response{data=service.Dashboard}
// @Router       /dashboard [get]
func (c *StatisticsController) Dashboard(ctx *gin.Context) {
	dashboard, err := c.statisticsService.Dashboard(ctx.Request.Context())
	if err != nil {
		HandleServiceError(ctx, err)
		return
	}
	Success(ctx, dashboard)
}
