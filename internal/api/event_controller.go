package api

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/mautops/maintcontrol/internal/repository"
)

// EventController 生命周期事件投递记录控制器
type EventController struct {
	eventRepo repository.EventRepository
}

// NewEventController 创建事件控制器
func NewEventController(eventRepo repository.EventRepository) *EventController {
	return &EventController{eventRepo: eventRepo}
}

// EventRecord 事件投递记录
type EventRecord struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	RetryCount int             `json:"retry_count"`
	CreatedAt  time.Time       `json:"created_at"`
	Event      json.RawMessage `json:"event"`
}

// ListByMachine 列出机器的事件投递记录
// @Summary      获取机器事件
// @Tags         事件
// @Produce      json
// @Param        id path string true "机器 ID"
// @Success      200  {object}  Response{data=[]EventRecord}
// @Router       /machines/{id}/events [get]
func (c *EventController) ListByMachine(ctx *gin.Context) {
	events, err := c.eventRepo.FindByMachineTag(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		HandleServiceError(ctx, apperr.Storage(err, "failed to list events"))
		return
	}

	records := make([]EventRecord, 0, len(events))
	for _, e := range events {
		records = append(records, EventRecord{
			ID:         e.ID,
			Type:       e.Type,
			Status:     e.Status,
			RetryCount: e.RetryCount,
			CreatedAt:  e.CreatedAt,
			Event:      json.RawMessage(e.Data),
		})
	}
	Success(ctx, records)
}

// Stats 按投递状态统计事件
// @Summary      事件投递统计
// @Tags         事件
// @Produce      json
// @Success      200  {object}  Response{data=map[string]int64}
// @Router       /events/stats [get]
func (c *EventController) Stats(ctx *gin.Context) {
	counts, err := c.eventRepo.CountByStatus(ctx.Request.Context())
	if err != nil {
		HandleServiceError(ctx, apperr.Storage(err, "failed to count events"))
		return
	}
	Success(ctx, counts)
}
