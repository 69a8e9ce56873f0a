package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/fod-bridge/internal/errors"
	"github.com/wfunc/fod-bridge/internal/models"
	"github.com/wfunc/fod-bridge/internal/repository"
)

// EventPage 事件分页结果
type EventPage struct {
	Items []*models.BridgeEvent `json:"items"`
	Total int64                 `json:"total"`
}

// EventHandler 事件日志处理器
type EventHandler struct {
	repo *repository.EventRepository
}

// NewEventHandler 创建事件处理器，repo 为空表示事件日志未启用
func NewEventHandler(repo *repository.EventRepository) *EventHandler {
	return &EventHandler{repo: repo}
}

// ListEvents 查询事件
// @Summary 查询事件日志
// @Tags Events
// @Produce json
// @Param kind query string false "事件类型"
// @Param success query bool false "是否成功"
// @Param start_time query string false "开始时间 RFC3339"
// @Param end_time query string false "结束时间 RFC3339"
// @Param limit query int false "条数"
// @Param offset query int false "偏移"
// @Success 200 {object} Response{data=EventPage}
// @Failure 503 {object} errors.ErrorResponse
// @Router /api/v1/events [get]
func (h *EventHandler) ListEvents(c *gin.Context) {
	if h.repo == nil {
		fail(c, errors.New(errors.ErrServiceUnavailable, "journal disabled"))
		return
	}

	var q models.EventQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, errors.Wrap(err, errors.ErrInvalidParam))
		return
	}

	items, total, err := h.repo.Query(c.Request.Context(), &q)
	if err != nil {
		fail(c, errors.Wrap(err, errors.ErrDatabaseQuery))
		return
	}
	ok(c, EventPage{Items: items, Total: total})
}

// EventStats 按类型统计事件
// @Summary 事件统计
// @Tags Events
// @Produce json
// @Success 200 {object} Response{data=[]models.EventCount}
// @Router /api/v1/events/stats [get]
func (h *EventHandler) EventStats(c *gin.Context) {
	if h.repo == nil {
		fail(c, errors.New(errors.ErrServiceUnavailable, "journal disabled"))
		return
	}

	counts, err := h.repo.CountByKind(c.Request.Context())
	if err != nil {
		fail(c, errors.Wrap(err, errors.ErrDatabaseQuery))
		return
	}
	ok(c, counts)
}
