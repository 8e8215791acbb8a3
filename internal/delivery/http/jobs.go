package http

import (
	"net/http"
	"strategy-lab/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupJobs(base *echo.Group) {
	v1 := base.Group("/v1/jobs")
	{
		v1.POST("/reap-stale", h.ReapStaleBacktests)
	}
}

func (h *HttpAPIHandler) ReapStaleBacktests(c echo.Context) error {
	reaped, err := h.service.SchedulerService.ReapStaleBacktests(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, err, "failed to reap stale backtests")
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("stale backtests reaped", dto.StaleBacktestsResult{Reaped: reaped}))
}
