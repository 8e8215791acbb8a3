package http

import (
	"net/http"
	"strategy-lab/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupBacktests(base *echo.Group) {
	backtestGroup := base.Group("/backtests")
	backtestGroup.POST("/run", h.runBacktest)
	backtestGroup.GET("/:id", h.getBacktest)
}

// runBacktest answers as soon as the run is recorded; the simulation continues in the
// background and the caller polls getBacktest.
func (h *HttpAPIHandler) runBacktest(c echo.Context) error {
	req := new(dto.RunBacktestRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	bt, err := h.service.BacktestService.Run(c.Request().Context(), req.StrategyID)
	if err != nil {
		return h.errorResponse(c, err, "failed to run backtest")
	}
	return c.JSON(http.StatusCreated, dto.NewCreatedResponse("backtest started", bt))
}

func (h *HttpAPIHandler) getBacktest(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid backtest id"))
	}

	bt, err := h.service.BacktestService.Get(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err, "failed to get backtest")
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("success", bt))
}
