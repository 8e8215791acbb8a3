package http

import (
	"net/http"
	"strategy-lab/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupStrategies(base *echo.Group) {
	strategyGroup := base.Group("/strategies")
	strategyGroup.GET("", h.listStrategies)
	strategyGroup.POST("", h.createStrategy)
	strategyGroup.POST("/parse", h.parseStrategy)
	strategyGroup.GET("/:id", h.getStrategy)
	strategyGroup.DELETE("/:id", h.deleteStrategy)
	strategyGroup.GET("/:id/backtests", h.listStrategyBacktests)
}

func (h *HttpAPIHandler) listStrategies(c echo.Context) error {
	strategies, err := h.service.StrategyService.List(c.Request().Context())
	if err != nil {
		return h.errorResponse(c, err, "failed to list strategies")
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("success", strategies))
}

func (h *HttpAPIHandler) createStrategy(c echo.Context) error {
	req := new(dto.CreateStrategyRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	strategy, err := h.service.StrategyService.Create(c.Request().Context(), *req)
	if err != nil {
		return h.errorResponse(c, err, "failed to create strategy")
	}
	return c.JSON(http.StatusCreated, dto.NewCreatedResponse("strategy created", strategy))
}

func (h *HttpAPIHandler) parseStrategy(c echo.Context) error {
	req := new(dto.ParseStrategyRequest)
	if resp := h.bindAndValidate(c, req); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	parsed, err := h.service.StrategyService.Parse(c.Request().Context(), req.Prompt)
	if err != nil {
		return h.errorResponse(c, err, "failed to parse strategy")
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("success", parsed))
}

func (h *HttpAPIHandler) getStrategy(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid strategy id"))
	}

	strategy, err := h.service.StrategyService.Get(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err, "failed to get strategy")
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("success", strategy))
}

func (h *HttpAPIHandler) deleteStrategy(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid strategy id"))
	}

	if err := h.service.StrategyService.Delete(c.Request().Context(), id); err != nil {
		return h.errorResponse(c, err, "failed to delete strategy")
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("strategy deleted", nil))
}

func (h *HttpAPIHandler) listStrategyBacktests(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid strategy id"))
	}

	backtests, err := h.service.BacktestService.ListByStrategy(c.Request().Context(), id)
	if err != nil {
		return h.errorResponse(c, err, "failed to list backtests")
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("success", backtests))
}
