package http

import (
	"net/http"
	"strategy-lab/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupMarketData(base *echo.Group) {
	base.GET("/market-data/:symbol", h.getMarketData)
}

func (h *HttpAPIHandler) getMarketData(c echo.Context) error {
	param := new(dto.GetMarketDataParam)
	if resp := h.bindAndValidate(c, param); resp != nil {
		return c.JSON(resp.Code, resp)
	}

	data, err := h.service.MarketDataService.GetMarketData(c.Request().Context(), *param)
	if err != nil {
		return h.errorResponse(c, err, "failed to get market data")
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("success", data))
}
