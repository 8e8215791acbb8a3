package http

import (
	"context"
	"errors"
	"net/http"
	"strategy-lab/internal/dto"
	"strategy-lab/internal/service"
	"strategy-lab/pkg/logger"
	"strategy-lab/pkg/metrics"
	"strconv"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo      *echo.Echo
	validator *goValidator.Validate
	service   *service.Service
	metrics   *metrics.Registry
	log       *logger.Logger
}

func NewHttpAPIHandler(
	ctx context.Context,
	echo *echo.Echo,
	validator *goValidator.Validate,
	service *service.Service,
	metricsRegistry *metrics.Registry,
	log *logger.Logger,
) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:      echo,
		validator: validator,
		service:   service,
		metrics:   metricsRegistry,
		log:       log,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	h.echo.GET("/health", h.health)
	if h.metrics != nil {
		h.echo.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	}

	base := h.echo.Group("/api")
	h.SetupStrategies(base)
	h.SetupBacktests(base)
	h.SetupMarketData(base)
	h.SetupJobs(base)
}

func (h *HttpAPIHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", nil))
}

func (h *HttpAPIHandler) bindAndValidate(c echo.Context, req interface{}) *dto.BaseResponse {
	if err := c.Bind(req); err != nil {
		return dto.NewBadRequestResponse("invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return dto.NewBadRequestResponse(err.Error())
	}
	return nil
}

func parseID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// errorResponse maps service errors to API responses. Anything unexpected is logged and
// reported as an internal error with a generic message.
func (h *HttpAPIHandler) errorResponse(c echo.Context, err error, message string) error {
	var response *dto.BaseResponse
	switch {
	case errors.Is(err, service.ErrStrategyNotFound):
		response = dto.NewNotFoundResponse("strategy not found")
	case errors.Is(err, service.ErrBacktestNotFound):
		response = dto.NewNotFoundResponse("backtest not found")
	case errors.Is(err, service.ErrInvalidRuleDocument):
		response = dto.NewBadRequestResponse(err.Error())
	case errors.Is(err, service.ErrTranslationFailed):
		response = dto.NewBaseResponse(http.StatusBadGateway, "failed to parse strategy", nil)
	case errors.Is(err, service.ErrMarketDataUnavailable):
		response = dto.NewBaseResponse(http.StatusBadGateway, "market data unavailable", nil)
	case errors.Is(err, context.DeadlineExceeded):
		response = dto.NewBaseResponse(http.StatusGatewayTimeout, "request timed out", nil)
	default:
		ctx := c.Request().Context()
		h.log.FromContext(ctx).ErrorContext(ctx, message, logger.ErrorField(err))
		response = dto.NewInternalErrorResponse(message)
	}
	return c.JSON(response.Code, response)
}
