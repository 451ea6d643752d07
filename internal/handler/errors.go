package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ordermgmt/internal/service"
)

// respondError writes the client facing form of a service error. Store
// failures are logged and reported without detail.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	switch service.Classify(err) {
	case service.KindValidation:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case service.KindAuthentication, service.KindToken:
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": err.Error()})
	default:
		log.Error("request failed",
			zap.String("path", c.Path()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}
