package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/propbazaar/payments-service/internal/domain/repository"
)

// PackageHandler serves the public listing-package catalogue.
type PackageHandler struct {
	packages repository.PackageRepository
	logger   *zap.Logger
}

// NewPackageHandler creates a new PackageHandler.
func NewPackageHandler(packages repository.PackageRepository, logger *zap.Logger) *PackageHandler {
	return &PackageHandler{packages: packages, logger: logger}
}

// ListPackages returns the active packages in display order.
func (h *PackageHandler) ListPackages(c echo.Context) error {
	pkgs, err := h.packages.ListActive(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to list packages", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to list packages",
			"code":  "INTERNAL_ERROR",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": pkgs,
	})
}
