package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/paperhub/admindata/pkg/admindata"
	"github.com/paperhub/admindata/pkg/api/errors"
	"github.com/paperhub/admindata/pkg/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler serves downloadable reports built from the cached collections
type ExportHandler struct {
	service  *admindata.Service
	exporter *export.Service
}

// NewExportHandler creates a new export handler
func NewExportHandler(service *admindata.Service, exporter *export.Service) *ExportHandler {
	return &ExportHandler{
		service:  service,
		exporter: exporter,
	}
}

// DownloadEarnings streams the earnings report as an Excel workbook
func (h *ExportHandler) DownloadEarnings(c echo.Context) error {
	earnings, err := h.service.Earnings(c.Request().Context())
	if err != nil {
		return errors.Domain(c, err)
	}

	var buf bytes.Buffer
	if err := h.exporter.WriteEarningsReport(&buf, earnings); err != nil {
		return errors.InternalError(c, err)
	}

	filename := fmt.Sprintf("earnings-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))

	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
