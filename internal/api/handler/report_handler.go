package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/presensi/attendance-api/internal/api/metrics"
	"github.com/presensi/attendance-api/internal/core/ports"
)

// ReportHandler serves the administrative daily report.
type ReportHandler struct {
	service ports.AttendanceService
	loc     *time.Location
	thumbs  ThumbnailResolver
	now     func() time.Time
}

func NewReportHandler(service ports.AttendanceService, loc *time.Location, thumbs ThumbnailResolver) *ReportHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportHandler{service: service, loc: loc, thumbs: thumbs, now: time.Now}
}

// Daily handles GET /api/reports/daily.
//
// @Summary      Daily attendance report
// @Description  Lists attendance records joined with their owners. Without a date range every record is returned; startDate alone selects that day, endDate alone everything up to that day.
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        email      query     string  false  "Case-insensitive substring of the user's email"
// @Param        startDate  query     string  false  "First day (YYYY-MM-DD)"
// @Param        endDate    query     string  false  "Last day (YYYY-MM-DD)"
// @Success      200        {object}  reportResponse
// @Failure      400        {object}  errorResponse
// @Failure      401        {object}  errorResponse
// @Failure      403        {object}  errorResponse
// @Failure      500        {object}  errorResponse
// @Router       /api/reports/daily [get]
func (h *ReportHandler) Daily(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	entries, err := h.service.DailyReport(c.Request().Context(), ports.ReportInput{
		CallerRole: id.Role,
		Email:      c.QueryParam("email"),
		StartDate:  c.QueryParam("startDate"),
		EndDate:    c.QueryParam("endDate"),
	})
	if err != nil {
		return err
	}
	metrics.QueryRows.WithLabelValues("daily_report").Observe(float64(len(entries)))

	msg := "no attendance records found"
	if len(entries) > 0 {
		msg = fmt.Sprintf("found %d attendance records", len(entries))
	}

	return c.JSON(http.StatusOK, reportResponse{
		Message:    msg,
		ReportDate: h.now().In(h.loc).Format(time.DateOnly),
		Data:       toReportRows(entries, h.thumbs),
	})
}
