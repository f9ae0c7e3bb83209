package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/presensi/attendance-api/internal/api/metrics"
	"github.com/presensi/attendance-api/internal/core/domain"
	"github.com/presensi/attendance-api/internal/core/ports"
)

const photoField = "image"

// AttendanceHandler handles HTTP requests for attendance sessions.
type AttendanceHandler struct {
	service       ports.AttendanceService
	thumbs        ThumbnailResolver
	maxPhotoBytes int64
	log           zerolog.Logger
}

func NewAttendanceHandler(service ports.AttendanceService, thumbs ThumbnailResolver, maxPhotoBytes int64, log zerolog.Logger) *AttendanceHandler {
	return &AttendanceHandler{
		service:       service,
		thumbs:        thumbs,
		maxPhotoBytes: maxPhotoBytes,
		log:           log,
	}
}

// CheckIn handles POST /api/presensi/check-in.
//
// @Summary      Check in
// @Description  Opens an attendance session for the caller. Accepts JSON or multipart/form-data with an optional selfie in the "image" field.
// @Tags         presensi
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        body       body      checkInRequest  false  "Coordinates (JSON requests)"
// @Param        latitude   formData  number          false  "Latitude (multipart requests)"
// @Param        longitude  formData  number          false  "Longitude (multipart requests)"
// @Param        image      formData  file            false  "Selfie (jpeg, png or webp)"
// @Success      201        {object}  recordEnvelope
// @Failure      400        {object}  errorResponse
// @Failure      401        {object}  errorResponse
// @Failure      409        {object}  errorResponse
// @Failure      500        {object}  errorResponse
// @Router       /api/presensi/check-in [post]
func (h *AttendanceHandler) CheckIn(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	req, err := bindCheckIn(c)
	if err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return domain.Validationf("latitude and longitude must be sent together")
	}

	photo, err := h.readPhoto(c)
	if err != nil {
		return err
	}

	input := ports.CheckInInput{UserID: id.UserID, Photo: photo}
	if req.Latitude != nil && req.Longitude != nil {
		input.Location = &ports.LocationInput{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	record, err := h.service.CheckIn(c.Request().Context(), input)
	metrics.CheckInsTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	if photo != nil {
		metrics.PhotoUploadBytes.Observe(float64(len(photo.Content)))
	}

	return c.JSON(http.StatusCreated, successResponse{
		Message: "check-in recorded",
		Data:    toRecordResponse(record, h.thumbs),
	})
}

// CheckOut handles PUT /api/presensi/check-out.
//
// @Summary      Check out
// @Description  Closes the caller's open session. The message carries the local check-out time.
// @Tags         presensi
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  recordEnvelope
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/presensi/check-out [put]
func (h *AttendanceHandler) CheckOut(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	result, err := h.service.CheckOut(c.Request().Context(), id.UserID)
	metrics.CheckOutsTotal.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	rec := result.Record
	metrics.SessionDuration.Observe(rec.CheckOutTime.Sub(rec.CheckInTime).Hours())

	return c.JSON(http.StatusOK, successResponse{
		Message: "checked out at " + result.LocalTime.Format("15:04:05 MST"),
		Data:    toRecordResponse(rec, h.thumbs),
	})
}

// Update handles PUT /api/presensi/:id.
//
// @Summary      Correct an attendance record
// @Description  Overwrites checkIn and/or checkOut with ISO-8601 timestamps.
// @Tags         presensi
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Record id"
// @Param        body  body      updateRecordRequest  true  "Corrected timestamps"
// @Success      200   {object}  recordEnvelope
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/presensi/{id} [put]
func (h *AttendanceHandler) Update(c echo.Context) error {
	if _, err := ctxIdentity(c); err != nil {
		return err
	}

	var req updateRecordRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return domain.Validationf("invalid payload")
	}

	record, err := h.service.UpdateRecord(c.Request().Context(), ports.UpdateRecordInput{
		RecordID: c.Param("id"),
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
	})
	metrics.RecordOperationsTotal.WithLabelValues("update", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, successResponse{
		Message: "attendance record updated",
		Data:    toRecordResponse(record, h.thumbs),
	})
}

// Delete handles DELETE /api/presensi/:id.
//
// @Summary      Delete an attendance record
// @Description  Only the owner of the record may delete it.
// @Tags         presensi
// @Security     BearerAuth
// @Param        id   path  string  true  "Record id"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/presensi/{id} [delete]
func (h *AttendanceHandler) Delete(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	err = h.service.DeleteRecord(c.Request().Context(), c.Param("id"), id.UserID)
	metrics.RecordOperationsTotal.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchByDate handles GET /api/presensi/search/tanggal.
//
// @Summary      List records of one day
// @Tags         presensi
// @Produce      json
// @Security     BearerAuth
// @Param        tanggal  query     string  true  "Calendar day (YYYY-MM-DD)"
// @Success      200      {object}  recordListEnvelope
// @Failure      400      {object}  errorResponse
// @Failure      401      {object}  errorResponse
// @Failure      500      {object}  errorResponse
// @Router       /api/presensi/search/tanggal [get]
func (h *AttendanceHandler) SearchByDate(c echo.Context) error {
	if _, err := ctxIdentity(c); err != nil {
		return err
	}

	date := c.QueryParam("tanggal")
	if date == "" {
		date = c.QueryParam("date")
	}

	records, err := h.service.SearchByDate(c.Request().Context(), date)
	if err != nil {
		return err
	}
	metrics.QueryRows.WithLabelValues("search_by_date").Observe(float64(len(records)))

	return c.JSON(http.StatusOK, successResponse{
		Message: fmt.Sprintf("found %d attendance records on %s", len(records), date),
		Data:    toRecordList(records, h.thumbs),
	})
}

// bindCheckIn reads coordinates from a JSON body or from form fields.
func bindCheckIn(c echo.Context) (checkInRequest, error) {
	var req checkInRequest
	ctype := c.Request().Header.Get(echo.HeaderContentType)

	if strings.HasPrefix(ctype, echo.MIMEApplicationJSON) {
		if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
			return req, domain.Validationf("invalid payload")
		}
		return req, nil
	}

	var err error
	if req.Latitude, err = formFloat(c, "latitude"); err != nil {
		return req, err
	}
	if req.Longitude, err = formFloat(c, "longitude"); err != nil {
		return req, err
	}
	return req, nil
}

func formFloat(c echo.Context, field string) (*float64, error) {
	raw := strings.TrimSpace(c.FormValue(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.Validationf("%s must be a number", field)
	}
	return &v, nil
}

// readPhoto loads the optional selfie, refusing to read more than the limit.
func (h *AttendanceHandler) readPhoto(c echo.Context) (*ports.PhotoInput, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}

	fh, err := c.FormFile(photoField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, domain.Validationf("invalid photo upload")
	}
	if h.maxPhotoBytes > 0 && fh.Size > h.maxPhotoBytes {
		return nil, domain.Validationf("photo must not exceed %d MB", h.maxPhotoBytes>>20)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxPhotoBytes > 0 {
		r = io.LimitReader(f, h.maxPhotoBytes+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}

	h.log.Debug().Str("filename", fh.Filename).Int64("size", fh.Size).Msg("photo received")
	return &ports.PhotoInput{Filename: fh.Filename, Size: fh.Size, Content: content}, nil
}
