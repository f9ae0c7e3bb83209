package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/presensi/attendance-api/internal/api/middleware"
	"github.com/presensi/attendance-api/internal/core/domain"
	"github.com/presensi/attendance-api/internal/core/ports"
)

type stubAttendanceService struct {
	checkInFn  func(ctx context.Context, input ports.CheckInInput) (*domain.Attendance, error)
	checkOutFn func(ctx context.Context, userID string) (*ports.CheckOutResult, error)
	updateFn   func(ctx context.Context, input ports.UpdateRecordInput) (*domain.Attendance, error)
	deleteFn   func(ctx context.Context, recordID, callerID string) error
	searchFn   func(ctx context.Context, date string) ([]*domain.Attendance, error)
	reportFn   func(ctx context.Context, input ports.ReportInput) ([]*domain.ReportEntry, error)
}

func (s *stubAttendanceService) CheckIn(ctx context.Context, input ports.CheckInInput) (*domain.Attendance, error) {
	return s.checkInFn(ctx, input)
}

func (s *stubAttendanceService) CheckOut(ctx context.Context, userID string) (*ports.CheckOutResult, error) {
	return s.checkOutFn(ctx, userID)
}

func (s *stubAttendanceService) UpdateRecord(ctx context.Context, input ports.UpdateRecordInput) (*domain.Attendance, error) {
	return s.updateFn(ctx, input)
}

func (s *stubAttendanceService) DeleteRecord(ctx context.Context, recordID, callerID string) error {
	return s.deleteFn(ctx, recordID, callerID)
}

func (s *stubAttendanceService) SearchByDate(ctx context.Context, date string) ([]*domain.Attendance, error) {
	return s.searchFn(ctx, date)
}

func (s *stubAttendanceService) DailyReport(ctx context.Context, input ports.ReportInput) ([]*domain.ReportEntry, error) {
	return s.reportFn(ctx, input)
}

type prefixThumbs struct{}

func (prefixThumbs) ThumbnailRef(ref string) string {
	return strings.Replace(ref, "uploads/", "uploads/thumbs/", 1)
}

var wib = time.FixedZone("WIB", 7*60*60)

func sampleRecord() *domain.Attendance {
	in := time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC)
	return &domain.Attendance{
		ID:          "rec-1",
		UserID:      "user-1",
		CheckInTime: in,
		PhotoPath:   "uploads/abc.jpg",
		CreatedAt:   in,
		UpdatedAt:   in,
	}
}

func authenticate(c echo.Context, userID, role string) {
	c.Set(middleware.ContextUserID, userID)
	c.Set(middleware.ContextEmail, userID+"@example.com")
	c.Set(middleware.ContextRole, role)
}

func multipartBody(t *testing.T, fields map[string]string, photo []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if photo != nil {
		part, err := w.CreateFormFile(photoField, "selfie.png")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(photo); err != nil {
			t.Fatalf("write photo: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func TestAttendanceHandler_CheckIn_JSON(t *testing.T) {
	e := newEcho()
	var got ports.CheckInInput
	stub := &stubAttendanceService{
		checkInFn: func(ctx context.Context, input ports.CheckInInput) (*domain.Attendance, error) {
			got = input
			return sampleRecord(), nil
		},
	}
	h := NewAttendanceHandler(stub, prefixThumbs{}, 1<<20, zerolog.Nop())

	c, rec := jsonContext(e, http.MethodPost, "/api/presensi/check-in", `{"latitude":-7.77,"longitude":110.37}`)
	authenticate(c, "user-1", domain.RoleRegular)

	if err := h.CheckIn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got.UserID != "user-1" || got.Location == nil || got.Location.Latitude != -7.77 || got.Location.Longitude != 110.37 {
		t.Fatalf("unexpected input: %+v", got)
	}
	if got.Photo != nil {
		t.Fatalf("JSON requests carry no photo")
	}

	var resp struct {
		Message string         `json:"message"`
		Data    recordResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Data.ID != "rec-1" || resp.Data.State != "open" || resp.Data.CheckOut != nil {
		t.Fatalf("unexpected record: %+v", resp.Data)
	}
	if resp.Data.Thumbnail != "uploads/thumbs/abc.jpg" {
		t.Fatalf("unexpected thumbnail: %q", resp.Data.Thumbnail)
	}
}

func TestAttendanceHandler_CheckIn_Multipart(t *testing.T) {
	e := newEcho()
	photo := []byte("\x89PNG\r\n\x1a\nrest")
	var got ports.CheckInInput
	stub := &stubAttendanceService{
		checkInFn: func(ctx context.Context, input ports.CheckInInput) (*domain.Attendance, error) {
			got = input
			return sampleRecord(), nil
		},
	}
	h := NewAttendanceHandler(stub, nil, 1<<20, zerolog.Nop())

	body, ctype := multipartBody(t, map[string]string{"latitude": "-7.5", "longitude": "110"}, photo)
	req := httptest.NewRequest(http.MethodPost, "/api/presensi/check-in", body)
	req.Header.Set(echo.HeaderContentType, ctype)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	authenticate(c, "user-1", domain.RoleRegular)

	if err := h.CheckIn(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.Photo == nil || !bytes.Equal(got.Photo.Content, photo) || got.Photo.Filename != "selfie.png" {
		t.Fatalf("photo not forwarded: %+v", got.Photo)
	}
	if got.Location == nil || got.Location.Latitude != -7.5 {
		t.Fatalf("coordinates not forwarded: %+v", got.Location)
	}
}

func TestAttendanceHandler_CheckIn_RejectsBadInput(t *testing.T) {
	e := newEcho()
	stub := &stubAttendanceService{
		checkInFn: func(ctx context.Context, input ports.CheckInInput) (*domain.Attendance, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}
	h := NewAttendanceHandler(stub, nil, 8, zerolog.Nop())

	cases := map[string]string{
		"latitude only":       `{"latitude":10}`,
		"latitude too large":  `{"latitude":91,"longitude":0}`,
		"longitude too small": `{"latitude":0,"longitude":-181}`,
		"malformed json":      `{"latitude":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := jsonContext(e, http.MethodPost, "/api/presensi/check-in", body)
			authenticate(c, "user-1", domain.RoleRegular)
			if err := h.CheckIn(c); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	t.Run("photo too large", func(t *testing.T) {
		body, ctype := multipartBody(t, nil, bytes.Repeat([]byte{0xff}, 16))
		req := httptest.NewRequest(http.MethodPost, "/api/presensi/check-in", body)
		req.Header.Set(echo.HeaderContentType, ctype)
		c := e.NewContext(req, httptest.NewRecorder())
		authenticate(c, "user-1", domain.RoleRegular)
		if err := h.CheckIn(c); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestAttendanceHandler_CheckIn_RequiresIdentity(t *testing.T) {
	e := newEcho()
	h := NewAttendanceHandler(&stubAttendanceService{}, nil, 0, zerolog.Nop())

	c, _ := jsonContext(e, http.MethodPost, "/api/presensi/check-in", `{}`)
	if err := h.CheckIn(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated error, got %v", err)
	}
}

func TestAttendanceHandler_CheckIn_Conflict(t *testing.T) {
	e := newEcho()
	stub := &stubAttendanceService{
		checkInFn: func(ctx context.Context, input ports.CheckInInput) (*domain.Attendance, error) {
			return nil, domain.ErrAlreadyCheckedIn
		},
	}
	h := NewAttendanceHandler(stub, nil, 0, zerolog.Nop())

	c, _ := jsonContext(e, http.MethodPost, "/api/presensi/check-in", `{}`)
	authenticate(c, "user-1", domain.RoleRegular)
	if err := h.CheckIn(c); !errors.Is(err, domain.ErrAlreadyCheckedIn) {
		t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
	}
}

func TestAttendanceHandler_CheckOut(t *testing.T) {
	e := newEcho()
	stub := &stubAttendanceService{
		checkOutFn: func(ctx context.Context, userID string) (*ports.CheckOutResult, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user: %s", userID)
			}
			rec := sampleRecord()
			rec.Close(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
			return &ports.CheckOutResult{Record: rec, LocalTime: rec.CheckOutTime.In(wib)}, nil
		},
	}
	h := NewAttendanceHandler(stub, nil, 0, zerolog.Nop())

	c, rec := jsonContext(e, http.MethodPut, "/api/presensi/check-out", "")
	authenticate(c, "user-1", domain.RoleRegular)

	if err := h.CheckOut(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Message string         `json:"message"`
		Data    recordResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Message != "checked out at 17:00:00 WIB" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
	if resp.Data.State != "closed" || resp.Data.CheckOut == nil {
		t.Fatalf("expected closed record, got %+v", resp.Data)
	}
}

func TestAttendanceHandler_CheckOut_NoOpenSession(t *testing.T) {
	e := newEcho()
	stub := &stubAttendanceService{
		checkOutFn: func(ctx context.Context, userID string) (*ports.CheckOutResult, error) {
			return nil, domain.ErrNoOpenSession
		},
	}
	h := NewAttendanceHandler(stub, nil, 0, zerolog.Nop())

	c, _ := jsonContext(e, http.MethodPut, "/api/presensi/check-out", "")
	authenticate(c, "user-1", domain.RoleRegular)
	if err := h.CheckOut(c); !errors.Is(err, domain.ErrNoOpenSession) {
		t.Fatalf("expected ErrNoOpenSession, got %v", err)
	}
}

func TestAttendanceHandler_Update(t *testing.T) {
	e := newEcho()
	var got ports.UpdateRecordInput
	stub := &stubAttendanceService{
		updateFn: func(ctx context.Context, input ports.UpdateRecordInput) (*domain.Attendance, error) {
			got = input
			return sampleRecord(), nil
		},
	}
	h := NewAttendanceHandler(stub, nil, 0, zerolog.Nop())

	c, rec := jsonContext(e, http.MethodPut, "/api/presensi/rec-1", `{"checkOut":"2024-05-01T17:00:00+07:00"}`)
	c.SetParamNames("id")
	c.SetParamValues("rec-1")
	authenticate(c, "user-1", domain.RoleRegular)

	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got.RecordID != "rec-1" || got.CheckIn != nil || got.CheckOut == nil || *got.CheckOut != "2024-05-01T17:00:00+07:00" {
		t.Fatalf("unexpected input: %+v", got)
	}
}

func TestAttendanceHandler_Delete(t *testing.T) {
	e := newEcho()
	stub := &stubAttendanceService{
		deleteFn: func(ctx context.Context, recordID, callerID string) error {
			if recordID != "rec-1" || callerID != "user-2" {
				t.Fatalf("unexpected args: %s %s", recordID, callerID)
			}
			return domain.ErrNotOwner
		},
	}
	h := NewAttendanceHandler(stub, nil, 0, zerolog.Nop())

	c, _ := jsonContext(e, http.MethodDelete, "/api/presensi/rec-1", "")
	c.SetParamNames("id")
	c.SetParamValues("rec-1")
	authenticate(c, "user-2", domain.RoleRegular)

	if err := h.Delete(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}

	stub.deleteFn = func(ctx context.Context, recordID, callerID string) error { return nil }
	c, rec := jsonContext(e, http.MethodDelete, "/api/presensi/rec-1", "")
	c.SetParamNames("id")
	c.SetParamValues("rec-1")
	authenticate(c, "user-1", domain.RoleRegular)

	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestAttendanceHandler_SearchByDate(t *testing.T) {
	e := newEcho()
	var got string
	stub := &stubAttendanceService{
		searchFn: func(ctx context.Context, date string) ([]*domain.Attendance, error) {
			got = date
			return []*domain.Attendance{sampleRecord()}, nil
		},
	}
	h := NewAttendanceHandler(stub, nil, 0, zerolog.Nop())

	for _, target := range []string{
		"/api/presensi/search/tanggal?tanggal=2024-05-01",
		"/api/presensi/search/tanggal?date=2024-05-01",
	} {
		got = ""
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		authenticate(c, "user-1", domain.RoleRegular)

		if err := h.SearchByDate(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		if got != "2024-05-01" {
			t.Fatalf("%s: expected date to be forwarded, got %q", target, got)
		}

		var resp struct {
			Data []recordResponse `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(resp.Data) != 1 {
			t.Fatalf("expected one record, got %d", len(resp.Data))
		}
	}
}
