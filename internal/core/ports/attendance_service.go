package ports

import (
	"context"
	"time"

	"github.com/presensi/attendance-api/internal/core/domain"
)

// LocationInput carries optional coordinates captured at check-in.
type LocationInput struct {
	Latitude  float64
	Longitude float64
}

// PhotoInput is an uploaded selfie as received by the transport layer.
// Size is the size reported by the client; Content holds the bytes read,
// which may be truncated just past the configured limit.
type PhotoInput struct {
	Filename string
	Size     int64
	Content  []byte
}

// CheckInInput is the DTO passed from the transport layer to CheckIn.
type CheckInInput struct {
	UserID   string
	Location *LocationInput // optional
	Photo    *PhotoInput    // optional unless photos are required
}

// UpdateRecordInput is an administrative correction. Nil fields are left
// untouched; present fields must be ISO-8601 timestamps.
type UpdateRecordInput struct {
	RecordID string
	CheckIn  *string
	CheckOut *string
}

// ReportInput carries the caller's role and the optional report filters.
// Dates use the YYYY-MM-DD layout.
type ReportInput struct {
	CallerRole string
	Email      string
	StartDate  string
	EndDate    string
}

// CheckOutResult is returned by CheckOut.
type CheckOutResult struct {
	Record *domain.Attendance
	// LocalTime is the check-out instant in the configured time zone.
	LocalTime time.Time
}

// AttendanceService defines the attendance session use cases.
type AttendanceService interface {
	CheckIn(ctx context.Context, input CheckInInput) (*domain.Attendance, error)
	CheckOut(ctx context.Context, userID string) (*CheckOutResult, error)
	UpdateRecord(ctx context.Context, input UpdateRecordInput) (*domain.Attendance, error)
	DeleteRecord(ctx context.Context, recordID, callerID string) error
	SearchByDate(ctx context.Context, date string) ([]*domain.Attendance, error)
	DailyReport(ctx context.Context, input ReportInput) ([]*domain.ReportEntry, error)
}
