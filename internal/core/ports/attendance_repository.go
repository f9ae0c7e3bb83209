package ports

import (
	"context"
	"time"

	"github.com/presensi/attendance-api/internal/core/domain"
)

// AttendanceFilter selects attendance records. Zero values mean "no filter".
// Time bounds are inclusive and compared against the check-in time.
type AttendanceFilter struct {
	UserID      string
	OpenOnly    bool
	CheckInFrom time.Time
	CheckInTo   time.Time
}

// ReportFilter selects report rows joined with their owning user.
type ReportFilter struct {
	EmailContains string // case-insensitive substring of the user's email
	CheckInFrom   time.Time
	CheckInTo     time.Time
}

// AttendanceRepository defines persistence operations for attendance records.
//
// Implementations must guarantee that Create fails with
// domain.ErrOpenSessionExists when the user already owns an open record,
// even under concurrent calls.
type AttendanceRepository interface {
	Create(ctx context.Context, a *domain.Attendance) error
	// FindOne returns the most recent record matching f or domain.ErrRecordNotFound.
	FindOne(ctx context.Context, f AttendanceFilter) (*domain.Attendance, error)
	// FindAll returns every record matching f, newest check-in first.
	FindAll(ctx context.Context, f AttendanceFilter) ([]*domain.Attendance, error)
	FindByID(ctx context.Context, id string) (*domain.Attendance, error)
	Update(ctx context.Context, a *domain.Attendance) error
	Delete(ctx context.Context, id string) error
	// Report returns joined rows, newest check-in first.
	Report(ctx context.Context, f ReportFilter) ([]*domain.ReportEntry, error)
}
