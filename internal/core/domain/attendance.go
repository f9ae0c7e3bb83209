package domain

import "time"

// SessionState is the lifecycle state of an attendance record.
type SessionState string

const (
	StateOpen   SessionState = "open"
	StateClosed SessionState = "closed"
)

// Attendance is a single check-in/check-out period owned by one user.
// A nil CheckOutTime means the session is still open.
type Attendance struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	CheckInTime  time.Time  `json:"check_in"`
	CheckOutTime *time.Time `json:"check_out"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	PhotoPath    string     `json:"photo,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsOpen reports whether the session has not been checked out yet.
func (a *Attendance) IsOpen() bool {
	return a.CheckOutTime == nil
}

// State returns the current lifecycle state.
func (a *Attendance) State() SessionState {
	if a.IsOpen() {
		return StateOpen
	}
	return StateClosed
}

// Close checks the session out at the given instant. The stored check-out
// never precedes the check-in, so a clock behind a corrected check-in time
// closes the session at the check-in instant instead.
func (a *Attendance) Close(at time.Time) {
	if at.Before(a.CheckInTime) {
		at = a.CheckInTime
	}
	at = at.UTC()
	a.CheckOutTime = &at
}

// ReportUser is the subset of the owning user joined into report rows.
type ReportUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ReportEntry is an attendance record joined with its owner.
type ReportEntry struct {
	Attendance
	User ReportUser `json:"user"`
}
