package postgres

import (
	"time"

	"github.com/presensi/attendance-api/internal/core/domain"
)

type userModel struct {
	ID           string `gorm:"primaryKey"`
	Name         string
	Email        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:regular"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

// attendanceModel mirrors the attendances table. The partial unique index
// allows at most one row per user with a NULL check-out.
type attendanceModel struct {
	ID           string     `gorm:"primaryKey"`
	UserID       string     `gorm:"not null;index;index:idx_attendances_open_session,unique,where:check_out_time IS NULL"`
	CheckInTime  time.Time  `gorm:"not null;index"`
	CheckOutTime *time.Time
	Latitude     *float64
	Longitude    *float64
	PhotoPath    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (attendanceModel) TableName() string { return "attendances" }

func toUserModel(u *domain.User) *userModel {
	return &userModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func (m *userModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         m.Role,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func toAttendanceModel(a *domain.Attendance) *attendanceModel {
	return &attendanceModel{
		ID:           a.ID,
		UserID:       a.UserID,
		CheckInTime:  a.CheckInTime.UTC(),
		CheckOutTime: utcPtr(a.CheckOutTime),
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
		PhotoPath:    a.PhotoPath,
		CreatedAt:    a.CreatedAt.UTC(),
		UpdatedAt:    a.UpdatedAt.UTC(),
	}
}

func (m *attendanceModel) toDomain() *domain.Attendance {
	return &domain.Attendance{
		ID:           m.ID,
		UserID:       m.UserID,
		CheckInTime:  m.CheckInTime.UTC(),
		CheckOutTime: utcPtr(m.CheckOutTime),
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		PhotoPath:    m.PhotoPath,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
