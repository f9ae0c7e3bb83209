package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/presensi/attendance-api/internal/core/domain"
	"github.com/presensi/attendance-api/internal/core/ports"
)

type AttendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a new record. The open-session index turns a concurrent
// second check-in into domain.ErrOpenSessionExists.
func (r *AttendanceRepository) Create(ctx context.Context, a *domain.Attendance) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	err := r.db.WithContext(ctx).Create(toAttendanceModel(a)).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.ErrOpenSessionExists
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domain.ErrUserNotFound
	default:
		return fmt.Errorf("insert attendance: %w", err)
	}
}

func (r *AttendanceRepository) FindOne(ctx context.Context, f ports.AttendanceFilter) (*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if f.UserID != "" && !isUUID(f.UserID) {
		return nil, domain.ErrRecordNotFound
	}

	var m attendanceModel
	err := r.filtered(ctx, f).Order("check_in_time DESC").Limit(1).Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return m.toDomain(), nil
}

func (r *AttendanceRepository) FindAll(ctx context.Context, f ports.AttendanceFilter) ([]*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if f.UserID != "" && !isUUID(f.UserID) {
		return []*domain.Attendance{}, nil
	}

	var models []attendanceModel
	if err := r.filtered(ctx, f).Order("check_in_time DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	out := make([]*domain.Attendance, 0, len(models))
	for i := range models {
		out = append(out, models[i].toDomain())
	}
	return out, nil
}

func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if !isUUID(id) {
		return nil, domain.ErrRecordNotFound
	}

	var m attendanceModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("find attendance %s: %w", id, err)
	}
	return m.toDomain(), nil
}

// Update persists the mutable columns: both timestamps and updated_at.
func (r *AttendanceRepository) Update(ctx context.Context, a *domain.Attendance) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if !isUUID(a.ID) {
		return domain.ErrRecordNotFound
	}

	res := r.db.WithContext(ctx).
		Model(&attendanceModel{}).
		Where("id = ?", a.ID).
		Updates(map[string]interface{}{
			"check_in_time":  a.CheckInTime.UTC(),
			"check_out_time": utcPtr(a.CheckOutTime),
			"updated_at":     a.UpdatedAt.UTC(),
		})
	switch {
	case errors.Is(res.Error, gorm.ErrDuplicatedKey):
		return domain.ErrOpenSessionExists
	case res.Error != nil:
		return fmt.Errorf("update attendance %s: %w", a.ID, res.Error)
	case res.RowsAffected == 0:
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *AttendanceRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if !isUUID(id) {
		return domain.ErrRecordNotFound
	}

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&attendanceModel{})
	if res.Error != nil {
		return fmt.Errorf("delete attendance %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// reportRow receives the joined columns. The record is a named embedded
// field because gorm ignores embedded structs of unexported types.
type reportRow struct {
	Record    attendanceModel `gorm:"embedded"`
	UserEmail string
	UserRole  string
}

// Report joins every matching record with its owner, newest check-in first.
func (r *AttendanceRepository) Report(ctx context.Context, f ports.ReportFilter) ([]*domain.ReportEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := r.db.WithContext(ctx).
		Table("attendances").
		Select("attendances.*, users.email AS user_email, users.role AS user_role").
		Joins("JOIN users ON users.id = attendances.user_id")

	if f.EmailContains != "" {
		q = q.Where(`LOWER(users.email) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(f.EmailContains))+"%")
	}
	q = withCheckInRange(q, "attendances.check_in_time", f.CheckInFrom, f.CheckInTo)

	var rows []reportRow
	if err := q.Order("attendances.check_in_time DESC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("attendance report: %w", err)
	}

	out := make([]*domain.ReportEntry, 0, len(rows))
	for i := range rows {
		out = append(out, &domain.ReportEntry{
			Attendance: *rows[i].Record.toDomain(),
			User: domain.ReportUser{
				ID:    rows[i].Record.UserID,
				Email: rows[i].UserEmail,
				Role:  rows[i].UserRole,
			},
		})
	}
	return out, nil
}

func (r *AttendanceRepository) filtered(ctx context.Context, f ports.AttendanceFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&attendanceModel{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.OpenOnly {
		q = q.Where("check_out_time IS NULL")
	}
	return withCheckInRange(q, "check_in_time", f.CheckInFrom, f.CheckInTo)
}

func withCheckInRange(q *gorm.DB, column string, from, to time.Time) *gorm.DB {
	if !from.IsZero() {
		q = q.Where(column+" >= ?", from.UTC())
	}
	if !to.IsZero() {
		q = q.Where(column+" <= ?", to.UTC())
	}
	return q
}

// isUUID guards lookups by id: the id columns are UUID typed and Postgres
// rejects any other literal instead of matching nothing.
func isUUID(id string) bool {
	return uuid.Validate(id) == nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
