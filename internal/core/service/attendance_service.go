package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/presensi/attendance-api/internal/core/domain"
	"github.com/presensi/attendance-api/internal/core/ports"
)

// CheckInPolicy decides what blocks a new check-in.
type CheckInPolicy string

const (
	// PolicyCalendarDay rejects a check-in when the user already has any
	// record whose check-in falls on the current calendar day.
	PolicyCalendarDay CheckInPolicy = "calendar_day"
	// PolicyOpenSession rejects a check-in only while a session is open.
	PolicyOpenSession CheckInPolicy = "open_session"
)

// DefaultMaxPhotoBytes is the selfie size limit used when none is configured.
const DefaultMaxPhotoBytes int64 = 5 << 20

// allowedPhotoTypes maps accepted media types to their file extension.
var allowedPhotoTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// AttendanceOptions tunes the business rules of AttendanceService.
type AttendanceOptions struct {
	Policy        CheckInPolicy
	Location      *time.Location // zone used for calendar-day boundaries
	PhotoRequired bool
	MaxPhotoBytes int64
	Now           func() time.Time
}

// AttendanceService enforces the attendance session rules.
type AttendanceService struct {
	repo   ports.AttendanceRepository
	photos ports.PhotoStore
	locker ports.CheckInLocker // optional
	opts   AttendanceOptions
	logger zerolog.Logger
}

// NewAttendanceService builds the service. locker may be nil, in which case
// the repository's open-session constraint is the only concurrency guard.
func NewAttendanceService(
	repo ports.AttendanceRepository,
	photos ports.PhotoStore,
	locker ports.CheckInLocker,
	opts AttendanceOptions,
	logger zerolog.Logger,
) *AttendanceService {
	if opts.Policy == "" {
		opts.Policy = PolicyCalendarDay
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxPhotoBytes <= 0 {
		opts.MaxPhotoBytes = DefaultMaxPhotoBytes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AttendanceService{
		repo:   repo,
		photos: photos,
		locker: locker,
		opts:   opts,
		logger: logger,
	}
}

func (s *AttendanceService) now() time.Time {
	return s.opts.Now().UTC()
}

// CheckIn opens a new attendance session for the caller.
func (s *AttendanceService) CheckIn(ctx context.Context, in ports.CheckInInput) (*domain.Attendance, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, fmt.Errorf("%w: missing caller identity", domain.ErrUnauthenticated)
	}
	if err := validateLocation(in.Location); err != nil {
		return nil, err
	}
	mimeType, err := s.validatePhoto(in.Photo)
	if err != nil {
		return nil, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, in.UserID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", in.UserID).Msg("check-in lock not acquired")
			return nil, err
		}
		defer release()
	}

	now := s.now()
	if err := s.ensureCanCheckIn(ctx, in.UserID, now); err != nil {
		return nil, err
	}

	record := &domain.Attendance{
		ID:          uuid.NewString(),
		UserID:      in.UserID,
		CheckInTime: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Location != nil {
		lat, lng := in.Location.Latitude, in.Location.Longitude
		record.Latitude = &lat
		record.Longitude = &lng
	}

	if in.Photo != nil {
		ref, err := s.photos.Save(ctx, in.UserID, in.Photo.Content, mimeType)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", in.UserID).Msg("failed to store check-in photo")
			return nil, fmt.Errorf("check in: store photo: %w", err)
		}
		record.PhotoPath = ref
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if record.PhotoPath != "" {
			s.discardPhoto(ctx, record.PhotoPath)
		}
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Info().Str("user_id", in.UserID).Msg("concurrent check-in rejected by store")
			return nil, err
		}
		s.logger.Error().Err(err).Str("user_id", in.UserID).Msg("failed to create attendance record")
		return nil, fmt.Errorf("check in: %w", err)
	}

	s.logger.Info().
		Str("record_id", record.ID).
		Str("user_id", record.UserID).
		Bool("has_location", record.Latitude != nil).
		Bool("has_photo", record.PhotoPath != "").
		Msg("checked in")

	return record, nil
}

// ensureCanCheckIn applies the configured policy. An open session always
// blocks a check-in, whatever the policy.
func (s *AttendanceService) ensureCanCheckIn(ctx context.Context, userID string, now time.Time) error {
	if s.opts.Policy == PolicyCalendarDay {
		from, to := dayWindow(now, s.opts.Location)
		_, err := s.repo.FindOne(ctx, ports.AttendanceFilter{UserID: userID, CheckInFrom: from, CheckInTo: to})
		switch {
		case err == nil:
			return domain.ErrAlreadyCheckedIn
		case !errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("check in: look up today's record: %w", err)
		}
	}

	_, err := s.repo.FindOne(ctx, ports.AttendanceFilter{UserID: userID, OpenOnly: true})
	switch {
	case err == nil:
		return domain.ErrOpenSessionExists
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("check in: look up open session: %w", err)
	}
	return nil
}

// CheckOut closes the caller's open session.
func (s *AttendanceService) CheckOut(ctx context.Context, userID string) (*ports.CheckOutResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: missing caller identity", domain.ErrUnauthenticated)
	}

	record, err := s.repo.FindOne(ctx, ports.AttendanceFilter{UserID: userID, OpenOnly: true})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoOpenSession
		}
		return nil, fmt.Errorf("check out: %w", err)
	}

	now := s.now()
	record.Close(now)
	record.UpdatedAt = now

	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoOpenSession
		}
		s.logger.Error().Err(err).Str("record_id", record.ID).Msg("failed to close attendance record")
		return nil, fmt.Errorf("check out: %w", err)
	}

	s.logger.Info().Str("record_id", record.ID).Str("user_id", userID).Msg("checked out")

	return &ports.CheckOutResult{
		Record:    record,
		LocalTime: record.CheckOutTime.In(s.opts.Location),
	}, nil
}

// UpdateRecord applies an administrative correction to either timestamp.
func (s *AttendanceService) UpdateRecord(ctx context.Context, in ports.UpdateRecordInput) (*domain.Attendance, error) {
	if in.CheckIn == nil && in.CheckOut == nil {
		return nil, domain.Validationf("request must contain checkIn or checkOut")
	}

	var checkIn, checkOut time.Time
	var err error
	if in.CheckIn != nil {
		if checkIn, err = parseTimestamp("checkIn", *in.CheckIn, s.opts.Location); err != nil {
			return nil, err
		}
	}
	if in.CheckOut != nil {
		if checkOut, err = parseTimestamp("checkOut", *in.CheckOut, s.opts.Location); err != nil {
			return nil, err
		}
	}

	record, err := s.repo.FindByID(ctx, in.RecordID)
	if err != nil {
		return nil, err
	}

	if in.CheckIn != nil {
		record.CheckInTime = checkIn
	}
	if in.CheckOut != nil {
		record.CheckOutTime = &checkOut
	}
	if record.CheckOutTime != nil && record.CheckOutTime.Before(record.CheckInTime) {
		return nil, domain.Validationf("checkOut must not be earlier than checkIn")
	}
	record.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, record); err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("record_id", record.ID).Msg("failed to correct attendance record")
		return nil, fmt.Errorf("update record: %w", err)
	}

	s.logger.Info().
		Str("record_id", record.ID).
		Bool("check_in_changed", in.CheckIn != nil).
		Bool("check_out_changed", in.CheckOut != nil).
		Msg("attendance record corrected")

	return record, nil
}

// DeleteRecord removes a record owned by the caller.
func (s *AttendanceService) DeleteRecord(ctx context.Context, recordID, callerID string) error {
	record, err := s.repo.FindByID(ctx, recordID)
	if err != nil {
		return err
	}
	if record.UserID != callerID {
		s.logger.Warn().Str("record_id", recordID).Str("caller_id", callerID).Msg("delete attempted by non-owner")
		return domain.ErrNotOwner
	}

	if err := s.repo.Delete(ctx, recordID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete record: %w", err)
	}

	if record.PhotoPath != "" {
		s.discardPhoto(ctx, record.PhotoPath)
	}

	s.logger.Info().Str("record_id", recordID).Str("user_id", callerID).Msg("attendance record deleted")
	return nil
}

// SearchByDate lists every record checked in on the given calendar day.
// An empty result is not an error.
func (s *AttendanceService) SearchByDate(ctx context.Context, date string) ([]*domain.Attendance, error) {
	if strings.TrimSpace(date) == "" {
		return nil, domain.Validationf("date is required (YYYY-MM-DD)")
	}
	from, to, err := parseDay("date", date, s.opts.Location)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.FindAll(ctx, ports.AttendanceFilter{CheckInFrom: from, CheckInTo: to})
	if err != nil {
		return nil, fmt.Errorf("search by date: %w", err)
	}
	if records == nil {
		records = []*domain.Attendance{}
	}
	return records, nil
}

// DailyReport lists records joined with their owners for administrators.
func (s *AttendanceService) DailyReport(ctx context.Context, in ports.ReportInput) ([]*domain.ReportEntry, error) {
	if in.CallerRole != domain.RoleAdmin {
		return nil, domain.ErrAdminOnly
	}

	from, to, err := reportRange(in.StartDate, in.EndDate, s.opts.Location)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.Report(ctx, ports.ReportFilter{
		EmailContains: strings.TrimSpace(in.Email),
		CheckInFrom:   from,
		CheckInTo:     to,
	})
	if err != nil {
		return nil, fmt.Errorf("daily report: %w", err)
	}
	if entries == nil {
		entries = []*domain.ReportEntry{}
	}
	return entries, nil
}

// Location returns the zone used for calendar-day boundaries.
func (s *AttendanceService) Location() *time.Location {
	return s.opts.Location
}

func (s *AttendanceService) validatePhoto(p *ports.PhotoInput) (string, error) {
	if p == nil {
		if s.opts.PhotoRequired {
			return "", domain.Validationf("a selfie photo is required to check in")
		}
		return "", nil
	}
	if p.Size > s.opts.MaxPhotoBytes || int64(len(p.Content)) > s.opts.MaxPhotoBytes {
		return "", domain.Validationf("photo must not exceed %d MB", s.opts.MaxPhotoBytes>>20)
	}
	if len(p.Content) == 0 {
		return "", domain.Validationf("photo is empty")
	}

	mt := mimetype.Detect(p.Content)
	for accepted := range allowedPhotoTypes {
		if mt.Is(accepted) {
			return accepted, nil
		}
	}
	return "", domain.Validationf("photo must be a JPEG, PNG or WebP image, got %s", mt.String())
}

func validateLocation(l *ports.LocationInput) error {
	if l == nil {
		return nil
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		return domain.Validationf("latitude must be between -90 and 90")
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return domain.Validationf("longitude must be between -180 and 180")
	}
	return nil
}

func (s *AttendanceService) discardPhoto(ctx context.Context, ref string) {
	if err := s.photos.Delete(ctx, ref); err != nil {
		s.logger.Warn().Err(err).Str("photo", ref).Msg("failed to remove photo")
	}
}

// PhotoExtension returns the file extension used for an accepted media type.
func PhotoExtension(mimeType string) string {
	return allowedPhotoTypes[mimeType]
}
