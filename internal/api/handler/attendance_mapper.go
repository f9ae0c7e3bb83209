package handler

import (
	"github.com/presensi/attendance-api/internal/core/domain"
)

// ThumbnailResolver derives the thumbnail reference of a stored photo.
type ThumbnailResolver interface {
	ThumbnailRef(ref string) string
}

// --- Domain → HTTP response ---

func toRecordResponse(a *domain.Attendance, thumbs ThumbnailResolver) recordResponse {
	resp := recordResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		CheckIn:   a.CheckInTime.UTC(),
		State:     string(a.State()),
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
		Photo:     a.PhotoPath,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
	if a.CheckOutTime != nil {
		out := a.CheckOutTime.UTC()
		resp.CheckOut = &out
	}
	if a.PhotoPath != "" && thumbs != nil {
		resp.Thumbnail = thumbs.ThumbnailRef(a.PhotoPath)
	}
	return resp
}

func toRecordList(records []*domain.Attendance, thumbs ThumbnailResolver) []recordResponse {
	out := make([]recordResponse, 0, len(records))
	for _, a := range records {
		out = append(out, toRecordResponse(a, thumbs))
	}
	return out
}

func toReportRows(entries []*domain.ReportEntry, thumbs ThumbnailResolver) []reportRowResponse {
	out := make([]reportRowResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, reportRowResponse{
			recordResponse: toRecordResponse(&e.Attendance, thumbs),
			User: reportUserResponse{
				ID:    e.User.ID,
				Email: e.User.Email,
				Role:  e.User.Role,
			},
		})
	}
	return out
}
