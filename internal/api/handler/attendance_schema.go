package handler

import "time"

// errorResponse documents the envelope rendered by the central error handler.
type errorResponse struct {
	Error   string `json:"error"   example:"conflict"`
	Message string `json:"message" example:"already checked in today"`
}

// successResponse is the envelope of every successful JSON response.
type successResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// --- Request types ---

// checkInRequest carries the optional coordinates. Multipart requests send
// them as form fields next to the "image" file.
type checkInRequest struct {
	Latitude  *float64 `json:"latitude"  form:"latitude"  validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" form:"longitude" validate:"omitempty,min=-180,max=180"`
}

type updateRecordRequest struct {
	CheckIn  *string `json:"checkIn"  example:"2024-05-01T08:00:00+07:00"`
	CheckOut *string `json:"checkOut" example:"2024-05-01T17:00:00+07:00"`
}

// --- Response types ---

type recordResponse struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	CheckIn   time.Time  `json:"check_in"`
	CheckOut  *time.Time `json:"check_out"`
	State     string     `json:"state" example:"open"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Photo     string     `json:"photo,omitempty"     example:"uploads/9b2f0c1e.jpg"`
	Thumbnail string     `json:"thumbnail,omitempty" example:"uploads/thumbs/9b2f0c1e.jpg"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type recordEnvelope struct {
	Message string         `json:"message"`
	Data    recordResponse `json:"data"`
}

type recordListEnvelope struct {
	Message string           `json:"message"`
	Data    []recordResponse `json:"data"`
}

type reportUserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type reportRowResponse struct {
	recordResponse
	User reportUserResponse `json:"user"`
}

type reportResponse struct {
	Message    string              `json:"message"`
	ReportDate string              `json:"report_date" example:"2024-05-01"`
	Data       []reportRowResponse `json:"data"`
}
