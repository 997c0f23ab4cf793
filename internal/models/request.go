package models

import (
	"time"
)

// RequestStatus represents the review state of a point request
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// IsDecision returns true for the statuses an admin may set
func (s RequestStatus) IsDecision() bool {
	return s == RequestAccepted || s == RequestDeclined
}

// Request is a student's free-text claim that a task was completed.
// Decided requests are deleted, so only pending ones are ever stored.
type Request struct {
	ID              string        `json:"id"`
	StudentID       string        `json:"student_id"`
	TaskDescription string        `json:"task_description"`
	PointsRequested *int          `json:"points_requested,omitempty"`
	Status          RequestStatus `json:"status"`
	CustomPoints    *int          `json:"custom_points,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	// Populated on admin listings
	StudentName  string `json:"student_name,omitempty"`
	StudentEmail string `json:"student_email,omitempty"`
}

// CreatePointRequest is the body of POST /student/request
type CreatePointRequest struct {
	TaskDescription string `json:"taskDescription" validate:"required"`
	PointsRequested *int   `json:"pointsRequested,omitempty" validate:"omitempty,min=0"`
}

// DecideRequest is the body of POST /admin/requests/{id}
type DecideRequest struct {
	Status       RequestStatus `json:"status" validate:"required,oneof=accepted declined"`
	CustomPoints *int          `json:"customPoints,omitempty" validate:"omitempty,min=0"`
}

// AssignPointsRequest is the body of POST /admin/assign-points
type AssignPointsRequest struct {
	UserID string `json:"userId,omitempty" validate:"required_without=Email"`
	Email  string `json:"email,omitempty" validate:"required_without=UserID"`
	Points int    `json:"points" validate:"gt=0"`
}
