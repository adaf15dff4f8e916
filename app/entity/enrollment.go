package entity

import "time"

const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCompleted = "completed"
	EnrollmentStatusExpired   = "expired"
	EnrollmentStatusCancelled = "cancelled"
)

// Enrollment grants a user access to a course. Unique per (UserID, CourseID).
type Enrollment struct {
	ID uint64

	UserID   uint64
	CourseID uint64

	Status          string
	EnrolledAt      time.Time
	AccessExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasAccess reports whether the enrollment currently grants access at now.
func (e *Enrollment) HasAccess(now time.Time) bool {
	if e == nil || e.Status != EnrollmentStatusActive {
		return false
	}
	return e.AccessExpiresAt == nil || e.AccessExpiresAt.After(now)
}
