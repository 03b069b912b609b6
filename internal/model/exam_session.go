package model

import "time"

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusOngoing   SessionStatus = "ongoing"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// Valid reports whether s is one of the four known states.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusScheduled, SessionStatusOngoing, SessionStatusCompleted, SessionStatusCancelled:
		return true
	}
	return false
}

// ExamSession is a timed sitting of an exam as returned by upstream.
// Status is the authoritative value persisted upstream and may be empty for legacy rows.
type ExamSession struct {
	ID          int           `json:"id"`
	ExamID      int           `json:"exam_id"`
	ExamTitle   string        `json:"exam_title,omitempty"`
	SubjectName string        `json:"subject_name,omitempty"`
	StartAt     time.Time     `json:"start_at"`
	EndAt       time.Time     `json:"end_at"`
	AccessCode  string        `json:"access_code"`
	Status      SessionStatus `json:"status,omitempty"`
}

// SessionView is an ExamSession decorated with the status derived at request time.
type SessionView struct {
	ExamSession
	DisplayStatus SessionStatus `json:"display_status"`
}

// SessionRequest is the payload for creating or updating an exam session.
// EndAt is ignored whenever the selected exam has a duration.
type SessionRequest struct {
	ExamID     int        `json:"exam_id" binding:"required,min=1"`
	StartAt    time.Time  `json:"start_at" binding:"required"`
	EndAt      *time.Time `json:"end_at" binding:"omitempty"`
	AccessCode string     `json:"access_code" binding:"omitempty,access_code"`
	ProctorIDs []int      `json:"proctor_ids" binding:"omitempty,max=20,dive,min=1"`
}

// UpstreamSessionPayload is the body upstream expects on POST/PUT /sessions.
type UpstreamSessionPayload struct {
	ExamID     int       `json:"exam_id"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
	AccessCode string    `json:"access_code"`
}

// SessionFilter narrows a session list. Zero values match everything.
type SessionFilter struct {
	SubjectName string        `form:"subject"`
	Status      SessionStatus `form:"status" binding:"omitempty,oneof=scheduled ongoing completed cancelled"`
	Search      string        `form:"q" binding:"omitempty,max=100"`
}

// StatusCounts tallies sessions by display status.
type StatusCounts struct {
	Scheduled int `json:"scheduled"`
	Ongoing   int `json:"ongoing"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// Add increments the bucket for s. Unknown values are ignored.
func (c *StatusCounts) Add(s SessionStatus) {
	switch s {
	case SessionStatusScheduled:
		c.Scheduled++
	case SessionStatusOngoing:
		c.Ongoing++
	case SessionStatusCompleted:
		c.Completed++
	case SessionStatusCancelled:
		c.Cancelled++
	}
}

// Proctor is a user eligible for session assignment.
type Proctor struct {
	ID       int    `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
}

// AssignProctorsPayload is the upstream body for POST /sessions/:id/proctors.
type AssignProctorsPayload struct {
	ProctorIDs []int `json:"proctorIds"`
}

// SessionMutationResult is returned by create/update. Warnings carry partial failures
// of dependent calls; the primary action has already succeeded when they are present.
type SessionMutationResult struct {
	Session  SessionView `json:"session"`
	Warnings []Warning   `json:"-"`
}

// Warning is a non-fatal notice attached to a successful response.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
