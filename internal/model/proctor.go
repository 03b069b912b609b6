package model

import "time"

// Severity grades violations and incidents.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ViolationStatus is server-authoritative; the console only requests transitions.
type ViolationStatus string

const (
	ViolationStatusPending   ViolationStatus = "pending"
	ViolationStatusConfirmed ViolationStatus = "confirmed"
	ViolationStatusDismissed ViolationStatus = "dismissed"
)

// IncidentStatus is server-authoritative; the console only requests transitions.
type IncidentStatus string

const (
	IncidentStatusReported      IncidentStatus = "reported"
	IncidentStatusInvestigating IncidentStatus = "investigating"
	IncidentStatusResolved      IncidentStatus = "resolved"
	IncidentStatusClosed        IncidentStatus = "closed"
)

// Violation is a logged suspicious student action.
type Violation struct {
	ID            int             `json:"id"`
	SessionID     int             `json:"session_id"`
	StudentID     int             `json:"student_id"`
	StudentName   string          `json:"student_name,omitempty"`
	ViolationType string          `json:"violation_type"`
	Severity      Severity        `json:"severity"`
	Description   string          `json:"description"`
	Timestamp     time.Time       `json:"timestamp"`
	Status        ViolationStatus `json:"status"`
}

// CreateViolationRequest is the proctor payload for logging a violation.
type CreateViolationRequest struct {
	SessionID     int      `json:"session_id" binding:"required,min=1"`
	StudentID     int      `json:"student_id" binding:"required,min=1"`
	ViolationType string   `json:"violation_type" binding:"required,oneof=cheating talking phone tab_out multi_device timeout other"`
	Severity      Severity `json:"severity" binding:"required,oneof=low medium high critical"`
	Description   string   `json:"description" binding:"required,min=3,max=2000"`
}

// ViolationTransitionRequest asks upstream to move a violation to Status.
type ViolationTransitionRequest struct {
	Status ViolationStatus `json:"status" binding:"required,oneof=confirmed dismissed"`
	Note   string          `json:"note" binding:"omitempty,max=2000"`
}

// Incident is a logged operational disruption.
type Incident struct {
	ID           int            `json:"id"`
	SessionID    int            `json:"session_id"`
	StudentID    int            `json:"student_id,omitempty"`
	StudentName  string         `json:"student_name,omitempty"`
	IncidentType string         `json:"incident_type"`
	Severity     Severity       `json:"severity"`
	Description  string         `json:"description"`
	Timestamp    time.Time      `json:"timestamp"`
	Status       IncidentStatus `json:"status"`
}

// CreateIncidentRequest is the proctor payload for logging an incident.
type CreateIncidentRequest struct {
	SessionID    int      `json:"session_id" binding:"required,min=1"`
	StudentID    int      `json:"student_id" binding:"omitempty,min=1"`
	IncidentType string   `json:"incident_type" binding:"required,oneof=technical power network equipment other"`
	Severity     Severity `json:"severity" binding:"required,oneof=low medium high critical"`
	Description  string   `json:"description" binding:"required,min=3,max=2000"`
}

// IncidentTransitionRequest asks upstream to move an incident to Status.
type IncidentTransitionRequest struct {
	Status IncidentStatus `json:"status" binding:"required,oneof=investigating resolved closed"`
	Note   string         `json:"note" binding:"omitempty,max=2000"`
}

// IssueReport is a student-raised problem a proctor resolves.
type IssueReport struct {
	ID          int       `json:"id"`
	SessionID   int       `json:"session_id"`
	StudentName string    `json:"student_name,omitempty"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// ResolveIssueRequest is the payload for resolving an issue report.
type ResolveIssueRequest struct {
	Resolution string `json:"resolution" binding:"required,min=3,max=2000"`
}

// LockAttemptRequest is the payload for locking a student attempt.
type LockAttemptRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// ProctorFilter narrows violation and incident lists. Zero values match everything.
type ProctorFilter struct {
	SessionID int      `form:"session_id" binding:"omitempty,min=1"`
	Status    string   `form:"status" binding:"omitempty,max=32"`
	Severity  Severity `form:"severity" binding:"omitempty,oneof=low medium high critical"`
}
