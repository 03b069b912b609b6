package model

import (
	"encoding/json"
	"time"
)

// ActiveSession is one live session row of the proctor dashboard.
type ActiveSession struct {
	SessionID     int    `json:"session_id"`
	ExamTitle     string `json:"exam_title"`
	Room          string `json:"room"`
	TotalStudents int    `json:"total_students"`
	Taking        int    `json:"taking"`
	Submitted     int    `json:"submitted"`
	Disconnected  int    `json:"disconnected"`
	Absent        int    `json:"absent"`
	Violations    int    `json:"violations"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	TimeRemaining int    `json:"time_remaining"`
}

// ProctorDashboard is upstream GET /proctor/dashboard.
type ProctorDashboard struct {
	ActiveSessions   []ActiveSession `json:"activeSessions"`
	RecentViolations []Violation     `json:"recentViolations"`
	PendingIncidents []Incident      `json:"pendingIncidents"`
	Statistics       map[string]int  `json:"statistics"`
}

// AssignedSession is one row of upstream GET /proctor/assigned-sessions.
type AssignedSession struct {
	ExamSession
	TeacherName   string `json:"teacher_name,omitempty"`
	TotalStudents int    `json:"total_students"`
	Taking        int    `json:"taking"`
	Submitted     int    `json:"submitted"`
}

// MonitorStudent is one row of upstream GET /proctor/sessions/:id/students.
type MonitorStudent struct {
	StudentID      int        `json:"student_id"`
	FullName       string     `json:"full_name"`
	Email          string     `json:"email,omitempty"`
	AttemptID      int        `json:"attempt_id,omitempty"`
	Status         string     `json:"status"`
	ViolationCount int        `json:"violation_count"`
	AnsweredCount  int        `json:"answered_count,omitempty"`
	Score          *float64   `json:"score,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`
}

// Student attempt states reported by upstream monitor rows.
const (
	AttemptStateInProgress   = "in_progress"
	AttemptStateSubmitted    = "submitted"
	AttemptStateDisconnected = "disconnected"
	AttemptStateAbsent       = "absent"
	AttemptStateLocked       = "locked"
)

// AdminDashboard is upstream GET /admin/dashboard. Its stat cards are passed through.
type AdminDashboard map[string]json.RawMessage
