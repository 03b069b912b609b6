package schedule

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"
)

// Window validation errors.
var (
	ErrStartInPast     = errors.New("start time is in the past")
	ErrInvalidWindow   = errors.New("start time must be before end time")
	ErrWindowTooShort  = errors.New("session must last at least one minute")
	ErrMissingEndTime  = errors.New("end time is required when the exam has no duration")
	ErrInvalidDuration = errors.New("exam duration must be positive")
)

// MinSessionLength is the shortest allowed session.
const MinSessionLength = time.Minute

// ValidateStart rejects a start before now. It compares at minute granularity,
// so the current minute is accepted.
func ValidateStart(now, startAt time.Time) error {
	if startAt.Truncate(time.Minute).Before(now.Truncate(time.Minute)) {
		return ErrStartInPast
	}
	return nil
}

// ValidateWindow checks a requested session window at now.
func ValidateWindow(now, startAt, endAt time.Time) error {
	if err := ValidateStart(now, startAt); err != nil {
		return err
	}
	if !startAt.Before(endAt) {
		return ErrInvalidWindow
	}
	if endAt.Sub(startAt) < MinSessionLength {
		return ErrWindowTooShort
	}
	return nil
}

// EndTime returns startAt plus the exam duration in minutes.
func EndTime(startAt time.Time, durationMinutes int) (time.Time, error) {
	if durationMinutes <= 0 {
		return time.Time{}, ErrInvalidDuration
	}
	return startAt.Add(time.Duration(durationMinutes) * time.Minute), nil
}

// ResolveEndTime picks the end of a session: derived from the exam duration when
// there is one, otherwise the caller-supplied end.
func ResolveEndTime(startAt time.Time, durationMinutes int, requested *time.Time) (time.Time, error) {
	if durationMinutes > 0 {
		return EndTime(startAt, durationMinutes)
	}
	if requested == nil || requested.IsZero() {
		return time.Time{}, ErrMissingEndTime
	}
	return *requested, nil
}

const (
	accessCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	AccessCodeLength   = 6
)

// GenerateAccessCode returns a random uppercase alphanumeric code.
func GenerateAccessCode() (string, error) {
	var b strings.Builder
	b.Grow(AccessCodeLength)
	max := big.NewInt(int64(len(accessCodeAlphabet)))
	for i := 0; i < AccessCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(accessCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeAccessCode trims and uppercases a user-supplied code, generating one when blank.
func NormalizeAccessCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return GenerateAccessCode()
	}
	return code, nil
}
