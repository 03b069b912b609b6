package schedule

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateWindow(t *testing.T) {
	now := time.Date(2025, 5, 20, 9, 30, 40, 0, time.UTC)

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{name: "future window", start: now.Add(time.Hour), end: now.Add(2 * time.Hour)},
		{name: "same minute as now", start: now.Add(-30 * time.Second), end: now.Add(time.Hour)},
		{name: "previous minute", start: now.Add(-time.Minute), end: now.Add(time.Hour), wantErr: ErrStartInPast},
		{name: "yesterday", start: now.AddDate(0, 0, -1), end: now.Add(time.Hour), wantErr: ErrStartInPast},
		{name: "end equals start", start: now.Add(time.Hour), end: now.Add(time.Hour), wantErr: ErrInvalidWindow},
		{name: "end before start", start: now.Add(time.Hour), end: now.Add(30 * time.Minute), wantErr: ErrInvalidWindow},
		{name: "shorter than a minute", start: now.Add(time.Hour), end: now.Add(time.Hour + 59*time.Second), wantErr: ErrWindowTooShort},
		{name: "exactly a minute", start: now.Add(time.Hour), end: now.Add(time.Hour + time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateWindow(now, tt.start, tt.end)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateStartIgnoresEnd(t *testing.T) {
	now := time.Date(2025, 5, 20, 9, 30, 40, 0, time.UTC)

	assert.NoError(t, ValidateStart(now, now.Add(-30*time.Second)))
	assert.NoError(t, ValidateStart(now, now.Add(24*time.Hour)))
	assert.ErrorIs(t, ValidateStart(now, now.Add(-time.Minute)), ErrStartInPast)
}

func TestResolveEndTime(t *testing.T) {
	start := time.Date(2025, 5, 20, 13, 0, 0, 0, time.UTC)
	requested := start.Add(5 * time.Hour)

	end, err := ResolveEndTime(start, 45, &requested)
	require.NoError(t, err)
	assert.Equal(t, start.Add(45*time.Minute), end, "exam duration overrides the requested end")

	end, err = ResolveEndTime(start, 0, &requested)
	require.NoError(t, err)
	assert.Equal(t, requested, end)

	_, err = ResolveEndTime(start, 0, nil)
	assert.ErrorIs(t, err, ErrMissingEndTime)

	_, err = EndTime(start, -5)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestAccessCodes(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code, err := GenerateAccessCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)

	code, err := NormalizeAccessCode("  ab12cd ")
	require.NoError(t, err)
	assert.Equal(t, "AB12CD", code)

	code, err = NormalizeAccessCode("   ")
	require.NoError(t, err)
	assert.Regexp(t, pattern, code)
}
