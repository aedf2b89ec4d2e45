package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-planner/internal/errs"
)

func TestParseTaskArgs(t *testing.T) {
	args, err := parseTaskArgs("  Write report | hours=3 i=7 importance=8 deadline=2025-01-31 ")
	require.NoError(t, err)
	assert.Equal(t, "Write report", args.input.Name)
	assert.Equal(t, 3, args.input.WorkHours)
	assert.Equal(t, 7, args.input.Interest)
	assert.Equal(t, 8, args.input.Importance)
	require.NotNil(t, args.input.Deadline)
	assert.Equal(t, "2025-01-31", args.input.Deadline.Format(dateLayout))

	args, err = parseTaskArgs("just a name")
	require.NoError(t, err)
	assert.Equal(t, "just a name", args.input.Name)
	assert.Zero(t, args.input.WorkHours)

	args, err = parseTaskArgs("x | deadline=none")
	require.NoError(t, err)
	assert.True(t, args.clearDeadline)

	for _, raw := range []string{"x | hours", "x | hours=0", "x | deadline=soon", "x | owner=2"} {
		_, err := parseTaskArgs(raw)
		assert.ErrorIs(t, err, errs.ErrInvalid, raw)
	}
}

func TestParseEditArgs(t *testing.T) {
	id, args, err := parseEditArgs("12 New name | h=4")
	require.NoError(t, err)
	assert.EqualValues(t, 12, id)
	assert.Equal(t, "New name", args.input.Name)
	assert.Equal(t, 4, args.input.WorkHours)

	_, _, err = parseEditArgs("abc | h=4")
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestParseAllocateArgs(t *testing.T) {
	method, start, err := parseAllocateArgs("interest")
	require.NoError(t, err)
	assert.Equal(t, "interest", method)
	assert.Nil(t, start)

	method, start, err = parseAllocateArgs("importance 2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, "importance", method)
	require.NotNil(t, start)
	assert.Equal(t, "2025-01-01", start.Format(dateLayout))

	for _, raw := range []string{"", "a b c", "interest 01.01.2025"} {
		_, _, err := parseAllocateArgs(raw)
		assert.ErrorIs(t, err, errs.ErrInvalid, raw)
	}
}

func TestParseCalendarArgs(t *testing.T) {
	today := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	start, all, err := parseCalendarArgs("", today)
	require.NoError(t, err)
	assert.True(t, start.Equal(today))
	assert.False(t, all)

	start, all, err = parseCalendarArgs("ALL 2025-03-01", today)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", start.Format(dateLayout))
	assert.True(t, all)

	_, _, err = parseCalendarArgs("yesterday", today)
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestParseManualDayArgs(t *testing.T) {
	d, hours, err := parseManualDayArgs("2025-01-05 6")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-05", d.Format(dateLayout))
	assert.Equal(t, 6, hours)

	for _, raw := range []string{"", "2025-01-05", "2025-01-05 six", "monday 6"} {
		_, _, err := parseManualDayArgs(raw)
		assert.ErrorIs(t, err, errs.ErrInvalid, raw)
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID(" 9 ")
	require.NoError(t, err)
	assert.EqualValues(t, 9, id)

	for _, raw := range []string{"", "0", "-1", "x"} {
		_, err := parseID(raw)
		assert.ErrorIs(t, err, errs.ErrInvalid, raw)
	}
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "short", shortTitle(" short ", 10))
	assert.Equal(t, "abcd…", shortTitle("abcdefgh", 5))
	assert.Equal(t, "a b", shortTitle("a\nb", 5))
}
