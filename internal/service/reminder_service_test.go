package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailySummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tasks.CreateTask(ctx, f.owner.ID, TaskInput{Name: "write <report>", WorkHours: 6, Interest: 9})
	require.NoError(t, err)
	_, err = f.tasks.CreateTask(ctx, f.owner.ID, TaskInput{Name: "taxes", WorkHours: 2, Deadline: datePtr("2024-12-30")})
	require.NoError(t, err)
	_, err = f.alloc.Allocate(ctx, AllocationRequest{OwnerID: f.owner.ID, Method: "interest", StartDate: datePtr("2025-01-01")})
	require.NoError(t, err)

	summary, err := NewReminderService(f.calendar).DailySummary(ctx, *f.owner, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, summary, "2025-01-01")
	assert.Contains(t, summary, "write &lt;report&gt;")
	assert.Contains(t, summary, "· 4h")
	assert.Contains(t, summary, "Next: 2025-01-02")
	assert.Contains(t, summary, "Could not be scheduled")
	assert.Contains(t, summary, "taxes")
	assert.Contains(t, summary, "overdue")
}

func TestDailySummaryEmpty(t *testing.T) {
	f := newFixture(t)
	summary, err := NewReminderService(f.calendar).DailySummary(context.Background(), *f.owner, time.Now())
	require.NoError(t, err)
	assert.Contains(t, summary, "nothing scheduled")
	assert.NotContains(t, summary, "Could not be scheduled")
}

func TestFormatCalendar(t *testing.T) {
	assert.Equal(t, "— nothing scheduled", FormatCalendar(nil))

	out := FormatCalendar([]DayView{
		{Date: date("2025-01-01"), WorkHours: 4, TaskExecutions: []ExecutionView{{TaskID: 3, DoingHours: 2}}},
		{Date: date("2025-01-02"), WorkHours: 0},
	})
	assert.Contains(t, out, "<b>2025-01-01</b> · 4h")
	assert.Contains(t, out, "task #3 · 2h")
	assert.Contains(t, out, "free day")
}
