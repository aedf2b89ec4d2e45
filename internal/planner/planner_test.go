package planner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-planner/internal/errs"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func TestParseMethod(t *testing.T) {
	for _, m := range Methods() {
		got, err := ParseMethod(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	got, err := ParseMethod(" Interest ")
	require.NoError(t, err)
	assert.Equal(t, MethodInterest, got)

	_, err = ParseMethod("random")
	assert.ErrorIs(t, err, errs.ErrInvalidMethod)
}

func TestAllocateSingleTask(t *testing.T) {
	res, err := New().Allocate(context.Background(), MethodInterest, Input{
		Tasks:            []Task{{Ref: 10, Name: "write report", WorkHours: 2}},
		StartDate:        date("2025-01-01"),
		DefaultDayHours:  4,
		DefaultTaskHours: 2,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Failed)
	require.Len(t, res.Days, 1)
	assert.Equal(t, date("2025-01-01"), res.Days[0].Date)
	assert.Equal(t, 4, res.Days[0].WorkHours)
	assert.Equal(t, []Assignment{{TaskRef: 10, Hours: 2}}, res.Days[0].Schedule)
}

func TestAllocateSplitsAcrossDaysAndHonoursManualDays(t *testing.T) {
	res, err := New().Allocate(context.Background(), MethodImportance, Input{
		Tasks: []Task{
			{Ref: 1, Name: "big", WorkHours: 6, Importance: 9},
			{Ref: 2, Name: "small", WorkHours: 1, Importance: 1},
		},
		ManualDays:      []ManualDay{{Date: date("2025-01-02"), WorkHours: 0}},
		StartDate:       date("2025-01-01"),
		DefaultDayHours: 4,
	})
	require.NoError(t, err)
	require.Len(t, res.Days, 2)

	assert.Equal(t, date("2025-01-01"), res.Days[0].Date)
	assert.Equal(t, []Assignment{{TaskRef: 1, Hours: 4}}, res.Days[0].Schedule)

	// 2025-01-02 is pinned to zero hours and skipped.
	assert.Equal(t, date("2025-01-03"), res.Days[1].Date)
	assert.Equal(t, []Assignment{{TaskRef: 1, Hours: 2}, {TaskRef: 2, Hours: 1}}, res.Days[1].Schedule)
}

func TestAllocateFailsTasksThatMissTheirDeadline(t *testing.T) {
	res, err := New().Allocate(context.Background(), MethodInterest, Input{
		Tasks: []Task{
			{Ref: 1, Name: "first", WorkHours: 4, Interest: 10, Deadline: datePtr("2025-01-01")},
			{Ref: 2, Name: "second", WorkHours: 2, Interest: 1, Deadline: datePtr("2025-01-01")},
			{Ref: 3, Name: "past", WorkHours: 1, Deadline: datePtr("2024-12-31")},
		},
		StartDate:       date("2025-01-01"),
		DefaultDayHours: 4,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{2, 3}, res.Failed)
	require.Len(t, res.Days, 1)
	assert.Equal(t, []Assignment{{TaskRef: 1, Hours: 4}}, res.Days[0].Schedule)
}

func TestAllocateForceProcrastinate(t *testing.T) {
	res, err := New().Allocate(context.Background(), MethodForceProcrastinate, Input{
		Tasks:           []Task{{Ref: 1, Name: "later", WorkHours: 3, Deadline: datePtr("2025-01-05")}},
		StartDate:       date("2025-01-01"),
		DefaultDayHours: 2,
	})
	require.NoError(t, err)
	require.Len(t, res.Days, 2)
	assert.Equal(t, date("2025-01-04"), res.Days[0].Date)
	assert.Equal(t, 1, res.Days[0].Schedule[0].Hours)
	assert.Equal(t, date("2025-01-05"), res.Days[1].Date)
	assert.Equal(t, 2, res.Days[1].Schedule[0].Hours)
}

func TestAllocateIsDeterministic(t *testing.T) {
	in := Input{
		Tasks: []Task{
			{Ref: 1, Name: "a", WorkHours: 3, Interest: 5, Importance: 5},
			{Ref: 2, Name: "b", WorkHours: 3, Interest: 5, Importance: 5},
			{Ref: 3, Name: "c", WorkHours: 5, Interest: 8, Importance: 2},
		},
		StartDate:       date("2025-03-01"),
		DefaultDayHours: 4,
	}
	for _, m := range Methods() {
		first, err := New().Allocate(context.Background(), m, in)
		require.NoError(t, err)
		second, err := New().Allocate(context.Background(), m, in)
		require.NoError(t, err)
		assert.Equal(t, first, second, string(m))
	}
}

func TestAllocateHorizon(t *testing.T) {
	res, err := New().Allocate(context.Background(), MethodPoints, Input{
		Tasks:           []Task{{Ref: 1, Name: "huge", WorkHours: 100}},
		StartDate:       date("2025-01-01"),
		DefaultDayHours: 4,
		HorizonDays:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, res.Failed)
	assert.Empty(t, res.Days)
}

func TestAllocateRejectsUnknownMethod(t *testing.T) {
	_, err := New().Allocate(context.Background(), Method("nope"), Input{})
	assert.Error(t, err)
}

func TestAllocateOrderDependsOnMethod(t *testing.T) {
	tasks := []Task{
		{Ref: 1, Name: "fun", Interest: 9, Importance: 1, WorkHours: 1},
		{Ref: 2, Name: "urgent", Interest: 1, Importance: 9, WorkHours: 1},
		{Ref: 3, Name: "balanced", Interest: 6, Importance: 6, WorkHours: 4},
		{Ref: 4, Name: "quick", Interest: 3, Importance: 4, WorkHours: 1},
	}

	tests := []struct {
		method Method
		first  uint
	}{
		{MethodInterest, 1},
		{MethodImportance, 2},
		{MethodInterestImportance, 3},
		{MethodPoints, 4},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			res, err := New().Allocate(context.Background(), tt.method, Input{
				Tasks:           tasks,
				StartDate:       date("2025-01-01"),
				DefaultDayHours: 24,
				HorizonDays:     3,
			})
			require.NoError(t, err)
			assert.Empty(t, res.Failed)
			require.Len(t, res.Days, 1)
			require.Len(t, res.Days[0].Schedule, len(tasks))
			assert.Equal(t, tt.first, res.Days[0].Schedule[0].TaskRef)
		})
	}
}
