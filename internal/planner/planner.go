// Package planner turns tasks and per-day capacity into a day-by-day schedule.
//
// It is a pure function of its Input: no storage, no clock. The service layer
// only sees it through the Allocator interface.
package planner

import (
	"context"
	"fmt"
	"sort"
	"time"
)

const (
	DefaultHorizonDays = 365
	defaultScore       = 5
)

// Task is one unit of work to place. Ref is an opaque back-reference the caller
// uses to map results to its own records.
type Task struct {
	Ref        uint
	Name       string
	Deadline   *time.Time
	Interest   int
	Importance int
	WorkHours  int
}

// ManualDay pins the available hours of one date.
type ManualDay struct {
	Date      time.Time
	WorkHours int
}

type Input struct {
	Tasks            []Task
	ManualDays       []ManualDay
	StartDate        time.Time
	DefaultDayHours  int
	DefaultTaskHours int
	HorizonDays      int
}

// Assignment is a number of hours of one task on one day.
type Assignment struct {
	TaskRef uint
	Hours   int
}

type Day struct {
	Date      time.Time
	WorkHours int
	Schedule  []Assignment
}

// Result lists scheduled days in date order and the refs of tasks that could
// not be fully placed.
type Result struct {
	Days   []Day
	Failed []uint
}

// Allocator runs one allocation strategy.
type Allocator interface {
	Allocate(ctx context.Context, method Method, in Input) (Result, error)
}

// Planner is the built-in Allocator.
type Planner struct{}

func New() *Planner { return &Planner{} }

// DateOf truncates t to a UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (p *Planner) Allocate(ctx context.Context, method Method, in Input) (Result, error) {
	if !method.Valid() {
		return Result{}, fmt.Errorf("planner: unknown method %q", method)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	horizon := in.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}
	start := DateOf(in.StartDate)

	capacity := make([]int, horizon)
	for i := range capacity {
		capacity[i] = in.DefaultDayHours
	}
	for _, md := range in.ManualDays {
		idx := dayIndex(start, md.Date)
		if idx >= 0 && idx < horizon {
			capacity[idx] = clampHours(md.WorkHours)
		}
	}
	free := make([]int, horizon)
	copy(free, capacity)

	tasks := normalize(in.Tasks, in.DefaultTaskHours)
	order(tasks, method)

	schedule := make([][]Assignment, horizon)
	var failed []uint

	for _, t := range tasks {
		last := horizon - 1
		if t.Deadline != nil {
			if idx := dayIndex(start, *t.Deadline); idx < last {
				last = idx
			}
		}
		if last < 0 || t.WorkHours <= 0 {
			failed = append(failed, t.Ref)
			continue
		}

		placed := place(free, t.WorkHours, last, method == MethodForceProcrastinate)
		if placed == nil {
			failed = append(failed, t.Ref)
			continue
		}
		for idx, hours := range placed {
			schedule[idx] = append(schedule[idx], Assignment{TaskRef: t.Ref, Hours: hours})
		}
	}

	var res Result
	for idx, assignments := range schedule {
		if len(assignments) == 0 {
			continue
		}
		res.Days = append(res.Days, Day{
			Date:      start.AddDate(0, 0, idx),
			WorkHours: capacity[idx],
			Schedule:  assignments,
		})
	}
	res.Failed = failed
	return res, nil
}

// place takes need hours from free[0..last], forward or backward. On success
// free is debited and the per-day hours are returned; on failure free is left
// untouched and nil is returned.
func place(free []int, need, last int, backward bool) map[int]int {
	taken := make(map[int]int)
	remaining := need
	step := func(idx int) {
		if remaining == 0 || free[idx] <= 0 {
			return
		}
		h := free[idx]
		if h > remaining {
			h = remaining
		}
		taken[idx] = h
		remaining -= h
	}
	if backward {
		for idx := last; idx >= 0 && remaining > 0; idx-- {
			step(idx)
		}
	} else {
		for idx := 0; idx <= last && remaining > 0; idx++ {
			step(idx)
		}
	}
	if remaining > 0 {
		return nil
	}
	for idx, h := range taken {
		free[idx] -= h
	}
	return taken
}

func normalize(in []Task, defaultHours int) []Task {
	out := make([]Task, len(in))
	for i, t := range in {
		if t.WorkHours <= 0 {
			t.WorkHours = defaultHours
		}
		if t.Interest <= 0 {
			t.Interest = defaultScore
		}
		if t.Importance <= 0 {
			t.Importance = defaultScore
		}
		out[i] = t
	}
	return out
}

func order(tasks []Task, method Method) {
	score := func(t Task) float64 {
		switch method {
		case MethodInterest:
			return float64(t.Interest)
		case MethodImportance:
			return float64(t.Importance)
		case MethodPoints:
			return float64(t.Interest*t.Importance) / float64(t.WorkHours)
		default:
			return float64(t.Interest + t.Importance)
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		si, sj := score(tasks[i]), score(tasks[j])
		if si != sj {
			return si > sj
		}
		di, dj := tasks[i].Deadline, tasks[j].Deadline
		switch {
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.Before(*dj)
		case di != nil && dj == nil:
			return true
		case di == nil && dj != nil:
			return false
		}
		if tasks[i].Name != tasks[j].Name {
			return tasks[i].Name < tasks[j].Name
		}
		return tasks[i].Ref < tasks[j].Ref
	})
}

func dayIndex(start, date time.Time) int {
	return int(DateOf(date).Sub(start).Hours() / 24)
}

func clampHours(h int) int {
	switch {
	case h < 0:
		return 0
	case h > 24:
		return 24
	}
	return h
}
