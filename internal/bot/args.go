package bot

import (
	"strconv"
	"strings"
	"time"

	"task-planner/internal/errs"
	"task-planner/internal/service"
)

const dateLayout = "2006-01-02"

// taskArgs is a parsed "/addtask" or "/edittask" argument list:
//
//	name | hours=3 interest=7 importance=8 deadline=2025-01-31
//
// deadline=none clears the deadline on edit.
type taskArgs struct {
	input         service.TaskInput
	clearDeadline bool
}

func parseTaskArgs(raw string) (taskArgs, error) {
	var out taskArgs
	name, opts, _ := strings.Cut(raw, "|")
	out.input.Name = strings.TrimSpace(name)

	for _, field := range strings.Fields(opts) {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return out, errs.Invalid("expected key=value, got %q", field)
		}
		switch strings.ToLower(key) {
		case "hours", "h":
			n, err := parsePositive(key, value)
			if err != nil {
				return out, err
			}
			out.input.WorkHours = n
		case "interest", "i":
			n, err := parsePositive(key, value)
			if err != nil {
				return out, err
			}
			out.input.Interest = n
		case "importance", "p":
			n, err := parsePositive(key, value)
			if err != nil {
				return out, err
			}
			out.input.Importance = n
		case "deadline", "d":
			if strings.EqualFold(value, "none") {
				out.clearDeadline = true
				continue
			}
			d, err := parseDate(value)
			if err != nil {
				return out, err
			}
			out.input.Deadline = &d
		default:
			return out, errs.Invalid("unknown option %q", key)
		}
	}
	return out, nil
}

// parseEditArgs splits "/edittask <id> [name] | options".
func parseEditArgs(raw string) (uint, taskArgs, error) {
	head, rest, _ := strings.Cut(strings.TrimSpace(raw), " ")
	id, err := parseID(head)
	if err != nil {
		return 0, taskArgs{}, err
	}
	args, err := parseTaskArgs(rest)
	return id, args, err
}

// parseAllocateArgs reads "<method> [YYYY-MM-DD]".
func parseAllocateArgs(raw string) (string, *time.Time, error) {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 0:
		return "", nil, errs.Invalid("usage: /allocate <method> [YYYY-MM-DD]")
	case 1:
		return fields[0], nil, nil
	case 2:
		d, err := parseDate(fields[1])
		if err != nil {
			return "", nil, err
		}
		return fields[0], &d, nil
	default:
		return "", nil, errs.Invalid("usage: /allocate <method> [YYYY-MM-DD]")
	}
}

// parseCalendarArgs reads "[YYYY-MM-DD] [all]". Without a date the calendar
// starts today; "all" keeps days without work.
func parseCalendarArgs(raw string, today time.Time) (start time.Time, all bool, err error) {
	start = today
	for _, f := range strings.Fields(raw) {
		if strings.EqualFold(f, "all") {
			all = true
			continue
		}
		if start, err = parseDate(f); err != nil {
			return time.Time{}, false, err
		}
	}
	return start, all, nil
}

// parseManualDayArgs reads "<YYYY-MM-DD> <hours>".
func parseManualDayArgs(raw string) (time.Time, int, error) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return time.Time{}, 0, errs.Invalid("usage: /manualday YYYY-MM-DD hours")
	}
	d, err := parseDate(fields[0])
	if err != nil {
		return time.Time{}, 0, err
	}
	hours, err := strconv.Atoi(fields[1])
	if err != nil {
		return time.Time{}, 0, errs.Invalid("hours must be a number")
	}
	return d, hours, nil
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, errs.Invalid("date must look like 2025-01-31, got %q", raw)
	}
	return d, nil
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || value == 0 {
		return 0, errs.Invalid("id must be a positive number")
	}
	return uint(value), nil
}

func parseCallbackID(data, prefix string) (uint, error) {
	return parseID(strings.TrimPrefix(data, prefix))
}

func parsePositive(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, errs.Invalid("%s must be a positive number", key)
	}
	return n, nil
}
