// internal/model/scheduled_message.go
package model

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

type Recurrence string

const (
	RecurNone    Recurrence = "NONE"
	RecurDaily   Recurrence = "DAILY"
	RecurWeekly  Recurrence = "WEEKLY"
	RecurMonthly Recurrence = "MONTHLY"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly:
		return true
	}
	return false
}

// Next returns the first occurrence of a recurring message strictly after t,
// anchored on the wall-clock fields of start. Monthly runs on the 29th-31st fall on
// the last day of shorter months. Non-recurring messages have none.
func (r Recurrence) Next(start, t time.Time) (time.Time, bool) {
	var expr string
	switch r {
	case RecurDaily:
		expr = fmt.Sprintf("%d %d * * *", start.Minute(), start.Hour())
	case RecurWeekly:
		expr = fmt.Sprintf("%d %d * * %d", start.Minute(), start.Hour(), int(start.Weekday()))
	case RecurMonthly:
		if t.Before(start) {
			return start, true
		}
		return nextMonthly(start, t), true
	default:
		return time.Time{}, false
	}
	if t.Before(start) {
		return start, true
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, false
	}
	return sched.Next(t.In(start.Location())), true
}

// nextMonthly keeps start's day of month, clamped to the last day of shorter months.
func nextMonthly(start, t time.Time) time.Time {
	loc := start.Location()
	t = t.In(loc)
	k := (t.Year()-start.Year())*12 + int(t.Month()-start.Month()) - 1
	if k < 0 {
		k = 0
	}
	for ; ; k++ {
		first := time.Date(start.Year(), start.Month()+time.Month(k), 1, start.Hour(), start.Minute(), 0, 0, loc)
		day := start.Day()
		if last := daysIn(first); day > last {
			day = last
		}
		next := time.Date(first.Year(), first.Month(), day, start.Hour(), start.Minute(), 0, 0, loc)
		if next.After(t) {
			return next
		}
	}
}

func daysIn(month time.Time) int {
	return time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, month.Location()).Day()
}

type ScheduleStatus string

const (
	ScheduleScheduled  ScheduleStatus = "SCHEDULED"
	ScheduleProcessing ScheduleStatus = "PROCESSING"
	ScheduleCompleted  ScheduleStatus = "COMPLETED"
	ScheduleCancelled  ScheduleStatus = "CANCELLED"
	ScheduleFailed     ScheduleStatus = "FAILED"
)

type ScheduledMessage struct {
	ID          string            `json:"id"`
	Recipient   string            `json:"recipient"`
	Message     string            `json:"message"`
	ScheduledAt time.Time         `json:"scheduledAt"`
	Recurring   Recurrence        `json:"recurring"`
	Status      ScheduleStatus    `json:"status"`
	TemplateID  string            `json:"templateId,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"`

	// NextOccurrence is filled client side for recurring entries.
	NextOccurrence *time.Time `json:"nextOccurrence,omitempty"`
}

type CreateScheduledRequest struct {
	Recipient   string            `json:"recipient"`
	Message     string            `json:"message"`
	ScheduledAt time.Time         `json:"scheduledAt"`
	TemplateID  string            `json:"templateId,omitempty"`
	Variables   map[string]string `json:"variables"`
	Recurring   Recurrence        `json:"recurring,omitempty"`
}
