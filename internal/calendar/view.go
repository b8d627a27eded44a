package calendar

import (
	"fmt"
	"sort"
	"time"

	"ms-calendar/internal/models"
	"ms-calendar/internal/utils"
)

type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
	ViewDay   View = "day"
	ViewList  View = "list"
)

var Views = []View{ViewMonth, ViewWeek, ViewDay, ViewList}

// ParseView maps an empty name to month.
func ParseView(name string) (View, error) {
	if name == "" {
		return ViewMonth, nil
	}
	for _, v := range Views {
		if string(v) == name {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown calendar view %q", name)
}

// DateRange returns the YYYY-MM-DD window fetched around date for a view.
// Month and list cover the previous, current and next month. Week covers
// four weeks starting one week before the Monday of date's week. Day covers
// three days either side.
func DateRange(view View, date time.Time) (string, string) {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	var start, end time.Time
	switch view {
	case ViewWeek:
		// Sunday counts as day 0, so a Sunday maps to the following Monday.
		monday := d.AddDate(0, 0, 1-int(d.Weekday()))
		start = monday.AddDate(0, 0, -7)
		end = monday.AddDate(0, 0, 20)
	case ViewDay:
		start = d.AddDate(0, 0, -3)
		end = d.AddDate(0, 0, 3)
	default:
		start = time.Date(d.Year(), d.Month()-1, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(d.Year(), d.Month()+2, 0, 0, 0, 0, 0, time.UTC)
	}
	return utils.FormatDate(start), utils.FormatDate(end)
}

// Day is one agenda bucket.
type Day struct {
	Date   time.Time
	Events []models.Event
}

// GroupByDay buckets events by each calendar day between start and end
// inclusive. An event lands in every day its [StartDate, EndDate] overlaps.
func GroupByDay(events []models.Event, start, end time.Time) []Day {
	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})

	first := utils.StartOfDay(start)
	last := utils.StartOfDay(end)

	days := make([]Day, 0)
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		dayEnd := utils.EndOfDay(d)
		bucket := Day{Date: d, Events: make([]models.Event, 0)}
		for _, e := range sorted {
			if !e.StartDate.After(dayEnd) && !e.EndDate.Before(d) {
				bucket.Events = append(bucket.Events, e)
			}
		}
		days = append(days, bucket)
	}
	return days
}

// NonEmpty drops days without events.
func NonEmpty(days []Day) []Day {
	out := make([]Day, 0, len(days))
	for _, d := range days {
		if len(d.Events) > 0 {
			out = append(out, d)
		}
	}
	return out
}
