package calendar

import (
	"time"
)

// FindConflicts returns the timed events on date that overlap the half-open
// interval [startTime, startTime+minutes). All-day and holiday events never
// conflict, and an event ending exactly at the new start does not overlap.
func FindConflicts(date, startTime string, minutes int, events []Event, loc *time.Location) ([]Event, error) {
	start, err := ParseDateTime(date, startTime, loc)
	if err != nil {
		return nil, err
	}
	end := start.Add(time.Duration(minutes) * time.Minute)

	var conflicts []Event
	for _, e := range events {
		if e.AllDay || e.IsHoliday() || !e.OnDate(date, loc) {
			continue
		}
		if e.Start.Before(end) && e.End.After(start) {
			conflicts = append(conflicts, e)
		}
	}
	return conflicts, nil
}
