package wizard

import (
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

var weekdayLabels = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// calendarRows renders the month containing d: a title row, a weekday row,
// Monday-first weeks padded with blank cells, and a month navigation row.
func calendarRows(d civil.Date) [][]Choice {
	first := firstOfMonth(d)
	ignore := Action{Kind: ActionIgnore}

	rows := [][]Choice{{{Label: first.In(time.UTC).Format("January 2006"), Action: ignore}}}

	header := make([]Choice, 0, len(weekdayLabels))
	for _, label := range weekdayLabels {
		header = append(header, Choice{Label: label, Action: ignore})
	}
	rows = append(rows, header)

	week := make([]Choice, 0, 7)
	// time.Weekday starts on Sunday.
	offset := (int(first.In(time.UTC).Weekday()) + 6) % 7
	for i := 0; i < offset; i++ {
		week = append(week, Choice{Label: " ", Action: ignore})
	}
	for day := 1; day <= daysInMonth(first); day++ {
		date := civil.Date{Year: first.Year, Month: first.Month, Day: day}
		week = append(week, Choice{Label: strconv.Itoa(day), Action: Action{Kind: ActionCalendarDay, Date: date}})
		if len(week) == 7 {
			rows = append(rows, week)
			week = make([]Choice, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, Choice{Label: " ", Action: ignore})
		}
		rows = append(rows, week)
	}

	rows = append(rows, []Choice{
		{Label: "<", Action: Action{Kind: ActionCalendarMonth, Date: shiftMonth(first, -1)}},
		{Label: " ", Action: ignore},
		{Label: ">", Action: Action{Kind: ActionCalendarMonth, Date: shiftMonth(first, 1)}},
	})
	return rows
}

func firstOfMonth(d civil.Date) civil.Date {
	return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
}

// shiftMonth returns the first day of the month n months away from d.
func shiftMonth(d civil.Date, n int) civil.Date {
	t := time.Date(d.Year, d.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return civil.DateOf(t)
}

func daysInMonth(d civil.Date) int {
	return time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
