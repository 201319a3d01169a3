// Package report derives the aggregate views over the flat attendance log:
// the per-day merged table, total-hours math, and the CSV exports.
package report

import (
	"sort"
	"time"

	"qrkiosk/internal/attendance"
)

// Entry is one merged per-day, per-identity row: possibly several raw
// records collapsed into a single login/logout pairing.
type Entry struct {
	Date             string  `json:"date"`
	Name             string  `json:"name"`
	EmployeeID       string  `json:"employee_id"`
	LogIn            string  `json:"log_in"`
	LogOut           string  `json:"log_out"`
	SnapshotFilename *string `json:"snapshot_filename"`
	Timestamp        int64   `json:"timestamp"`
	TotalHours       string  `json:"total_hours"`
}

// Day groups the merged entries of one calendar date.
type Day struct {
	Date    string  `json:"date"`
	Entries []Entry `json:"entries"`
}

// BuildDailyView collapses raw records into per-day, per-identity entries.
// Within a date and identity the earliest login wins, the latest non-empty
// logout wins, and the snapshot comes from the record that supplied the
// logout (the login record until then). Days are ordered most recent first;
// entries within a day by login time, falling back to timestamp.
func BuildDailyView(records []attendance.Record) []Day {
	sorted := make([]attendance.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	type key struct{ eid, name string }
	byDate := make(map[string]map[key]*Entry)
	var dates []string

	for _, rec := range sorted {
		day, ok := byDate[rec.Date]
		if !ok {
			day = make(map[key]*Entry)
			byDate[rec.Date] = day
			dates = append(dates, rec.Date)
		}
		k := key{rec.EmployeeID, rec.Name}
		entry, ok := day[k]
		if !ok {
			entry = &Entry{
				Date:             rec.Date,
				Name:             rec.Name,
				EmployeeID:       rec.EmployeeID,
				LogIn:            rec.LogIn,
				LogOut:           rec.LogOut,
				SnapshotFilename: rec.SnapshotFilename,
				Timestamp:        rec.Timestamp,
			}
			day[k] = entry
			continue
		}
		if rec.LogIn != "" && (entry.LogIn == "" || CompareClock(rec.LogIn, entry.LogIn) < 0) {
			entry.LogIn = rec.LogIn
		}
		if rec.LogOut != "" {
			entry.LogOut = rec.LogOut
			entry.SnapshotFilename = rec.SnapshotFilename
		}
		if rec.Timestamp > entry.Timestamp {
			entry.Timestamp = rec.Timestamp
		}
	}

	sort.SliceStable(dates, func(i, j int) bool {
		return parseDate(dates[i]).After(parseDate(dates[j]))
	})

	out := make([]Day, 0, len(dates))
	for _, date := range dates {
		entries := make([]Entry, 0, len(byDate[date]))
		for _, e := range byDate[date] {
			e.TotalHours = ComputeTotalHours(e.LogIn, e.LogOut)
			entries = append(entries, *e)
		}
		sort.SliceStable(entries, func(i, j int) bool {
			a, b := entries[i], entries[j]
			if a.LogIn != "" && b.LogIn != "" {
				if c := CompareClock(a.LogIn, b.LogIn); c != 0 {
					return c < 0
				}
			}
			return a.Timestamp < b.Timestamp
		})
		out = append(out, Day{Date: date, Entries: entries})
	}
	return out
}

func parseDate(s string) time.Time {
	t, err := time.Parse(attendance.DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
