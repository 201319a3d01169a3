package report

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"qrkiosk/internal/attendance"
)

// Headers of the two export shapes. Every field is double-quoted with ""
// escaping so values round-trip losslessly.
const (
	ChronologicalHeader = "Timestamp,Date,Time,Name,EID,Log In,Log Out,Total Hours,File Saved"
	MergedHeader        = "Date,Name,EID,Log In,Log Out,Total Hours,File Saved"
)

// ChronologicalCSV exports one row per raw record in timestamp order.
func ChronologicalCSV(records []attendance.Record) string {
	sorted := make([]attendance.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	var b strings.Builder
	b.WriteString(ChronologicalHeader)
	for _, rec := range sorted {
		eventTime := rec.LogIn
		if eventTime == "" {
			eventTime = rec.LogOut
		}
		b.WriteByte('\n')
		writeRow(&b,
			strconv.FormatInt(rec.Timestamp, 10),
			rec.Date,
			eventTime,
			rec.Name,
			rec.EmployeeID,
			rec.LogIn,
			rec.LogOut,
			ComputeTotalHours(rec.LogIn, rec.LogOut),
			fileSaved(rec.SnapshotFilename),
		)
	}
	return b.String()
}

// MergedCSV exports one row per merged per-day entry, days most recent first.
func MergedCSV(days []Day) string {
	var b strings.Builder
	b.WriteString(MergedHeader)
	for _, day := range days {
		for _, e := range day.Entries {
			b.WriteByte('\n')
			writeRow(&b,
				e.Date,
				e.Name,
				e.EmployeeID,
				e.LogIn,
				e.LogOut,
				e.TotalHours,
				fileSaved(e.SnapshotFilename),
			)
		}
	}
	return b.String()
}

// ChronologicalFilename names the raw event export for a given day.
func ChronologicalFilename(at time.Time) string {
	return "attendance-log-" + at.Format("2006-01-02") + ".csv"
}

// MergedFilename names the merged export for a given day.
func MergedFilename(at time.Time) string {
	return "attendance-" + at.Format("2006-01-02") + ".csv"
}

func fileSaved(filename *string) string {
	if filename != nil && *filename != "" {
		return "Yes"
	}
	return "No"
}

func writeRow(b *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
}
