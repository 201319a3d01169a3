package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"qrkiosk/internal/attendance"
)

// Memory is a mutex-guarded in-process store. Ids are monotonically
// increasing and survive ClearAll, matching the durable backend.
type Memory struct {
	mu      sync.RWMutex
	nextID  int64
	records []attendance.Record
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

// Create assigns the next id and appends the record.
func (m *Memory) Create(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextID
	m.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.records = append(m.records, rec)
	return rec, nil
}

// UpdateByID applies a session-close update in place.
func (m *Memory) UpdateByID(_ context.Context, id int64, upd attendance.RecordUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].LogOut = upd.LogOut
			m.records[i].SnapshotFilename = upd.SnapshotFilename
			m.records[i].Timestamp = upd.Timestamp
			return nil
		}
	}
	return ErrNotFound
}

// GetByID returns one record.
func (m *Memory) GetByID(_ context.Context, id int64) (attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return attendance.Record{}, ErrNotFound
}

// List returns all records ordered by timestamp, ids breaking ties.
func (m *Memory) List(_ context.Context, order attendance.Order) ([]attendance.Record, error) {
	m.mu.RLock()
	out := make([]attendance.Record, len(m.records))
	copy(out, m.records)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			if order == attendance.OrderDesc {
				return out[i].Timestamp > out[j].Timestamp
			}
			return out[i].Timestamp < out[j].Timestamp
		}
		if order == attendance.OrderDesc {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListByIdentity filters one date by raw text, employee id, or name. Empty
// identity fields never act as match keys.
func (m *Memory) ListByIdentity(_ context.Context, rawText, employeeID, name, date string) ([]attendance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []attendance.Record
	for _, rec := range m.records {
		if rec.Date != date {
			continue
		}
		if rec.RawText == rawText ||
			(employeeID != "" && rec.EmployeeID == employeeID) ||
			(name != "" && rec.Name == name) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SetMirrorURL records the off-site snapshot copy.
func (m *Memory) SetMirrorURL(_ context.Context, id int64, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].MirrorURL = &url
			return nil
		}
	}
	return ErrNotFound
}

// ClearAll drops every record. The id counter keeps running.
func (m *Memory) ClearAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}

// Count returns the number of stored records.
func (m *Memory) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}
