package attendance

import (
	"context"
	"time"
)

// Layouts for the date and time strings stored on records. These mirror the
// short locale forms the kiosk UI displays (e.g. "9/1/2026", "9:00:05 AM").
const (
	DateLayout = "1/2/2006"
	TimeLayout = "3:04:05 PM"
)

// Source tags where a scan came from.
type Source string

const (
	SourceCamera Source = "camera"
	SourceImage  Source = "image"
	SourceManual Source = "manual"
)

// Mode selects how a scan is interpreted.
type Mode string

const (
	ModeAuto   Mode = "auto"   // alternate login/logout based on the latest record
	ModeLogin  Mode = "login"  // always open a new session
	ModeLogout Mode = "logout" // always close the latest session
)

// ParseMode maps a request string onto a Mode, defaulting to auto.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeLogin:
		return ModeLogin
	case ModeLogout:
		return ModeLogout
	default:
		return ModeAuto
	}
}

// Record is the sole persisted attendance entity. A record is created when a
// session opens (or as a logout-only fallback), updated at most once more
// when the session closes, and never touched again. Date is fixed at
// creation; Timestamp tracks the most recent write and orders records.
type Record struct {
	ID               int64   `json:"id"`
	RawText          string  `json:"raw_text"`
	EmployeeID       string  `json:"employee_id"`
	Name             string  `json:"name"`
	Date             string  `json:"date"`
	LogIn            string  `json:"log_in"`
	LogOut           string  `json:"log_out"`
	SnapshotFilename *string `json:"snapshot_filename"`
	Timestamp        int64   `json:"timestamp"`
	Source           Source  `json:"source"`
	MirrorURL        *string `json:"mirror_url,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Open reports whether the record is an unfinished session.
func (r Record) Open() bool {
	return r.LogIn != "" && r.LogOut == ""
}

// RecordUpdate carries the fields written when a session closes.
type RecordUpdate struct {
	LogOut           string
	SnapshotFilename *string
	Timestamp        int64
}

// Order selects the timestamp ordering of a listing.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Store is the durable event store behind the resolver. Implementations live
// in internal/store.
type Store interface {
	// Create persists a new record and returns it with the assigned id.
	Create(ctx context.Context, rec Record) (Record, error)
	// UpdateByID applies a session-close update. Returns store.ErrNotFound
	// when the id is absent.
	UpdateByID(ctx context.Context, id int64, upd RecordUpdate) error
	// GetByID fetches one record.
	GetByID(ctx context.Context, id int64) (Record, error)
	// List returns every record ordered by Timestamp.
	List(ctx context.Context, order Order) ([]Record, error)
	// ListByIdentity returns the records for one calendar date whose raw
	// text, employee id, or name matches. Empty employee id and name are
	// never used as match keys.
	ListByIdentity(ctx context.Context, rawText, employeeID, name, date string) ([]Record, error)
	// SetMirrorURL records the off-site copy of the snapshot. It touches no
	// attendance field.
	SetMirrorURL(ctx context.Context, id int64, url string) error
	// ClearAll irreversibly removes every record.
	ClearAll(ctx context.Context) error
	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)
}
