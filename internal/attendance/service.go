package attendance

import (
	"context"
	"errors"
	"log"
	"time"

	"qrkiosk/internal/identity"
	"qrkiosk/internal/snapshot"
)

// ErrEmptyScan rejects scans with no payload at all.
var ErrEmptyScan = errors.New("empty scan payload")

// Archiver stores a snapshot image and returns the filename it was saved
// under. Failures are non-fatal to attendance resolution.
type Archiver interface {
	Save(ctx context.Context, data []byte, filename string) (string, error)
}

// Action says whether a resolve opened a new record or closed an existing one.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// ScanRequest is one decoded QR payload plus its context.
type ScanRequest struct {
	RawText  string
	Source   Source
	Mode     Mode
	Snapshot []byte
}

// Result is the outcome of resolving a scan.
type Result struct {
	Action Action `json:"action"`
	Record Record `json:"record"`
}

// Service is the attendance resolver: given a scan and the current time it
// decides whether this is a session start or a session close for that
// identity today, and writes the store accordingly.
type Service struct {
	store    Store
	archiver Archiver
	now      func() time.Time
}

// NewService creates a resolver backed by a store and an optional archiver.
func NewService(store Store, archiver Archiver) *Service {
	return &Service{store: store, archiver: archiver, now: time.Now}
}

// WithClock overrides the service clock. Tests use this to pin "now".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Resolve applies one scan to the store.
//
// The latest record for this identity today decides the outcome: no record
// yet means a fresh login (or a logout-only fallback when the mode forces
// logout), an open record means this scan closes it, a closed record means a
// new session starts. Forced modes skip the alternation.
func (s *Service) Resolve(ctx context.Context, req ScanRequest) (Result, error) {
	if req.RawText == "" {
		return Result{}, ErrEmptyScan
	}

	id := identity.Parse(req.RawText)
	now := s.now()
	today := now.Format(DateLayout)
	nowTime := now.Format(TimeLayout)
	ts := now.UnixMilli()

	matches, err := s.store.ListByIdentity(ctx, req.RawText, id.EmployeeID, id.Name, today)
	if err != nil {
		return Result{}, err
	}

	var latest *Record
	for i := range matches {
		if latest == nil || matches[i].Timestamp > latest.Timestamp {
			latest = &matches[i]
		}
	}

	isLogin := true
	switch req.Mode {
	case ModeLogin:
		isLogin = true
	case ModeLogout:
		isLogin = false
	default:
		if latest != nil && latest.Open() {
			isLogin = false
		}
	}

	archived := s.archive(ctx, req.Snapshot, id, now, !isLogin)

	if isLogin {
		rec := Record{
			RawText:          req.RawText,
			EmployeeID:       id.EmployeeID,
			Name:             id.Name,
			Date:             today,
			LogIn:            nowTime,
			SnapshotFilename: archived,
			Timestamp:        ts,
			Source:           req.Source,
		}
		created, err := s.store.Create(ctx, rec)
		if err != nil {
			return Result{}, err
		}
		return Result{Action: ActionCreate, Record: created}, nil
	}

	if latest == nil {
		// First scan of the day arriving as a forced logout: keep the event
		// as a logout-only row rather than dropping it.
		rec := Record{
			RawText:          req.RawText,
			EmployeeID:       id.EmployeeID,
			Name:             id.Name,
			Date:             today,
			LogOut:           nowTime,
			SnapshotFilename: archived,
			Timestamp:        ts,
			Source:           req.Source,
		}
		created, err := s.store.Create(ctx, rec)
		if err != nil {
			return Result{}, err
		}
		return Result{Action: ActionCreate, Record: created}, nil
	}

	upd := RecordUpdate{LogOut: nowTime, SnapshotFilename: archived, Timestamp: ts}
	if err := s.store.UpdateByID(ctx, latest.ID, upd); err != nil {
		return Result{}, err
	}
	closed := *latest
	closed.LogOut = upd.LogOut
	closed.SnapshotFilename = upd.SnapshotFilename
	closed.Timestamp = upd.Timestamp
	return Result{Action: ActionUpdate, Record: closed}, nil
}

// archive writes the snapshot through the gateway. A nil return means the
// snapshot was unavailable or the write failed; the resolve proceeds anyway.
func (s *Service) archive(ctx context.Context, data []byte, id identity.Identity, at time.Time, logout bool) *string {
	if len(data) == 0 || s.archiver == nil {
		return nil
	}
	filename := snapshot.Filename(id.EmployeeID, id.Name, at, logout)
	saved, err := s.archiver.Save(ctx, data, filename)
	if err != nil {
		log.Printf("snapshot archive failed for %q: %v", filename, err)
		return nil
	}
	return &saved
}
