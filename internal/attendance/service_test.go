package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrkiosk/internal/attendance"
	"qrkiosk/internal/report"
	"qrkiosk/internal/store"
)

// fakeArchiver records what it was asked to save.
type fakeArchiver struct {
	saved []string
	fail  bool
}

func (f *fakeArchiver) Save(_ context.Context, _ []byte, filename string) (string, error) {
	if f.fail {
		return "", errors.New("disk full")
	}
	f.saved = append(f.saved, filename)
	return filename, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func at(hour, min int) time.Time {
	return time.Date(2026, time.September, 1, hour, min, 0, 0, time.UTC)
}

func TestResolveFirstScanCreatesOpenRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := attendance.NewService(store.NewMemory(), nil).WithClock(fixedClock(at(9, 0)))

	res, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "1023-Jane Doe", Source: attendance.SourceCamera, Mode: attendance.ModeAuto})
	require.NoError(t, err)

	assert.Equal(t, attendance.ActionCreate, res.Action)
	assert.Equal(t, "1023", res.Record.EmployeeID)
	assert.Equal(t, "Jane Doe", res.Record.Name)
	assert.Equal(t, "9/1/2026", res.Record.Date)
	assert.Equal(t, "9:00:00 AM", res.Record.LogIn)
	assert.Empty(t, res.Record.LogOut)
	assert.True(t, res.Record.Open())
}

func TestResolveSecondScanClosesSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := store.NewMemory()
	svc := attendance.NewService(mem, nil).WithClock(fixedClock(at(9, 0)))

	first, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "1023-Jane Doe", Mode: attendance.ModeAuto})
	require.NoError(t, err)

	svc.WithClock(fixedClock(at(17, 0)))
	second, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "1023-Jane Doe", Mode: attendance.ModeAuto})
	require.NoError(t, err)

	assert.Equal(t, attendance.ActionUpdate, second.Action)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, "9:00:00 AM", second.Record.LogIn)
	assert.Equal(t, "5:00:00 PM", second.Record.LogOut)
	assert.Equal(t, "8.00", report.ComputeTotalHours(second.Record.LogIn, second.Record.LogOut))

	stored, err := mem.GetByID(ctx, first.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, "5:00:00 PM", stored.LogOut)
}

func TestResolveClosedSessionStartsNewOne(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := store.NewMemory()
	svc := attendance.NewService(mem, nil).WithClock(fixedClock(at(9, 0)))

	first, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "1023-Jane Doe", Mode: attendance.ModeAuto})
	require.NoError(t, err)

	svc.WithClock(fixedClock(at(12, 0)))
	_, err = svc.Resolve(ctx, attendance.ScanRequest{RawText: "1023-Jane Doe", Mode: attendance.ModeAuto})
	require.NoError(t, err)

	svc.WithClock(fixedClock(at(13, 0)))
	third, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "1023-Jane Doe", Mode: attendance.ModeAuto})
	require.NoError(t, err)

	assert.Equal(t, attendance.ActionCreate, third.Action)
	assert.NotEqual(t, first.Record.ID, third.Record.ID)
	assert.Equal(t, "1:00:00 PM", third.Record.LogIn)
	assert.Empty(t, third.Record.LogOut)

	n, err := mem.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestResolveForcedLogoutWithoutRecordFallsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := attendance.NewService(store.NewMemory(), nil).WithClock(fixedClock(at(18, 30)))

	res, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "Jane Doe", Mode: attendance.ModeLogout})
	require.NoError(t, err)

	assert.Equal(t, attendance.ActionCreate, res.Action)
	assert.Empty(t, res.Record.LogIn)
	assert.Equal(t, "6:30:00 PM", res.Record.LogOut)
}

func TestResolveForcedLoginOpensSecondSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := store.NewMemory()
	svc := attendance.NewService(mem, nil).WithClock(fixedClock(at(9, 0)))

	first, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "42:Bob", Mode: attendance.ModeAuto})
	require.NoError(t, err)

	svc.WithClock(fixedClock(at(10, 0)))
	second, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "42:Bob", Mode: attendance.ModeLogin})
	require.NoError(t, err)

	assert.Equal(t, attendance.ActionCreate, second.Action)
	assert.NotEqual(t, first.Record.ID, second.Record.ID)
	assert.True(t, second.Record.Open())
}

func TestResolveMatchesByEmployeeIDAcrossRawText(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := store.NewMemory()
	svc := attendance.NewService(mem, nil).WithClock(fixedClock(at(9, 0)))

	first, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "1023-Jane Doe", Mode: attendance.ModeAuto})
	require.NoError(t, err)

	// Same employee id scanned from a differently formatted badge.
	svc.WithClock(fixedClock(at(17, 0)))
	second, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "1023", Mode: attendance.ModeAuto})
	require.NoError(t, err)

	assert.Equal(t, attendance.ActionUpdate, second.Action)
	assert.Equal(t, first.Record.ID, second.Record.ID)
}

func TestResolveArchivalFailureDoesNotBlockWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	arch := &fakeArchiver{fail: true}
	svc := attendance.NewService(store.NewMemory(), arch).WithClock(fixedClock(at(9, 0)))

	res, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "1023-Jane Doe", Snapshot: []byte{0xff, 0xd8}})
	require.NoError(t, err)

	assert.Equal(t, attendance.ActionCreate, res.Action)
	assert.Nil(t, res.Record.SnapshotFilename)
}

func TestResolveArchivesSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	arch := &fakeArchiver{}
	svc := attendance.NewService(store.NewMemory(), arch).WithClock(fixedClock(at(9, 0)))

	res, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "1023-Jane Doe", Snapshot: []byte{0xff, 0xd8}})
	require.NoError(t, err)

	require.NotNil(t, res.Record.SnapshotFilename)
	assert.Equal(t, "2026-09-01_09-00-00_1023_jane_doe_in.jpg", *res.Record.SnapshotFilename)
	assert.Len(t, arch.saved, 1)
}

func TestResolveRejectsEmptyPayload(t *testing.T) {
	t.Parallel()
	svc := attendance.NewService(store.NewMemory(), nil)

	_, err := svc.Resolve(context.Background(), attendance.ScanRequest{RawText: ""})
	assert.ErrorIs(t, err, attendance.ErrEmptyScan)
}

func TestResolveKeepsDatesApart(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := store.NewMemory()
	svc := attendance.NewService(mem, nil).WithClock(fixedClock(at(22, 0)))

	_, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "1023-Jane Doe", Mode: attendance.ModeAuto})
	require.NoError(t, err)

	// Next calendar day: yesterday's open record must not be touched.
	svc.WithClock(fixedClock(time.Date(2026, time.September, 2, 9, 0, 0, 0, time.UTC)))
	res, err := svc.Resolve(ctx, attendance.ScanRequest{RawText: "1023-Jane Doe", Mode: attendance.ModeAuto})
	require.NoError(t, err)

	assert.Equal(t, attendance.ActionCreate, res.Action)
	assert.Equal(t, "9/2/2026", res.Record.Date)
}
