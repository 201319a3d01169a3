package attendance

import (
	"sync"
	"time"
)

// DefaultDebounceWindow matches the kiosk's observed repeat-scan suppression.
const DefaultDebounceWindow = 2 * time.Second

// Debouncer suppresses repeat scans of the identical raw text within a short
// window. Callers must gate Resolve behind Allow; the resolver itself does
// not deduplicate.
type Debouncer struct {
	mu       sync.Mutex
	window   time.Duration
	lastText string
	lastAt   time.Time
	now      func() time.Time
}

// NewDebouncer creates a debouncer; a non-positive window gets the default.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window, now: time.Now}
}

// WithClock overrides the debouncer clock for tests.
func (d *Debouncer) WithClock(now func() time.Time) *Debouncer {
	d.now = now
	return d
}

// Allow reports whether this text should be processed, and records it as the
// last seen scan when it is. A different text always passes.
func (d *Debouncer) Allow(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if text == d.lastText && now.Sub(d.lastAt) < d.window {
		return false
	}
	d.lastText = text
	d.lastAt = now
	return true
}
