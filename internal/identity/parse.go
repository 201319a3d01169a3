// Package identity turns raw scanned badge text into an employee identity.
package identity

import (
	"regexp"
	"strings"
)

// Identity is the (employee id, display name) pair carried on every
// attendance record. Either field may be empty.
type Identity struct {
	EmployeeID string `json:"employee_id"`
	Name       string `json:"name"`
}

var (
	idThenName = regexp.MustCompile(`^\d+\s*[-:]\s*[A-Za-z]`)
	nameThenID = regexp.MustCompile(`[A-Za-z].*[-:]\s*\d+$`)
	hasLetter  = regexp.MustCompile(`[A-Za-z]`)
	longDigits = regexp.MustCompile(`\d{6,}`)
	allDigits  = regexp.MustCompile(`^\d+$`)
	separator  = regexp.MustCompile(`[-:]`)
)

// Parse extracts the employee id and name from scanned text. It never fails;
// unrecognized input lands in the name field. Rules are applied in order,
// first match wins:
//
//  1. "<digits>[-:]<name>"  -> id left, name right
//  2. "<name>[-:]<digits>"  -> name left, id right
//
// Both split forms use only the first two separator-delimited segments;
// text past a second separator is dropped.
//  3. contains a letter, no 6+ digit run -> whole text is the name
//  4. all digits -> whole text is the id
//  5. anything else -> whole text is the name
func Parse(raw string) Identity {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Identity{}
	}

	switch {
	case idThenName.MatchString(text):
		left, right := splitFields(text)
		return Identity{EmployeeID: left, Name: right}
	case nameThenID.MatchString(text):
		left, right := splitFields(text)
		return Identity{EmployeeID: right, Name: left}
	case hasLetter.MatchString(text) && !longDigits.MatchString(text):
		return Identity{Name: text}
	case allDigits.MatchString(text):
		return Identity{EmployeeID: text}
	default:
		return Identity{Name: text}
	}
}

// splitFields splits on '-' and ':' and returns the first two segments
// trimmed. Anything past a second separator is discarded.
func splitFields(text string) (string, string) {
	parts := separator.Split(text, 3)
	if len(parts) < 2 {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// Empty reports whether parsing produced no usable identity at all.
func (id Identity) Empty() bool {
	return id.EmployeeID == "" && id.Name == ""
}

// Display returns the best human-readable label for the identity.
func (id Identity) Display(fallback string) string {
	if id.Name != "" {
		return id.Name
	}
	if id.EmployeeID != "" {
		return id.EmployeeID
	}
	return fallback
}
