package model

import "time"

// Worker is a member of the factory floor staff. Seeded once, read-only after.
type Worker struct {
	ID         string
	Name       string
	Shift      string
	Department string
	CreatedAt  time.Time
}

// Workstation is a physical station observed by a camera.
type Workstation struct {
	ID        string
	Name      string
	Location  string
	Type      string
	CreatedAt time.Time
}

// Window is a half-open time range [Start, End). Nil bounds are open.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// Contains reports whether t falls inside w.
func (w Window) Contains(t time.Time) bool {
	if w.Start != nil && t.Before(*w.Start) {
		return false
	}
	if w.End != nil && !t.Before(*w.End) {
		return false
	}
	return true
}
