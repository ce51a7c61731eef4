package domain

import "time"

// Period bounds a listing by date. Both ends are inclusive and a nil bound is
// open.
type Period struct {
	From *time.Time
	To   *time.Time
}

func (p Period) Contains(t time.Time) bool {
	if p.From != nil && t.Before(*p.From) {
		return false
	}
	if p.To != nil && t.After(*p.To) {
		return false
	}
	return true
}

func (p Period) Validate() error {
	if p.From != nil && p.To != nil && p.To.Before(*p.From) {
		return Invalid("to", "must not be before from")
	}
	return nil
}
