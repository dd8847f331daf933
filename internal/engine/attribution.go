package engine

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/ukydev/freight-dispatch/internal/models"
)

// MovementAttributor decides which driver a Movement payment belongs to.
// The notes fallback matches free text against driver names; keep that rule
// here so it can be replaced once movements always carry a driver id.
type MovementAttributor struct {
	eligible map[string]bool
	byName   map[string]string
}

// NewMovementAttributor indexes drivers. Only non-deleted drivers can be
// credited, but names of deleted drivers still resolve.
func NewMovementAttributor(drivers []models.Driver) *MovementAttributor {
	r := &MovementAttributor{
		eligible: make(map[string]bool, len(drivers)),
		byName:   make(map[string]string, len(drivers)),
	}
	for _, d := range drivers {
		r.byName[foldName(d.Name)] = d.Key()
		if !d.IsDeleted {
			r.eligible[d.Key()] = true
		}
	}
	return r
}

// Resolve returns the driver credited for a Movement event recorded on a,
// or "" when nobody eligible matches. Precedence: the explicit driver id,
// then a driver whose name equals the notes, then the assignment's driver.
func (r *MovementAttributor) Resolve(e models.Event, a models.Assignment) string {
	if e.Movement != nil && e.Movement.AssignedDriverID != "" && r.eligible[e.Movement.AssignedDriverID] {
		return e.Movement.AssignedDriverID
	}
	if e.Notes != "" {
		if id, ok := r.byName[foldName(e.Notes)]; ok && r.eligible[id] {
			return id
		}
	}
	if r.eligible[a.DriverID] {
		return a.DriverID
	}
	return ""
}

func foldName(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// isPayableMovement reports whether e is a Movement with a non-zero amount.
func isPayableMovement(e models.Event) bool {
	return e.Type == models.EventMovement && e.Movement != nil && e.Movement.Amount != 0
}
