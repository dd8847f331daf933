package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ukydev/freight-dispatch/internal/models"
)

const day = 24 * time.Hour

// Surcharge holds the trip-level totals persisted on save.
type Surcharge struct {
	Demurrage  float64 `json:"demurrage"`
	UnhookCost float64 `json:"unhook_cost"`
}

// Demurrage bills every started day between the first StayStart and the first
// StayEnd of each assignment at the StayStart rate.
func Demurrage(assignments []models.Assignment) float64 {
	total := decimal.Zero
	for _, a := range assignments {
		total = total.Add(assignmentDemurrage(a))
	}
	return toFloat(total)
}

func assignmentDemurrage(a models.Assignment) decimal.Decimal {
	start, ok := a.FirstEvent(models.EventStayStart)
	if !ok || start.StayStart == nil || start.StayStart.DemurrageRate <= 0 {
		return decimal.Zero
	}
	end, ok := a.FirstEvent(models.EventStayEnd)
	if !ok {
		return decimal.Zero
	}
	ms := end.Timestamp.Sub(start.Timestamp).Milliseconds()
	if ms <= 0 {
		return decimal.Zero
	}
	days := (ms + day.Milliseconds() - 1) / day.Milliseconds()
	return money(start.StayStart.DemurrageRate).Mul(decimal.NewFromInt(days))
}

// UnhookTotal sums the cost of every Unhook event.
func UnhookTotal(assignments []models.Assignment) float64 {
	total := decimal.Zero
	for _, a := range assignments {
		for _, e := range a.Events {
			if e.Type == models.EventUnhook && e.Unhook != nil {
				total = total.Add(money(e.Unhook.Cost))
			}
		}
	}
	return toFloat(total)
}

// Surcharges recomputes both totals from the event logs.
func Surcharges(assignments []models.Assignment) Surcharge {
	return Surcharge{Demurrage: Demurrage(assignments), UnhookCost: UnhookTotal(assignments)}
}

// CanComplete reports whether any assignment has returned empty.
func CanComplete(assignments []models.Assignment) bool {
	for _, a := range assignments {
		if _, ok := a.FirstEvent(models.EventEmptyReturnEnd); ok {
			return true
		}
	}
	return false
}
