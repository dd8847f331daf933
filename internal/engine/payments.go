package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ukydev/freight-dispatch/internal/apperr"
	"github.com/ukydev/freight-dispatch/internal/models"
)

// PaymentFilter narrows the driver payment summary.
type PaymentFilter struct {
	Range    DateRange
	DriverID string
}

// DriverPayment is one row of the payment summary.
type DriverPayment struct {
	DriverID     string  `json:"driver_id"`
	DriverName   string  `json:"driver_name"`
	TripCount    int     `json:"trip_count"`
	TotalPayment float64 `json:"total_payment"`
}

type paymentRow struct {
	name  string
	total decimal.Decimal
	trips map[string]struct{}
}

// DriverPayments totals what each non-deleted driver is owed. Assignment
// costs are credited for completed trips updated within the range; movement
// payments are credited from every non-deleted trip regardless of range.
// Drivers with neither trips nor payments are dropped, and the rest are
// sorted by total payment, highest first.
func DriverPayments(trips []models.Trip, drivers []models.Driver, filter PaymentFilter) []DriverPayment {
	rows := make(map[string]*paymentRow, len(drivers))
	for _, d := range drivers {
		if d.IsDeleted {
			continue
		}
		rows[d.Key()] = &paymentRow{name: d.Name, trips: map[string]struct{}{}}
	}

	attributor := NewMovementAttributor(drivers)
	for _, trip := range trips {
		if trip.IsDeleted {
			continue
		}
		if trip.Status == models.TripCompleted && filter.Range.Contains(trip.UpdatedAt) {
			for _, a := range trip.Assignments {
				if row, ok := rows[a.DriverID]; ok {
					row.total = row.total.Add(money(a.Cost))
					row.trips[trip.Key()] = struct{}{}
				}
			}
		}
		for _, a := range trip.Assignments {
			for _, e := range a.Events {
				if !isPayableMovement(e) {
					continue
				}
				if row, ok := rows[attributor.Resolve(e, a)]; ok {
					row.total = row.total.Add(money(e.Movement.Amount))
				}
			}
		}
	}

	out := []DriverPayment{}
	for id, row := range rows {
		if filter.DriverID != "" && id != filter.DriverID {
			continue
		}
		if len(row.trips) == 0 && row.total.IsZero() {
			continue
		}
		out = append(out, DriverPayment{
			DriverID:     id,
			DriverName:   row.name,
			TripCount:    len(row.trips),
			TotalPayment: toFloat(row.total),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPayment != out[j].TotalPayment {
			return out[i].TotalPayment > out[j].TotalPayment
		}
		return out[i].DriverName < out[j].DriverName
	})
	return out
}

// CompletedAssignment is an assignment credited to a driver, with the trip it
// belongs to.
type CompletedAssignment struct {
	TripID       string    `json:"trip_id"`
	ServiceOrder string    `json:"service_order"`
	ClientName   string    `json:"client_name"`
	CompletedAt  time.Time `json:"completed_at"`
	AssignmentID string    `json:"assignment_id"`
	Cargo        string    `json:"cargo"`
	Payment      float64   `json:"payment"`
}

// MovementPayment is a Movement event credited to a driver.
type MovementPayment struct {
	TripID       string    `json:"trip_id"`
	ServiceOrder string    `json:"service_order"`
	AssignmentID string    `json:"assignment_id"`
	Timestamp    time.Time `json:"timestamp"`
	Amount       float64   `json:"amount"`
	Notes        string    `json:"notes,omitempty"`
}

// DriverDetails is the drill-down behind one row of the payment summary.
type DriverDetails struct {
	DriverID        string                `json:"driver_id"`
	DriverName      string                `json:"driver_name"`
	Assignments     []CompletedAssignment `json:"assignments"`
	Movements       []MovementPayment     `json:"movements"`
	AssignmentTotal float64               `json:"assignment_total"`
	MovementTotal   float64               `json:"movement_total"`
	Total           float64               `json:"total"`
}

// DriverDetail lists the completed assignments in range and the movements
// credited to driverID. Movements use the same resolver as DriverPayments so
// the totals agree with the summary row.
func DriverDetail(trips []models.Trip, drivers []models.Driver, driverID string, r DateRange) (DriverDetails, error) {
	var driver *models.Driver
	for i := range drivers {
		if drivers[i].Key() == driverID && !drivers[i].IsDeleted {
			driver = &drivers[i]
			break
		}
	}
	if driver == nil {
		return DriverDetails{}, apperr.E(apperr.NotFound, "driver %s not found", driverID)
	}

	details := DriverDetails{
		DriverID:    driverID,
		DriverName:  driver.Name,
		Assignments: []CompletedAssignment{},
		Movements:   []MovementPayment{},
	}
	assignmentTotal, movementTotal := decimal.Zero, decimal.Zero
	attributor := NewMovementAttributor(drivers)

	for _, trip := range trips {
		if trip.IsDeleted {
			continue
		}
		if trip.Status == models.TripCompleted && r.Contains(trip.UpdatedAt) {
			for _, a := range trip.Assignments {
				if a.DriverID != driverID {
					continue
				}
				details.Assignments = append(details.Assignments, CompletedAssignment{
					TripID:       trip.Key(),
					ServiceOrder: trip.ServiceOrder,
					ClientName:   trip.ClientName,
					CompletedAt:  trip.UpdatedAt,
					AssignmentID: a.ID,
					Cargo:        a.CargoLabel(trip.CargoType),
					Payment:      a.Cost,
				})
				assignmentTotal = assignmentTotal.Add(money(a.Cost))
			}
		}
		for _, a := range trip.Assignments {
			for _, e := range a.Events {
				if !isPayableMovement(e) || attributor.Resolve(e, a) != driverID {
					continue
				}
				details.Movements = append(details.Movements, MovementPayment{
					TripID:       trip.Key(),
					ServiceOrder: trip.ServiceOrder,
					AssignmentID: a.ID,
					Timestamp:    e.Timestamp,
					Amount:       e.Movement.Amount,
					Notes:        e.Notes,
				})
				movementTotal = movementTotal.Add(money(e.Movement.Amount))
			}
		}
	}

	sort.SliceStable(details.Assignments, func(i, j int) bool {
		return details.Assignments[i].CompletedAt.After(details.Assignments[j].CompletedAt)
	})
	sort.SliceStable(details.Movements, func(i, j int) bool {
		return details.Movements[i].Timestamp.After(details.Movements[j].Timestamp)
	})
	details.AssignmentTotal = toFloat(assignmentTotal)
	details.MovementTotal = toFloat(movementTotal)
	details.Total = toFloat(assignmentTotal.Add(movementTotal))
	return details, nil
}
