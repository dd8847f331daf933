package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ukydev/freight-dispatch/internal/models"
)

// DemurrageGrace is how long a trailer may sit at destination before a stay
// is expected to be opened.
const DemurrageGrace = 24 * time.Hour

// DemurrageAlerts returns the ids of in-progress trips with an assignment that
// arrived at destination more than DemurrageGrace before now without a
// StayStart being recorded.
func DemurrageAlerts(trips []models.Trip, now time.Time) []string {
	alerts := []string{}
	for _, trip := range trips {
		if trip.IsDeleted || trip.Status != models.TripInProgress {
			continue
		}
		for _, a := range trip.Assignments {
			arrival, ok := a.FirstEvent(models.EventArrivalAtDestination)
			if !ok {
				continue
			}
			if _, stay := a.FirstEvent(models.EventStayStart); stay {
				continue
			}
			if now.After(arrival.Timestamp.Add(DemurrageGrace)) {
				alerts = append(alerts, trip.Key())
				break
			}
		}
	}
	return alerts
}

// MonthlyFuelByTruck sums the gallons refuelled per truck during now's
// calendar month.
func MonthlyFuelByTruck(trips []models.Trip, now time.Time) map[string]float64 {
	totals := map[string]decimal.Decimal{}
	year, month, _ := now.Date()
	for _, trip := range trips {
		for _, a := range trip.Assignments {
			if a.TruckID == "" {
				continue
			}
			for _, e := range a.Events {
				if e.Type != models.EventRefuel || e.Refuel == nil || e.Refuel.Gallons == 0 {
					continue
				}
				y, m, _ := e.Timestamp.In(now.Location()).Date()
				if y != year || m != month {
					continue
				}
				totals[a.TruckID] = totals[a.TruckID].Add(money(e.Refuel.Gallons))
			}
		}
	}
	out := make(map[string]float64, len(totals))
	for truck, gallons := range totals {
		out[truck] = toFloat(gallons)
	}
	return out
}

const unspecifiedClient = "unspecified client"

// ClientWorkOrders groups the completed trips of one client.
type ClientWorkOrders struct {
	ClientName string        `json:"client_name"`
	Orders     []models.Trip `json:"orders"`
	Active     int           `json:"active"`
	Invoiced   int           `json:"invoiced"`
	Billable   float64       `json:"billable"`
}

// WorkOrdersByClient groups completed, non-deleted trips by client name.
// Groups are sorted by client name and orders by creation time, newest first.
func WorkOrdersByClient(trips []models.Trip) []ClientWorkOrders {
	groups := map[string]*ClientWorkOrders{}
	billable := map[string]decimal.Decimal{}
	for _, trip := range trips {
		if !trip.IsCompleted() {
			continue
		}
		name := trip.ClientName
		if name == "" {
			name = unspecifiedClient
		}
		g, ok := groups[name]
		if !ok {
			g = &ClientWorkOrders{ClientName: name}
			groups[name] = g
		}
		g.Orders = append(g.Orders, trip)
		if trip.EffectiveInvoiceStatus() == models.InvoiceActive {
			g.Active++
		} else {
			g.Invoiced++
		}
		billable[name] = billable[name].Add(orderAmount(trip))
	}

	out := make([]ClientWorkOrders, 0, len(groups))
	for name, g := range groups {
		sort.SliceStable(g.Orders, func(i, j int) bool {
			return g.Orders[i].CreatedAt.After(g.Orders[j].CreatedAt)
		})
		g.Billable = toFloat(billable[name])
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientName < out[j].ClientName })
	return out
}

// orderAmount is what the client is billed for a trip.
func orderAmount(trip models.Trip) decimal.Decimal {
	total := money(trip.Demurrage).Add(money(trip.UnhookCost))
	for _, a := range trip.Assignments {
		total = total.Add(money(a.Cost)).Add(money(a.DMTICost))
	}
	return total
}

// DailyCount is the number of trips created on one calendar day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DashboardStats are the headline figures of the dashboard.
type DashboardStats struct {
	WeeklyTrips     int          `json:"weekly_trips"`
	MonthlyTrips    int          `json:"monthly_trips"`
	YearlyTrips     int          `json:"yearly_trips"`
	InProgressTrips []string     `json:"in_progress_trips"`
	LastSevenDays   []DailyCount `json:"last_seven_days"`
}

// Dashboard counts non-deleted trips created in the last seven days, this
// month and this year, relative to now and in now's location.
func Dashboard(trips []models.Trip, now time.Time) DashboardStats {
	loc := now.Location()
	weekAgo := now.AddDate(0, 0, -7)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	startOfYear := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc)

	stats := DashboardStats{InProgressTrips: []string{}, LastSevenDays: make([]DailyCount, 7)}
	dayIndex := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		date := now.AddDate(0, 0, i-6).Format(DateLayout)
		stats.LastSevenDays[i] = DailyCount{Date: date}
		dayIndex[date] = i
	}

	for _, trip := range trips {
		if trip.IsDeleted {
			continue
		}
		created := trip.CreatedAt.In(loc)
		if !created.Before(weekAgo) {
			stats.WeeklyTrips++
		}
		if !created.Before(startOfMonth) {
			stats.MonthlyTrips++
		}
		if !created.Before(startOfYear) {
			stats.YearlyTrips++
		}
		if i, ok := dayIndex[created.Format(DateLayout)]; ok {
			stats.LastSevenDays[i].Count++
		}
		if trip.Status == models.TripInProgress {
			stats.InProgressTrips = append(stats.InProgressTrips, trip.Key())
		}
	}
	return stats
}

// SearchTrips returns the trips whose deletion flag equals deleted and that
// match query on service order, client, bill of lading, container number or
// merchandise type. Results are sorted by creation time, newest first.
func SearchTrips(trips []models.Trip, query string, deleted bool) []models.Trip {
	needle := strings.ToLower(strings.TrimSpace(query))
	out := []models.Trip{}
	for _, trip := range trips {
		if trip.IsDeleted != deleted {
			continue
		}
		if needle == "" || tripMatches(trip, needle) {
			out = append(out, trip)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func tripMatches(trip models.Trip, needle string) bool {
	fields := []string{trip.ServiceOrder, trip.ClientName, trip.BillOfLading}
	for _, a := range trip.Assignments {
		fields = append(fields, a.ContainerNumber, a.MerchandiseType)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
