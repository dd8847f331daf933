package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ukydev/freight-dispatch/internal/models"
)

// LineItem is one labelled amount of a profitability breakdown.
type LineItem struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// TripProfitability is the revenue and cost breakdown of one completed trip.
type TripProfitability struct {
	TripID       string     `json:"trip_id"`
	ServiceOrder string     `json:"service_order"`
	ClientName   string     `json:"client_name"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Revenue      []LineItem `json:"revenue"`
	Costs        []LineItem `json:"costs"`
	TotalRevenue float64    `json:"total_revenue"`
	TotalCost    float64    `json:"total_cost"`
	Profit       float64    `json:"profit"`
	Margin       float64    `json:"margin"`
}

// Profitability breaks down every completed, non-deleted trip updated within
// r, most recently updated first.
//
// The assignment cost is booked twice: as freight revenue and as the driver
// payment. Profit therefore comes only from DMTI fees, surcharges, movements
// and fuel.
func Profitability(trips []models.Trip, r DateRange) []TripProfitability {
	out := []TripProfitability{}
	for _, trip := range trips {
		if !trip.IsCompleted() || !r.Contains(trip.UpdatedAt) {
			continue
		}
		out = append(out, tripProfitability(trip))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func tripProfitability(trip models.Trip) TripProfitability {
	var revenue, costs []LineItem
	totalRevenue, totalCost := decimal.Zero, decimal.Zero
	addRevenue := func(label string, amount decimal.Decimal) {
		revenue = append(revenue, LineItem{Label: label, Amount: toFloat(amount)})
		totalRevenue = totalRevenue.Add(amount)
	}
	addCost := func(label string, amount decimal.Decimal) {
		costs = append(costs, LineItem{Label: label, Amount: toFloat(amount)})
		totalCost = totalCost.Add(amount)
	}

	for i, a := range trip.Assignments {
		fallback := fmt.Sprintf("Asg. %d", i+1)

		detail := a.CargoLabel(trip.CargoType)
		if detail == "" {
			detail = fallback
		}
		addRevenue(fmt.Sprintf("Freight (%s)", detail), money(a.Cost))
		if a.DMTICost != 0 {
			addRevenue(fmt.Sprintf("DMTI service (%s)", a.ContainerNumber), money(a.DMTICost))
		}

		payee := a.ContainerNumber
		if payee == "" {
			payee = a.MerchandiseType
		}
		if payee == "" {
			payee = fallback
		}
		addCost(fmt.Sprintf("Driver payment (%s)", payee), money(a.Cost))

		for _, e := range a.Events {
			switch {
			case isPayableMovement(e):
				notes := e.Notes
				if notes == "" {
					notes = notAvailable
				}
				addCost(fmt.Sprintf("Movement (%s)", notes), money(e.Movement.Amount))
			case e.Type == models.EventRefuel && e.Refuel != nil && e.Refuel.Gallons != 0 && e.Refuel.PricePerGallon != 0:
				addCost(fmt.Sprintf("Refuel (%s)", e.Refuel.DocumentNumber), money(e.Refuel.Gallons).Mul(money(e.Refuel.PricePerGallon)))
			}
		}
	}
	if trip.UnhookCost != 0 {
		addRevenue("Unhook charges", money(trip.UnhookCost))
	}
	if trip.Demurrage != 0 {
		addRevenue("Demurrage charges", money(trip.Demurrage))
	}

	profit := totalRevenue.Sub(totalCost)
	margin := decimal.Zero
	if totalRevenue.IsPositive() {
		margin = profit.Div(totalRevenue).Mul(decimal.NewFromInt(100))
	}
	return TripProfitability{
		TripID:       trip.Key(),
		ServiceOrder: trip.ServiceOrder,
		ClientName:   trip.ClientName,
		UpdatedAt:    trip.UpdatedAt,
		Revenue:      revenue,
		Costs:        costs,
		TotalRevenue: toFloat(totalRevenue),
		TotalCost:    toFloat(totalCost),
		Profit:       toFloat(profit),
		Margin:       percent(margin),
	}
}

// ProfitabilitySummary aggregates a profitability report.
type ProfitabilitySummary struct {
	Trips        int     `json:"trips"`
	TotalRevenue float64 `json:"total_revenue"`
	TotalCost    float64 `json:"total_cost"`
	Profit       float64 `json:"profit"`
	Margin       float64 `json:"margin"`
}

// ProfitabilityTotals sums the rows of a report.
func ProfitabilityTotals(rows []TripProfitability) ProfitabilitySummary {
	revenue, cost := decimal.Zero, decimal.Zero
	for _, row := range rows {
		revenue = revenue.Add(money(row.TotalRevenue))
		cost = cost.Add(money(row.TotalCost))
	}
	profit := revenue.Sub(cost)
	margin := decimal.Zero
	if revenue.IsPositive() {
		margin = profit.Div(revenue).Mul(decimal.NewFromInt(100))
	}
	return ProfitabilitySummary{
		Trips:        len(rows),
		TotalRevenue: toFloat(revenue),
		TotalCost:    toFloat(cost),
		Profit:       toFloat(profit),
		Margin:       percent(margin),
	}
}
