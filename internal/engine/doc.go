// Package engine derives trailer occupancy, surcharges, driver payments,
// profitability and the operational reports from a trip collection.
//
// Every function is pure: it takes the collections it needs and recomputes
// its result from scratch. Nothing is cached between calls.
package engine
