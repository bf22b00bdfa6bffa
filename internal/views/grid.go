// Package views derives the dashboard's JSON shapes from a feed payload.
// Everything here is pure; callers pass whatever payload the cache holds.
package views

import "github.com/shreya24m/IITBBSRHACKATHON-2026/internal/neows"

// DefaultAlertThresholdKM is the miss distance below which an object is an alert.
const DefaultAlertThresholdKM = 500000.0

// GridEntry is one cell of the proximity grid.
type GridEntry struct {
	Name       string  `json:"name"`
	Hazardous  bool    `json:"hazardous"`
	DistanceKM float64 `json:"distance_km"`
}

// Alert is an object approaching closer than the alert threshold.
type Alert struct {
	Name       string  `json:"name"`
	DistanceKM float64 `json:"distance_km"`
	Hazardous  bool    `json:"hazardous"`
}

// Grid flattens every object into payload order: date buckets as received,
// then sequence order within a date. Objects without a parsable
// representative distance are omitted.
func Grid(f *neows.Feed) []GridEntry {
	objs := f.Objects()
	grid := make([]GridEntry, 0, len(objs))
	for _, o := range objs {
		d, ok := o.MissDistanceKM()
		if !ok {
			continue
		}
		grid = append(grid, GridEntry{
			Name:       o.Name,
			Hazardous:  o.IsPotentiallyHazardous,
			DistanceKM: d,
		})
	}
	return grid
}

// Alerts returns the grid entries strictly closer than thresholdKM, in grid order.
func Alerts(f *neows.Feed, thresholdKM float64) []Alert {
	alerts := []Alert{}
	for _, g := range Grid(f) {
		if g.DistanceKM < thresholdKM {
			alerts = append(alerts, Alert{
				Name:       g.Name,
				DistanceKM: g.DistanceKM,
				Hazardous:  g.Hazardous,
			})
		}
	}
	return alerts
}
