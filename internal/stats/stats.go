// Package stats derives per-leg figures (distance, time, CO2, cost) and the
// running totals built from them. Every function here is pure; playback calls
// it both step by step and in bulk after a seek, and must get the same result.
package stats

import (
	"journey-player/internal/geodesy"
	"journey-player/internal/journey"
)

// CruiseSpeedKmh is the assumed average speed for legs without an explicit
// duration.
const CruiseSpeedKmh = 900.0

const (
	flightFactor = 0.25
	carFactor    = 0.12
)

// kg CO2 per km
var emissionFactors = map[journey.Mode]float64{
	journey.ModeFlight:     flightFactor,
	journey.ModeCar:        carFactor,
	journey.ModeTrain:      0.04,
	journey.ModeBus:        0.08,
	journey.ModeFerry:      0.15,
	journey.ModeMetro:      0.03,
	journey.ModeTram:       0.03,
	journey.ModeWalk:       0,
	journey.ModeBike:       0,
	journey.ModeScooter:    0.02,
	journey.ModeMotorcycle: 0.09,
}

// Totals are running or per-leg figures. CostBase is in the base currency.
type Totals struct {
	DistanceKm float64 `json:"distanceKm"`
	TimeHours  float64 `json:"timeHours"`
	CO2Kg      float64 `json:"co2Kg"`
	CostBase   float64 `json:"costBase"`
}

func (t Totals) Add(o Totals) Totals {
	return Totals{
		DistanceKm: t.DistanceKm + o.DistanceKm,
		TimeHours:  t.TimeHours + o.TimeHours,
		CO2Kg:      t.CO2Kg + o.CO2Kg,
		CostBase:   t.CostBase + o.CostBase,
	}
}

func (t Totals) Scale(f float64) Totals {
	return Totals{
		DistanceKm: t.DistanceKm * f,
		TimeHours:  t.TimeHours * f,
		CO2Kg:      t.CO2Kg * f,
		CostBase:   t.CostBase * f,
	}
}

// Calculator holds the one policy choice in leg arithmetic: which modes take
// an explicit durationHours as authoritative.
type Calculator struct {
	durationModes map[journey.Mode]bool
}

// NewCalculator returns a Calculator honouring explicit durations for the
// given modes. With no modes every overland mode qualifies.
func NewCalculator(durationModes ...journey.Mode) Calculator {
	if len(durationModes) == 0 {
		return Calculator{}
	}
	m := make(map[journey.Mode]bool, len(durationModes))
	for _, mode := range durationModes {
		m[mode] = true
	}
	return Calculator{durationModes: m}
}

func (c Calculator) honoursDuration(mode journey.Mode) bool {
	if c.durationModes == nil {
		return mode.Overland()
	}
	return c.durationModes[mode]
}

func (c Calculator) LegDistanceKm(from, to journey.Waypoint) float64 {
	return geodesy.HaversineKm(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}

func (c Calculator) LegTimeHours(distanceKm float64, leg *journey.Leg) float64 {
	if leg != nil && leg.DurationHours != nil && c.honoursDuration(journey.ParseMode(string(leg.Mode))) {
		return *leg.DurationHours
	}
	return distanceKm / CruiseSpeedKmh
}

func (c Calculator) LegEmissionsKg(distanceKm float64, leg *journey.Leg) float64 {
	return distanceKm * EmissionFactor(leg)
}

// EmissionFactor is kg CO2 per km for the leg's mode. A nil leg counts as a
// flight and an unknown mode as a car.
func EmissionFactor(leg *journey.Leg) float64 {
	if leg == nil {
		return flightFactor
	}
	if f, ok := emissionFactors[journey.ParseMode(string(leg.Mode))]; ok {
		return f
	}
	return carFactor
}

// LegCostBase is the recorded cost, or zero when it is absent or not
// positive. No estimate is made.
func LegCostBase(leg *journey.Leg) float64 {
	if leg == nil || leg.CostAmount == nil || *leg.CostAmount <= 0 {
		return 0
	}
	return *leg.CostAmount
}

// Leg returns all four figures for travelling from one waypoint to the next,
// attributed to the leg that produced to.
func (c Calculator) Leg(from, to journey.Waypoint) Totals {
	leg := to.OriginatingLeg
	d := c.LegDistanceKm(from, to)
	return Totals{
		DistanceKm: d,
		TimeHours:  c.LegTimeHours(d, leg),
		CO2Kg:      c.LegEmissionsKg(d, leg),
		CostBase:   LegCostBase(leg),
	}
}

// Step returns the figures for arriving at waypoints[k]. ok is false when the
// arrival is a hop to a disconnected origin, which contributes nothing.
func (c Calculator) Step(waypoints []journey.Waypoint, k int) (t Totals, ok bool) {
	if k <= 0 || k >= len(waypoints) || waypoints[k].OriginatingLeg == nil {
		return Totals{}, false
	}
	return c.Leg(waypoints[k-1], waypoints[k]), true
}

// Sum adds every step from waypoint 1 through waypoint `through`, in order.
func (c Calculator) Sum(waypoints []journey.Waypoint, through int) Totals {
	var total Totals
	for k := 1; k <= through && k < len(waypoints); k++ {
		if t, ok := c.Step(waypoints, k); ok {
			total = total.Add(t)
		}
	}
	return total
}
