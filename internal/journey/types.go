package journey

import (
	"strings"
	"time"
)

// Mode is the transport mode of a leg.
type Mode string

const (
	ModeUnknown    Mode = ""
	ModeFlight     Mode = "flight"
	ModeCar        Mode = "car"
	ModeTrain      Mode = "train"
	ModeBus        Mode = "bus"
	ModeFerry      Mode = "ferry"
	ModeMetro      Mode = "metro"
	ModeTram       Mode = "tram"
	ModeWalk       Mode = "walk"
	ModeBike       Mode = "bike"
	ModeScooter    Mode = "scooter"
	ModeMotorcycle Mode = "motorcycle"
)

var modeAliases = map[string]Mode{
	"flight":     ModeFlight,
	"plane":      ModeFlight,
	"airplane":   ModeFlight,
	"car":        ModeCar,
	"automobile": ModeCar,
	"train":      ModeTrain,
	"rail":       ModeTrain,
	"railway":    ModeTrain,
	"bus":        ModeBus,
	"coach":      ModeBus,
	"ferry":      ModeFerry,
	"boat":       ModeFerry,
	"ship":       ModeFerry,
	"metro":      ModeMetro,
	"subway":     ModeMetro,
	"tram":       ModeTram,
	"walk":       ModeWalk,
	"bike":       ModeBike,
	"bicycle":    ModeBike,
	"scooter":    ModeScooter,
	"motorcycle": ModeMotorcycle,
}

// ParseMode normalises a free-form mode name. Unrecognised names map to
// ModeUnknown, which downstream calculations treat as a car.
func ParseMode(s string) Mode {
	return modeAliases[strings.ToLower(strings.TrimSpace(s))]
}

// Overland reports whether the mode travels on the ground or water.
func (m Mode) Overland() bool {
	return m != ModeFlight
}

// Leg is one recorded travel segment. CostAmount is in the base currency.
type Leg struct {
	Date            time.Time
	OriginCode      string
	DestinationCode string
	Mode            Mode
	CostAmount      *float64
	DurationHours   *float64
}

// Location is what a Resolver knows about a location code.
type Location struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
	Country     string
}

// Waypoint is one visited-location occurrence in the playback sequence. Its
// fields are fixed once the Sequencer has emitted it.
type Waypoint struct {
	LocationCode  string
	DisplayName   string
	Country       string
	Latitude      float64
	Longitude     float64
	Date          time.Time
	SequenceIndex int
	// OriginatingLeg is nil for an origin waypoint that opens a sequence or a
	// disconnected run.
	OriginatingLeg *Leg
	IsDisconnected bool
}
