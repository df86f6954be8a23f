package playback

import (
	"errors"
	"slices"

	"journey-player/internal/stats"
)

// Phase is the engine's position in its state machine.
type Phase int

const (
	Idle Phase = iota
	Playing
	PausePending
	Paused
	Complete
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case PausePending:
		return "pause_pending"
	case Paused:
		return "paused"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Speeds are the accepted speed multipliers.
var Speeds = []int{1, 10, 20, 100}

// ErrUnsupportedSpeed is returned by SetSpeed for a multiplier outside Speeds.
var ErrUnsupportedSpeed = errors.New("unsupported speed multiplier")

// ValidSpeed reports whether m is one of Speeds.
func ValidSpeed(m int) bool { return slices.Contains(Speeds, m) }

// State is the playback state exposed to observers. CurrentIndex ranges over
// [0, len(waypoints)]; len means the journey is complete.
type State struct {
	Phase           Phase        `json:"phase"`
	CurrentIndex    int          `json:"currentIndex"`
	IsPlaying       bool         `json:"isPlaying"`
	PausePending    bool         `json:"pausePending"`
	SpeedMultiplier int          `json:"speedMultiplier"`
	Cumulative      stats.Totals `json:"cumulative"`
}

func initialState(speed int) State {
	return State{Phase: Idle, SpeedMultiplier: speed}
}
