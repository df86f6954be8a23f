package publisher

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Action is a playback control verb.
type Action string

const (
	ActionPause   Action = "pause"
	ActionResume  Action = "resume"
	ActionRestart Action = "restart"
	ActionReset   Action = "reset"
	ActionSeek    Action = "seek"
	ActionJump    Action = "jump"
	ActionSpeed   Action = "speed"
)

// Command is a control request. Value is the seek fraction, the waypoint
// index for jump, or the multiplier for speed.
type Command struct {
	Action Action  `json:"action"`
	Value  float64 `json:"value,omitempty"`
}

type ControlReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Controller is the subset of the playback engine commands drive.
type Controller interface {
	RequestPause()
	Resume()
	Restart()
	Reset()
	Seek(f float64)
	JumpTo(index int)
	SetSpeed(multiplier int) error
}

// ParseCommand accepts a JSON object ({"action":"seek","value":0.5}) or a
// plain "seek 0.5" line.
func ParseCommand(data []byte) (Command, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return Command{}, fmt.Errorf("empty command")
	}
	var cmd Command
	if strings.HasPrefix(raw, "{") {
		var msg struct {
			Action string   `json:"action"`
			Value  *float64 `json:"value"`
		}
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return Command{}, fmt.Errorf("decode command: %w", err)
		}
		cmd.Action = Action(strings.ToLower(strings.TrimSpace(msg.Action)))
		if msg.Value != nil {
			cmd.Value = *msg.Value
		}
		return cmd, cmd.validate(msg.Value != nil)
	}

	fields := strings.Fields(raw)
	cmd.Action = Action(strings.ToLower(fields[0]))
	if len(fields) > 2 {
		return Command{}, fmt.Errorf("invalid command: %q", raw)
	}
	hasValue := len(fields) == 2
	if hasValue {
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Command{}, fmt.Errorf("invalid %s value: %q", cmd.Action, fields[1])
		}
		cmd.Value = v
	}
	return cmd, cmd.validate(hasValue)
}

func (c Command) validate(hasValue bool) error {
	switch c.Action {
	case ActionPause, ActionResume, ActionRestart, ActionReset:
		return nil
	case ActionSeek:
		if !hasValue || math.IsNaN(c.Value) {
			return fmt.Errorf("seek needs a fraction")
		}
	case ActionJump, ActionSpeed:
		if !hasValue || c.Value != math.Trunc(c.Value) {
			return fmt.Errorf("%s needs an integer", c.Action)
		}
	default:
		return fmt.Errorf("unknown action %q", c.Action)
	}
	return nil
}

// Apply runs the command against ctl.
func (c Command) Apply(ctl Controller) error {
	switch c.Action {
	case ActionPause:
		ctl.RequestPause()
	case ActionResume:
		ctl.Resume()
	case ActionRestart:
		ctl.Restart()
	case ActionReset:
		ctl.Reset()
	case ActionSeek:
		ctl.Seek(c.Value)
	case ActionJump:
		ctl.JumpTo(int(c.Value))
	case ActionSpeed:
		return ctl.SetSpeed(int(c.Value))
	default:
		return fmt.Errorf("unknown action %q", c.Action)
	}
	return nil
}
